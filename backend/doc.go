// Package backend is the typed surface of the attendance REST API.
//
// Every method goes through an apiclient.Client, so the bearer credential of
// the session the client is bound to is attached automatically. Responses
// that carry data every caller depends on implement apiclient.Validator and
// fail with apiclient.ErrSchema when the backend sends something else.
package backend
