// Package apiclient is the single outbound transport to the attendance
// backend.
//
// One [Client] is built per process with a fixed base URL. [Client.WithTokens]
// returns a view bound to one browsing session's token source; the view shares
// the base configuration and runs the same ordered request hooks, the first of
// which attaches "Authorization: Bearer <token>" when a credential is present.
//
// # What this package must NOT do
//
//   - Retry requests.
//   - Interpret status codes beyond turning non-2xx into [*StatusError]
//     (callers decide what 401/403 means for their session).
//   - Import goAttend, tokenstore, or guard.
package apiclient
