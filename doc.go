// Package goAttend is the authentication gate of the attendance portal: it
// keeps one [Session] per browsing session, recovers sessions from a persisted
// bearer credential, and exposes the role flags every page is gated on.
//
// The package is designed for concurrent server workloads: [Engine] and
// [Session] methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAttend is the public surface. It exposes [Engine], [Builder], [Config],
// [Session] and value types ([User], [State], [MetricsSnapshot]). The bearer
// credential lives in package tokenstore, outbound calls go through package
// apiclient, and page-level decisions are made by package guard.
//
// # What this package must NOT do
//
//   - Call feature endpoints other than GET /auth/profile.
//   - Expose Redis clients or token backends in its public API.
//   - Import guard, middleware, or backend (no import cycles).
//
// # Recovery contract
//
// A Session resolves exactly once. Recovery never returns an error to its
// caller: every failure clears the stored credential and leaves the Session
// anonymous, and is reported through logs, metrics and audit events.
package goAttend
