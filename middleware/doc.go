// Package middleware exposes HTTP adapters that put a goAttend.Session on
// every request and gate pages on it.
//
// # Adapters
//
//   - [Guard] — page gate: loading placeholder, 303 redirects, or the page.
//   - [RequireAPI] — the same decision for JSON endpoints: 503, 401 or 403.
//   - [Session] — attaches the session without gating, for public pages.
//
// The browsing session is identified by an HttpOnly cookie holding a random
// id. A request without a usable cookie gets a fresh id.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Session calls. Decisions are
// delegated to guard.Evaluate; credentials are never read here.
package middleware
