// Package tokenstore keeps the bearer credential of one browsing session.
//
// A [Store] fronts a session-scoped persistent [Backend] with an in-memory
// cache. Reads fall back to the backend when the cache is empty and a
// successful fallback repopulates the cache. [RedisBackend] persists one key
// per browsing session with a TTL; [MemoryBackend] serves tests and
// single-process runs.
//
// # What this package must NOT do
//
//   - Interpret the token (it is opaque here; see package jwt).
//   - Import goAttend or apiclient.
//   - Persist anything other than the token string.
package tokenstore
