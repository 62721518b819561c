// Package guard decides, from a session snapshot alone, whether a page may
// render, must show the loading placeholder, or must redirect.
//
// Evaluate is pure: it performs no I/O and keeps no state, so it is safe to
// call on every request. The HTTP adapter lives in package middleware.
//
// # Decision order
//
//  1. Unresolved sessions render the loading placeholder and never redirect.
//  2. Anonymous sessions are sent to the login page.
//  3. A role requirement the user does not meet sends them to the landing page.
//  4. Everything else renders.
package guard
