// Package role defines the closed set of portal roles and the allowed-roles
// requirement attached to protected pages.
//
// # What this package must NOT do
//
//   - Perform I/O or look up roles remotely.
//   - Import goAttend, guard, or middleware.
package role
