// Package portal is the browser-facing HTTP surface: server-rendered pages
// behind the route guard, form posts for the public auth pages and JSON
// actions under /actions. Every backend call goes through the caller's
// Session, and a 401 or 403 from the backend logs the session out.
package portal
