// Package jwt inspects bearer credentials issued by the attendance backend.
//
// The portal never holds the backend's signing key, so claims are decoded
// without signature verification and are only used as hints (for example to
// skip a profile round trip for a token that has visibly expired). The
// backend remains the authority on whether a token is valid.
package jwt
