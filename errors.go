package goAttend

import "errors"

var (
	// ErrNotAuthenticated is returned by operations that require a signed-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidToken is returned by Login for an empty credential.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidUser is returned for a nil or malformed user profile.
	ErrInvalidUser = errors.New("invalid user profile")
	// ErrTokenExpired marks a stored credential whose exp claim has passed.
	ErrTokenExpired = errors.New("stored token expired")
	// ErrRecoveryFailed wraps the cause of a failed startup recovery.
	ErrRecoveryFailed = errors.New("session recovery failed")
	// ErrRecoveryTimeout marks a profile fetch that exceeded Recovery.Timeout.
	ErrRecoveryTimeout = errors.New("session recovery timed out")
	// ErrEmptySessionID is returned when a browsing-session id is blank.
	ErrEmptySessionID = errors.New("empty browsing session id")
	// ErrEngineClosed is returned by an Engine after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrEngineNotReady is returned by a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
