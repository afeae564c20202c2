// Package auth defines the minimal authentication interface the core
// consumes, with two in-tree implementations for tests and for running
// without PAM configured. A real PAM-backed implementation lives outside
// this repo.
package auth

import "errors"

// ErrUnauthorized is returned by Authenticate on bad credentials.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Authenticator validates VNC client credentials. The real PAM-backed
// module stays external to this repo; this interface is the
// seam the rfb.Session binding calls into before admitting a client.
type Authenticator interface {
	Authenticate(username, password string) error
}

// NoAuth admits every client unconditionally — used in dev/test
// configurations and headless unattended sessions where the compositor
// connection itself is already gated.
type NoAuth struct{}

func (NoAuth) Authenticate(string, string) error { return nil }

// StaticToken checks the password against a single configured token,
// ignoring username. Matches internal/config's AuthConfig.StaticToken
// field.
type StaticToken struct {
	Token string
}

func (s StaticToken) Authenticate(_ string, password string) error {
	if s.Token == "" || password != s.Token {
		return ErrUnauthorized
	}
	return nil
}
