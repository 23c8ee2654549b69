// Package creds persists the authenticated session's credentials across
// process restarts: the username and the bearer token, the latter sealed
// at rest with a per-device key.
package creds

import "context"

// Credentials is the persisted session identity.
type Credentials struct {
	Username string
	Token    string
}

// Store is the persistence contract for session credentials.
//
// Contract:
//   - Load returns (nil, nil) when no credentials are persisted.
//   - Save overwrites any previously stored credentials.
//   - Clear removes the stored credentials; clearing an empty store is
//     not an error.
type Store interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, c *Credentials) error
	Clear(ctx context.Context) error
}
