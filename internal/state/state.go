// Package state persists the session token between runs so repeated
// uploads do not sign in again while the token is still valid.
package state

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.docsup/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var tokensBucket = []byte("tokens")

// State is the on-disk token cache.
type State struct {
	db *bolt.DB
}

// Load opens the state database at the default location
// (~/.docsup/state.db), creating directory and file as needed.
func Load() (*State, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	return Open(filepath.Join(home, ".docsup", "state.db"))
}

// Open opens the state database at an explicit path, for tests.
func Open(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tokensBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state database: %w", err)
	}

	return &State{db: db}, nil
}

// Close releases the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Token returns the cached session token for the given account, or ""
// when none is stored.
func (s *State) Token(account string) string {
	var token string

	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(tokensBucket).Get([]byte(account)); v != nil {
			token = string(v)
		}
		return nil
	})

	return token
}

// SetToken stores the session token for the given account.
func (s *State) SetToken(account, token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Put([]byte(account), []byte(token))
	})
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	return nil
}

// DeleteToken removes the cached token for the given account.
func (s *State) DeleteToken(account string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Delete([]byte(account))
	})
	if err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}

	return nil
}
