package googleapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Credential is the delegated account's access token plus its expiry. It is
// owned by the CredentialGateway and never leaves this package.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// TokenStore persists the single delegated credential between restarts.
// Load returns ErrNotAuthorized when no credential has been stored yet.
type TokenStore interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, cred Credential) error
}

// FileTokenStore keeps the credential as a JSON file on disk.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load(ctx context.Context) (Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, ErrNotAuthorized
		}
		return Credential{}, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, err
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return Credential{}, ErrNotAuthorized
	}
	return cred, nil
}

func (s *FileTokenStore) Save(ctx context.Context, cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}
