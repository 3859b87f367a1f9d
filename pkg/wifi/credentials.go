package wifi

import (
	"encoding/json"

	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
)

const credentialsKey = "credentials"

// CredentialStore persists the single STA credential pair under the
// wifi_config namespace.
type CredentialStore struct {
	store storage.Store
}

// NewCredentialStore wraps a generic byte store for credential persistence.
func NewCredentialStore(store storage.Store) *CredentialStore {
	return &CredentialStore{store: store}
}

// Load returns the persisted credentials, or the zero value if none have
// been set.
func (c *CredentialStore) Load() (types.WifiCredentials, error) {
	blob, err := c.store.GetBytes(storage.NamespaceWifiConfig, credentialsKey)
	if err != nil {
		return types.WifiCredentials{}, types.NewPersistenceError(storage.NamespaceWifiConfig, credentialsKey, err)
	}
	if blob == nil {
		return types.WifiCredentials{}, nil
	}
	var creds types.WifiCredentials
	if err := json.Unmarshal(blob, &creds); err != nil {
		return types.WifiCredentials{}, types.NewPersistenceError(storage.NamespaceWifiConfig, credentialsKey, err)
	}
	return creds, nil
}

// Save persists credentials, replacing any previously stored pair.
func (c *CredentialStore) Save(creds types.WifiCredentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return types.NewPersistenceError(storage.NamespaceWifiConfig, credentialsKey, err)
	}
	if err := c.store.PutBytes(storage.NamespaceWifiConfig, credentialsKey, blob); err != nil {
		return types.NewPersistenceError(storage.NamespaceWifiConfig, credentialsKey, err)
	}
	return nil
}

// Clear wipes persisted credentials.
func (c *CredentialStore) Clear() error {
	if err := c.store.Remove(storage.NamespaceWifiConfig, credentialsKey); err != nil {
		return types.NewPersistenceError(storage.NamespaceWifiConfig, credentialsKey, err)
	}
	return nil
}
