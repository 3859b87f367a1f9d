package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
)

// NamespaceDevice holds the one persisted record (the device identity)
// that doesn't belong to any of the core components.
const NamespaceDevice = "device"

const deviceIdentityKey = "identity"

// Config is the device's merged configuration: defaults, optionally
// overridden by a YAML file, further overridden by command-line flags.
type Config struct {
	DataDir    string    `yaml:"data_dir"`
	ListenAddr string    `yaml:"listen_addr"`
	LogLevel   log.Level `yaml:"log_level"`
	LogJSON    bool      `yaml:"log_json"`
}

// Default returns the out-of-box configuration.
func Default() Config {
	return Config{
		DataDir:    "/var/lib/squaredosed",
		ListenAddr: ":8080",
		LogLevel:   log.InfoLevel,
		LogJSON:    false,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error — the device runs on defaults until one is provided.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadOrCreateDeviceIdentity returns the device's persisted identity,
// generating and saving a random one on first boot so the AP SSID stays
// stable across reboots.
func LoadOrCreateDeviceIdentity(store storage.Store) (types.DeviceIdentity, error) {
	blob, err := store.GetBytes(NamespaceDevice, deviceIdentityKey)
	if err != nil {
		return types.DeviceIdentity{}, types.NewPersistenceError(NamespaceDevice, deviceIdentityKey, err)
	}
	if len(blob) == 8 {
		return types.DeviceIdentity{ID: binary.BigEndian.Uint64(blob) & 0xFFFFFFFFFFFF}, nil
	}

	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return types.DeviceIdentity{}, fmt.Errorf("generating device identity: %w", err)
	}
	id := binary.BigEndian.Uint64(raw[:]) & 0xFFFFFFFFFFFF

	var out [8]byte
	binary.BigEndian.PutUint64(out[:], id)
	if err := store.PutBytes(NamespaceDevice, deviceIdentityKey, out[:]); err != nil {
		return types.DeviceIdentity{}, types.NewPersistenceError(NamespaceDevice, deviceIdentityKey, err)
	}
	return types.DeviceIdentity{ID: id}, nil
}
