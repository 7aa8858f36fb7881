package kvstore

import (
	"context"
	"fmt"
	"strings"
)

// Supported drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is an opaque string key/value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	Close() error
}

// BatchSetter is implemented by stores that can write several keys atomically.
type BatchSetter interface {
	SetAll(ctx context.Context, values map[string]string) error
}

// SetAll writes values through s, atomically when s supports it.
func SetAll(ctx context.Context, s Store, values map[string]string) error {
	if b, ok := s.(BatchSetter); ok {
		return b.SetAll(ctx, values)
	}
	for k, v := range values {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// Open opens a store for the given driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverBolt:
		s, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("state driver %q is not supported", driver)
	}
}
