package devicetrust

import (
	"fmt"
	"time"
)

// RepositoryConfig contains configuration for creating a device repository
type RepositoryConfig struct {
	// DB is required for PostgreSQL repositories
	DB DBTX
	// EncryptionKey is the hex-encoded 32-byte characteristics key, required
	// for PostgreSQL repositories
	EncryptionKey string
	// CacheTTL enables the TTL read-cache decorator when positive
	CacheTTL time.Duration
}

// NewDeviceRepository creates a device repository for the given persistence
// type, optionally wrapped in the TTL read cache.
func NewDeviceRepository(persistenceType string, config RepositoryConfig) (DeviceRepository, error) {
	var repo DeviceRepository

	switch persistenceType {
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("db required for postgres repository")
		}
		codec, err := NewCharacteristicsCodec(config.EncryptionKey)
		if err != nil {
			return nil, err
		}
		repo = NewPostgresDeviceRepository(config.DB, codec)
	case "inmem", "memory":
		repo = NewInMemDeviceRepository()
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, inmem)", persistenceType)
	}

	if config.CacheTTL > 0 {
		repo = NewCachedDeviceRepository(repo, config.CacheTTL)
	}
	return repo, nil
}
