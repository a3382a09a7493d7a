package storage

import (
	"fmt"

	"github.com/desertthunder/studyflow/internal/shared"
)

// Open returns the [Storage] selected by cfg.Driver.
func Open(cfg shared.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case shared.DriverMemory:
		return NewMemoryStorage(), nil
	case shared.DriverFile:
		return NewFileStorage(cfg.Path, cfg.MaxBytes)
	case "", shared.DriverSQLite3, shared.DriverSQLite:
		return OpenSQLStorage(cfg.Driver, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
