package history

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/thermalwatch/history.db"
	defaultBatchSize    = 30
	defaultBatchTimeout = 30 * time.Second
)

type Config struct {
	DBPath string
	// BackupDir receives a copy of the database before an incompatible
	// schema is replaced. Empty means a "backups" dir next to DBPath.
	BackupDir    string
	Enabled      bool
	BatchSize    int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout time.Duration
		}{c.BatchSize, c.BatchTimeout})
	}

	return nil
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}

	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}
