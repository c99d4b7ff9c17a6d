package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/sampler"
	"codeberg.org/mutker/thermalwatch/internal/sensor"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	log           logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []sampler.ThermalSample
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("History repository initialized")

	repo := &repository{
		db:            db,
		log:           log,
		cfg:           cfg,
		buffer:        make([]sampler.ThermalSample, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

// Record buffers the sample, writing the batch once it is full. With
// batching disabled every sample is written immediately.
func (r *repository) Record(sample *sampler.ThermalSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, *sample)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flush()
}

func (r *repository) Recent(ctx context.Context, limit int) ([]sampler.ThermalSample, error) {
	errFactory := errors.New()

	if err := r.Flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, recentSamplesSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []sampler.ThermalSample
	for rows.Next() {
		var (
			ts                    int64
			usage                 float64
			cpuT, gpuT, batT, hdr sql.NullFloat64
			status                int
		)
		if err := rows.Scan(&ts, &usage, &cpuT, &gpuT, &batT, &hdr, &status); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}

		out = append(out, sampler.ThermalSample{
			Timestamp:   time.UnixMilli(ts),
			CPUUsage:    usage,
			CPUTemp:     fromNull(cpuT),
			GPUTemp:     fromNull(gpuT),
			BatteryTemp: fromNull(batT),
			Headroom:    sampler.Headroom{Fraction: hdr.Float64, Available: hdr.Valid},
			Status:      thermal.Status(status),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return out, nil
}

func (r *repository) Close() error {
	var err error

	r.closeOnce.Do(func() {
		close(r.shutdownChan)
		if r.flushTicker != nil {
			r.flushTicker.Stop()
		}
		<-r.flushDoneChan

		// the flusher is gone; write whatever it did not
		if ferr := r.Flush(); ferr != nil {
			r.log.Warn().Err(ferr).Msg("Failed to flush history on close")
		}

		if _, cerr := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); cerr != nil {
			err = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: cerr.Error(),
			})
			r.db.Close()
			return
		}

		if cerr := r.db.Close(); cerr != nil {
			err = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "close_database",
				Error: cerr.Error(),
			})
			return
		}

		r.log.Info().Msg("History repository closed gracefully")
	})

	return err
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			if err := r.Flush(); err != nil {
				r.log.Warn().Err(err).Msg("Periodic history flush failed")
			}
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes the buffer in one transaction. Callers hold r.mu.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			r.log.Error().Err(rerr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for i := range r.buffer {
		s := &r.buffer[i]

		var headroom any
		if s.Headroom.Available {
			headroom = s.Headroom.Fraction
		}

		if _, err := stmt.Exec(
			s.Timestamp.UnixMilli(),
			s.CPUUsage,
			toNull(s.CPUTemp),
			toNull(s.GPUTemp),
			toNull(s.BatteryTemp),
			headroom,
			int(s.Status),
		); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				r.log.Error().Err(rerr).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.log.Debug().Int("records", len(r.buffer)).Msg("Flushed samples to database")
	r.buffer = r.buffer[:0]

	return nil
}

func toNull(r sensor.Reading) any {
	if c, ok := r.Get(); ok {
		return c
	}

	return nil
}

func fromNull(v sql.NullFloat64) sensor.Reading {
	if !v.Valid {
		return sensor.Absent
	}

	return sensor.Celsius(v.Float64)
}
