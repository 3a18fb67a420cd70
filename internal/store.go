package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/inkwell/internal/noteservice"
	"github.com/starford/inkwell/internal/notes"
	"github.com/starford/inkwell/internal/storage"
)

// Store is an opened note store: the configured key-value backend wrapped
// in the note adapter.
type Store struct {
	*storage.Adapter
	kv storage.KV
	// File is the path of the notes file for the file backend, empty
	// otherwise.
	File string
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// OpenStore opens the backend selected by cfg.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	var (
		kv   storage.KV
		file string
	)
	switch cfg.Backend {
	case BackendFile:
		fkv, err := storage.NewFileKV(cfg.File.Dir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		if file, err = fkv.Path(cfg.Key); err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		kv = fkv
	case BackendSQLite:
		skv, err := storage.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		kv = skv
	case BackendRedis:
		rkv, err := storage.OpenRedis(ctx, storage.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		kv = rkv
	case BackendMemory:
		kv = storage.NewMemoryKV()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	logger.Info("Store opened",
		slog.String("backend", cfg.Backend),
		slog.String("key", cfg.Key),
		slog.Int("quota_bytes", cfg.QuotaBytes))

	return &Store{
		Adapter: storage.NewAdapter(storage.WithQuota(kv, cfg.QuotaBytes), cfg.Key, logger),
		kv:      kv,
		File:    file,
	}, nil
}

// Open opens the configured store and builds a note service on it. The
// caller must close the returned store.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...noteservice.Option) (*noteservice.Service, *Store, error) {
	store, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := notes.New(ctx, store, notes.WithLogger(logger))
	logger.Debug("Notes loaded", slog.Int("count", repo.Len()))
	return noteservice.NewService(repo, opts...), store, nil
}
