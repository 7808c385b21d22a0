package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"digital-wallet/internal/storage"
)

// Config drives the snapshot schedule.
type Config struct {
	DB            *sql.DB
	Interval      time.Duration
	Keep          int
	UploadOptions storage.UploadOptions
	Logger        *logrus.Logger
}

// Manager periodically copies the database into object storage and prunes
// old snapshots. Snapshots are operational insurance only; they play no part
// in the identity invariants.
type Manager struct {
	cfg   Config
	store storage.Service

	stop chan struct{}
	done chan struct{}
}

func NewManager(cfg Config, store storage.Service) *Manager {
	return &Manager{
		cfg:   cfg,
		store: store,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the snapshot loop. It fails fast on an unusable config so
// a misconfigured deployment is caught at boot, not at the first tick.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.DB == nil {
		return fmt.Errorf("backup: database handle is required")
	}
	if m.store == nil {
		return fmt.Errorf("backup: storage service is required")
	}
	if m.cfg.UploadOptions.Bucket == "" {
		return fmt.Errorf("backup: storage bucket is required")
	}
	if m.cfg.Interval <= 0 {
		return fmt.Errorf("backup: interval must be positive")
	}

	go m.loop(ctx)
	return nil
}

// Shutdown stops the loop and waits for an in-flight snapshot to finish.
func (m *Manager) Shutdown() {
	close(m.stop)
	<-m.done
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			if err := m.Snapshot(ctx); err != nil {
				m.cfg.Logger.Warnf("database snapshot: %v", err)
			}
		}
	}
}

// Snapshot writes a consistent copy of the database to a temp file, uploads
// it, and prunes snapshots beyond the retention count.
func (m *Manager) Snapshot(ctx context.Context) error {
	local := filepath.Join(os.TempDir(), fmt.Sprintf("wallet-snapshot-%d.db", time.Now().UnixNano()))
	defer os.Remove(local)

	// VACUUM INTO produces a consistent standalone copy without blocking
	// readers.
	if _, err := m.cfg.DB.ExecContext(ctx, `VACUUM INTO ?`, local); err != nil {
		return fmt.Errorf("vacuum into %s: %w", local, err)
	}

	key := time.Now().UTC().Format("20060102T150405Z") + ".db"
	location, err := m.store.UploadFile(ctx, local, key, m.cfg.UploadOptions)
	if err != nil {
		return err
	}
	m.cfg.Logger.Infof("database snapshot uploaded to %s", location)

	return m.prune(ctx)
}

func (m *Manager) prune(ctx context.Context) error {
	if m.cfg.Keep <= 0 {
		return nil
	}

	objects, err := m.store.ListObjects(ctx, m.cfg.UploadOptions.Bucket, m.cfg.UploadOptions.KeyPrefix)
	if err != nil {
		return err
	}
	if len(objects) <= m.cfg.Keep {
		return nil
	}

	// keys embed a UTC timestamp, so lexical order is chronological
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	for _, obj := range objects[:len(objects)-m.cfg.Keep] {
		if err := m.store.DeleteObject(ctx, m.cfg.UploadOptions.Bucket, obj.Key); err != nil {
			m.cfg.Logger.Warnf("prune snapshot %s: %v", obj.Key, err)
		}
	}
	return nil
}
