package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"roast-backend/internal/model"
	"roast-backend/pkg/logger"
)

// DiskStorage keeps one JSON file per session under dataDir/sessions.
type DiskStorage struct {
	dataDir string
	mu      sync.RWMutex
}

func NewDiskStorage(dataDir string) *DiskStorage {
	return &DiskStorage{
		dataDir: dataDir,
	}
}

func (d *DiskStorage) Init() error {
	if err := os.MkdirAll(d.sessionsDir(), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

func (d *DiskStorage) sessionsDir() string {
	return filepath.Join(d.dataDir, "sessions")
}

func (d *DiskStorage) sessionPath(sessionID string) (string, error) {
	if sessionID == "" || sessionID != filepath.Base(sessionID) || strings.HasPrefix(sessionID, ".") {
		return "", fmt.Errorf("%w: bad session id %q", ErrInvalidData, sessionID)
	}
	return filepath.Join(d.sessionsDir(), sessionID+".json"), nil
}

func (d *DiskStorage) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	path, err := d.sessionPath(sessionID)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	session.Messages = session.Messages.Clone()
	return &session, nil
}

func (d *DiskStorage) SaveSession(ctx context.Context, session *model.Session) error {
	path, err := d.sessionPath(session.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cloneSession(session), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) DeleteSession(ctx context.Context, sessionID string) error {
	path, err := d.sessionPath(sessionID)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// PurgeExpired judges age by the session's UpdatedAt, falling back to the
// file modification time when the file cannot be decoded.
func (d *DiskStorage) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.sessionsDir())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(d.sessionsDir(), entry.Name())

		updated, err := sessionUpdatedAt(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !updated.Before(before) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if len(errs) > 0 {
		return removed, fmt.Errorf("%w: %v", ErrFileOperation, errors.Join(errs...))
	}
	return removed, nil
}

func sessionUpdatedAt(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}
	var session model.Session
	if err := json.Unmarshal(data, &session); err == nil && !session.UpdatedAt.IsZero() {
		return session.UpdatedAt, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
