package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const sessionFileExt = ".json"

// FileStore is an scs.Store keeping one file per session in a directory.
// File names are a hash of the session token, so a forged cookie can never
// address a path outside the directory.
type FileStore struct {
	dir string
	now func() time.Time
}

type fileRecord struct {
	Deadline time.Time `json:"deadline"`
	Data     []byte    `json:"data"`
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory where sessions are stored.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path used for token.
func (s *FileStore) Path(token string) string {
	sum := sha256.Sum256([]byte(token))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+sessionFileExt)
}

// Find returns the session data for token. Expired sessions are reported as
// not found.
func (s *FileStore) Find(token string) ([]byte, bool, error) {
	rec, err := s.read(s.Path(token))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if !s.now().Before(rec.Deadline) {
		return nil, false, nil
	}
	return rec.Data, true, nil
}

// Commit writes the session data for token. The file is replaced with a
// rename so readers never observe a partial write.
func (s *FileStore) Commit(token string, b []byte, expiry time.Time) error {
	data, err := json.Marshal(fileRecord{Deadline: expiry, Data: b})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "commit-*")
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path(token)); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Delete removes the session for token.
// Returns nil if it does not exist.
func (s *FileStore) Delete(token string) error {
	err := os.Remove(s.Path(token))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose deadline has passed and returns
// how many were removed. Unreadable files are removed too.
func (s *FileStore) DeleteExpired() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("listing session directory: %w", err)
	}

	now := s.now()
	var removed int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionFileExt) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		rec, err := s.read(path)
		if err == nil && now.Before(rec.Deadline) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing session file: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *FileStore) read(path string) (*fileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return &rec, nil
}
