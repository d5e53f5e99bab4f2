package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"cepop/domain/core"
	"cepop/ports"
)

const storeVersion = 1

// storeFile is the on-disk format: one human-inspectable JSON document,
// rewritten whole on every update via write-to-temp-then-rename so a crash
// never leaves a half-written store behind.
type storeFile struct {
	Version int                        `json:"version"`
	Records map[string]ports.JobRecord `json:"records"`
}

// FileStore implements ports.CheckpointStore on a single JSON file guarded
// by an advisory lock file, so two orchestrator processes never share it.
type FileStore struct {
	path     string
	lockPath string

	mu      sync.Mutex
	records map[core.JobKey]ports.JobRecord
	loaded  bool
}

// NewFileStore opens (or creates) a checkpoint store at path and acquires
// its lock. Returns core.ErrStoreLocked if another process holds it.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path:     path,
		lockPath: path + ".lock",
	}
	if err := s.acquireLock(); err != nil {
		return nil, err
	}
	return s, nil
}

// acquireLock takes the lock file, breaking a stale lock left behind by a
// crashed process. The file records the holder's PID; a lock whose holder
// is no longer alive is removed and retaken, so a restart after a crash or
// kill never needs an operator to delete the lock by hand.
func (s *FileStore) acquireLock() error {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			return f.Close()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		if !s.lockHolderDead() {
			return fmt.Errorf("%w: lock file %s held by a live process", core.ErrStoreLocked, s.lockPath)
		}
		log.Printf("[Checkpoint] breaking stale lock %s: holder is gone", s.lockPath)
		if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}
	return fmt.Errorf("%w: lock file %s exists", core.ErrStoreLocked, s.lockPath)
}

// lockHolderDead reports whether the PID recorded in the lock file refers
// to a process that no longer exists. An unreadable or malformed lock file
// counts as held: breaking it could let two orchestrators share the store.
func (s *FileStore) lockHolderDead() bool {
	data, err := os.ReadFile(s.lockPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}

// Load reads all records from disk. A missing file is an empty store.
func (s *FileStore) Load(ctx context.Context) (map[core.JobKey]ports.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make(map[core.JobKey]ports.JobRecord, len(s.records))
	for k, rec := range s.records {
		out[k] = rec
	}
	return out, nil
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	s.records = make(map[core.JobKey]ports.JobRecord)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read checkpoint store: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("checkpoint store %s is corrupt: %w", s.path, err)
	}
	for keyStr, rec := range file.Records {
		key, err := core.ParseJobKey(keyStr)
		if err != nil {
			return fmt.Errorf("checkpoint store %s: %w", s.path, err)
		}
		rec.Key = key
		s.records[key] = rec
	}
	s.loaded = true
	return nil
}

// Get returns one record or core.ErrRecordNotFound.
func (s *FileStore) Get(ctx context.Context, key core.JobKey) (ports.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return ports.JobRecord{}, err
	}
	rec, ok := s.records[key]
	if !ok {
		return ports.JobRecord{}, fmt.Errorf("%w: %s", core.ErrRecordNotFound, key)
	}
	return rec, nil
}

// Put replaces one record and rewrites the whole store atomically. The
// write completes before Put returns, so persistence happens-before the
// orchestrator's next state transition.
func (s *FileStore) Put(ctx context.Context, rec ports.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	s.records[rec.Key] = rec
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	file := storeFile{
		Version: storeVersion,
		Records: make(map[string]ports.JobRecord, len(s.records)),
	}
	for key, rec := range s.records {
		file.Records[key.String()] = rec
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint store: %w", err)
	}
	return nil
}

// Close releases the advisory lock.
func (s *FileStore) Close() error {
	if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
