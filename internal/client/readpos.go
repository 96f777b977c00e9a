package client

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mfreile/supportchat/internal/events"
)

const readPositionFileName = "read-position.json"

// EpochZero is the read position of a user who has never marked anything
// as read: every message is newer than it.
var EpochZero = time.Unix(0, 0).UTC()

// PositionStorage persists the read-position scalar. It is advisory, not
// authoritative: Load falls back to epoch-zero and Save failures are
// swallowed by the store.
type PositionStorage interface {
	Load() (time.Time, error)
	Save(t time.Time) error
}

// ReadPositionStore holds the single timestamp marking the boundary
// between seen and unseen messages. Set overwrites wholesale; concurrent
// writers race with last-write-wins semantics and no merge.
type ReadPositionStore struct {
	mu      sync.Mutex
	storage PositionStorage
	bus     *events.Bus
	log     *log.Logger
}

func NewReadPositionStore(storage PositionStorage, bus *events.Bus, logger *log.Logger) *ReadPositionStore {
	return &ReadPositionStore{
		storage: storage,
		bus:     bus,
		log:     logger,
	}
}

// Get returns the stored position, or epoch-zero if the position was never
// set or storage is unavailable.
func (s *ReadPositionStore) Get() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.storage.Load()
	if err != nil {
		s.log.Println("read position load:", err)
		return EpochZero
	}

	if t.IsZero() {
		return EpochZero
	}
	return t.UTC()
}

// Set persists the position best-effort and broadcasts a marked-as-read
// signal so other mounted consumers reset their in-memory state without
// re-querying. Storage failures are logged and otherwise ignored.
func (s *ReadPositionStore) Set(t time.Time) {
	s.mu.Lock()
	if err := s.storage.Save(t.UTC()); err != nil {
		s.log.Println("read position save:", err)
	}
	s.mu.Unlock()

	s.bus.Publish(events.TopicMarkedAllRead, "")
}

type positionFile struct {
	ReadPosition time.Time `json:"read_position"`
}

// FilePositionStorage keeps the read position in a single JSON file. There
// is no cross-process synchronization; this is a best-effort cache.
type FilePositionStorage struct {
	dir string
}

func NewFilePositionStorage(dir string) *FilePositionStorage {
	return &FilePositionStorage{dir: dir}
}

func (f *FilePositionStorage) path() string {
	return filepath.Join(f.dir, readPositionFileName)
}

func (f *FilePositionStorage) Load() (time.Time, error) {
	data, err := os.ReadFile(f.path())
	if err != nil {
		if os.IsNotExist(err) {
			return EpochZero, nil
		}
		return EpochZero, err
	}

	var pf positionFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return EpochZero, err
	}

	return pf.ReadPosition, nil
}

func (f *FilePositionStorage) Save(t time.Time) error {
	data, err := json.Marshal(positionFile{ReadPosition: t})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(f.path(), data, 0o644)
}

// MemoryPositionStorage is the storage used in tests and by consumers
// which do not want persistence across restarts.
type MemoryPositionStorage struct {
	mu sync.Mutex
	t  time.Time
}

func (m *MemoryPositionStorage) Load() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t.IsZero() {
		return EpochZero, nil
	}
	return m.t, nil
}

func (m *MemoryPositionStorage) Save(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t
	return nil
}
