// Package store persists the per-room session identity handed out on
// join, so a rejoining client reclaims its role instead of entering
// the room as a new participant.
package store

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("no session identity for room")

type Store interface {
	Load(roomID string) (string, error)
	Save(roomID, userID string) error
}

// MemoryStore keeps identities for the lifetime of the process.
type MemoryStore struct {
	mutex sync.RWMutex
	ids   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]string)}
}

func (s *MemoryStore) Load(roomID string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	userID, ok := s.ids[roomID]
	if !ok {
		return "", ErrNotFound
	}
	return userID, nil
}

func (s *MemoryStore) Save(roomID, userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ids[roomID] = userID
	return nil
}
