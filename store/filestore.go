package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists identities as a json map under the configured
// data dir, surviving client restarts.
type FileStore struct {
	path  string
	mutex sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dir, "sessions.json")}, nil
}

func (s *FileStore) Load(roomID string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids, err := s.read()
	if err != nil {
		return "", err
	}
	userID, ok := ids[roomID]
	if !ok {
		return "", ErrNotFound
	}
	return userID, nil
}

func (s *FileStore) Save(roomID, userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids, err := s.read()
	if err != nil {
		return err
	}
	ids[roomID] = userID

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	ids := make(map[string]string)
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
