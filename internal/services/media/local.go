package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
)

// DataURIStore keeps uploads in memory as data URIs. Objects are only
// resolvable on the device that uploaded them.
type DataURIStore struct {
	mu      sync.RWMutex
	objects map[string]dataObject
}

type dataObject struct {
	dataURI     string
	contentType string
	size        int64
}

func NewDataURIStore() *DataURIStore {
	return &DataURIStore{objects: make(map[string]dataObject)}
}

func (s *DataURIStore) Put(_ context.Context, _, key string, body io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = dataObject{
		dataURI:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(b),
		contentType: contentType,
		size:        int64(len(b)),
	}
	return nil
}

// URL returns the data URI for key. Objects are keyed by path alone.
func (s *DataURIStore) URL(_, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.dataURI, ok
}

func (s *DataURIStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]dataObject)
	return nil
}

func (s *DataURIStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
