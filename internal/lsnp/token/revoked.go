package token

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/renameio"
)

// RevokedFileName is the on-disk form of the revoked set: a JSON array of
// exact token strings, rewritten atomically on every revocation.
const RevokedFileName = "revoked_tokens.json"

// RevokedStore is the process-wide persistent revoked-token set. Writes go
// through a single mutex-held writer with atomic rename so a crash never
// leaves a torn file.
type RevokedStore struct {
	mu     sync.Mutex
	tokens mapset.Set[string]
	path   string
}

// OpenRevokedStore loads (or initialises) the revoked set at path.
func OpenRevokedStore(path string) (*RevokedStore, error) {
	s := &RevokedStore{tokens: mapset.NewSet[string](), path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, t := range list {
		s.tokens.Add(t)
	}
	return s, nil
}

// Contains reports membership.
func (s *RevokedStore) Contains(token string) bool { return s.tokens.Contains(token) }

// Add inserts the token and rewrites the backing file. Re-adding an already
// revoked token is a no-op that skips the disk write.
func (s *RevokedStore) Add(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens.Add(token) {
		return nil
	}
	return s.persistLocked()
}

// Len returns the number of revoked tokens.
func (s *RevokedStore) Len() int { return s.tokens.Cardinality() }

// persistLocked writes the set as a sorted JSON array via atomic replace.
// Caller holds s.mu.
func (s *RevokedStore) persistLocked() error {
	list := s.tokens.ToSlice()
	sort.Strings(list)
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return renameio.WriteFile(s.path, data, 0o644)
}
