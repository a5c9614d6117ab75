package resource

import "sync"

// SideTable is an auxiliary metadata association keyed by resource identity.
// It is deliberately excluded from ownership: holding an entry here keeps
// nothing alive, and entries are pruned by the registry's release path
// rather than relying on collection.
type SideTable struct {
	mu      sync.RWMutex
	entries map[sideKey]map[string]interface{}
}

type sideKey struct {
	kind Kind
	id   string
}

// NewSideTable creates an empty side table.
func NewSideTable() *SideTable {
	return &SideTable{entries: make(map[sideKey]map[string]interface{})}
}

// Attach associates a key/value with a resource identity.
func (s *SideTable) Attach(kind Kind, id, key string, value interface{}) {
	k := sideKey{kind: kind, id: id}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[k] == nil {
		s.entries[k] = make(map[string]interface{})
	}
	s.entries[k][key] = value
}

// Lookup returns the association map for a resource identity.
func (s *SideTable) Lookup(kind Kind, id string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[sideKey{kind: kind, id: id}]
	return m, ok
}

// Len returns the number of identities with associations.
func (s *SideTable) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *SideTable) prune(kind Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sideKey{kind: kind, id: id})
}
