package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store is the in-memory published state of one run.
// It tracks whether anything changed so Save can skip untouched state.
type Store struct {
	mu       sync.RWMutex
	messages map[int64]PublishedMessage
	modified bool
}

func NewStore() *Store {
	return &Store{messages: make(map[int64]PublishedMessage)}
}

// Load reads and upgrades the snapshot held by b. A missing snapshot yields an empty store.
func Load(ctx context.Context, b Backend) (*Store, error) {
	data, ok, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load published state: %w", err)
	}
	if !ok || len(data) == 0 {
		return NewStore(), nil
	}

	messages, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return &Store{messages: messages}, nil
}

// Save writes the snapshot if the store was modified since it was loaded or last saved.
func (s *Store) Save(ctx context.Context, b Backend) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return false, nil
	}

	data, err := encodeSnapshot(s.messages)
	if err != nil {
		return false, fmt.Errorf("encode published state: %w", err)
	}
	if err := b.Save(ctx, data); err != nil {
		return false, fmt.Errorf("save published state: %w", err)
	}

	s.modified = false
	return true, nil
}

func (s *Store) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) Get(id int64) (PublishedMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return PublishedMessage{}, false
	}
	return m.clone(), true
}

func (s *Store) GetOrCreate(id int64) PublishedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		m = PublishedMessage{AuthKeys: []string{}}
		s.messages[id] = m
		s.modified = true
	}
	return m.clone()
}

// IssueKey appends key to the record's keys and evicts the oldest ones beyond limit.
// The evicted keys are returned so a failed publication can restore them.
func (s *Store) IssueKey(id int64, key string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.messages[id]
	keys := append(append([]string(nil), m.AuthKeys...), key)

	var evicted []string
	if limit > 0 && len(keys) > limit {
		evicted = append(evicted, keys[:len(keys)-limit]...)
		keys = keys[len(keys)-limit:]
	}

	m.AuthKeys = keys
	s.messages[id] = m
	s.modified = true

	return evicted
}

// RollbackKey undoes IssueKey: it removes key if it is still the newest and restores evicted.
func (s *Store) RollbackKey(id int64, key string, evicted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || len(m.AuthKeys) == 0 || m.AuthKeys[len(m.AuthKeys)-1] != key {
		return
	}

	keys := make([]string, 0, len(evicted)+len(m.AuthKeys)-1)
	keys = append(keys, evicted...)
	keys = append(keys, m.AuthKeys[:len(m.AuthKeys)-1]...)

	m.AuthKeys = keys
	s.messages[id] = m
	s.modified = true
}

func (s *Store) SetPublished(id int64, messageID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.messages[id]
	m.MessageID = &messageID
	m.Text = text
	if m.AuthKeys == nil {
		m.AuthKeys = []string{}
	}
	s.messages[id] = m
	s.modified = true
}

func (s *Store) SetText(id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return
	}
	m.Text = text
	s.messages[id] = m
	s.modified = true
}

// ClearMessage forgets the message handle so the offer is published again on the next run.
func (s *Store) ClearMessage(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || m.MessageID == nil {
		return
	}
	m.MessageID = nil
	s.messages[id] = m
	s.modified = true
}

// Delete removes the record. Deleting an absent id is a no-op.
func (s *Store) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return
	}
	delete(s.messages, id)
	s.modified = true
}

// IDs returns every stored offer id in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(s.messages))
	for id := range s.messages {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
