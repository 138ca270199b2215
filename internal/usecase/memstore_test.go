package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

// memStore is an in-memory SequenceStore. Position uniqueness is checked on
// every write, like a non-deferred unique index, and a transaction works on a
// private copy of the collection that is only published on success.
type memStore struct {
	mu        sync.Mutex
	locks     map[int64]*sync.Mutex
	rows      map[int64]map[int64]memRow
	parents   map[int64]bool
	artworks  map[int64]bool
	checkins  map[int64]int64
	nextID    int64
	failAfter int // fail the n-th position write of the next transaction; 0 disables
}

type memRow struct {
	member domain.Member
	active bool
}

func newMemStore() *memStore {
	return &memStore{
		locks:    map[int64]*sync.Mutex{},
		rows:     map[int64]map[int64]memRow{},
		checkins: map[int64]int64{},
	}
}

// seed appends members with the given payload refs and returns their ids.
func (s *memStore) seed(parentID int64, refs ...int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rows[parentID] == nil {
		s.rows[parentID] = map[int64]memRow{}
	}
	ids := make([]int64, len(refs))
	for i, ref := range refs {
		s.nextID++
		pos := len(s.rows[parentID]) + 1
		s.rows[parentID][s.nextID] = memRow{member: domain.Member{ID: s.nextID, ParentID: parentID, Position: pos, PayloadRef: ref}}
		ids[i] = s.nextID
	}
	return ids
}

func (s *memStore) lock(parentID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[parentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[parentID] = l
	}
	return l
}

func (s *memStore) Transaction(ctx context.Context, parentID int64, fn func(tx SequenceTx) error) error {
	if s.parents != nil && !s.parents[parentID] {
		return domain.NotFoundError{Resource: "course"}
	}

	l := s.lock(parentID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	working := make(map[int64]memRow, len(s.rows[parentID]))
	for id, row := range s.rows[parentID] {
		working[id] = row
	}
	failAfter := s.failAfter
	s.failAfter = 0
	s.mu.Unlock()

	tx := &memTx{store: s, parentID: parentID, rows: working, failAfter: failAfter}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.rows[parentID] = working
	s.mu.Unlock()
	return nil
}

func (s *memStore) List(ctx context.Context, parentID int64) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedMembers(s.rows[parentID]), nil
}

func (s *memStore) active(id int64) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rows := range s.rows {
		if row, ok := rows[id]; ok {
			return row.active, true
		}
	}
	return false, false
}

func sortedMembers(rows map[int64]memRow) []domain.Member {
	members := make([]domain.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Position < members[j].Position })
	return members
}

type memTx struct {
	store     *memStore
	parentID  int64
	rows      map[int64]memRow
	writes    int
	failAfter int
}

func (t *memTx) checkUnique(id int64, position int) error {
	for otherID, row := range t.rows {
		if otherID != id && row.member.Position == position {
			return domain.ConflictError{Code: domain.CodeConflict, Reason: fmt.Sprintf("position %d already taken", position)}
		}
	}
	return nil
}

func (t *memTx) LockedRead(ctx context.Context) ([]domain.Member, error) {
	return sortedMembers(t.rows), nil
}

func (t *memTx) ShiftAll(ctx context.Context, delta int) error {
	for id, row := range t.rows {
		row.member.Position += delta
		t.rows[id] = row
	}
	return nil
}

func (t *memTx) WritePosition(ctx context.Context, memberID int64, position int) error {
	t.writes++
	if t.failAfter > 0 && t.writes >= t.failAfter {
		return fmt.Errorf("connection reset")
	}

	row, ok := t.rows[memberID]
	if !ok {
		return domain.NotFoundError{Resource: "member"}
	}
	if err := t.checkUnique(memberID, position); err != nil {
		return err
	}
	row.member.Position = position
	t.rows[memberID] = row
	return nil
}

func (t *memTx) Insert(ctx context.Context, payloadRef int64, position int) (domain.Member, error) {
	if t.store.artworks != nil && !t.store.artworks[payloadRef] {
		return domain.Member{}, domain.ReferenceError{Reason: "unknown artwork"}
	}
	if err := t.checkUnique(0, position); err != nil {
		return domain.Member{}, err
	}

	t.store.mu.Lock()
	t.store.nextID++
	id := t.store.nextID
	t.store.mu.Unlock()

	m := domain.Member{ID: id, ParentID: t.parentID, Position: position, PayloadRef: payloadRef}
	t.rows[id] = memRow{member: m}
	return m, nil
}

func (t *memTx) Delete(ctx context.Context, memberID int64) error {
	if _, ok := t.rows[memberID]; !ok {
		return domain.NotFoundError{Resource: "member"}
	}
	delete(t.rows, memberID)
	return nil
}

func (t *memTx) DependentCount(ctx context.Context, memberID int64) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.checkins[memberID], nil
}

func (t *memTx) SetActive(ctx context.Context, memberID int64, active bool) error {
	row, ok := t.rows[memberID]
	if !ok {
		return domain.NotFoundError{Resource: "member"}
	}
	row.active = active
	t.rows[memberID] = row
	return nil
}

// mockCache records invalidations on top of a plain map.
type mockCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
	gets    int
}

func newMockCache() *mockCache {
	return &mockCache{values: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *mockCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.CollectionEvent
	err    error
}

func (m *mockPublisher) PublishCollectionEvent(ctx context.Context, event domain.CollectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if event.At.IsZero() || event.At.After(time.Now().Add(time.Minute)) {
		return fmt.Errorf("bad event time %v", event.At)
	}
	m.events = append(m.events, event)
	return nil
}
