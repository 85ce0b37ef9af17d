package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
)

type groupState struct {
	group    core.Group
	members  []core.Member
	expenses []core.Expense
	version  int64
}

// Store keeps every group in process memory. It is the default backend for
// local development and tests.
type Store struct {
	mu     sync.Mutex
	groups map[string]*groupState
	now    func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{groups: make(map[string]*groupState), now: time.Now}
}

func (s *Store) CreateGroup(_ context.Context, g core.Group) (core.Group, error) {
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt = s.now().UTC()
	s.groups[g.ID] = &groupState{group: g}
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, groupID string) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.groups[groupID]
	if !ok {
		return core.Group{}, ledger.ErrGroupNotFound
	}
	return st.group, nil
}

func (s *Store) AddMember(_ context.Context, groupID string, m core.Member) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.groups[groupID]
	if !ok {
		return false, ledger.ErrGroupNotFound
	}
	for _, existing := range st.members {
		if existing.ID == m.ID {
			return false, nil
		}
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = s.now().UTC()
	}
	st.members = append(st.members, m)
	st.version++
	return true, nil
}

func (s *Store) ListMembers(_ context.Context, groupID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.groups[groupID]
	if !ok {
		return nil, ledger.ErrGroupNotFound
	}
	return append([]core.Member(nil), st.members...), nil
}

// AddExpense stores a copy of the expense; later changes to the caller's
// splits slice do not leak into the store.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.groups[e.GroupID]
	if !ok {
		return core.Expense{}, fmt.Errorf("add expense to %s: %w", e.GroupID, ledger.ErrGroupNotFound)
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()
	e.Splits = append([]core.Split(nil), e.Splits...)
	st.expenses = append(st.expenses, e)
	st.version++
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, groupID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.groups[groupID]
	if !ok {
		return nil, ledger.ErrGroupNotFound
	}
	out := make([]core.Expense, len(st.expenses))
	for i, e := range st.expenses {
		e.Splits = append([]core.Split(nil), e.Splits...)
		out[i] = e
	}
	return out, nil
}

func (s *Store) LedgerVersion(_ context.Context, groupID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.groups[groupID]
	if !ok {
		return 0, ledger.ErrGroupNotFound
	}
	return st.version, nil
}
