package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
)

func newGroup(t *testing.T, s *Store) core.Group {
	t.Helper()
	g, err := s.CreateGroup(context.Background(), core.Group{Name: "Trip", CreatedBy: 1})
	require.NoError(t, err)
	return g
}

func expense(groupID string, payer core.ParticipantID, amount string, splits ...core.Split) core.Expense {
	return core.Expense{
		GroupID:     groupID,
		PayerID:     payer,
		Description: "dinner",
		Amount:      decimal.RequireFromString(amount),
		Splits:      splits,
	}
}

func TestCreateAndGetGroup(t *testing.T) {
	s := New()
	ctx := context.Background()

	g := newGroup(t, s)
	assert.NotEmpty(t, g.ID)
	assert.False(t, g.CreatedAt.IsZero())

	got, err := s.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, got)

	_, err = s.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrGroupNotFound)

	_, err = s.CreateGroup(ctx, core.Group{Name: "  "})
	assert.ErrorIs(t, err, core.ErrEmptyGroupName)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGroup(t, s)

	added, err := s.AddMember(ctx, g.ID, core.Member{ID: 1, FirstName: "Alice"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddMember(ctx, g.ID, core.Member{ID: 2, FirstName: "Bob"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddMember(ctx, g.ID, core.Member{ID: 1, FirstName: "Alice again"})
	require.NoError(t, err)
	assert.False(t, added)

	members, err := s.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Alice", members[0].FirstName)
	assert.False(t, members[0].JoinedAt.IsZero())

	v, err := s.LedgerVersion(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = s.AddMember(ctx, "missing", core.Member{ID: 3})
	assert.ErrorIs(t, err, ledger.ErrGroupNotFound)
}

func TestExpensesKeepInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGroup(t, s)

	first, err := s.AddExpense(ctx, expense(g.ID, 1, "10", core.Split{ParticipantID: 2, Amount: decimal.RequireFromString("10")}))
	require.NoError(t, err)
	second, err := s.AddExpense(ctx, expense(g.ID, 2, "4", core.Split{ParticipantID: 1, Amount: decimal.RequireFromString("4")}))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := s.ListExpenses(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = s.AddExpense(ctx, expense("missing", 1, "1"))
	assert.True(t, errors.Is(err, ledger.ErrGroupNotFound))
}

func TestListExpensesReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGroup(t, s)

	splits := []core.Split{{ParticipantID: 2, Amount: decimal.RequireFromString("5")}}
	_, err := s.AddExpense(ctx, expense(g.ID, 1, "5", splits...))
	require.NoError(t, err)
	splits[0].Amount = decimal.RequireFromString("99")

	list, err := s.ListExpenses(ctx, g.ID)
	require.NoError(t, err)
	list[0].Splits[0].Amount = decimal.RequireFromString("42")

	again, err := s.ListExpenses(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, again[0].Splits[0].Amount.Equal(decimal.RequireFromString("5")))
}

func TestConcurrentAddExpense(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGroup(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddExpense(ctx, expense(g.ID, 1, "1", core.Split{ParticipantID: 2, Amount: decimal.NewFromInt(1)}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := s.ListExpenses(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, list, 50)
	v, err := s.LedgerVersion(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), v)
}
