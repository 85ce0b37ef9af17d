package services

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"wisesplit/internal/cache"
	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
	"wisesplit/internal/log"
)

// SettlementService computes group settlements from a ledger snapshot.
// Results are cached per ledger version, so any write makes the previous
// entry unreachable without explicit invalidation.
type SettlementService struct {
	store  ledger.Store
	cache  cache.Cache[core.Settlement]
	flight singleflight.Group
	logger *log.Logger
}

// NewSettlementService wires the store and an optional cache; with a nil
// cache every call recomputes.
func NewSettlementService(store ledger.Store, c cache.Cache[core.Settlement]) *SettlementService {
	return &SettlementService{
		store:  store,
		cache:  c,
		logger: log.Default(log.ComponentSettlement),
	}
}

func cacheKey(groupID string, version int64) string {
	return groupID + ":" + strconv.FormatInt(version, 10)
}

// Settle returns the balances and minimal transfers for a group. Concurrent
// calls for the same ledger version share one computation. Each caller gets
// its own copy of the slices.
func (s *SettlementService) Settle(ctx context.Context, groupID string) (core.Settlement, error) {
	version, err := s.store.LedgerVersion(ctx, groupID)
	if err != nil {
		return core.Settlement{}, fmt.Errorf("settle %s: %w", groupID, err)
	}
	key := cacheKey(groupID, version)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Settlement served from cache",
				log.NewFields().WithSettlement(groupID, cached.ExpenseCount, len(cached.Transfers), true).ToSlice()...)
			return cached.Clone(), nil
		}
	}

	// A caller cancelling must not fail the others waiting on the same key.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.compute(flightCtx, groupID, key)
	})
	if err != nil {
		return core.Settlement{}, err
	}
	return v.(core.Settlement).Clone(), nil
}

func (s *SettlementService) compute(ctx context.Context, groupID, key string) (core.Settlement, error) {
	var (
		members  []core.Member
		expenses []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.store.ListMembers(gctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(gctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Settlement{}, fmt.Errorf("load ledger %s: %w", groupID, err)
	}

	ids := make([]core.ParticipantID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	settlement, err := core.Settle(groupID, ids, expenses)
	if err != nil {
		s.logger.ErrorContext(ctx, "Settlement failed",
			log.FieldGroupID, groupID,
			log.FieldExpenseCount, len(expenses),
			log.FieldError, err)
		return core.Settlement{}, fmt.Errorf("settle %s: %w", groupID, err)
	}

	if s.cache != nil {
		s.cache.Set(key, settlement)
	}

	s.logger.InfoContext(ctx, "Settlement computed",
		log.NewFields().
			WithSettlement(groupID, settlement.ExpenseCount, len(settlement.Transfers), false).
			WithOperation(log.OpSettle).
			ToSlice()...)
	return settlement, nil
}

// Invalidate drops every cached settlement of the group and reports how many
// entries went.
func (s *SettlementService) Invalidate(groupID string) int {
	if s.cache == nil {
		return 0
	}
	return s.cache.DeletePrefix(groupID + ":")
}
