package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
	"wisesplit/internal/log"
)

// ErrValidation marks errors caused by the caller's input rather than by the
// store or the broker.
var ErrValidation = errors.New("validation failed")

// LedgerPublisher announces ledger changes to other processes.
type LedgerPublisher interface {
	PublishLedgerChanged(ctx context.Context, groupID string, version int64, expenseID string) error
}

// ExpenseService orchestrates group and expense writes across the ledger
// store and the optional message broker.
type ExpenseService struct {
	store     ledger.Store
	publisher LedgerPublisher
	logger    *log.Logger
}

// NewExpenseService wires a store and an optional publisher; pass nil to run
// without a broker.
func NewExpenseService(store ledger.Store, publisher LedgerPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    log.Default(log.ComponentLedger),
	}
}

// CreateGroup stores a new group and enrolls its creator as the first member.
func (s *ExpenseService) CreateGroup(ctx context.Context, name string, creator core.Member) (core.Group, error) {
	group := core.Group{Name: strings.TrimSpace(name), CreatedBy: creator.ID}
	if err := group.Validate(); err != nil {
		return core.Group{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	g, err := s.store.CreateGroup(ctx, group)
	if err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	if creator.ID != 0 {
		if _, err := s.store.AddMember(ctx, g.ID, creator); err != nil {
			return core.Group{}, fmt.Errorf("enroll creator: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Group created",
		log.FieldGroupID, g.ID,
		log.FieldOperation, log.OpCreate,
		"created_by", int64(creator.ID))
	return g, nil
}

// JoinGroup adds a member. Joining twice is a no-op.
func (s *ExpenseService) JoinGroup(ctx context.Context, groupID string, m core.Member) error {
	if m.ID == 0 {
		return fmt.Errorf("join group: %w: %w", ErrValidation, ledger.ErrMissingParticipant)
	}
	added, err := s.store.AddMember(ctx, groupID, m)
	if err != nil {
		return fmt.Errorf("join group: %w", err)
	}
	if !added {
		s.logger.DebugContext(ctx, "Already a member",
			log.FieldGroupID, groupID,
			"participant_id", int64(m.ID))
		return nil
	}
	s.logger.InfoContext(ctx, "Member joined",
		log.FieldGroupID, groupID,
		log.FieldOperation, log.OpJoin,
		"participant_id", int64(m.ID))
	s.publish(ctx, groupID, "")
	return nil
}

// CreateExpense validates the expense, checks that the payer and every split
// participant belong to the group, stores it and publishes the change.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := s.checkMembership(ctx, e); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, saved.GroupID, saved.ID)
	return saved, nil
}

// CreateEqualExpense splits amount evenly over participants and stores the
// result. Leftover cents go to the first participants in the given order.
func (s *ExpenseService) CreateEqualExpense(ctx context.Context, groupID string, payer core.ParticipantID, description string, amount decimal.Decimal, participants []core.ParticipantID) (core.Expense, error) {
	splits, err := core.SplitEqually(amount, participants)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: split expense: %w", ErrValidation, err)
	}
	return s.CreateExpense(ctx, core.Expense{
		GroupID:     groupID,
		PayerID:     payer,
		Description: description,
		Amount:      amount,
		Splits:      splits,
	})
}

// CreateWeightedExpense splits amount proportionally to the weights.
func (s *ExpenseService) CreateWeightedExpense(ctx context.Context, groupID string, payer core.ParticipantID, description string, amount decimal.Decimal, weights []core.Weight) (core.Expense, error) {
	splits, err := core.SplitByWeight(amount, weights)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: split expense: %w", ErrValidation, err)
	}
	return s.CreateExpense(ctx, core.Expense{
		GroupID:     groupID,
		PayerID:     payer,
		Description: description,
		Amount:      amount,
		Splits:      splits,
	})
}

func (s *ExpenseService) GetGroup(ctx context.Context, groupID string) (core.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

func (s *ExpenseService) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	return s.store.ListMembers(ctx, groupID)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, groupID)
}

func (s *ExpenseService) checkMembership(ctx context.Context, e core.Expense) error {
	members, err := s.store.ListMembers(ctx, e.GroupID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	known := make(map[core.ParticipantID]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}

	if !known[e.PayerID] {
		return fmt.Errorf("%w: payer %s: %w", ErrValidation, e.PayerID, ledger.ErrNotMember)
	}
	for _, sp := range e.Splits {
		if !known[sp.ParticipantID] {
			return fmt.Errorf("%w: split participant %s: %w", ErrValidation, sp.ParticipantID, ledger.ErrNotMember)
		}
	}
	return nil
}

// publish is best effort: the write already succeeded locally.
func (s *ExpenseService) publish(ctx context.Context, groupID, expenseID string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping ledger changed message")
		return
	}
	version, err := s.store.LedgerVersion(ctx, groupID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read ledger version", log.FieldGroupID, groupID, log.FieldError, err)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, groupID, version, expenseID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger changed message",
			log.FieldGroupID, groupID,
			log.FieldExpenseID, expenseID,
			log.FieldError, err)
	}
}
