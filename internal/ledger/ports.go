// Package ledger defines the storage ports for groups, members and expenses.
// The netting engine in core never talks to a store; services read a
// snapshot through these interfaces and hand it to core.Settle.
package ledger

import (
	"context"
	"errors"

	"wisesplit/internal/core"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrNotMember          = errors.New("participant is not a member of the group")
	ErrMissingParticipant = errors.New("participant id is required")
)

// Ports for outbound adapters.
type (
	GroupStore interface {
		// CreateGroup assigns an ID and creation time and stores the group.
		CreateGroup(ctx context.Context, g core.Group) (core.Group, error)
		GetGroup(ctx context.Context, groupID string) (core.Group, error)
		// AddMember is idempotent: adding an existing member is not an error
		// and reports added == false, leaving the ledger version unchanged.
		AddMember(ctx context.Context, groupID string, m core.Member) (added bool, err error)
		ListMembers(ctx context.Context, groupID string) ([]core.Member, error)
	}

	ExpenseStore interface {
		// AddExpense assigns an ID and creation time and stores the expense
		// together with its splits.
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// ListExpenses returns the group's expenses oldest first.
		ListExpenses(ctx context.Context, groupID string) ([]core.Expense, error)
	}

	// VersionReader exposes a counter that changes whenever a group's ledger
	// (members or expenses) changes. Settlement caches key on it.
	VersionReader interface {
		LedgerVersion(ctx context.Context, groupID string) (int64, error)
	}

	Store interface {
		GroupStore
		ExpenseStore
		VersionReader
	}
)
