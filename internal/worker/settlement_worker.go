package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wisesplit/internal/amqp"
	"wisesplit/internal/core"
	"wisesplit/internal/ledger"
	"wisesplit/internal/log"
	"wisesplit/internal/sheets"
)

// Settler is the part of the settlement service the worker needs.
type Settler interface {
	Settle(ctx context.Context, groupID string) (core.Settlement, error)
	Invalidate(groupID string) int
}

// SettlementWorker reacts to ledger changes by recomputing the group
// settlement and handing it to an exporter.
type SettlementWorker struct {
	settler  Settler
	members  ledger.GroupStore
	exporter sheets.SettlementExporter
	logger   *log.Logger

	mu       sync.Mutex
	exported map[string]int64
}

func NewSettlementWorker(settler Settler, members ledger.GroupStore, exporter sheets.SettlementExporter) *SettlementWorker {
	return &SettlementWorker{
		settler:  settler,
		members:  members,
		exporter: exporter,
		logger:   log.Default(log.ComponentWorker),
		exported: make(map[string]int64),
	}
}

// HandleLedgerChanged processes one message. Returning an error requeues it,
// so permanent failures (unknown group, unbalanced ledger) are logged and
// acknowledged instead.
func (w *SettlementWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	logger := w.logger.With(log.FieldGroupID, msg.GroupID, "version", msg.Version)

	if w.alreadyExported(msg.GroupID, msg.Version) {
		logger.DebugContext(ctx, "Skipping stale ledger changed message")
		return nil
	}

	w.settler.Invalidate(msg.GroupID)

	settlement, err := w.settler.Settle(ctx, msg.GroupID)
	switch {
	case errors.Is(err, ledger.ErrGroupNotFound):
		logger.WarnContext(ctx, "Dropping message for unknown group")
		return nil
	case errors.Is(err, core.ErrUnbalancedLedger):
		logger.ErrorContext(ctx, "Ledger does not balance, nothing exported", log.FieldError, err)
		return nil
	case err != nil:
		return fmt.Errorf("settle group: %w", err)
	}

	members, err := w.members.ListMembers(ctx, msg.GroupID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	ref, err := w.exporter.ExportSettlement(ctx, settlement, members)
	if err != nil {
		return fmt.Errorf("export settlement: %w", err)
	}
	w.markExported(msg.GroupID, msg.Version)

	logger.InfoContext(ctx, "Settlement exported",
		log.FieldTransferCount, len(settlement.Transfers),
		log.FieldSheetsRef, ref)
	return nil
}

func (w *SettlementWorker) alreadyExported(groupID string, version int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.exported[groupID]
	return ok && version <= last
}

func (w *SettlementWorker) markExported(groupID string, version int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version > w.exported[groupID] {
		w.exported[groupID] = version
	}
}

// ExportGroups recomputes and exports the given groups once. The worker runs
// it at startup to recover from messages missed while it was down.
func (w *SettlementWorker) ExportGroups(ctx context.Context, groupIDs []string) error {
	var errs []error
	for _, id := range groupIDs {
		if err := w.HandleLedgerChanged(ctx, &amqp.LedgerChangedMessage{GroupID: id}); err != nil {
			errs = append(errs, fmt.Errorf("group %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
