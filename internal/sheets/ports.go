package sheets

import (
	"context"

	"wisesplit/internal/core"
)

// Ports for outbound adapters.
type (
	// SettlementExporter publishes a computed settlement somewhere people can
	// read it. members resolves participant IDs to display names.
	SettlementExporter interface {
		ExportSettlement(ctx context.Context, s core.Settlement, members []core.Member) (ref string, err error)
	}
)
