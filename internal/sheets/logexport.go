package sheets

import (
	"context"
	"fmt"

	"wisesplit/internal/core"
	"wisesplit/internal/log"
)

// LogExporter writes settlements to the structured log. It is the fallback
// when no spreadsheet is configured.
type LogExporter struct {
	logger *log.Logger
}

var _ SettlementExporter = (*LogExporter)(nil)

func NewLogExporter(logger *log.Logger) *LogExporter {
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	return &LogExporter{logger: logger}
}

func (e *LogExporter) ExportSettlement(ctx context.Context, s core.Settlement, members []core.Member) (string, error) {
	names := DisplayNames(members)
	for _, t := range s.Transfers {
		e.logger.InfoContext(ctx, "Settlement transfer",
			log.FieldGroupID, s.GroupID,
			"from", names.Of(t.From),
			"to", names.Of(t.To),
			log.FieldAmount, t.Amount.StringFixed(core.Precision))
	}
	e.logger.InfoContext(ctx, "Settlement exported to log",
		log.NewFields().WithSettlement(s.GroupID, s.ExpenseCount, len(s.Transfers), false).ToSlice()...)
	return fmt.Sprintf("log:%s", s.GroupID), nil
}

// Names maps participants to human readable labels.
type Names map[core.ParticipantID]string

// DisplayNames prefers first name, then @username, then the numeric ID.
func DisplayNames(members []core.Member) Names {
	names := make(Names, len(members))
	for _, m := range members {
		switch {
		case m.FirstName != "":
			names[m.ID] = m.FirstName
		case m.Username != "":
			names[m.ID] = "@" + m.Username
		}
	}
	return names
}

func (n Names) Of(id core.ParticipantID) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id.String()
}
