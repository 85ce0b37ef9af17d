package google

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisesplit/internal/core"
	ports "wisesplit/internal/sheets"
)

func TestSettlementRows(t *testing.T) {
	s := core.Settlement{
		GroupID:      "g1",
		ExpenseCount: 2,
		Total:        decimal.RequireFromString("90"),
		Balances: []core.MemberBalance{
			{ParticipantID: 1, Amount: decimal.RequireFromString("60")},
			{ParticipantID: 2, Amount: decimal.RequireFromString("-60")},
			{ParticipantID: 3, Amount: decimal.Zero},
		},
		Transfers:  []core.Transfer{{From: 2, To: 1, Amount: decimal.RequireFromString("60")}},
		ComputedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	names := ports.DisplayNames([]core.Member{{ID: 1, FirstName: "Ann"}, {ID: 2, Username: "ben"}})

	rows := settlementRows(s, names)

	assert.Equal(t, []interface{}{"Group", "g1", "Computed at", "2024-03-01T10:00:00Z"}, rows[0])
	assert.Equal(t, []interface{}{"Expenses", 2, "Total", "90.00"}, rows[1])
	assert.Equal(t, []interface{}{"Ann", "60.00"}, rows[4])
	assert.Equal(t, []interface{}{"@ben", "-60.00"}, rows[5])
	assert.Equal(t, []interface{}{"3", "0.00"}, rows[6])
	assert.Equal(t, []interface{}{"@ben", "Ann", "60.00"}, rows[len(rows)-1])
}

func TestSettlementRowsAllSettled(t *testing.T) {
	rows := settlementRows(core.Settlement{GroupID: "g"}, nil)
	assert.Equal(t, []interface{}{"All settled"}, rows[len(rows)-1])
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Settlements")
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/creds.json")

	_, err := New(context.Background(), "sheet-id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestExportSettlement_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Settlements"}
	_, err := c.ExportSettlement(context.Background(), core.Settlement{GroupID: "g"}, nil)
	assert.EqualError(t, err, "sheets service not initialized")
}
