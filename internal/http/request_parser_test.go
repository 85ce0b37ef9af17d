package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisesplit/internal/core"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    Amount
		wantErr bool
	}{
		{`"12.50"`, "12.50", false},
		{`" 12,50 "`, "12,50", false},
		{`12.5`, "12.5", false},
		{`7`, "7", false},
		{`null`, "", false},
		{`true`, "", true},
		{`{"v":1}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.input), &a)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestAmount_Parsing(t *testing.T) {
	total, err := Amount("12,345").Total()
	require.NoError(t, err)
	assert.Equal(t, "12.35", total.StringFixed(2))

	_, err = Amount("0").Total()
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	share, err := Amount("0").Share()
	require.NoError(t, err)
	assert.True(t, share.IsZero())

	share, err = Amount("-1,5").Share()
	require.NoError(t, err, "sign is checked by expense validation")
	assert.Equal(t, "-1.50", share.StringFixed(2))

	_, err = Amount("").Share()
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = Amount("abc").Share()
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	w, err := Amount("1,5").Weight()
	require.NoError(t, err)
	assert.Equal(t, "1.5", w.String())

	_, err = Amount("x").Weight()
	assert.ErrorIs(t, err, core.ErrInvalidWeight)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Trip"}`, ""},
		{"empty", ``, "empty request body"},
		{"unknown field", `{"nome":"Trip"}`, "invalid JSON"},
		{"trailing object", `{"name":"a"} {"name":"b"}`, "single JSON object"},
		{"wrong type", `{"name":5}`, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Trip", p.Name)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errBadRequest))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateExpenseRequest_Mode(t *testing.T) {
	tests := []struct {
		name    string
		req     createExpenseRequest
		want    string
		wantErr bool
	}{
		{"none", createExpenseRequest{}, "", true},
		{"splits", createExpenseRequest{Splits: []splitJSON{{ParticipantID: 1, Amount: "1"}}}, "splits", false},
		{"equal", createExpenseRequest{SplitBetween: []int64{1}}, "split_between", false},
		{"weights", createExpenseRequest{Weights: []weightJSON{{ParticipantID: 1, Weight: "1"}}}, "weights", false},
		{"both", createExpenseRequest{SplitBetween: []int64{1}, Weights: []weightJSON{{ParticipantID: 1, Weight: "1"}}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.mode()
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
