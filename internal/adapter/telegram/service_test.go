package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/service"
)

func driftReport(drifts int) *service.ReconcileReport {
	r := &service.ReconcileReport{
		Checked:  3,
		Finished: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	for i := 0; i < drifts; i++ {
		r.Drifts = append(r.Drifts, service.Drift{
			UserID:       "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			TokenAddress: fmt.Sprintf("0x%040d", i+1),
			Field:        "amount",
			Stored:       10,
			Replayed:     9.5,
		})
	}
	return r
}

func TestFormatReconcileReport(t *testing.T) {
	r := driftReport(12)
	r.Drifts[0].TokenAddress = ""
	r.Drifts[0].Field = "balance"
	r.Failed = []string{"0x1234"}

	text := FormatReconcileReport(r, nil)
	assert.Contains(t, text, "Checked: `3`")
	assert.Contains(t, text, "Drifts: `12`")
	assert.Contains(t, text, "`0xabcd…abcd` balance balance: stored `10`, replayed `9.5`")
	assert.Contains(t, text, "…and 2 more")
	assert.Contains(t, text, "`0x1234` could not be replayed")
	assert.Contains(t, text, "2026-05-01 10:00:00")
}

func TestSendReconcileReport(t *testing.T) {
	var got telegramMessage
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewNotificationService(srv.URL, "TOKEN", "42", "UTC")
	require.True(t, s.Enabled())

	require.NoError(t, s.SendReconcileReport(context.Background(), driftReport(0)))
	assert.Equal(t, 0, calls, "clean sweeps are not reported")

	require.NoError(t, s.SendReconcileReport(context.Background(), driftReport(1)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.Contains(t, got.Text, "RECONCILIATION")
}

func TestSendReconcileReport_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "chat not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewNotificationService(srv.URL, "TOKEN", "42", "")
	err := s.SendReconcileReport(context.Background(), driftReport(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	disabled := NewNotificationService(srv.URL, "", "", "")
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.SendReconcileReport(context.Background(), driftReport(1)))
}
