package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/service"
)

const defaultAPIURL = "https://api.telegram.org"

// maxDriftLines caps the drift lines listed in one message
const maxDriftLines = 10

type NotificationService struct {
	apiURL     string
	botToken   string
	chatID     string
	enabled    bool
	location   *time.Location
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewNotificationService creates a notifier. It is a no-op unless both
// botToken and chatID are set. tz names the zone used for timestamps.
func NewNotificationService(apiURL, botToken, chatID, tz string) *NotificationService {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	location := time.UTC
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			location = loc
		}
	}

	return &NotificationService{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		enabled:  botToken != "" && chatID != "",
		location: location,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether messages are actually sent
func (s *NotificationService) Enabled() bool { return s.enabled }

// SendReconcileReport alerts about ledgers whose stored figures drifted from
// a replay of their trade log. Clean sweeps are not reported.
func (s *NotificationService) SendReconcileReport(ctx context.Context, report *service.ReconcileReport) error {
	if !s.enabled || report == nil || (len(report.Drifts) == 0 && len(report.Failed) == 0) {
		return nil
	}
	return s.sendMessage(ctx, FormatReconcileReport(report, s.location))
}

// FormatReconcileReport renders report as a Markdown message
func FormatReconcileReport(report *service.ReconcileReport, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ *LEDGER RECONCILIATION*\n\n")
	fmt.Fprintf(&b, "📒 Checked: `%d`\n", report.Checked)
	fmt.Fprintf(&b, "📉 Drifts: `%d`\n", len(report.Drifts))
	fmt.Fprintf(&b, "❌ Failed: `%d`\n", len(report.Failed))
	fmt.Fprintf(&b, "🕒 Finished: `%s`\n", report.Finished.In(loc).Format("2006-01-02 15:04:05"))

	if len(report.Drifts) > 0 {
		b.WriteString("━━━━━━━━━━━━━━━━━\n")
		for i, d := range report.Drifts {
			if i == maxDriftLines {
				fmt.Fprintf(&b, "…and %d more\n", len(report.Drifts)-maxDriftLines)
				break
			}
			target := "balance"
			if d.TokenAddress != "" {
				target = domain.ChecksumAddress(d.TokenAddress)
			}
			fmt.Fprintf(&b, "`%s` %s %s: stored `%g`, replayed `%g`\n",
				shortAddress(d.UserID), target, d.Field, d.Stored, d.Replayed)
		}
	}
	if len(report.Failed) > 0 {
		b.WriteString("━━━━━━━━━━━━━━━━━\n")
		for _, userID := range report.Failed {
			fmt.Fprintf(&b, "`%s` could not be replayed\n", shortAddress(userID))
		}
	}
	return b.String()
}

func shortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

// sendMessage sends a message to Telegram using the Bot API
func (s *NotificationService) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)

	payload := telegramMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
