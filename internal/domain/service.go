package domain

import "context"

// SummaryService produces a short natural-language summary of a P&L report.
// Callers must treat failures as non-critical.
type SummaryService interface {
	Summarize(ctx context.Context, report *PnLReport) (string, error)
}
