package qc

import (
	"context"
	"log/slog"

	"github.com/erazemk/pregled/internal/model"
)

// Outcome statuses.
const (
	OutcomeSubmitted = "submitted"
	OutcomeFailed    = "failed"
)

// Outcome is the result of submitting one item of a batch.
type Outcome struct {
	ItemID string `json:"item_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Gateway is the only path by which results reach the sink.
type Gateway struct {
	sink ResultSink
}

// NewGateway returns a Gateway writing to sink.
func NewGateway(sink ResultSink) *Gateway {
	return &Gateway{sink: sink}
}

// SubmitOne submits a single result. Any sink failure is returned as a
// *SubmissionError.
func (g *Gateway) SubmitOne(ctx context.Context, result model.Result) error {
	if err := g.sink.SubmitResult(ctx, result); err != nil {
		slog.Error("qc result submission failed", "item", result.ItemID, "error", err)
		return &SubmissionError{Items: 1, Err: err}
	}
	slog.Info("qc result submitted", "item", result.ItemID, "status", result.OverallStatus, "inspector", result.InspectorID)
	return nil
}

// SubmitBatch submits results in a single call. The sink stores all of them
// or none, so every outcome carries the same status.
func (g *Gateway) SubmitBatch(ctx context.Context, results []model.Result) ([]Outcome, error) {
	outcomes := make([]Outcome, len(results))
	err := g.sink.SubmitResults(ctx, results)
	for i, r := range results {
		outcomes[i] = Outcome{ItemID: r.ItemID, Status: OutcomeSubmitted}
		if err != nil {
			outcomes[i].Status = OutcomeFailed
			outcomes[i].Reason = err.Error()
		}
	}
	if err != nil {
		slog.Error("qc batch submission failed", "items", len(results), "error", err)
		return outcomes, &SubmissionError{Items: len(results), Err: err}
	}
	slog.Info("qc batch submitted", "items", len(results))
	return outcomes, nil
}
