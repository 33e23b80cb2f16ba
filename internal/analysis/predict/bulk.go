package predict

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"trade-journal/internal/analysis"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// MaxBulkSymbols caps a single bulk request.
const MaxBulkSymbols = 10

// SymbolError reports a failed prediction inside a bulk request.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BulkResult holds the successful predictions in request order and the
// per-symbol failures.
type BulkResult struct {
	Predictions []*analysis.DirectionReport `json:"predictions"`
	Errors      []SymbolError               `json:"errors,omitempty"`
}

// PredictBulk runs PredictDirection for up to MaxBulkSymbols symbols with at
// most concurrency predictions in flight. A failing symbol does not fail the
// batch.
func (p *Predictor) PredictBulk(ctx context.Context, symbols []string, exchange models.Exchange, concurrency int) (*BulkResult, error) {
	if len(symbols) == 0 {
		return nil, apperrors.NewValidationError("symbols", symbols, "Symbols array is required")
	}
	if len(symbols) > MaxBulkSymbols {
		return nil, apperrors.NewValidationError("symbols", len(symbols), "Maximum 10 symbols allowed per request")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	reports := make([]*analysis.DirectionReport, len(symbols))
	failures := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			report, err := p.PredictDirection(gctx, symbol, exchange)
			reports[i], failures[i] = report, err
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Predictions: make([]*analysis.DirectionReport, 0, len(symbols))}
	for i, symbol := range symbols {
		if failures[i] != nil {
			result.Errors = append(result.Errors, SymbolError{
				Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
				Error:  failures[i].Error(),
			})
			continue
		}
		result.Predictions = append(result.Predictions, reports[i])
	}

	p.logger.Info().
		Int("requested", len(symbols)).
		Int("succeeded", len(result.Predictions)).
		Int("failed", len(result.Errors)).
		Msg("Bulk prediction complete")

	return result, nil
}
