package dataprocessing

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "tankyou/internal/errors"
	"tankyou/pkg/contracts/domain"
)

// Price export columns
const (
	colFuel      = "descCarburante"
	colPrice     = "prezzo"
	colSelf      = "isSelf"
	colTimestamp = "dtComu"
)

// PriceRequiredColumns must all be present for the price stage to run
var PriceRequiredColumns = []string{colFuel, colStationID, colPrice, colSelf, colTimestamp}

// ProcessPrices keeps the whitelisted fuel prices of the stations in validIDs.
// Like ProcessRegistry it never fails and reports problems via Outcome.
func (p *Processor) ProcessPrices(ctx context.Context, path string, validIDs []int64) (result PriceResult) {
	ctx, span := p.tracer.Start(ctx, "prices", trace.WithAttributes(
		attribute.String("file", path),
		attribute.Int("valid_ids", len(validIDs)),
	))
	defer span.End()
	logger := p.logger.With(slog.String("stage", "prices"))

	defer func() {
		if rec := recover(); rec != nil {
			result = PriceResult{StageResult: recovered(rec)}
		}
		p.finish(ctx, span, logger, result.StageResult)
	}()

	t, stage := p.open(path, PriceRequiredColumns)
	if !stage.OK() {
		return PriceResult{StageResult: stage}
	}

	valid := make(map[int64]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	prices := make([]domain.PriceRecord, 0, len(t.rows))
	for i := range t.rows {
		fuel, ok := p.cfg.FuelCode(t.get(i, colFuel))
		if !ok {
			stage.Filtered++
			continue
		}
		id, err := parseStationID(t.get(i, colStationID))
		if err != nil {
			stage.Filtered++
			continue
		}
		if _, ok := valid[id]; !ok {
			stage.Filtered++
			continue
		}

		price, err := parseDecimal(t.get(i, colPrice))
		if err != nil {
			stage.Dropped++
			logger.DebugContext(ctx, "dropping price row",
				slog.String("error", apperrors.NewRowError(t.lines[i], colPrice, err).Error()))
			continue
		}

		prices = append(prices, domain.PriceRecord{
			StationID:  id,
			Type:       fuel,
			Price:      price,
			Self:       p.parseSelf(ctx, logger, t, i),
			LastUpdate: NormalizeTimestamp(t.get(i, colTimestamp)),
		})
	}

	stage.Kept = len(prices)
	return PriceResult{StageResult: stage, Prices: prices}
}

// parseSelf reads the isSelf flag. Values other than 1/0/true/false count as
// full service; the row itself is kept.
func (p *Processor) parseSelf(ctx context.Context, logger *slog.Logger, t *table, i int) bool {
	raw := strings.TrimSpace(t.get(i, colSelf))
	self, err := strconv.ParseBool(raw)
	if err != nil {
		logger.DebugContext(ctx, "unreadable self-service flag",
			slog.Int("line", t.lines[i]),
			slog.String("value", raw))
		return false
	}
	return self
}
