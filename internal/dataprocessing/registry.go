package dataprocessing

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "tankyou/internal/errors"
	"tankyou/pkg/contracts/domain"
)

// Registry export columns
const (
	colStationID = "idImpianto"
	colOwner     = "Gestore"
	colBrand     = "Bandiera"
	colType      = "Tipo Impianto"
	colName      = "Nome Impianto"
	colAddress   = "Indirizzo"
	colCity      = "Comune"
	colProvince  = "Provincia"
	colLatitude  = "Latitudine"
	colLongitude = "Longitudine"
)

// RegistryRequiredColumns must all be present for the registry stage to run
var RegistryRequiredColumns = []string{colBrand, colLatitude, colLongitude, colStationID}

// ProcessRegistry filters the station registry at path to whitelisted brands
// with coordinates and normalizes the survivors. It never fails: problems are
// reported through the result's Outcome with empty Stations and IDs.
func (p *Processor) ProcessRegistry(ctx context.Context, path string) (result RegistryResult) {
	ctx, span := p.tracer.Start(ctx, "registry", trace.WithAttributes(attribute.String("file", path)))
	defer span.End()
	logger := p.logger.With(slog.String("stage", "registry"))

	defer func() {
		if rec := recover(); rec != nil {
			result = RegistryResult{StageResult: recovered(rec)}
		}
		p.finish(ctx, span, logger, result.StageResult)
	}()

	t, stage := p.open(path, RegistryRequiredColumns)
	if !stage.OK() {
		return RegistryResult{StageResult: stage}
	}

	stations := make([]domain.StationRecord, 0, len(t.rows))
	for i := range t.rows {
		flag, ok := p.cfg.BrandCode(t.get(i, colBrand))
		if !ok {
			stage.Filtered++
			continue
		}
		if strings.TrimSpace(t.get(i, colLatitude)) == "" || strings.TrimSpace(t.get(i, colLongitude)) == "" {
			stage.Filtered++
			continue
		}

		station, err := p.convertStation(t, i, flag)
		if err != nil {
			stage.Dropped++
			logger.DebugContext(ctx, "dropping station row", slog.String("error", err.Error()))
			continue
		}
		stations = append(stations, station)
	}

	stage.Kept = len(stations)
	ids := make([]int64, 0, len(stations))
	for _, s := range stations {
		ids = append(ids, s.ID)
	}

	return RegistryResult{StageResult: stage, Stations: stations, IDs: ids}
}

func (p *Processor) convertStation(t *table, i, flag int) (domain.StationRecord, error) {
	line := t.lines[i]

	id, err := parseStationID(t.get(i, colStationID))
	if err != nil {
		return domain.StationRecord{}, apperrors.NewRowError(line, colStationID, err)
	}
	lat, err := parseDecimal(t.get(i, colLatitude))
	if err != nil {
		return domain.StationRecord{}, apperrors.NewRowError(line, colLatitude, err)
	}
	lon, err := parseDecimal(t.get(i, colLongitude))
	if err != nil {
		return domain.StationRecord{}, apperrors.NewRowError(line, colLongitude, err)
	}

	return domain.StationRecord{
		ID:        id,
		Owner:     t.get(i, colOwner),
		Flag:      flag,
		Type:      p.cfg.StationTypeCode(t.get(i, colType)),
		Name:      t.get(i, colName),
		Address:   t.get(i, colAddress),
		City:      t.get(i, colCity),
		Province:  t.get(i, colProvince),
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
