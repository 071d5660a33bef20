package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "tankyou/internal/errors"
	"tankyou/internal/services"
	"tankyou/pkg/contracts/domain"
)

type contextKey string

const stationIDKey contextKey = "station_id"

// StationsResponse is the body of GET /stations
type StationsResponse struct {
	Count    int                    `json:"count"`
	Stations []domain.StationRecord `json:"stations"`
}

// StationPricesResponse is the body of GET /stations/{id}/prices
type StationPricesResponse struct {
	StationID int64                `json:"station_id"`
	Count     int                  `json:"count"`
	Prices    []domain.PriceRecord `json:"prices"`
}

// PricesResponse is the body of GET /prices
type PricesResponse struct {
	Count  int                  `json:"count"`
	Prices []domain.PriceRecord `json:"prices"`
}

// DataHandler handles station and price requests with RFC 7807 errors
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/stations", h.GetStations)
	r.Route("/stations/{id}", func(r chi.Router) {
		r.Use(h.StationCtx)
		r.Get("/", h.GetStation)
		r.Get("/prices", h.GetStationPrices)
	})
	r.Get("/prices", h.GetPrices)
	r.Get("/lookups", h.GetLookups)
	r.Post("/refresh", h.Refresh)

	return r
}

// StationCtx parses the station id path parameter
func (h *DataHandler) StationCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Station id must be a positive integer"))
			return
		}

		ctx := context.WithValue(r.Context(), stationIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetStations handles GET /api/v1/stations
func (h *DataHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	flag, err := intParam(query, "flag")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	limit, err := intParam(query, "limit")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filter := services.StationFilter{
		Flag:     flag,
		Province: query.Get("province"),
		Limit:    limit,
	}

	stations, err := h.service.Stations(r.Context(), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "stations listed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("count", len(stations)))

	render.JSON(w, r, StationsResponse{Count: len(stations), Stations: stations})
}

// GetStation handles GET /api/v1/stations/{id}
func (h *DataHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(stationIDKey).(int64)

	station, err := h.service.Station(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, station)
}

// GetStationPrices handles GET /api/v1/stations/{id}/prices
func (h *DataHandler) GetStationPrices(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(stationIDKey).(int64)

	prices, err := h.service.PricesForStation(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, StationPricesResponse{StationID: id, Count: len(prices), Prices: prices})
}

// GetPrices handles GET /api/v1/prices
func (h *DataHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	fuelType, err := intParam(r.URL.Query(), "type")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	prices, err := h.service.Prices(r.Context(), fuelType)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, PricesResponse{Count: len(prices), Prices: prices})
}

// GetLookups handles GET /api/v1/lookups
func (h *DataHandler) GetLookups(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Lookups())
}

// Refresh handles POST /api/v1/refresh. The run is synchronous; a refresh
// already in progress yields 409.
func (h *DataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "refresh requested", slog.String("request_id", reqID))

	result, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "refresh failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// intParam returns 0 for an absent parameter
func intParam(query url.Values, name string) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, "must be an integer")
	}
	return v, nil
}
