package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/config"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/report"
	"CoinSentinel/internal/scheduler"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Catalogue resolves configured assets.
type Catalogue interface {
	Asset(id string) (model.Asset, error)
	AssetIDs() []string
}

// Refresher runs an evaluation cycle on demand.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*scheduler.CycleResult, error)
}

// Handler serves the dashboard API.
type Handler struct {
	catalogue Catalogue
	evaluator *report.Evaluator
	collector *collector.Collector
	refresher Refresher
	recorder  recorder.Recorder
	log       zerolog.Logger
}

func NewHandler(cat Catalogue, ev *report.Evaluator, col *collector.Collector, ref Refresher, rec recorder.Recorder, log zerolog.Logger) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Handler{
		catalogue: cat,
		evaluator: ev,
		collector: col,
		refresher: ref,
		recorder:  rec,
		log:       log.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/assets", h.Assets)
	g.GET("/assets/:asset/report", h.Report)
	g.GET("/quotes", h.Quotes)
	g.GET("/ingestions", h.Ingestions)
	g.POST("/refresh", h.Refresh)
}

func (h *Handler) Health(c echo.Context) error {
	return success(c, map[string]string{"status": "ok"})
}

func (h *Handler) Assets(c echo.Context) error {
	ids := h.catalogue.AssetIDs()
	assets := make([]model.Asset, 0, len(ids))
	for _, id := range ids {
		if a, err := h.catalogue.Asset(id); err == nil {
			assets = append(assets, a)
		}
	}
	return success(c, assets)
}

// ReportRequest selects an asset and how many trailing points to return.
// Full returns the whole stored history.
type ReportRequest struct {
	Asset string `param:"asset" validate:"required"`
	Limit int    `query:"limit" default:"500" validate:"min=1,max=100000"`
	Full  bool   `query:"full"`
}

func (h *Handler) Report(c echo.Context) error {
	req := &ReportRequest{}
	if verrs := bindRequest(c, req); verrs != nil {
		return dataResponse(c, http.StatusBadRequest, verrs)
	}
	if req.Full {
		req.Limit = 0
	}

	asset, err := h.catalogue.Asset(req.Asset)
	if errors.Is(err, config.ErrUnknownAsset) {
		return failure(c, http.StatusNotFound, err.Error())
	}
	if err != nil {
		return failure(c, http.StatusInternalServerError, "asset lookup failed")
	}

	r, err := h.evaluator.Evaluate(c.Request().Context(), asset)
	if err != nil {
		h.log.Error().Err(err).Str("asset", asset.ID).Msg("report evaluation")
		return failure(c, http.StatusInternalServerError, "evaluation failed")
	}
	return success(c, r.Trim(req.Limit))
}

func (h *Handler) Quotes(c echo.Context) error {
	quotes, err := h.collector.Quotes(c.Request().Context(), h.catalogue.AssetIDs())
	if err != nil {
		h.log.Error().Err(err).Msg("quotes")
		if errors.Is(err, collector.ErrFetch) {
			return failure(c, http.StatusBadGateway, "market data provider unavailable")
		}
		return failure(c, http.StatusInternalServerError, "quotes failed")
	}
	return success(c, quotes)
}

// IngestionsRequest pages the ingestion audit trail.
type IngestionsRequest struct {
	Limit int `query:"limit" default:"50" validate:"min=1,max=1000"`
}

func (h *Handler) Ingestions(c echo.Context) error {
	req := &IngestionsRequest{}
	if verrs := bindRequest(c, req); verrs != nil {
		return dataResponse(c, http.StatusBadRequest, verrs)
	}
	events, err := h.recorder.RecentIngests(c.Request().Context(), req.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("ingestions")
		return failure(c, http.StatusInternalServerError, "audit trail unavailable")
	}
	return success(c, events)
}

type assetOutcome struct {
	Asset    string         `json:"asset"`
	Fetched  int            `json:"fetched"`
	Inserted int            `json:"inserted"`
	Rejected int            `json:"rejected"`
	Signals  []model.Signal `json:"signals"`
	Error    string         `json:"error,omitempty"`
}

type cycleOutcome struct {
	Trigger    string         `json:"trigger"`
	Started    time.Time      `json:"started"`
	DurationMS int64          `json:"duration_ms"`
	Assets     []assetOutcome `json:"assets"`
}

func (h *Handler) Refresh(c echo.Context) error {
	res, err := h.refresher.Refresh(c.Request().Context(), scheduler.TriggerAPI)
	if errors.Is(err, scheduler.ErrCycleRunning) {
		return failure(c, http.StatusConflict, err.Error())
	}
	if err != nil {
		return failure(c, http.StatusServiceUnavailable, err.Error())
	}

	out := cycleOutcome{
		Trigger:    res.Trigger,
		Started:    res.Started,
		DurationMS: res.Duration.Milliseconds(),
		Assets:     make([]assetOutcome, 0, len(res.Assets)),
	}
	for _, a := range res.Assets {
		o := assetOutcome{
			Asset:    a.Asset.ID,
			Fetched:  a.Fetched,
			Inserted: a.Inserted,
			Rejected: a.Rejected,
			Signals:  a.Signals,
		}
		if o.Signals == nil {
			o.Signals = []model.Signal{}
		}
		if a.Err != nil {
			o.Error = a.Err.Error()
		}
		out.Assets = append(out.Assets, o)
	}
	return success(c, out)
}
