// Package debugserver exposes the map's live state over HTTP for overlays and
// troubleshooting.
package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/ghostwars/go/internal/diagnostics"
	"github.com/mcdev12/ghostwars/go/internal/livesync"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/viewport"
)

// MapState is the read side of a mounted map.
type MapState interface {
	Zones() []models.Zone
	FeatureCollection() *geojson.FeatureCollection
	Snapshot() map[models.ZoneID][]models.Entity
	Entities(id models.ZoneID) []models.Entity
	Channels() []livesync.ChannelInfo
	ChannelStats() livesync.Stats
	Viewport() *viewport.Viewport
}

// Handler serves the debug routes.
type Handler struct {
	state     MapState
	errors    *diagnostics.Log
	startedAt time.Time
}

// NewHandler serves state. With a nil errs the errors route reads the
// process-wide diagnostics log.
func NewHandler(state MapState, errs *diagnostics.Log) *Handler {
	return &Handler{state: state, errors: errs, startedAt: time.Now()}
}

// Routes returns the mux wrapped with CORS and a request id.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /debug/errors", h.handleErrors)
	mux.HandleFunc("GET /debug/channels", h.handleChannels)
	mux.HandleFunc("GET /debug/zones", h.handleZones)
	mux.HandleFunc("GET /debug/zones.geojson", h.handleZonesGeoJSON)
	mux.HandleFunc("GET /debug/entities", h.handleEntities)
	mux.HandleFunc("GET /debug/entities/{zoneID}", h.handleZoneEntities)
	mux.HandleFunc("GET /debug/viewport", h.handleViewport)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return requestID(c.Handler(mux))
}

// New builds the HTTP/2 cleartext server for addr.
func New(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(h.Routes(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run serves until ctx is done.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("debug server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down debug server")
		return err
	}
	log.Info().Msg("debug server stopped")
	return nil
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		log.Debug().Str("request_id", id).Str("path", r.URL.Path).Msg("debug request")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.state.ChannelStats()
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
		"channels": stats,
	})
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	var entries []diagnostics.Entry
	if errs := h.errorLog(); errs != nil {
		entries = errs.Recent()
	}
	if entries == nil {
		entries = []diagnostics.Entry{}
	}
	writeJSON(w, entries)
}

func (h *Handler) errorLog() *diagnostics.Log {
	if h.errors != nil {
		return h.errors
	}
	return diagnostics.Default()
}

func (h *Handler) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels := h.state.Channels()
	if channels == nil {
		channels = []livesync.ChannelInfo{}
	}
	writeJSON(w, map[string]interface{}{
		"stats":    h.state.ChannelStats(),
		"channels": channels,
	})
}

func (h *Handler) handleZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.state.Zones())
}

func (h *Handler) handleZonesGeoJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.state.FeatureCollection().MarshalJSON()
	if err != nil {
		log.Error().Err(err).Msg("failed to encode zone features")
		http.Error(w, "Failed to encode zones", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func (h *Handler) handleEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.state.Snapshot())
}

func (h *Handler) handleZoneEntities(w http.ResponseWriter, r *http.Request) {
	zoneID := models.ZoneID(r.PathValue("zoneID"))
	entities := h.state.Entities(zoneID)
	if entities == nil {
		entities = []models.Entity{}
	}
	writeJSON(w, entities)
}

func (h *Handler) handleViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.state.Viewport().State())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode debug response")
	}
}
