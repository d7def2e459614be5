package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"venuepos/backend/internal/domain"
	"venuepos/backend/internal/service"
	"venuepos/backend/internal/store"
)

type API struct {
	service       *service.Service
	allowedOrigin string
}

func New(svc *service.Service, allowedOrigin string) *API {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", a.handleRoot)
	r.Get("/test", a.handleDiagnostics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", a.handleListItems)
			r.Post("/", a.handleCreateItem)
			r.Put("/{id}", a.handleUpdateItem)
			r.Delete("/{id}", a.handleDeleteItem)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", a.handleListSales)
			r.Post("/", a.handleCreateSale)
		})

		r.Get("/receipt/{receiptNo}", a.handleGetReceipt)
		r.Get("/stats/top", a.handleTopSellers)
	})

	return r
}

// requestLogger logs every request with a level keyed to the status class.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		var event *zerolog.Event
		status := ww.Status()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(startedAt)).
			Msg("request")
	})
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Venue POS Backend Running",
	})
}

func (a *API) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := map[string]any{
		"backend":           "running",
		"database":          "connected",
		"connection_status": "Connected",
		"database_url":      "not set",
	}
	if os.Getenv("DATABASE_URL") != "" {
		resp["database_url"] = "set"
	}

	if err := a.service.PingStore(ctx); err != nil {
		log.Warn().Err(err).Msg("store ping failed")
		resp["database"] = "unavailable"
		resp["connection_status"] = "Not Connected"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter := domain.ItemFilter{Name: strings.TrimSpace(r.URL.Query().Get("q"))}

	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid active filter"))
			return
		}
		filter.Active = &active
	}

	items, err := a.service.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := a.service.CreateItem(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req domain.ItemUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := a.service.UpdateItem(r.Context(), id, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := a.service.DeleteItem(r.Context(), id); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, line := range req.Items {
		if _, err := uuid.Parse(line.ItemID); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid item id format"))
			return
		}
	}

	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)

	from, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid start timestamp"))
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid end timestamp"))
		return
	}

	sales, err := a.service.ListSales(r.Context(), from, to, limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (a *API) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receiptNo")

	sale, err := a.service.GetSaleByReceipt(r.Context(), receiptNo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("receipt not found"))
			return
		}
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleTopSellers(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid start timestamp"))
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid end timestamp"))
		return
	}

	stats, err := a.service.TopSellers(r.Context(), from, to)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// itemID validates the {id} path parameter. Identifiers are opaque to
// clients but must be well-formed UUIDs; anything else is a 400, not a 404.
func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid id format"))
		return "", false
	}
	return id, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrItemUnavailable),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientPayment):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseTimeParam accepts RFC 3339 timestamps as well as bare dates, which
// are taken as midnight UTC.
func parseTimeParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, errors.New("invalid timestamp")
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx details are user-facing; 5xx bodies stay generic and the real
	// error goes to the log.
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"detail": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
