package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/foodtruck/salesync/internal/logger"
	"github.com/foodtruck/salesync/internal/repository"
	"github.com/foodtruck/salesync/internal/square"
	"github.com/foodtruck/salesync/internal/syncer"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	store   *repository.Store
	syncSvc *syncer.Service
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- RunSync ---

// RunSync triggers a sync run synchronously and reports its terminal
// outcome. A failure caused by the remote API echoes the remote's status
// code and body.
func (h *Handlers) RunSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncSvc.Run(r.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}

		var apiErr *square.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, apiErr.StatusCode, map[string]any{
				"error":         err.Error(),
				"remote_status": apiErr.StatusCode,
				"remote_body":   apiErr.Body,
				"run":           result,
			})
			return
		}

		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"run":   result,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- GetSyncStatus ---

func (h *Handlers) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	last := h.syncSvc.LastResult()
	if last == nil {
		writeError(w, http.StatusNotFound, "no sync run since startup")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// --- ListRecords ---

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.SalesFilter{
		StoreID: q.Get("store_id"),
		OrderID: q.Get("order_id"),
		From:    q.Get("from"),
		To:      q.Get("to"),
		Page:    parseIntDefault(q.Get("page"), 1),
		Limit:   parseIntDefault(q.Get("limit"), 50),
	}

	records, total, err := h.store.Sales.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// --- GetSummary ---

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Sales.GetSummary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- GetWatermark ---

func (h *Handlers) GetWatermark(w http.ResponseWriter, r *http.Request) {
	wm, ok, err := h.store.Watermarks.Current()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"watermark": wm,
		"tracked":   ok,
	})
}

// --- Healthz ---

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Sales.Count(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
