package intake

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Vovarama1992/dental-order-bridge/internal/order"
)

// maxArgsBytes — аргументы инструмента больше этого не принимаются
const maxArgsBytes = 64 << 10

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "internal error, please retry")
}

// ListTools — определения инструментов для модели
func (h *Handler) ListTools(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Tools())
}

func (h *Handler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": h.svc.NewSession()})
}

// ExecuteTool — тело запроса целиком считается аргументами инструмента
func (h *Handler) ExecuteTool(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tool := chi.URLParam(r, "tool")

	args, err := io.ReadAll(io.LimitReader(r.Body, maxArgsBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	if len(args) > maxArgsBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "arguments too large")
		return
	}

	resp, err := h.svc.Execute(r.Context(), sessionID, tool, args)
	switch {
	case errors.Is(err, ErrUnknownTool):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, ErrEmptySessionID):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.State(chi.URLParam(r, "sessionID"))
	if errors.Is(err, ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "sessionID"))

	var incomplete *IncompleteOrderError
	switch {
	case errors.As(err, &incomplete):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   ErrIncompleteOrder.Error(),
			"missing": incomplete.Missing,
		})
		return
	case errors.Is(err, ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, order.ErrDuplicateOrder):
		respondError(w, http.StatusConflict, "order number collision, please retry")
		return
	case err != nil:
		h.internalError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	h.svc.Discard(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "orderNumber"))
	if errors.Is(err, order.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	orders, err := h.svc.RecentOrders(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.CacheStats())
}

func (h *Handler) ClearCache(w http.ResponseWriter, _ *http.Request) {
	h.svc.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
