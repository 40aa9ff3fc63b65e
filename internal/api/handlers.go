package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when no event feed is
// mounted.
func NewHandler(svc *Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

func (h *Handler) publish(kind, id string) {
	if h.broker != nil {
		h.broker.PublishItemEvent(kind, id)
	}
}

// GetForest handles GET /folders: the full forest for the authenticated
// user.
func (h *Handler) GetForest(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Forest(r.Context(), UserID(r.Context()))
	if err != nil {
		slog.Error("get forest failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ForestResponse{Folders: items})
}

// CreateItem handles POST /folders.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	item, err := h.svc.CreateItem(r.Context(), UserID(r.Context()), req)
	if err != nil {
		if errors.Is(err, apperr.ErrParentNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("parent folder not found"))
			return
		}
		slog.Error("create item failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("created", item.ID)
	writeJSON(w, http.StatusCreated, ItemResponse{Item: item})
}

// UpdateItem handles PUT /folders/{id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	item, err := h.svc.UpdateItem(r.Context(), UserID(r.Context()), id, req)
	if err != nil {
		if errors.Is(err, apperr.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("item not found"))
			return
		}
		slog.Error("update item failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("updated", id)
	writeJSON(w, http.StatusOK, ItemResponse{Item: item})
}

// DeleteItem handles DELETE /folders/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteItem(r.Context(), UserID(r.Context()), id); err != nil {
		if errors.Is(err, apperr.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("item not found"))
			return
		}
		slog.Error("delete item failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("deleted", id)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Item deleted successfully"})
}
