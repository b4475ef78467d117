package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
)

// RecordReader is satisfied by *outbox.App.
type RecordReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error)
}

type outboxHandler struct {
	records RecordReader
}

// get serves GET /outbox/{id}.
func (h *outboxHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, err := h.records.Get(r.Context(), id)
	switch {
	case errors.Is(err, outbox.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case err != nil:
		log.Error().Err(err).Str("record_id", id.String()).Msg("failed to load outbox record")
		writeError(w, http.StatusInternalServerError, "failed to load record")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}
