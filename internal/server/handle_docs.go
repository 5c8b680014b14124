package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fieldplanner/planner/internal/persist"
)

// Documents is the document store behind the API.
type Documents interface {
	Get(ctx context.Context, key persist.Key) (persist.Document, error)
	Snapshot(ctx context.Context, key persist.Key) (persist.Document, error)
	Merge(ctx context.Context, key persist.Key, fields map[string]json.RawMessage) (persist.Document, error)
	Subscribe(ctx context.Context, key persist.Key) (<-chan []byte, func(), error)
}

// DocumentPatch is the request body for PATCH /api/docs/{kind}/{scope}:
// the top-level fields to set. Fields not named are kept.
type DocumentPatch map[string]json.RawMessage

func handleGetDocument(logger *slog.Logger, docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := docKey(r)
		doc, err := docs.Get(r.Context(), key)
		if errors.Is(err, persist.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		if err != nil {
			logger.Error("loading document", "key", key.String(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handlePatchDocument(logger *slog.Logger, docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := docKey(r)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var patch DocumentPatch
		if err := readJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(patch) == 0 {
			writeError(w, http.StatusBadRequest, "no fields to update")
			return
		}

		doc, err := docs.Merge(r.Context(), key, patch)
		if err != nil {
			logger.Error("merging document", "key", key.String(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}
