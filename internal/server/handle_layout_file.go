package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldplanner/planner/internal/layout"
	"github.com/fieldplanner/planner/internal/layoutfile"
	"github.com/fieldplanner/planner/internal/planner"
)

// LayoutImportResponse is the response for POST /api/layouts/{scope}/import.
type LayoutImportResponse struct {
	Imported int `json:"imported"`
}

func handleLayoutExport(logger *slog.Logger, docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := docKey(r)
		doc, err := docs.Snapshot(r.Context(), key)
		if err != nil {
			logger.Error("loading layout", "key", key.String(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := []planner.PlacedItem{}
		if raw, ok := doc.Field(layout.Field); ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				logger.Error("decoding layout", "key", key.String(), "error", err)
				writeError(w, http.StatusInternalServerError, "stored layout is malformed")
				return
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, layoutfile.DefaultFilename))
		if err := layoutfile.Export(w, items, time.Now()); err != nil {
			logger.Error("writing export", "key", key.String(), "error", err)
		}
	}
}

// handleLayoutImport replaces the layout's items with those of an export
// file. The rest of the document is kept.
func handleLayoutImport(logger *slog.Logger, docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := docKey(r)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		items, err := layoutfile.Import(r.Body)
		var fe *layoutfile.FormatError
		if errors.As(err, &fe) {
			writeError(w, http.StatusBadRequest, fe.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		items = layout.Normalize(items, time.Now())
		data, err := json.Marshal(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if _, err := docs.Merge(r.Context(), key, map[string]json.RawMessage{layout.Field: data}); err != nil {
			logger.Error("importing layout", "key", key.String(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("layout imported", "key", key.String(), "items", len(items))
		writeJSON(w, http.StatusOK, LayoutImportResponse{Imported: len(items)})
	}
}
