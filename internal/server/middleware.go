package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/fieldplanner/planner/internal/persist"
)

type ctxKey int

const ctxKeyDoc ctxKey = iota

var scopePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// docKeyMiddleware resolves {kind} and {scope} into a persist.Key. A route
// without {kind} addresses the layout collection.
func docKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := persist.KindLayout
		if name := chi.URLParam(r, "kind"); name != "" {
			k, ok := persist.ParseKind(name)
			if !ok {
				writeError(w, http.StatusNotFound, "unknown collection")
				return
			}
			kind = k
		}

		scope := chi.URLParam(r, "scope")
		if !scopePattern.MatchString(scope) {
			writeError(w, http.StatusBadRequest, "invalid scope")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyDoc, persist.NewKey(kind, scope))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func gateMiddleware(logger *slog.Logger, gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			err := gate.fromRequest(r)
			if errors.Is(err, errNoSession) {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err != nil {
				logger.Error("checking session", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func docKey(r *http.Request) persist.Key {
	return r.Context().Value(ctxKeyDoc).(persist.Key)
}
