package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	docs, gate := deps.Docs, deps.Gate

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Field Planner API", "/openapi.json", "/docs"))

	r.Post("/api/gate/login", handleGateLogin(logger, gate))
	r.Post("/api/gate/logout", handleGateLogout(gate))
	r.Get("/api/gate/me", handleGateMe(gate))

	// Synced documents, one per (kind, scope).
	r.Route("/api/docs/{kind}/{scope}", func(r chi.Router) {
		r.Use(gateMiddleware(logger, gate))
		r.Use(docKeyMiddleware)
		r.Get("/", handleGetDocument(logger, docs))
		r.Patch("/", handlePatchDocument(logger, docs))
		r.Get("/events", handleEvents(logger, docs))
		r.Get("/ws", handleDocumentWS(logger, docs))
	})

	// Layout file download and upload.
	r.Route("/api/layouts/{scope}", func(r chi.Router) {
		r.Use(gateMiddleware(logger, gate))
		r.Use(docKeyMiddleware)
		r.Get("/export", handleLayoutExport(logger, docs))
		r.Post("/import", handleLayoutImport(logger, docs))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
