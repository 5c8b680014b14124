package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/fieldplanner/planner/internal/handler/health"
	"github.com/fieldplanner/planner/internal/layoutfile"
	"github.com/fieldplanner/planner/internal/persist"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type docPathParams struct {
	Kind  string `path:"kind" enum:"fieldLayouts,stationTemplates,equipmentTemplates,fieldSettings"`
	Scope string `path:"scope" pattern:"^[A-Za-z0-9_-]{1,64}$"`
}

type layoutPathParams struct {
	Scope string `path:"scope" pattern:"^[A-Za-z0-9_-]{1,64}$"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Field Planner API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Synced documents behind the field layout planner.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/gate/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/gate/login")
	postLogin.SetSummary("Unlock")
	postLogin.SetDescription("Exchange the shared password for a session. Sets the planner_session cookie and returns the token for Bearer use.")
	postLogin.AddReqStructure(GateLoginRequest{})
	postLogin.AddRespStructure(GateLoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/gate/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/gate/logout")
	postLogout.SetSummary("Lock")
	postLogout.SetDescription("Ends the session and clears the cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/gate/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/gate/me")
	getMe.SetSummary("Gate status")
	getMe.SetDescription("Reports whether a password is required and whether the caller holds a session.")
	getMe.AddRespStructure(GateStatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getMe)

	// GET /api/docs/{kind}/{scope}
	getDoc, _ := r.NewOperationContext(http.MethodGet, "/api/docs/{kind}/{scope}")
	getDoc.SetSummary("Get document")
	getDoc.SetDescription("Returns the document of one collection and scope.")
	getDoc.AddReqStructure(docPathParams{})
	getDoc.AddRespStructure(persist.Document{}, openapi.WithHTTPStatus(http.StatusOK))
	getDoc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getDoc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getDoc)

	// PATCH /api/docs/{kind}/{scope}
	patchDoc, _ := r.NewOperationContext(http.MethodPatch, "/api/docs/{kind}/{scope}")
	patchDoc.SetSummary("Merge document")
	patchDoc.SetDescription("Sets the given top-level fields, keeping the others, and notifies subscribers.")
	patchDoc.AddReqStructure(docPathParams{})
	patchDoc.AddRespStructure(persist.Document{}, openapi.WithHTTPStatus(http.StatusOK))
	patchDoc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	patchDoc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(patchDoc)

	// GET /api/docs/{kind}/{scope}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/docs/{kind}/{scope}/events")
	getEvents.SetSummary("SSE snapshot stream")
	getEvents.SetDescription("Server-Sent Events stream of document snapshots, starting with the current one.")
	getEvents.AddReqStructure(docPathParams{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/docs/{kind}/{scope}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/docs/{kind}/{scope}/ws")
	getWS.SetSummary("WebSocket snapshot stream")
	getWS.SetDescription("Upgrades to a WebSocket that receives one JSON document per change.")
	getWS.AddReqStructure(docPathParams{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/layouts/{scope}/export
	getExport, _ := r.NewOperationContext(http.MethodGet, "/api/layouts/{scope}/export")
	getExport.SetSummary("Export layout")
	getExport.SetDescription("Downloads the layout as a versioned JSON file.")
	getExport.AddReqStructure(layoutPathParams{})
	getExport.AddRespStructure(layoutfile.Envelope{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getExport)

	// POST /api/layouts/{scope}/import
	postImport, _ := r.NewOperationContext(http.MethodPost, "/api/layouts/{scope}/import")
	postImport.SetSummary("Import layout")
	postImport.SetDescription("Replaces the layout's items with those of an exported file.")
	postImport.AddReqStructure(layoutPathParams{})
	postImport.AddReqStructure(layoutfile.Envelope{})
	postImport.AddRespStructure(LayoutImportResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postImport.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postImport)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
