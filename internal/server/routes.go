package server

import "net/http"

// RegisterRoutes registers all API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/v1/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/v1/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /api/v1/profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("PUT /api/v1/profiles/{id}", s.handleUpdateProfile)
	mux.HandleFunc("DELETE /api/v1/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("POST /api/v1/profiles/import", s.handleImportCredentials)
	mux.HandleFunc("POST /api/v1/profiles/import-config", s.handleImportConfig)
	mux.HandleFunc("POST /api/v1/profiles/from-role", s.handleFromRole)
	mux.HandleFunc("PUT /api/v1/profiles/deactivate", s.handleDeactivateProfiles)
	mux.HandleFunc("PUT /api/v1/profiles/{id}/activate", s.handleActivateProfile)

	mux.HandleFunc("GET /api/v1/resources", s.handleGetResources)
	mux.HandleFunc("POST /api/v1/resources/refresh", s.handleRefreshResources)
	mux.HandleFunc("GET /api/v1/resources/{category}", s.handleGetResourcesByCategory)
}
