package api

import "net/http"

// Handlers defines the admin route handlers consumed by this route
// module.
type Handlers interface {
	HandleStatus(w http.ResponseWriter, r *http.Request)
	HandleSyncAll(w http.ResponseWriter, r *http.Request)
	HandleSyncTable(w http.ResponseWriter, r *http.Request, table string)
	HandleLoadTable(w http.ResponseWriter, r *http.Request, table string)
	HandleReadTable(w http.ResponseWriter, r *http.Request, table string)
	HandleHealth(w http.ResponseWriter, r *http.Request)
}

// RegisterRoutes wires cache administration routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	if mux == nil || h == nil {
		return
	}
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/cache/status", h.HandleStatus)
	mux.HandleFunc("POST /api/cache/sync", h.HandleSyncAll)
	mux.HandleFunc("POST /api/cache/sync/{table}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleSyncTable(w, r, r.PathValue("table"))
	})
	mux.HandleFunc("GET /api/cache/load/{table}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleLoadTable(w, r, r.PathValue("table"))
	})
	mux.HandleFunc("GET /api/tables/{table}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleReadTable(w, r, r.PathValue("table"))
	})
}
