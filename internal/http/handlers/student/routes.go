package student

import (
	"net/http"

	"github.com/aanand-mishra/students-dashboard/internal/codeforces"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
)

// RegisterRoutes mounts every student route on router.
//
//	POST   /api/students                      → create
//	GET    /api/students                      → list, newest first
//	GET    /api/students/{id}                 → get one
//	PUT    /api/students/{id}                 → partial update
//	DELETE /api/students/{id}                 → delete
//	GET    /api/students/{id}/profile         → stored record + live rating
//	GET    /api/students/{id}/contests        → contest history (?days=)
//	GET    /api/students/{id}/problems        → problem statistics (?days=)
//	PUT    /api/students/{id}/sync-settings   → persist sync preferences
//	POST   /api/students/{id}/sync            → refresh ratings now
func RegisterRoutes(router *http.ServeMux, store storage.Storage, lookup codeforces.Lookup, syncer Syncer) {
	router.HandleFunc("POST /api/students", New(store))
	router.HandleFunc("GET /api/students", GetList(store))
	router.HandleFunc("GET /api/students/{id}", GetByID(store))
	router.HandleFunc("PUT /api/students/{id}", Update(store))
	router.HandleFunc("DELETE /api/students/{id}", Delete(store))

	router.HandleFunc("GET /api/students/{id}/profile", Profile(store, lookup))
	router.HandleFunc("GET /api/students/{id}/contests", Contests(store))
	router.HandleFunc("GET /api/students/{id}/problems", Problems(store))
	router.HandleFunc("PUT /api/students/{id}/sync-settings", SyncSettings(store))
	router.HandleFunc("POST /api/students/{id}/sync", Sync(syncer))
}
