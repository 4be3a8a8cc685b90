package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Deps carries everything the HTTP surface needs from the rest of the server.
type Deps struct {
	WS             http.HandlerFunc
	StaticDir      string
	AllowedOrigins []string
	Stats          func() map[string]any
}

// NewRouter assembles the HTTP surface: the WebSocket endpoint, the QR
// helper, health and stats, and the static client pages.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", deps.WS)
	r.Get("/qr", QRHandler)
	r.Get("/healthz", Healthz)
	if deps.Stats != nil {
		r.Get("/stats", statsHandler(deps.Stats))
	}

	// The display and controller pages are plain static assets; the server
	// just hosts whatever the directory holds.
	if deps.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(deps.StaticDir)))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func statsHandler(stats func() map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats())
	}
}
