package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avogel/chase-bridge/internal/bridge"
)

func SetupRoutes(reg *bridge.Registry) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/status", Status(reg))
	return r
}
