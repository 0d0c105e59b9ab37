package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/emmett/lens/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handler struct {
	service *service.Service
}

func New(s *service.Service) (*Handler, error) {
	h := &Handler{
		service: s,
	}

	return h, nil
}

func (h *Handler) Attach(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Get("/v1/availability", h.handleAvailability)
	r.Post("/v1/recognize", h.handleRecognize)
}

// Router returns a router with the handler attached under the usual middleware
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h.Attach(r)

	return otelhttp.NewHandler(r, "lens")
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)

	text := http.StatusText(code)

	if err != nil {
		text = err.Error()
	}

	w.Write([]byte(text))
}
