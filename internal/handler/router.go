package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/quickdeliver/internal/metrics"
	custommiddleware "github.com/mmeshcher/quickdeliver/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса QuickDeliver.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Handle("/metrics", metrics.Handler())
	r.Get("/ping", h.Ping)
	r.Get("/api/plans", h.GetPlans)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/session", h.GetSession)
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/orders", h.GetOrders)
			r.Get("/bills", h.GetBills)
			r.Put("/subscription", h.UpdateSubscription)
		})
	})

	r.Route("/api/assistant", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/history", h.GetHistory)
		r.Delete("/history", h.ClearHistory)
		r.Get("/models", h.GetModels)
		r.Get("/quick", h.QuickActions)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.AssistantRateLimit)

			r.Post("/chat", h.Chat)
			r.Post("/quick/{action}", h.Quick)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
