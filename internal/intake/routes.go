package intake

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/tools", h.ListTools)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/tools/{tool}", h.ExecuteTool)
			r.Get("/order", h.GetState)
			r.Post("/confirm", h.Confirm)
			r.Delete("/", h.DiscardSession)
		})
	})

	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{orderNumber}", h.GetOrder)

	r.Get("/normalizer/cache", h.CacheStats)
	r.Delete("/normalizer/cache", h.ClearCache)
}
