package calculator

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all calculator endpoints onto the given router
// under the /calculator prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/calculator", func(r chi.Router) {
		r.Get("/operations", h.Operations)
		r.Post("/evaluate", h.Evaluate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/operand", h.PushOperand)
				r.Post("/operation", h.PushOperation)
				r.Post("/variable", h.PushVariable)
				r.Put("/variables/{name}", h.BindVariable)
				r.Post("/reset", h.Reset)
			})
		})
	})
}
