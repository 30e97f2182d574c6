package server

import (
	"compress/gzip"
	"net/http"

	"github.com/Caskiuz/nemy-marketplace/internal/middleware"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	s.setupMiddleware()

	s.mux.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.mux.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/login", http.HandlerFunc(s.handler.Login))
			r.Post("/register", http.HandlerFunc(s.handler.Register))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Post("/business", http.HandlerFunc(s.handler.CreateBusiness))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", http.HandlerFunc(s.handler.CreateOrder))
				r.Get("/", http.HandlerFunc(s.handler.GetOrders))
				r.Get("/{number}", http.HandlerFunc(s.handler.GetOrder))
				r.Post("/{number}/status", http.HandlerFunc(s.handler.TransitionOrder))
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", http.HandlerFunc(s.handler.GetWallet))
				r.Post("/withdraw", http.HandlerFunc(s.handler.Withdraw))
				r.Get("/transactions", http.HandlerFunc(s.handler.GetTransactions))
			})

			r.Get("/admin/audit", http.HandlerFunc(s.handler.RunAudit))
		})
	})
}

func (s *Server) setupMiddleware() {
	s.mux.Use(
		middleware.DecompressBodyReader,
		middleware.Logger,
		chiMiddleware.Compress(gzip.BestCompression, "application/json", "text/html", "text/plain"),
	)
}
