package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Carts          CartAPI
	Orders         OrderAPI
	Logger         *zap.Logger
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	cartHandler := NewCartHandler(cfg.Carts, cfg.RequestTimeout, l)
	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout, l)
	metrics := NewMetrics(cfg.Registry)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware(l.Named("http")))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", cartHandler.CreateCart)
			r.Route("/{cart_id}", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.DeleteCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
				r.Post("/checkout", ordersHandler.Checkout)
			})
		})
		r.Route("/orders/{order_id}", func(r chi.Router) {
			r.Get("/", ordersHandler.GetOrder)
			r.Post("/payment", ordersHandler.ConfirmPayment)
		})
	})

	return otelhttp.NewHandler(r, "orders-api")
}
