package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anuu03/Sweet-Bites/internal/service"
	"github.com/Anuu03/Sweet-Bites/pkg/health"
	"github.com/Anuu03/Sweet-Bites/pkg/middleware"
)

const serviceName = "checkout-service"

// NewRouter creates a chi router with all service routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	healthHandler *health.Handler,
	corsConfig middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	checkoutHandler := NewCheckoutHandler(checkoutService, logger)
	orderHandler := NewOrderHandler(checkoutService, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity())
		r.Use(middleware.RequestLogger(logger))

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.CreateCheckout)
			r.Get("/{id}", checkoutHandler.GetCheckout)
			r.Put("/{id}/pay", checkoutHandler.RecordPayment)
			r.Post("/{id}/finalize", checkoutHandler.FinalizeCheckout)
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
		})
	})

	return r
}
