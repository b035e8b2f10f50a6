package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartsync/api/controllers"
	cartcontrollers "github.com/angelmondragon/cartsync/api/controllers/cart"
	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	sessions cart.Sessions,
	pingers map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/", cartcontrollers.CartState(sessions, logg))
		r.Delete("/", cartcontrollers.CartReset(sessions, logg))
		r.Post("/fetch", cartcontrollers.CartFetch(sessions, logg))
		r.Post("/items", cartcontrollers.CartAddItem(sessions, logg))
		r.Patch("/items/{itemId}", cartcontrollers.CartUpdateItem(sessions, logg))
		r.Delete("/items/{itemId}", cartcontrollers.CartDeleteItem(sessions, logg))
	})

	return r
}
