package httphandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 5 * time.Second

type MetricsHandler interface {
	HTTPObserver
	Handler() http.Handler
}

type RouterOpt func(*routerOpts)

type routerOpts struct {
	metrics        MetricsHandler
	requestTimeout time.Duration
	keepAlive      time.Duration
}

func RouterMetricsOpt(m MetricsHandler) RouterOpt {
	return func(o *routerOpts) {
		o.metrics = m
	}
}

func RouterRequestTimeoutOpt(d time.Duration) RouterOpt {
	return func(o *routerOpts) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// RouterKeepAliveOpt sets how often the cart event stream
// sends a keep-alive and refreshes its session.
func RouterKeepAliveOpt(d time.Duration) RouterOpt {
	return func(o *routerOpts) {
		if d > 0 {
			o.keepAlive = d
		}
	}
}

// NewRouter mounts the storefront pages, the JSON API and the ops endpoints.
//
// The cart event stream is long-lived and runs without the request timeout.
func NewRouter(sessions SessionStore, opts ...RouterOpt) http.Handler {
	options := routerOpts{
		requestTimeout: defaultRequestTimeout,
		keepAlive:      defaultKeepAliveInterval,
	}
	for _, opt := range opts {
		opt(&options)
	}

	var obs HTTPObserver
	if options.metrics != nil {
		obs = options.metrics
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LogRequests(obs))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if options.metrics != nil {
		r.Method(http.MethodGet, "/metrics", options.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(WithSession(sessions))

		events := NewEventsHandler(sessions, options.keepAlive)
		r.Get("/api/v1/cart/events", events.CartEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(options.requestTimeout))

			var page PageHandler
			r.Get("/", page.Index)
			r.Post("/filter", page.PostFilter)
			r.Post("/cart/items", page.PostCartItem)
			r.Post("/cart/items/{productID}/quantity", page.PostQuantity)
			r.Post("/cart/items/{productID}/remove", page.PostRemove)
			r.Post("/cart/clear", page.PostClear)
			r.Post("/cart/panel", page.PostPanel)

			r.Route("/api/v1", func(r chi.Router) {
				r.Use(AllowJSON)

				var api APIHandler
				r.Get("/catalog", api.GetCatalog)
				r.Get("/products", api.GetProducts)
				r.Get("/filter", api.GetFilter)
				r.Put("/filter", api.PutFilter)
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", api.GetCart)
					r.Delete("/", api.ClearCart)
					r.Post("/items", api.AddItem)
					r.Put("/items/{productID}", api.UpdateQuantity)
					r.Delete("/items/{productID}", api.RemoveItem)
				})
			})
		})
	})

	return r
}
