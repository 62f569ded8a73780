package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/niravGanatra/uparwala-sub002/internal/config"
	"github.com/niravGanatra/uparwala-sub002/internal/tracking"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter mounts the storefront gateway routes. Everything under /api/v1
// except session creation needs the X-Session-ID header.
func NewRouter(cfg *config.Config, reg *Registry, log *slog.Logger) http.Handler {
	limit := cfg.MaxRequestBodySize
	sessions := NewSessionHandler(reg, limit)
	carts := NewCartHandler(cfg.RequestTimeout, limit)
	checkouts := NewCheckoutHandler(cfg.RequestTimeout, limit)
	addresses := NewAddressHandler(cfg.RequestTimeout, limit)
	bookings := NewBookingHandler(cfg.RequestTimeout, limit)
	catalog := NewCatalogHandler(cfg.RequestTimeout, limit)
	trackingCfg := tracking.Config{
		MaxReconnects: cfg.TrackingReconnects,
		BaseDelay:     cfg.RetryBaseDelay,
		MaxDelay:      cfg.RetryMaxDelay,
	}
	tracker := NewTrackingHandler(cfg.RequestTimeout, limit, trackingCfg, cfg.ShareInterval)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": reg.Len()})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", sessions.Create)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(reg))

			r.Delete("/session", sessions.Delete)
			r.Get("/homepage", catalog.Homepage)
			r.Post("/coupons/validate", catalog.ValidateCoupon)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Post("/items", carts.AddItem)
				r.Patch("/items/{item_id}", carts.UpdateQuantity)
				r.Delete("/items/{item_id}", carts.RemoveItem)
				r.Put("/selection", carts.SetSelection)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkouts.Get)
				r.Post("/load", checkouts.Load)
				r.Put("/address", checkouts.SelectAddress)
				r.Get("/gift-options", checkouts.GiftOptions)
				r.Put("/gift", checkouts.SetGift)
				r.Delete("/gift", checkouts.ClearGift)
				r.Put("/payment-method", checkouts.SetPaymentMethod)
				r.Put("/note", checkouts.SetNote)
				r.Post("/next", checkouts.Next)
				r.Post("/back", checkouts.Back)
				r.Post("/goto", checkouts.GoTo)
				r.Post("/place-order", checkouts.PlaceOrder)
				r.Post("/confirm-payment", checkouts.ConfirmPayment)
			})

			r.Get("/addresses", addresses.List)
			r.Route("/address-form", func(r chi.Router) {
				r.Post("/", addresses.Open)
				r.Get("/", addresses.Get)
				r.Put("/pincode", addresses.SetPincode)
				r.Put("/fields", addresses.SetFields)
				r.Put("/city", addresses.SetCity)
				r.Put("/state", addresses.SetState)
				r.Post("/submit", addresses.Submit)
			})

			r.Put("/location", bookings.SetLocation)
			r.Get("/services", bookings.ListServices)
			r.Route("/booking", func(r chi.Router) {
				r.Get("/", bookings.Get)
				r.Post("/service", bookings.SelectService)
				r.Post("/provider", bookings.SelectProvider)
				r.Post("/slot", bookings.SelectSlot)
				r.Put("/language", bookings.SetLanguage)
				r.Post("/back", bookings.Back)
				r.Post("/goto", bookings.GoTo)
				r.Post("/confirm", bookings.Confirm)
				r.Post("/reset", bookings.Reset)
			})

			r.Route("/bookings/{booking_id}", func(r chi.Router) {
				r.Post("/tracking", tracker.Start)
				r.Get("/tracking", tracker.Get)
				r.Delete("/tracking", tracker.Stop)
				r.Post("/location", tracker.PushLocation)
				r.Post("/{action}", tracker.Action)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront-gateway")
}
