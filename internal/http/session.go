package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niravGanatra/uparwala-sub002/internal/address"
	"github.com/niravGanatra/uparwala-sub002/internal/analytics"
	"github.com/niravGanatra/uparwala-sub002/internal/apiclient"
	"github.com/niravGanatra/uparwala-sub002/internal/booking"
	"github.com/niravGanatra/uparwala-sub002/internal/cart"
	"github.com/niravGanatra/uparwala-sub002/internal/checkout"
	"github.com/niravGanatra/uparwala-sub002/internal/config"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/location"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
	"github.com/niravGanatra/uparwala-sub002/internal/service"
	"github.com/niravGanatra/uparwala-sub002/internal/store"
	"github.com/niravGanatra/uparwala-sub002/internal/tracking"
)

// CleanupInterval is how often idle sessions are looked for.
const CleanupInterval = 30 * time.Second

type Services struct {
	Cart       *service.CartService
	Payments   *service.PaymentService
	Orders     *service.OrderService
	Addresses  *service.AddressService
	Homepage   *service.HomepageService
	Promotions *service.PromotionService
	Bookings   *service.BookingService
}

// Session is everything one browser session holds: its own API client and
// cookie jar, its storage slots and the state of every flow.
type Session struct {
	ID          string
	AnalyticsID string
	API         *apiclient.Client
	Tokens      *store.Tokens
	Services    Services
	Notes       *notify.Recorder
	Cart        *cart.Store
	Checkout    *checkout.Orchestrator
	Wizard      *booking.Wizard
	Location    *location.Holder
	Dialer      *tracking.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	mu       sync.Mutex
	lastSeen time.Time
	form     *address.Form
	trackers map[int64]*trackerRun
	sharers  map[int64]chan domain.LatLng
}

// addressFormAPI joins the two services the address form talks to.
type addressFormAPI struct {
	*service.AddressService
	*service.OrderService
}

type trackerRun struct {
	overlay *tracking.Overlay
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// AddressForm returns the open address form, creating one when needed.
func (s *Session) AddressForm() *address.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		s.form = address.NewForm(addressFormAPI{s.Services.Addresses, s.Services.Orders}, s.log)
	}
	return s.form
}

func (s *Session) ResetAddressForm() *address.Form {
	s.mu.Lock()
	s.form = nil
	s.mu.Unlock()
	return s.AddressForm()
}

// Close stops every background task of the session.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	runs := make([]*trackerRun, 0, len(s.trackers))
	for _, t := range s.trackers {
		runs = append(runs, t)
	}
	for id, ch := range s.sharers {
		close(ch)
		delete(s.sharers, id)
	}
	s.mu.Unlock()
	for _, t := range runs {
		<-t.done
	}
}

type RegistryDeps struct {
	Config     *config.Config
	KV         store.KV
	Tracker    analytics.Tracker
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Registry owns the live sessions and evicts idle ones.
type Registry struct {
	deps RegistryDeps
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(deps RegistryDeps) *Registry {
	if deps.Tracker == nil {
		deps.Tracker = analytics.Noop{}
	}
	r := &Registry{
		deps:        deps,
		now:         time.Now,
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.cleanupLoop()
	return r
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := r.now().Add(-r.deps.Config.SessionTTL)
	var idle []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range idle {
		r.deps.Logger.Info("session expired", "session_id", s.ID)
		s.Close()
	}
}

// Stop ends the cleanup loop and closes every session.
func (r *Registry) Stop() {
	close(r.stopCleanup)
	r.wg.Wait()
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Create builds a session with its own API client and scoped storage.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	cfg := r.deps.Config
	id := uuid.NewString()
	log := r.deps.Logger.With("session_id", id)
	kv := store.Scoped(r.deps.KV, id)
	tokens := store.NewTokens(kv)

	opts := []apiclient.Option{
		apiclient.WithLogger(log),
		apiclient.WithTokenStore(tokens),
	}
	if r.deps.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(r.deps.HTTPClient))
	}
	opts = append(opts,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithBreaker(uint32(cfg.BreakerFailures), cfg.BreakerCooldown),
	)
	api, err := apiclient.New(cfg.APIBaseURL, opts...)
	if err != nil {
		return nil, err
	}

	analyticsID, err := store.SessionID(ctx, kv)
	if err != nil {
		return nil, fmt.Errorf("create analytics session failed: %w", err)
	}

	rc := retry.Config{
		MaxRetries:  cfg.RetryMax,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		ShouldRetry: retry.DefaultShouldRetry,
		Logger:      log,
	}
	svc := Services{
		Cart:       service.NewCartService(api, rc),
		Payments:   service.NewPaymentService(api, rc),
		Orders:     service.NewOrderService(api, rc),
		Addresses:  service.NewAddressService(api, rc),
		Homepage:   service.NewHomepageService(api, rc),
		Promotions: service.NewPromotionService(api, rc),
		Bookings:   service.NewBookingService(api, rc),
	}

	notes := &notify.Recorder{}
	notifier := notify.WithLog(notes, log)
	cartStore := cart.NewStore(svc.Cart, log)
	loc := &location.Holder{}

	var confirmer booking.Confirmer = booking.DisplayConfirmer{}
	if cfg.BookingCreateEnabled {
		confirmer = booking.APIConfirmer{API: svc.Bookings}
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:          id,
		AnalyticsID: analyticsID,
		API:         api,
		Tokens:      tokens,
		Services:    svc,
		Notes:       notes,
		Cart:        cartStore,
		Checkout: checkout.New(checkout.Deps{
			Addresses: svc.Addresses,
			Totals:    svc.Payments,
			Orders:    svc.Orders,
			Payments:  svc.Payments,
			Cart:      cartStore,
			Gifts:     store.NewGiftSlot(kv),
			Notifier:  notifier,
			Tracker:   r.deps.Tracker,
			Logger:    log,
			SessionID: analyticsID,
		}),
		Wizard: booking.NewWizard(booking.Deps{
			Providers: svc.Bookings,
			Location:  loc,
			Confirmer: confirmer,
			Notifier:  notifier,
			Tracker:   r.deps.Tracker,
			Logger:    log,
			SessionID: analyticsID,
		}),
		Location: loc,
		Dialer:   &tracking.Dialer{BaseURL: cfg.TrackingWSURL, Tokens: tokens},
		ctx:      sctx,
		cancel:   cancel,
		log:      log,
		lastSeen: r.now(),
		trackers: make(map[int64]*trackerRun),
		sharers:  make(map[int64]chan domain.LatLng),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	r.deps.Tracker.Track(ctx, analyticsID, "session_started", nil)
	log.InfoContext(ctx, "session created")
	return s, nil
}

// StartTracking runs a live-tracking overlay for the booking in the
// background. A second call while one is running returns the running one.
func (s *Session) StartTracking(bookingID int64, cfg tracking.Config) *tracking.Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[bookingID]; ok {
		select {
		case <-t.done:
		default:
			return t.overlay
		}
	}

	ctx, cancel := context.WithCancel(s.ctx)
	run := &trackerRun{
		overlay: tracking.NewOverlay(bookingID, s.Services.Bookings, s.Dialer, cfg, notify.WithLog(s.Notes, s.log), s.log),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.trackers[bookingID] = run
	go func() {
		defer close(run.done)
		defer cancel()
		run.err = run.overlay.Run(ctx)
		if run.err != nil {
			s.log.Warn("tracking stopped", "booking_id", bookingID, "error", run.err)
		}
	}()
	return run.overlay
}

func (s *Session) Tracker(bookingID int64) (*tracking.Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[bookingID]
	if !ok {
		return nil, false
	}
	return t.overlay, true
}

// StopTracking cancels the overlay and waits for its channel to close.
func (s *Session) StopTracking(bookingID int64) bool {
	s.mu.Lock()
	t, ok := s.trackers[bookingID]
	delete(s.trackers, bookingID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// PushLocation hands a provider fix to the booking's sharer, starting one on
// first use. It reports false when the fix was dropped.
func (s *Session) PushLocation(bookingID int64, pos domain.LatLng, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	ch, ok := s.sharers[bookingID]
	if !ok {
		ch = make(chan domain.LatLng, 16)
		s.sharers[bookingID] = ch
		sharer := tracking.NewSharer(s.Dialer, interval, s.log)
		go func() {
			if err := sharer.Share(s.ctx, bookingID, ch); err != nil {
				s.log.Warn("location sharing stopped", "booking_id", bookingID, "error", err)
			}
			s.mu.Lock()
			if cur, ok := s.sharers[bookingID]; ok && cur == ch {
				delete(s.sharers, bookingID)
			}
			s.mu.Unlock()
		}()
	}
	select {
	case ch <- pos:
		return true
	default:
		return false
	}
}
