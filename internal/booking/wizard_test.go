package booking

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/location"
	"github.com/niravGanatra/uparwala-sub002/internal/notify"
	"github.com/niravGanatra/uparwala-sub002/internal/service"
	"github.com/niravGanatra/uparwala-sub002/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProviders struct {
	mu        sync.Mutex
	Queries   []service.ProviderQuery
	Search    []domain.Provider
	SearchErr error
	All       []domain.Provider
	ListErr   error
	Listed    int
	// ByService overrides Search per service; Gate runs before answering.
	ByService map[int64][]domain.Provider
	Gate      func(serviceID int64)
}

func (m *MockProviders) SearchProviders(_ context.Context, q service.ProviderQuery) ([]domain.Provider, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, q)
	gate := m.Gate
	found, err := m.Search, m.SearchErr
	if list, ok := m.ByService[q.ServiceID]; ok {
		found = list
	}
	m.mu.Unlock()
	if gate != nil {
		gate(q.ServiceID)
	}
	return found, err
}

func (m *MockProviders) ListProviders(context.Context) ([]domain.Provider, error) {
	m.Listed++
	return m.All, m.ListErr
}

type MockCreator struct {
	Requests []domain.BookingRequest
	Err      error
}

func (m *MockCreator) CreateBooking(_ context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Booking{ID: 77, Status: domain.BookingPending}, nil
}

var (
	services = []domain.RitualService{
		{ID: 1, Name: "Satyanarayan Puja", BasePrice: decimal.NewFromInt(2100)},
		{ID: 2, Name: "Griha Pravesh", BasePrice: decimal.RequireFromString("5100.50")},
		{ID: 3, Name: "Rudrabhishek", BasePrice: decimal.NewFromInt(3500)},
	}
	providers = []domain.Provider{
		{ID: 10, Name: "Pandit Sharma", Languages: []string{"Hindi", "Sanskrit"}},
		{ID: 11, Name: "Pandit Iyer", Languages: []string{"Tamil", "Sanskrit"}},
		{ID: 12, Name: "Pandit Joshi", Languages: []string{"Marathi", "Hindi"}},
	}
	morning = domain.TimeSlot{Start: "09:00", End: "11:00"}
)

func newWizard(p *MockProviders, loc Locator, c Confirmer) (*Wizard, *notify.Recorder) {
	rec := &notify.Recorder{}
	return NewWizard(Deps{Providers: p, Location: loc, Confirmer: c, Notifier: rec, Logger: logger.Nop()}), rec
}

func TestWizard_SelectionChainInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for run := 0; run < 20; run++ {
		w, _ := newWizard(&MockProviders{Search: providers}, nil, nil)
		ctx := context.Background()
		for i := 0; i < 30; i++ {
			switch rng.IntN(3) {
			case 0:
				svc := services[rng.IntN(len(services))]
				require.NoError(t, w.SelectService(ctx, svc))
				st := w.Snapshot()
				assert.Equal(t, StepProvider, st.Step)
				assert.Equal(t, svc.ID, st.Data.Service.ID)
				assert.Nil(t, st.Data.Provider)
				assert.Nil(t, st.Data.Slot)
				assert.True(t, st.Data.Date.IsZero())
				assert.True(t, st.Data.Total.Equal(svc.BasePrice))
			case 1:
				p := providers[rng.IntN(len(providers))]
				hadService := w.Snapshot().Data.Service != nil
				err := w.SelectProvider(p)
				if !hadService {
					assert.ErrorIs(t, err, ErrNoService)
					continue
				}
				require.NoError(t, err)
				st := w.Snapshot()
				assert.Equal(t, StepSchedule, st.Step)
				assert.Equal(t, p.ID, st.Data.Provider.ID)
				assert.Nil(t, st.Data.Slot)
			case 2:
				before := w.Snapshot()
				err := w.SelectSlot(time.Date(2026, 11, 1+rng.IntN(20), 0, 0, 0, 0, time.UTC), morning)
				if before.Data.Provider == nil {
					assert.ErrorIs(t, err, ErrNoProvider)
					continue
				}
				require.NoError(t, err)
				st := w.Snapshot()
				assert.Equal(t, before.Step, st.Step)
				assert.Equal(t, morning, *st.Data.Slot)
				assert.True(t, st.Data.Total.Equal(before.Data.Total))
			}
		}
	}
}

func TestWizard_DiscoveryUsesLocation(t *testing.T) {
	var h location.Holder
	h.Set(location.Position{Coords: &domain.LatLng{Latitude: 19.07, Longitude: 72.87}, Pincode: "400001"})
	p := &MockProviders{Search: providers[:1]}
	w, _ := newWizard(p, &h, nil)

	require.NoError(t, w.SelectService(context.Background(), services[0]))
	require.Len(t, p.Queries, 1)
	q := p.Queries[0]
	assert.Equal(t, int64(1), q.ServiceID)
	require.NotNil(t, q.Latitude)
	assert.Equal(t, 19.07, *q.Latitude)
	assert.Equal(t, "400001", q.Pincode)
	assert.Len(t, w.Providers(), 1)
}

func TestWizard_DiscoveryFallsBackToListing(t *testing.T) {
	p := &MockProviders{SearchErr: errors.New("search down"), All: providers}
	w, rec := newWizard(p, nil, nil)

	require.NoError(t, w.SelectService(context.Background(), services[1]))
	assert.Equal(t, 1, p.Listed)
	assert.Len(t, w.Providers(), 3)
	assert.Empty(t, rec.Drain())
}

func TestWizard_DiscoveryFailureNotifies(t *testing.T) {
	p := &MockProviders{SearchErr: errors.New("search down"), ListErr: errors.New("list down")}
	w, rec := newWizard(p, nil, nil)

	assert.Error(t, w.SelectService(context.Background(), services[0]))
	assert.Equal(t, StepProvider, w.Snapshot().Step)
	assert.Len(t, rec.Drain(), 1)
}

func TestWizard_LanguageFilter(t *testing.T) {
	w, _ := newWizard(&MockProviders{Search: providers}, nil, nil)
	require.NoError(t, w.SelectService(context.Background(), services[0]))

	w.SetLanguage("hindi")
	got := w.Providers()
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, int64(12), got[1].ID)

	w.SetLanguage("")
	assert.Len(t, w.Providers(), 3)
}

func TestWizard_SlotValidation(t *testing.T) {
	w, _ := newWizard(&MockProviders{Search: providers}, nil, nil)
	require.NoError(t, w.SelectService(context.Background(), services[0]))
	require.NoError(t, w.SelectProvider(providers[0]))

	day := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, w.SelectSlot(time.Time{}, morning), ErrInvalidSlot)
	assert.ErrorIs(t, w.SelectSlot(day, domain.TimeSlot{Start: "11:00", End: "09:00"}), ErrInvalidSlot)
	assert.ErrorIs(t, w.SelectSlot(day, domain.TimeSlot{Start: "9am", End: "11:00"}), ErrInvalidSlot)
	assert.NoError(t, w.SelectSlot(day, morning))
}

func TestWizard_ConfirmDisplayOnly(t *testing.T) {
	w, rec := newWizard(&MockProviders{Search: providers}, nil, nil)
	ctx := context.Background()

	_, err := w.Confirm(ctx)
	assert.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, w.SelectService(ctx, services[0]))
	require.NoError(t, w.SelectProvider(providers[0]))
	require.NoError(t, w.SelectSlot(time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC), morning))

	b, err := w.Confirm(ctx)
	require.NoError(t, err)
	assert.Zero(t, b.ID)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, "2026-11-05", b.ScheduledDate)
	assert.Equal(t, notify.LevelSuccess, rec.Drain()[0].Level)

	assert.ErrorIs(t, w.SelectProvider(providers[1]), ErrAlreadyBooked)
	w.Reset()
	assert.Equal(t, StepService, w.Snapshot().Step)
}

func TestWizard_ConfirmThroughAPI(t *testing.T) {
	creator := &MockCreator{}
	conf := APIConfirmer{API: creator, AddressID: func(context.Context) int64 { return 4 }}
	w, _ := newWizard(&MockProviders{Search: providers}, nil, conf)
	ctx := context.Background()

	require.NoError(t, w.SelectService(ctx, services[2]))
	require.NoError(t, w.SelectProvider(providers[2]))
	require.NoError(t, w.SelectSlot(time.Date(2026, 12, 24, 15, 30, 0, 0, time.UTC), morning))

	b, err := w.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(77), b.ID)
	require.Len(t, creator.Requests, 1)
	assert.Equal(t, domain.BookingRequest{
		ServiceID: 3, ProviderID: 12, ScheduledDate: "2026-12-24", StartTime: "09:00", EndTime: "11:00", AddressID: 4,
	}, creator.Requests[0])
}

func TestWizard_Navigation(t *testing.T) {
	w, _ := newWizard(&MockProviders{Search: providers}, nil, nil)
	assert.ErrorIs(t, w.GoTo(StepProvider), ErrInvalidStep)

	require.NoError(t, w.SelectService(context.Background(), services[0]))
	require.NoError(t, w.SelectProvider(providers[0]))
	require.NoError(t, w.GoTo(StepService))
	assert.Equal(t, StepService, w.Snapshot().Step)
	assert.NotNil(t, w.Snapshot().Data.Provider)

	w.Back()
	assert.Equal(t, StepService, w.Snapshot().Step)
}

func TestWizard_SlowDiscoveryOfPreviousServiceIsDropped(t *testing.T) {
	first := make(chan struct{})
	release := make(chan struct{})
	p := &MockProviders{
		ByService: map[int64][]domain.Provider{
			services[0].ID: {providers[0]},
			services[1].ID: {providers[1], providers[2]},
		},
		Gate: func(serviceID int64) {
			if serviceID == services[0].ID {
				close(first)
				<-release
			}
		},
	}
	w, _ := newWizard(p, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, w.SelectService(ctx, services[0]))
	}()
	<-first
	require.NoError(t, w.SelectService(ctx, services[1]))
	close(release)
	wg.Wait()

	st := w.Snapshot()
	require.NotNil(t, st.Data.Service)
	assert.Equal(t, services[1].ID, st.Data.Service.ID)
	assert.Equal(t, []domain.Provider{providers[1], providers[2]}, st.Providers)
}
