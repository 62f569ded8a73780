package tracking

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

type MockBookings struct {
	mu       sync.Mutex
	Statuses []domain.BookingStatus
	calls    int
}

// GetBooking walks through Statuses, repeating the last one.
func (m *MockBookings) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	if i >= len(m.Statuses) {
		i = len(m.Statuses) - 1
	}
	m.calls++
	return &domain.Booking{ID: id, Status: m.Statuses[i]}, nil
}

type MockChannel struct {
	msgs   chan Message
	mu     sync.Mutex
	sent   []domain.LatLng
	closed bool
	done   chan struct{}
}

func NewMockChannel() *MockChannel {
	return &MockChannel{msgs: make(chan Message, 16), done: make(chan struct{})}
}

func (c *MockChannel) Read() (Message, error) {
	select {
	case m, ok := <-c.msgs:
		if !ok {
			return Message{}, io.EOF
		}
		return m, nil
	case <-c.done:
		return Message{}, errors.New("use of closed connection")
	}
}

func (c *MockChannel) Send(pos domain.LatLng) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, pos)
	return nil
}

func (c *MockChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *MockChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockChannel) sentPositions() []domain.LatLng {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.LatLng(nil), c.sent...)
}

// MockOpener hands out Channels in order and fails once they run out.
type MockOpener struct {
	mu       sync.Mutex
	Channels []*MockChannel
	opens    int
}

func (o *MockOpener) Open(context.Context, int64) (Channel, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	if len(o.Channels) == 0 {
		return nil, errors.New("dial refused")
	}
	ch := o.Channels[0]
	o.Channels = o.Channels[1:]
	return ch, nil
}

func (o *MockOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}
