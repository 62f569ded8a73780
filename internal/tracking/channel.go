package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

const writeTimeout = 10 * time.Second

type MessageType string

const (
	MsgConnectionEstablished MessageType = "connection_established"
	MsgLocationUpdate        MessageType = "location_update"
	MsgStatusUpdate          MessageType = "status_update"
)

// Message is one inbound frame of the tracking channel.
type Message struct {
	Type      MessageType        `json:"type"`
	Latitude  *domain.Coordinate `json:"latitude,omitempty"`
	Longitude *domain.Coordinate `json:"longitude,omitempty"`
	Status    string             `json:"status,omitempty"`
	Message   string             `json:"message,omitempty"`
}

// Position returns the coordinate pair of a location update.
func (m Message) Position() (domain.LatLng, bool) {
	if m.Latitude == nil || m.Longitude == nil {
		return domain.LatLng{}, false
	}
	return domain.LatLng{Latitude: *m.Latitude, Longitude: *m.Longitude}, true
}

// Channel is an open tracking connection for one booking.
type Channel interface {
	Read() (Message, error)
	Send(pos domain.LatLng) error
	Close() error
}

// Opener opens the tracking channel of a booking.
type Opener interface {
	Open(ctx context.Context, bookingID int64) (Channel, error)
}

type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Dialer opens websocket channels at {BaseURL}/ws/tracking/{id}/.
type Dialer struct {
	BaseURL string
	Tokens  TokenProvider
	WS      *websocket.Dialer
}

func (d *Dialer) Open(ctx context.Context, bookingID int64) (Channel, error) {
	if d.BaseURL == "" {
		return nil, errors.New("tracking url not configured")
	}
	ws := d.WS
	if ws == nil {
		ws = websocket.DefaultDialer
	}
	url := fmt.Sprintf("%s/ws/tracking/%d/", strings.TrimRight(d.BaseURL, "/"), bookingID)

	hdr := http.Header{}
	if d.Tokens != nil {
		tok, err := d.Tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("read access token failed: %w", err)
		}
		if tok != "" {
			hdr.Set("Authorization", "Bearer "+tok)
		}
	}
	wc, resp, err := ws.DialContext(ctx, url, hdr)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("tracking dial failed: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("tracking dial failed: %w", err)
	}
	return &wsChannel{wc: wc}, nil
}

type wsChannel struct {
	wc    *websocket.Conn
	wmu   sync.Mutex
	close sync.Once
	err   error
}

func (c *wsChannel) Read() (Message, error) {
	for {
		op, b, err := c.wc.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		if op != websocket.TextMessage {
			continue
		}
		var m Message
		if err := json.Unmarshal(b, &m); err != nil {
			return Message{}, fmt.Errorf("tracking message decode failed: %w", err)
		}
		return m, nil
	}
}

func (c *wsChannel) Send(pos domain.LatLng) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.wc.WriteJSON(pos)
}

// Close sends a close frame and drops the connection. Safe to call twice.
func (c *wsChannel) Close() error {
	c.close.Do(func() {
		c.wmu.Lock()
		c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
		c.wc.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wmu.Unlock()
		c.err = c.wc.Close()
	})
	return c.err
}
