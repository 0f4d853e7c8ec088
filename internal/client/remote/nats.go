package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// NATSConfig holds the connection settings for the data service.
type NATSConfig struct {
	// URL of the NATS endpoint the service is reachable on.
	URL string
	// RequestTimeout bounds every request/reply call.
	RequestTimeout time.Duration
	// RefreshMargin is how long before access-token expiry a refresh is
	// attempted.
	RefreshMargin time.Duration
	// TokenCachePath is where the refresh token is persisted between runs.
	// Empty disables persistence (sessions do not survive a restart).
	TokenCachePath string
}

// NATSClient implements Store and Auth over the service's subjects-based
// JSON protocol.
type NATSClient struct {
	nc  *nats.Conn
	log logging.Logger
	cfg NATSConfig

	mu           sync.Mutex
	session      *Session
	refreshTimer *time.Timer
	closed       bool

	events chan AuthEvent
}

var (
	_ Store = (*NATSClient)(nil)
	_ Auth  = (*NATSClient)(nil)
)

// DialNATS connects to the data service.
func DialNATS(cfg NATSConfig, log logging.Logger) (*NATSClient, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = 30 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}

	return &NATSClient{
		nc:     nc,
		log:    log,
		cfg:    cfg,
		events: make(chan AuthEvent, 16),
	}, nil
}

// Close stops the refresh timer and drops the connection. The session, if
// any, stays in the token cache so a later run can restore it.
func (c *NATSClient) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.mu.Unlock()

	c.nc.Close()
	return nil
}

// request performs one JSON request/reply round trip.
func (c *NATSClient) request(ctx context.Context, subject string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) || errors.Is(err, context.DeadlineExceeded) {
			return ErrUnavailable
		}
		return fmt.Errorf("request %s: %w", subject, err)
	}

	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", subject, err)
	}
	return nil
}

// Select runs one filtered query against the given table.
func (c *NATSClient) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	req := selectRequest{Filters: filtersToMap(q.Filters), Limit: q.Limit}
	if q.Order != nil {
		req.Order = &orderSpec{Column: q.Order.Column, Descending: q.Order.Descending}
	}

	var resp selectResponse
	if err := c.request(ctx, querySubject(table), req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &RemoteError{Message: resp.Error}
	}
	return resp.Rows, nil
}

// Update applies a partial update to the matching rows and returns the row
// as confirmed by the server.
func (c *NATSClient) Update(ctx context.Context, table string, set Row, filters []Filter) (Row, error) {
	req := updateRequest{Set: set, Filters: filtersToMap(filters)}

	var resp updateResponse
	if err := c.request(ctx, updateSubject(table), req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &RemoteError{Message: resp.Error}
	}
	if resp.Row == nil {
		return nil, ErrNoRow
	}
	return resp.Row, nil
}

// Subscribe registers a change-event subscription for rows of table whose
// filter column matches. Events arrive in remote-delivery order. The handler
// is panic-isolated so a misbehaving callback cannot tear the subscription
// down.
func (c *NATSClient) Subscribe(table string, filter Filter, types []EventType, fn func(ChangeEvent)) (Subscription, error) {
	subject := changesSubject(table, filter.Value)

	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		var cm changeMessage
		if err := json.Unmarshal(m.Data, &cm); err != nil {
			c.log.Warn(context.Background(), "dropping malformed change event",
				"subject", subject, "error", err)
			return
		}
		et := EventType(cm.EventType)
		if !eventWanted(types, et) {
			return
		}
		guardedCall(c.log, fn, ChangeEvent{Type: et, Row: cm.NewRow})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	return &natsSubscription{sub: sub}, nil
}

func eventWanted(types []EventType, et EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == et {
			return true
		}
	}
	return false
}

// guardedCall invokes fn and turns a panic into a logged error.
func guardedCall(log logging.Logger, fn func(ChangeEvent), ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(context.Background(), "change-event handler panicked", "panic", r)
		}
	}()
	fn(ev)
}

type natsSubscription struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

func (s *natsSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.sub.Unsubscribe()
	})
	return s.err
}
