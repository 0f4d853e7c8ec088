// Package remote defines the client-side view of the profile data service:
// a row store with change-event subscriptions (Store) and an authentication
// endpoint with a discrete event stream (Auth). The service itself is
// external; this package only speaks its protocol.
package remote

import (
	"context"
	"time"
)

// Row is a generic record as returned by the remote store.
type Row = map[string]any

// Filter is an equality constraint on a single column.
type Filter struct {
	Column string
	Value  any
}

// Order describes the sort column for a query.
type Order struct {
	Column     string
	Descending bool
}

// Query is a filtered, optionally ordered and capped select.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// EventType classifies a change event.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// AllEvents subscribes to every change type.
var AllEvents = []EventType{EventInsert, EventUpdate, EventDelete}

// ChangeEvent is one change delivered on a subscription. Row carries the new
// row state (nil for deletes on stores that do not echo the old row).
type ChangeEvent struct {
	Type EventType
	Row  Row
}

// Subscription is an active change-event subscription. Unsubscribe stops
// delivery; it is safe to call more than once.
type Subscription interface {
	Unsubscribe() error
}

// Store exposes row query/update operations and change-event subscriptions.
//
// Contract:
//   - Select: run one filtered query, honoring order and limit.
//   - Update: apply a partial update to matching rows and return the updated
//     row as confirmed by the server.
//   - Subscribe: deliver change events for rows matching the filter, in
//     remote-delivery order, until Unsubscribe. Handler panics must not tear
//     down the subscription.
type Store interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Update(ctx context.Context, table string, set Row, filters []Filter) (Row, error)
	Subscribe(table string, filter Filter, types []EventType, fn func(ChangeEvent)) (Subscription, error)
}

// Session is the opaque credential state issued by the auth endpoint,
// decorated with the identity hints the client needs to scope queries.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthEventType classifies a discrete auth state change.
type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "signed_in"
	AuthSignedOut      AuthEventType = "signed_out"
	AuthTokenRefreshed AuthEventType = "token_refreshed"
	AuthRefreshFailed  AuthEventType = "refresh_failed"
)

// AuthEvent is one entry of the auth event stream. Session is nil for
// signed-out and refresh-failed events.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// SignUpInput enumerates exactly the fields the sign-up endpoint consumes.
// Profile row creation is performed by a server-side trigger, not by the
// client.
type SignUpInput struct {
	Email       string
	Password    string
	Name        string
	AccountType string
}

// Auth exposes the authentication endpoint.
//
// Contract:
//   - GetSession restores a prior session if one can be recovered; (nil, nil)
//     means no session exists.
//   - Events returns the stream of discrete auth events. Sign-in and sign-up
//     completions, token refreshes, refresh failures, and sign-outs all
//     surface here; callers drive their state from this stream, not from
//     operation return values.
//   - SignOut clears the session locally even when the remote call fails.
type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	Events() <-chan AuthEvent
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, in SignUpInput) (*Session, error)
	SignOut(ctx context.Context) error
}
