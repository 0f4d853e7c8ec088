package remote

import (
	"context"
	"time"
)

// Events returns the auth event stream. A single consumer is expected; the
// channel is buffered and events are dropped (with a log line) rather than
// blocking the refresh timer.
func (c *NATSClient) Events() <-chan AuthEvent {
	return c.events
}

func (c *NATSClient) emit(ev AuthEvent) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.Warn(context.Background(), "auth event dropped, consumer too slow", "type", ev.Type)
	}
}

// GetSession restores a prior session from the token cache, exchanging the
// cached refresh token for a fresh token pair. Returns (nil, nil) when no
// prior session exists. A rejected refresh token clears the cache and also
// reports no session rather than an error.
func (c *NATSClient) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if c.session != nil {
		sess := *c.session
		c.mu.Unlock()
		return &sess, nil
	}
	c.mu.Unlock()

	if c.cfg.TokenCachePath == "" {
		return nil, nil
	}
	cache, err := loadTokenCache(c.cfg.TokenCachePath)
	if err != nil {
		return nil, err
	}
	if cache == nil || cache.RefreshToken == "" {
		return nil, nil
	}

	var resp tokenResponse
	if err := c.request(ctx, subjectRefresh, refreshRequest{RefreshToken: cache.RefreshToken}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		c.log.Warn(ctx, "cached session rejected, clearing token cache", "error", resp.Error)
		_ = clearTokenCache(c.cfg.TokenCachePath)
		return nil, nil
	}

	sess, err := c.adoptTokens(resp)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SignInWithPassword authenticates with email/password. On success the event
// stream carries an AuthSignedIn event; failures are only returned to the
// caller.
func (c *NATSClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	if err := c.request(ctx, subjectSignIn, credentialsRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &RemoteError{Message: resp.Error}
	}

	sess, err := c.adoptTokens(resp)
	if err != nil {
		return nil, err
	}
	c.emit(AuthEvent{Type: AuthSignedIn, Session: sess})
	return sess, nil
}

// SignUp creates a new account. The service signs the new user in as part of
// sign-up, so a successful call also emits AuthSignedIn. The profile row is
// materialized by a server-side trigger and may not exist yet when this
// returns.
func (c *NATSClient) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	req := signUpRequest{
		Email:       in.Email,
		Password:    in.Password,
		Name:        in.Name,
		AccountType: in.AccountType,
	}
	var resp tokenResponse
	if err := c.request(ctx, subjectSignUp, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &RemoteError{Message: resp.Error}
	}

	sess, err := c.adoptTokens(resp)
	if err != nil {
		return nil, err
	}
	c.emit(AuthEvent{Type: AuthSignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the session remotely (best effort) and always clears local
// credential state. AuthSignedOut is emitted regardless of the remote
// outcome.
func (c *NATSClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	var refreshToken string
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.session = nil
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.mu.Unlock()

	if c.cfg.TokenCachePath != "" {
		_ = clearTokenCache(c.cfg.TokenCachePath)
	}

	var err error
	if refreshToken != "" {
		var resp ackResponse
		err = c.request(ctx, subjectSignOut, signOutRequest{RefreshToken: refreshToken}, &resp)
		if err == nil && resp.Error != "" {
			err = &RemoteError{Message: resp.Error}
		}
	}

	c.emit(AuthEvent{Type: AuthSignedOut})
	return err
}

// adoptTokens turns a token pair into the current session: identity and
// expiry come from the access-token claims, the refresh token goes to the
// cache, and the proactive refresh timer is (re)armed.
func (c *NATSClient) adoptTokens(resp tokenResponse) (*Session, error) {
	userID, email, exp, err := parseAccessClaims(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		UserID:       userID,
		Email:        email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    exp,
	}

	c.mu.Lock()
	c.session = sess
	c.scheduleRefreshLocked(exp)
	c.mu.Unlock()

	if c.cfg.TokenCachePath != "" {
		cache := tokenCache{RefreshToken: resp.RefreshToken, UserID: userID, Email: email}
		if err := saveTokenCache(c.cfg.TokenCachePath, cache); err != nil {
			c.log.Warn(context.Background(), "token cache not saved", "error", err)
		}
	}

	out := *sess
	return &out, nil
}

func (c *NATSClient) scheduleRefreshLocked(exp time.Time) {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	d := time.Until(exp) - c.cfg.RefreshMargin
	if d < time.Second {
		d = time.Second
	}
	c.refreshTimer = time.AfterFunc(d, c.refreshNow)
}

// refreshNow exchanges the current refresh token for a new pair. Success
// emits AuthTokenRefreshed; any failure emits AuthRefreshFailed and drops
// local credential state, returning the client to anonymous.
func (c *NATSClient) refreshNow() {
	c.mu.Lock()
	if c.closed || c.session == nil {
		c.mu.Unlock()
		return
	}
	refreshToken := c.session.RefreshToken
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()

	var resp tokenResponse
	err := c.request(ctx, subjectRefresh, refreshRequest{RefreshToken: refreshToken}, &resp)
	if err == nil && resp.Error != "" {
		err = &RemoteError{Message: resp.Error}
	}
	if err == nil {
		var sess *Session
		sess, err = c.adoptTokens(resp)
		if err == nil {
			c.emit(AuthEvent{Type: AuthTokenRefreshed, Session: sess})
			return
		}
	}

	c.log.Warn(context.Background(), "token refresh failed", "error", err)

	c.mu.Lock()
	c.session = nil
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.mu.Unlock()
	if c.cfg.TokenCachePath != "" {
		_ = clearTokenCache(c.cfg.TokenCachePath)
	}

	c.emit(AuthEvent{Type: AuthRefreshFailed})
}
