// Package cli implements the interactive ProfileHub client: a REPL driving
// the session manager, the live queries, and the stats writer.
package cli

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/profilehub/internal/client/config"
	"github.com/dmitrijs2005/profilehub/internal/client/metrics"
	"github.com/dmitrijs2005/profilehub/internal/client/models"
	"github.com/dmitrijs2005/profilehub/internal/client/remote"
	"github.com/dmitrijs2005/profilehub/internal/client/services"
	"github.com/dmitrijs2005/profilehub/internal/logging"
)

// Demo-mode credentials, seeded into the in-memory backend.
const (
	DemoEmail    = "demo@profilehub.local"
	DemoPassword = "demo"
)

type App struct {
	config *config.Config
	log    logging.Logger
	met    *metrics.Collector

	session    *services.SessionManager
	stats      *services.LiveQuery[models.UserStats]
	activity   *services.LiveQuery[[]models.Activity]
	challenges *services.LiveQuery[[]models.Challenge]
	writer     *services.StatsWriter

	closeRemote func() error
	metricsSrv  *http.Server
	reader      *bufio.Reader
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	met := metrics.NewCollector(reg)

	var (
		store       remote.Store
		auth        remote.Auth
		closeRemote func() error
	)
	if c.Demo {
		r := remote.NewInMemoryRemote()
		id := r.SeedUser(DemoEmail, DemoPassword, "Demo Creator", "creator")
		seedDemoData(r, id)
		store, auth = r, r
	} else {
		nc, err := remote.DialNATS(remote.NATSConfig{
			URL:            c.BrokerURL,
			RequestTimeout: c.RequestTimeout,
			RefreshMargin:  c.RefreshMargin,
			TokenCachePath: c.TokenCachePath,
		}, log)
		if err != nil {
			return nil, err
		}
		store, auth = nc, nc
		closeRemote = nc.Close
	}

	session := services.NewSessionManager(auth, store, log, met)

	a := &App{
		config:      c,
		log:         log,
		met:         met,
		session:     session,
		stats:       services.NewStatsQuery(store, log, met),
		activity:    services.NewActivityQuery(store, log, met, c.ActivityLimit),
		challenges:  services.NewChallengesQuery(store, log, met, c.ChallengesLimit),
		writer:      services.NewStatsWriter(store, session, log, met),
		closeRemote: closeRemote,
		reader:      bufio.NewReader(os.Stdin),
	}

	if c.MetricsAddr != "" {
		a.metricsSrv = &http.Server{Addr: c.MetricsAddr, Handler: metrics.Handler(reg)}
	}

	return a, nil
}

// Run starts the session, keeps the live queries bound to the current
// identity, and hands control to the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	if a.metricsSrv != nil {
		go func() {
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Warn(ctx, "metrics listener stopped", "error", err)
			}
		}()
	}

	a.session.Start(ctx)

	users, cancelWatch := a.session.Watch()
	defer cancelWatch()
	go a.bindLoop(ctx, users)

	printlnFn("ProfileHub CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

// bindLoop re-binds the live queries whenever the identity changes. Repeated
// deliveries of the same identity (e.g. after a token refresh) are skipped so
// mirrors are not refetched needlessly.
func (a *App) bindLoop(ctx context.Context, users <-chan *models.AppUser) {
	bound := false
	last := ""
	for u := range users {
		id := ""
		if u != nil {
			id = u.ID
		}
		if bound && id == last {
			continue
		}
		bound = true
		last = id
		a.stats.Bind(ctx, id)
		a.activity.Bind(ctx, id)
		a.challenges.Bind(ctx, id)
	}
}

func (a *App) close() {
	a.stats.Close()
	a.activity.Close()
	a.challenges.Close()
	a.session.Close()
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Close()
	}
	if a.closeRemote != nil {
		_ = a.closeRemote()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == services.StateAuthenticated
}

func (a *App) getStatus() string {
	if u := a.session.CurrentUser(); u != nil {
		return "(" + u.Email + ")"
	}
	if a.session.Loading() {
		return "(...)"
	}
	return ""
}
