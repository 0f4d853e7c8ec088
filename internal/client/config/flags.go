package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/profilehub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   NATS broker URL (default from Config)
//	-t int      request timeout in seconds (default from Config)
//	-m string   metrics listen address
//	-demo       run against the built-in in-memory backend
//
// The function filters os.Args to only the flags it knows about, using
// flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-m", "-demo"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BrokerURL, "a", cfg.BrokerURL, "NATS broker URL")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "use the built-in in-memory backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
