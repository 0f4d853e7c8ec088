package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/profilehub/internal/flagx"
)

// jsonDuration accepts durations either as strings like "5s" or as integer
// nanoseconds.
type jsonDuration struct {
	time.Duration
}

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}
	ns, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	d.Duration = time.Duration(ns)
	return nil
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from "zero" so partial files only override what they
// mention.
type JsonConfig struct {
	BrokerURL       *string       `json:"broker_url"`
	RequestTimeout  *jsonDuration `json:"request_timeout"`
	RefreshMargin   *jsonDuration `json:"refresh_margin"`
	TokenCachePath  *string       `json:"token_cache_path"`
	ActivityLimit   *int          `json:"activity_limit"`
	ChallengesLimit *int          `json:"challenges_limit"`
	MetricsAddr     *string       `json:"metrics_addr"`
}

// parseJson overlays Config with values from the JSON file named by the
// -c/-config flags. Missing flag means no JSON is loaded; read or unmarshal
// errors panic (caller may recover).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BrokerURL != nil {
		cfg.BrokerURL = *jc.BrokerURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RefreshMargin != nil {
		cfg.RefreshMargin = jc.RefreshMargin.Duration
	}
	if jc.TokenCachePath != nil {
		cfg.TokenCachePath = *jc.TokenCachePath
	}
	if jc.ActivityLimit != nil {
		cfg.ActivityLimit = *jc.ActivityLimit
	}
	if jc.ChallengesLimit != nil {
		cfg.ChallengesLimit = *jc.ChallengesLimit
	}
	if jc.MetricsAddr != nil {
		cfg.MetricsAddr = *jc.MetricsAddr
	}
}
