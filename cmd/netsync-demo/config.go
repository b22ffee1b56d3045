package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gordian-engine/netsync"
	"github.com/gordian-engine/netsync/nsinterp"
	"github.com/gordian-engine/netsync/nspredict"
	"gopkg.in/yaml.v3"
)

// Config is the demo's YAML configuration.
// Command-line flags override individual fields.
type Config struct {
	Role   string `yaml:"role"`
	Listen string `yaml:"listen"`
	Peer   string `yaml:"peer"`

	TickRateHz int `yaml:"tick_rate_hz"`

	// Server only.
	Entities int `yaml:"entities"`

	InterpDelay uint32 `yaml:"interp_delay"`
	MaxPending  int    `yaml:"max_pending"`
	Overflow    string `yaml:"overflow"`
	Match       string `yaml:"match"`

	// Optional path for a snapshot recording.
	Record string `yaml:"record"`

	// How often, in ticks, to log rendered state and session statistics.
	ReportEveryTicks int `yaml:"report_every_ticks"`
}

func defaultConfig() Config {
	return Config{
		Role:   "server",
		Listen: "127.0.0.1:7000",

		TickRateHz: 64,
		Entities:   4,

		InterpDelay: nsinterp.DefaultDelay,
		MaxPending:  nspredict.DefaultMaxPending,
		Overflow:    nspredict.DropOldest.String(),
		Match:       nsinterp.MatchByID.String(),

		ReportEveryTicks: 64,
	}
}

// loadConfig overlays the YAML file at path, if any, onto the defaults.
func loadConfig(path string) (Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return c, nil
}

// sessionConfig converts c into a SessionConfig, lacking only the transport.
func (c Config) sessionConfig() (netsync.SessionConfig, error) {
	var errs error
	sc := netsync.SessionConfig{
		InterpDelay:     c.InterpDelay,
		ZeroInterpDelay: c.InterpDelay == 0,
		MaxPending:      c.MaxPending,
	}

	switch c.Role {
	case "server":
		sc.Role = netsync.RoleServer
	case "client":
		sc.Role = netsync.RoleClient
		if c.Peer == "" {
			errs = errors.Join(errs, errors.New("client role requires a peer address"))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("role must be server or client (got %q)", c.Role))
	}

	switch c.Overflow {
	case nspredict.DropOldest.String():
		sc.Overflow = nspredict.DropOldest
	case nspredict.Reject.String():
		sc.Overflow = nspredict.Reject
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown overflow policy %q", c.Overflow))
	}

	switch c.Match {
	case nsinterp.MatchByID.String():
		sc.Match = nsinterp.MatchByID
	case nsinterp.MatchByIndex.String():
		sc.Match = nsinterp.MatchByIndex
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown match mode %q", c.Match))
	}

	if c.TickRateHz <= 0 {
		errs = errors.Join(errs, fmt.Errorf("tick_rate_hz must be positive (got %d)", c.TickRateHz))
	}
	if c.ReportEveryTicks <= 0 {
		errs = errors.Join(errs, fmt.Errorf(
			"report_every_ticks must be positive (got %d)", c.ReportEveryTicks,
		))
	}

	if sc.Role == netsync.RoleServer {
		// Prediction settings only apply to clients.
		sc.MaxPending = 0
		sc.Overflow = nspredict.DropOldest
	}

	return sc, errs
}
