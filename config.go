package netsync

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/netsync/nsinterp"
	"github.com/gordian-engine/netsync/nsnet"
	"github.com/gordian-engine/netsync/nspredict"
	"github.com/gordian-engine/netsync/nssnap"
)

// Role distinguishes the two ends of a connection.
// The synchronization logic is symmetric;
// only prediction and reconciliation are restricted to clients.
type Role uint8

const (
	RoleClient Role = iota + 1
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// SessionConfig is the configuration passed to [NewSession].
// Zero values of optional fields select the documented defaults.
type SessionConfig struct {
	// Required. The session owns the transport and closes it in Close.
	Transport nsnet.Transport

	// Required.
	Role Role

	// First outbound sequence number. Defaults to 1.
	// Zero is avoided because a peer's zero-value ack state
	// cannot distinguish "received sequence 0" from "received nothing".
	InitialSequence uint32

	// Maximum snapshots kept for interpolation.
	// Defaults to [nssnap.DefaultCapacity].
	SnapshotCapacity int

	// Ticks the render tick lags the local tick.
	// Defaults to [nsinterp.DefaultDelay].
	// Set ZeroInterpDelay to use an actual zero delay.
	InterpDelay     uint32
	ZeroInterpDelay bool

	// Entity pairing strategy for interpolation.
	// Defaults to [nsinterp.MatchByID].
	Match nsinterp.Mode

	// Client only: bound on the prediction queue and the overflow behavior.
	// Defaults to [nspredict.DefaultMaxPending] and [nspredict.DropOldest].
	MaxPending int
	Overflow   nspredict.OverflowPolicy
}

// validate reports every illegal setting in one error,
// and warns about suspect ones.
func (c SessionConfig) validate(log *slog.Logger) error {
	var errs error

	if c.Transport == nil {
		errs = errors.Join(errs, errors.New("SessionConfig.Transport may not be nil"))
	}
	if c.Role != RoleClient && c.Role != RoleServer {
		errs = errors.Join(errs, fmt.Errorf(
			"SessionConfig.Role must be RoleClient or RoleServer (got %s)", c.Role,
		))
	}
	if c.SnapshotCapacity < 0 {
		errs = errors.Join(errs, fmt.Errorf(
			"SessionConfig.SnapshotCapacity must not be negative (got %d)", c.SnapshotCapacity,
		))
	}
	if c.MaxPending < 0 {
		errs = errors.Join(errs, fmt.Errorf(
			"SessionConfig.MaxPending must not be negative (got %d)", c.MaxPending,
		))
	}
	if c.Overflow != nspredict.DropOldest && c.Overflow != nspredict.Reject {
		errs = errors.Join(errs, fmt.Errorf(
			"SessionConfig.Overflow is not a known policy (got %s)", c.Overflow,
		))
	}
	if c.Match != nsinterp.MatchByID && c.Match != nsinterp.MatchByIndex {
		errs = errors.Join(errs, fmt.Errorf(
			"SessionConfig.Match is not a known mode (got %s)", c.Match,
		))
	}

	if errs != nil {
		return errs
	}

	if c.Match == nsinterp.MatchByIndex {
		log.Warn(
			"Interpolating by entity index; output is unreliable when entities appear or disappear",
		)
	}
	if c.Role == RoleServer && (c.MaxPending != 0 || c.Overflow != nspredict.DropOldest) {
		log.Warn("Prediction settings are ignored for server sessions")
	}
	if c.InterpDelay != 0 && c.ZeroInterpDelay {
		log.Warn(
			"SessionConfig.ZeroInterpDelay overrides a non-zero InterpDelay",
			"interp_delay", c.InterpDelay,
		)
	}

	return nil
}

func (c SessionConfig) interpDelay() uint32 {
	if c.ZeroInterpDelay {
		return 0
	}
	if c.InterpDelay == 0 {
		return nsinterp.DefaultDelay
	}
	return c.InterpDelay
}

func (c SessionConfig) snapshotCapacity() int {
	if c.SnapshotCapacity == 0 {
		return nssnap.DefaultCapacity
	}
	return c.SnapshotCapacity
}

func (c SessionConfig) initialSequence() uint32 {
	if c.InitialSequence == 0 {
		return 1
	}
	return c.InitialSequence
}
