package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gordian-engine/netsync"
	"github.com/gordian-engine/netsync/nsnet"
	"github.com/gordian-engine/netsync/nspredict"
	"github.com/gordian-engine/netsync/nsrecord"
	"github.com/gordian-engine/netsync/nswire"
)

// driver owns a session and runs the tick loop for one role.
type driver struct {
	log *slog.Logger
	cfg Config

	s    *netsync.Session
	peer net.Addr

	recFile *os.File
	rec     *nsrecord.Writer

	// Server only.
	world   nswire.Snapshot
	applied uint32 // Highest client packet whose commands are in world.
}

func newDriver(log *slog.Logger, cfg Config) (*driver, error) {
	sc, err := cfg.sessionConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d := &driver{
		log: log,
		cfg: cfg,
	}

	if cfg.Peer != "" {
		peer, err := net.ResolveUDPAddr("udp", cfg.Peer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve peer address %q: %w", cfg.Peer, err)
		}
		d.peer = peer
	}

	tr, err := nsnet.ListenUDP(log.With("sys", "transport"), cfg.Listen)
	if err != nil {
		return nil, err
	}
	sc.Transport = tr

	s, err := netsync.NewSession(log.With("sys", "session"), sc)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	d.s = s

	if cfg.Record != "" {
		f, err := os.Create(cfg.Record)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to create recording file: %w", err)
		}
		w, err := nsrecord.NewWriter(f)
		if err != nil {
			_ = f.Close()
			_ = s.Close()
			return nil, err
		}
		d.recFile = f
		d.rec = w
	}

	if sc.Role == netsync.RoleServer {
		d.world = initialWorld(cfg.Entities)
	}

	log.Info(
		"Session ready",
		"role", sc.Role,
		"listen", s.LocalAddr(),
		"peer", d.peer,
	)

	return d, nil
}

func (d *driver) Run(ctx context.Context) error {
	t := time.NewTicker(time.Second / time.Duration(d.cfg.TickRateHz))
	defer t.Stop()

	go d.followDeliveries(ctx)

	var tick uint32
	for {
		select {
		case <-ctx.Done():
			d.log.Info("Stopping", "tick", tick, "cause", context.Cause(ctx))
			d.logStats(tick)
			return nil
		case <-t.C:
		}

		var err error
		if d.s.Role() == netsync.RoleServer {
			err = d.serverTick()
		} else {
			err = d.clientTick(tick)
		}
		if err != nil {
			return err
		}

		tick++
		if tick%uint32(d.cfg.ReportEveryTicks) == 0 {
			d.logStats(tick)
		}
	}
}

// serverTick applies the new commands from at most one received packet,
// advances the world, and sends the result to the most recent peer.
func (d *driver) serverTick() error {
	if p, from, ok := d.s.Recv(); ok {
		d.peer = from
		for _, c := range unappliedCommands(p, d.applied) {
			d.world = applyCommand(d.world, c)
		}
		d.applied = max(d.applied, p.Seq)
	}

	d.world.Tick++

	if d.peer == nil {
		return nil
	}

	if err := d.s.Send(d.peer, nil, &d.world); err != nil {
		// Datagram loss is expected; keep ticking.
		d.log.Debug("Send failed", "err", err)
	}

	return d.record(d.world)
}

// clientTick predicts one command, resends all pending commands,
// reconciles against any received snapshot, and renders the interpolated state.
func (d *driver) clientTick(tick uint32) error {
	cmd := nswire.Command{
		EntityID: 0,
		Input:    scriptedInput(tick),

		// Lets the server skip commands it already applied from earlier packets.
		Reserved: uint64(d.s.Sequence()),
	}
	if err := d.s.Predict(cmd); err != nil {
		var qf *nspredict.QueueFullError
		if !errors.As(err, &qf) {
			return err
		}
		d.log.Debug("Prediction queue full", "err", err)
	}

	if err := d.s.Send(d.peer, d.s.PendingCommands(), nil); err != nil {
		d.log.Debug("Send failed", "err", err)
	}

	if p, _, ok := d.s.Recv(); ok && p.Snapshot != nil {
		if _, err := d.s.Reconcile(p.Ack, *p.Snapshot); err != nil {
			return err
		}
		if err := d.record(*p.Snapshot); err != nil {
			return err
		}
	}

	if tick%uint32(d.cfg.ReportEveryTicks) != 0 {
		return nil
	}

	if predicted, ok := d.s.Replay(applyCommand); ok && len(predicted.Entities) > 0 {
		d.log.Info("Predicted", "tick", tick, "entity0", predicted.Entities[0].Position)
	}
	if ents, ok := d.s.InterpolateAt(tick); ok {
		d.log.Info("Rendered", "tick", tick, "entities", len(ents))
		for _, e := range ents {
			d.log.Debug("Entity", "id", e.ID, "pos", e.Position, "rot", e.Orientation)
		}
	}
	return nil
}

// followDeliveries logs lost outbound packets until ctx is canceled.
func (d *driver) followDeliveries(ctx context.Context) {
	s := d.s.Deliveries()
	for {
		u, next, err := s.Wait(ctx)
		if err != nil {
			return
		}
		s = next

		if len(u.Lost) > 0 {
			d.log.Debug("Outbound packets lost", "seqs", u.Lost)
		}
	}
}

func (d *driver) record(s nswire.Snapshot) error {
	if d.rec == nil {
		return nil
	}
	if err := d.rec.Write(s); err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

func (d *driver) logStats(tick uint32) {
	st := d.s.Stats()
	ack, bits := d.s.AckState()
	d.log.Info(
		"Session stats",
		"tick", tick,
		"seq", d.s.Sequence(),
		"ack", ack,
		"ack_bits", fmt.Sprintf("%032b", bits),
		"sent", st.Sent,
		"send_failures", st.SendFailures,
		"received", st.Received,
		"decode_failures", st.DecodeFailures,
		"duplicates", st.Duplicates,
		"acked", st.Acked,
		"lost", st.Lost,
		"predictions_dropped", st.PredictionsDropped,
	)
}

func (d *driver) Close() error {
	var errs error
	if d.rec != nil {
		errs = errors.Join(errs, d.rec.Close(), d.recFile.Close())
	}
	return errors.Join(errs, d.s.Close())
}
