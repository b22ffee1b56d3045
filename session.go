package netsync

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gordian-engine/netsync/nsack"
	"github.com/gordian-engine/netsync/nsinterp"
	"github.com/gordian-engine/netsync/nsnet"
	"github.com/gordian-engine/netsync/nspredict"
	"github.com/gordian-engine/netsync/nspubsub"
	"github.com/gordian-engine/netsync/nssnap"
	"github.com/gordian-engine/netsync/nswire"
)

// Session is the state of one end of one connection.
//
// All methods are safe for concurrent use.
// Every method holds a single lock for its duration,
// so a driver that sends and receives from separate goroutines
// sees the same ordering it would from a single tick loop.
type Session struct {
	log *slog.Logger

	tr    nsnet.Transport
	role  Role
	match nsinterp.Mode
	delay uint32

	mu sync.Mutex

	seq     uint32
	tracker nsack.Tracker
	ledger  *nsack.Ledger
	snaps   *nssnap.Buffer

	// Nil for server sessions.
	rec *nspredict.Reconciler

	stats Stats

	// Tail of the delivery stream; the next outcome is published here.
	deliveries *nspubsub.Stream[nsack.LedgerUpdate]

	// Reused encode buffer.
	encBuf []byte
}

// Stats are cumulative counters for a [Session].
type Stats struct {
	// Packets handed to the transport, successfully or not.
	Sent uint64

	// Packets that failed to encode or whose transport write failed.
	SendFailures uint64

	// Datagrams that decoded successfully.
	Received uint64

	// Datagrams dropped because they did not decode.
	DecodeFailures uint64

	// Received packets whose sequence number had already been seen.
	Duplicates uint64

	// Outbound packets confirmed, or given up on, by the peer's ack state.
	Acked uint64
	Lost  uint64

	// Pending predictions evicted or refused by a full prediction queue.
	PredictionsDropped uint64
}

// NewSession validates cfg and returns a ready Session.
// On error, no session state exists and cfg.Transport is left open.
func NewSession(log *slog.Logger, cfg SessionConfig) (*Session, error) {
	if err := cfg.validate(log); err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}

	s := &Session{
		log: log,

		tr:    cfg.Transport,
		role:  cfg.Role,
		match: cfg.Match,
		delay: cfg.interpDelay(),

		seq:    cfg.initialSequence(),
		ledger: nsack.NewLedger(),
		snaps:  nssnap.NewBuffer(cfg.snapshotCapacity()),

		deliveries: nspubsub.NewStream[nsack.LedgerUpdate](),
	}

	if cfg.Role == RoleClient {
		s.rec = nspredict.NewReconciler(
			nspredict.NewQueue(cfg.MaxPending, cfg.Overflow),
		)
	}

	return s, nil
}

// Role returns the role the session was configured with.
func (s *Session) Role() Role { return s.role }

// LocalAddr returns the transport's local address.
func (s *Session) LocalAddr() net.Addr { return s.tr.LocalAddr() }

// Send builds a packet from the current sequence and acknowledgment state,
// carrying cmds and, if non-nil, snap, and writes it to peer.
//
// The outbound sequence number advances whether or not the write succeeds:
// a packet that fails to send is indistinguishable, to the peer,
// from one lost in transit.
// Transport errors are returned for the caller to log or ignore;
// the session remains usable.
func (s *Session) Send(peer net.Addr, cmds []nswire.Command, snap *nswire.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq
	s.seq++
	s.stats.Sent++

	s.publishDelivery(s.ledger.Sent(seq))

	p := nswire.Packet{
		Seq:      seq,
		Ack:      s.tracker.Ack,
		AckBits:  s.tracker.AckBits,
		Commands: cmds,
		Snapshot: snap,
	}

	b, err := nswire.AppendEncode(s.encBuf[:0], p)
	if err != nil {
		s.stats.SendFailures++
		return fmt.Errorf("failed to encode packet %d: %w", seq, err)
	}
	s.encBuf = b

	if err := s.tr.SendTo(b, peer); err != nil {
		s.stats.SendFailures++
		s.log.Debug(
			"Failed to send packet",
			"seq", seq,
			"peer", peer,
			"err", err,
		)
		return fmt.Errorf("failed to send packet %d: %w", seq, err)
	}

	return nil
}

// Recv makes one non-blocking attempt to read a packet.
// It returns false when nothing is available,
// including when the next datagram failed to decode and was dropped.
//
// A successfully decoded packet updates the session's acknowledgment state,
// resolves outbound packets the peer reports on,
// and, if it carries a snapshot, adds a copy to the snapshot buffer.
// Duplicate packets are counted but otherwise treated like any other:
// the buffer stores every snapshot in arrival order, repeats included.
func (s *Session) Recv() (nswire.Packet, net.Addr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, from, ok := s.tr.Receive()
	if !ok {
		return nswire.Packet{}, nil, false
	}

	p, err := nswire.Decode(b)
	if err != nil {
		s.stats.DecodeFailures++
		s.log.Debug(
			"Dropping undecodable datagram",
			"from", from,
			"size", len(b),
			"err", err,
		)
		return nswire.Packet{}, nil, false
	}
	s.stats.Received++

	if s.tracker.Observe(p.Seq) == nsack.ObservedDuplicate {
		s.stats.Duplicates++
	}

	s.publishDelivery(s.ledger.Apply(p.Ack, p.AckBits))

	if p.Snapshot != nil {
		if evicted, ok := s.snaps.Push(*p.Snapshot); ok {
			s.log.Debug(
				"Evicted oldest snapshot from full buffer",
				"evicted_tick", evicted.Tick,
				"new_tick", p.Snapshot.Tick,
			)
		}
	}

	return p, from, true
}

// publishDelivery counts u and publishes it if it resolved anything.
// The caller must hold s.mu.
func (s *Session) publishDelivery(u nsack.LedgerUpdate) {
	if len(u.Acked) == 0 && len(u.Lost) == 0 {
		return
	}

	s.stats.Acked += uint64(len(u.Acked))
	s.stats.Lost += uint64(len(u.Lost))

	s.deliveries.Publish(u)
	s.deliveries = s.deliveries.Next
}

// Deliveries returns the point in the delivery stream
// where the next outcome will be published.
// Each published value lists outbound sequence numbers
// that the peer acknowledged, or that can no longer be acknowledged.
//
// There is no retransmission;
// lost packets are reported so callers can adapt what they send.
func (s *Session) Deliveries() *nspubsub.Stream[nsack.LedgerUpdate] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliveries
}

// Predict queues cmd as a locally applied prediction,
// tagged with the sequence number of the next outbound packet.
//
// If the prediction queue is full, Predict returns a [*nspredict.QueueFullError].
// Under [nspredict.DropOldest] the command was still queued.
//
// Predict is only available to client sessions.
func (s *Session) Predict(cmd nswire.Command) error {
	if s.rec == nil {
		return WrongRoleError{Op: "Predict", Role: s.role}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.rec.Queue().Push(s.seq, cmd)
	if err != nil {
		var qf *nspredict.QueueFullError
		if errors.As(err, &qf) {
			s.stats.PredictionsDropped++
		}
	}
	return err
}

// Reconcile discards every pending prediction at or below ackID
// and adopts snap as the authoritative baseline.
// It returns the number of discarded predictions.
//
// Remaining predictions are not re-applied;
// use [*Session.Replay] to derive a predicted state from the new baseline.
//
// Reconcile is only available to client sessions.
func (s *Session) Reconcile(ackID uint32, snap nswire.Snapshot) (int, error) {
	if s.rec == nil {
		return 0, WrongRoleError{Op: "Reconcile", Role: s.role}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rec.Reconcile(ackID, snap), nil
}

// Replay applies the pending predictions, in order, to a copy of the baseline.
// It returns false before the first [*Session.Reconcile] and on server sessions.
func (s *Session) Replay(sim nspredict.Simulator) (nswire.Snapshot, bool) {
	if s.rec == nil {
		return nswire.Snapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rec.Replay(sim)
}

// Baseline returns a copy of the last authoritative snapshot
// adopted through [*Session.Reconcile].
func (s *Session) Baseline() (nswire.Snapshot, bool) {
	if s.rec == nil {
		return nswire.Snapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.rec.Baseline()
	return b.Clone(), ok
}

// PendingCommands returns the commands of every unacknowledged prediction,
// oldest first, suitable for redundant resending with each outbound packet.
// It returns nil for server sessions.
func (s *Session) PendingCommands() []nswire.Command {
	if s.rec == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rec.Queue().Commands()
}

// Interpolate returns entity state at the target tick,
// interpolated between the first pair of consecutively received snapshots
// that brackets it.
// It returns false when no such pair has been received.
func (s *Session) Interpolate(target uint32) ([]nswire.EntityState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return nsinterp.Interpolate(s.snaps.All(), target, s.match)
}

// InterpolateAt is shorthand for interpolating at localTick
// minus the configured interpolation delay.
func (s *Session) InterpolateAt(localTick uint32) ([]nswire.EntityState, bool) {
	return s.Interpolate(nsinterp.RenderTick(localTick, s.delay))
}

// LatestSnapshot returns a copy of the most recently buffered snapshot.
func (s *Session) LatestSnapshot() (nswire.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.snaps.Latest()
	return l.Clone(), ok
}

// BufferedSnapshots returns the number of snapshots held for interpolation.
func (s *Session) BufferedSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps.Len()
}

// Sequence returns the sequence number the next [*Session.Send] will use.
func (s *Session) Sequence() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// AckState returns the acknowledgment fields
// the next outbound packet will carry.
func (s *Session) AckState() (ack, ackBits uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Ack, s.tracker.AckBits
}

// Stats returns a copy of the session's counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close closes the underlying transport.
func (s *Session) Close() error {
	if err := s.tr.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
