package nspredict

import "github.com/gordian-engine/netsync/nswire"

// Simulator applies a single command to a snapshot and returns the result.
// It must be pure: it may not modify its input's Entities slice.
type Simulator func(nswire.Snapshot, nswire.Command) nswire.Snapshot

// Reconciler owns the prediction queue and the last authoritative baseline.
//
// Reconciler is not safe for concurrent use.
type Reconciler struct {
	q *Queue

	baseline    nswire.Snapshot
	hasBaseline bool
}

// NewReconciler returns a Reconciler backed by q.
func NewReconciler(q *Queue) *Reconciler {
	return &Reconciler{q: q}
}

// Queue returns the underlying prediction queue.
func (r *Reconciler) Queue() *Queue { return r.q }

// Reconcile removes every pending entry with Seq <= ackID,
// since the server has processed input up to and including that point,
// and adopts snap as the new baseline.
// It returns the number of pruned entries.
//
// Remaining entries are not re-applied; see [*Reconciler.Replay].
func (r *Reconciler) Reconcile(ackID uint32, snap nswire.Snapshot) int {
	n := r.q.PruneThrough(ackID)
	r.baseline = snap.Clone()
	r.hasBaseline = true
	return n
}

// Baseline returns the most recently adopted authoritative snapshot.
func (r *Reconciler) Baseline() (nswire.Snapshot, bool) {
	return r.baseline, r.hasBaseline
}

// Replay applies every still-pending command, in order, to a copy of the baseline.
// It returns false if no baseline has been adopted yet.
// The baseline itself is left unchanged.
func (r *Reconciler) Replay(sim Simulator) (nswire.Snapshot, bool) {
	if !r.hasBaseline {
		return nswire.Snapshot{}, false
	}

	s := r.baseline.Clone()
	for _, p := range r.q.entries {
		s = sim(s, p.Command)
	}
	return s, true
}
