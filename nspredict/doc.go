// Package nspredict holds the client side of latency hiding:
// a bounded queue of locally issued commands awaiting server acknowledgment,
// and the reconciliation step that prunes acknowledged commands
// when authoritative state arrives.
//
// Reconciliation swaps the baseline wholesale and does not re-simulate
// the commands that remain pending.
// Callers that want to avoid a visible snap can call [*Reconciler.Replay]
// with a pure [Simulator] to re-apply pending commands to the new baseline.
package nspredict
