package miniminer

import "fmt"

// LogicError is panicked for the mini-miner's invariant violations: a
// transaction that should need a fee bump computes a non-positive one
// (CalculateBumpFees), or the cluster's topological sort fails to cover
// every node (New). The mini-miner does no I/O, so this is its only error
// kind (spec.md §7). Grounded on the Assume(target_fee > tx.m_ancestor_fee)
// assertion in mini_miner.cpp.
type LogicError struct {
	Op     string
	TxHash fmt.Stringer
	Reason string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("miniminer: logic error in %s(%s): %s", e.Op, e.TxHash, e.Reason)
}

func logicErrorf(op string, txHash fmt.Stringer, format string, args ...interface{}) {
	panic(&LogicError{Op: op, TxHash: txHash, Reason: fmt.Sprintf(format, args...)})
}
