package utxo

import (
	"fmt"

	"github.com/LarryRuane/bitcoin/infrastructure/logger"
)

var log = logger.RegisterSubSystem("UTXO")

// LogicError is panicked for any invariant violation that indicates a bug
// in the calling code rather than an expected-failure outcome: FRESH
// misapplied, an overwrite attempted without permission, an incomplete
// erase after a full flush, or an accounting mismatch caught by
// SanityCheck. Grounded on coins.cpp's use of std::logic_error for the
// identical conditions; production code is expected to let this reach
// util/panics.HandlePanic, tests recover it directly.
type LogicError struct {
	Op       string
	Outpoint fmt.Stringer
	Reason   string
}

func (e *LogicError) Error() string {
	if e.Outpoint != nil {
		return fmt.Sprintf("utxo: logic error in %s(%s): %s", e.Op, e.Outpoint, e.Reason)
	}
	return fmt.Sprintf("utxo: logic error in %s: %s", e.Op, e.Reason)
}

func logicErrorf(op string, outpoint fmt.Stringer, format string, args ...interface{}) {
	panic(&LogicError{Op: op, Outpoint: outpoint, Reason: fmt.Sprintf(format, args...)})
}
