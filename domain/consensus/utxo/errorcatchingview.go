package utxo

import (
	"github.com/LarryRuane/bitcoin/domain/consensus/database"
	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
	"github.com/LarryRuane/bitcoin/util/panics"
)

// ErrorCatchingView wraps a View to trap I/O read failures the underlying
// store tags with database.ErrIO: on one, it runs every registered
// callback in insertion order and then terminates the process, rather
// than returning "miss" — a miss would be silently indistinguishable
// from "not found" and could let a validator accept an invalid chain.
// Grounded on CCoinsViewErrorCatcher::GetCoin in coins.cpp.
type ErrorCatchingView struct {
	*BackedView
	callbacks []func()
}

// NewErrorCatchingView wraps base.
func NewErrorCatchingView(base View) *ErrorCatchingView {
	return &ErrorCatchingView{BackedView: NewBackedView(base)}
}

// AddErrorCallback registers a callback to be run, in insertion order,
// before the process exits due to an I/O failure.
func (v *ErrorCatchingView) AddErrorCallback(cb func()) {
	v.callbacks = append(v.callbacks, cb)
}

// Get forwards to the wrapped view; on database.ErrIO it runs the
// registered callbacks and exits the process instead of returning a miss.
func (v *ErrorCatchingView) Get(outpoint externalapi.DomainOutpoint) (Coin, bool) {
	coin, ok, err := v.getChecked(outpoint)
	if err != nil {
		if database.IsIOError(err) {
			for _, cb := range v.callbacks {
				cb()
			}
			panics.Exit(log, "I/O error reading coin "+outpoint.String()+": "+err.Error())
		}
	}
	return coin, ok
}

// getChecked is split out from Get so a store that can distinguish miss
// from I/O-error has somewhere to report that distinction; BackedView's
// plain View.Get can't, so it's treated as a miss.
func (v *ErrorCatchingView) getChecked(outpoint externalapi.DomainOutpoint) (Coin, bool, error) {
	type checkedGetter interface {
		GetChecked(externalapi.DomainOutpoint) (Coin, bool, error)
	}
	if checked, ok := v.base.(checkedGetter); ok {
		return checked.GetChecked(outpoint)
	}
	coin, ok := v.base.Get(outpoint)
	return coin, ok, nil
}
