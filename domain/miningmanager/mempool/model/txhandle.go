// Package model defines the mempool collaborator contracts the
// mini-miner requires (spec.md §6): a way to ask whether a transaction
// is known, to compute a cluster (the connected ancestor/descendant
// subgraph of a set of seed transactions), and scoped access to the
// mempool's lock.
package model

import "github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"

// TxHandle is a mempool's per-transaction handle, trimmed to exactly
// what the mini-miner needs: its own fee and size, and which of its
// parents/children are themselves in the mempool. Grounded on the
// (fee, parents-in-pool) shape of MempoolTransaction in
// mempool_transaction.go and CTxMemPoolEntry's GetModifiedFee/GetTxSize/
// GetMemPoolParentsConst/GetMemPoolChildrenConst in the original source.
type TxHandle interface {
	Hash() externalapi.DomainTransactionID
	ModifiedFee() int64
	VSize() int64
	ParentsInPool() []TxHandle
	ChildrenInPool() []TxHandle
}

// ClusterSource is the mempool contract the mini-miner requires
// (spec.md §6).
type ClusterSource interface {
	// Exists reports whether txid is currently in the mempool.
	Exists(txid externalapi.DomainTransactionID) bool

	// CalculateCluster returns the connected subgraph (ancestors ∪
	// descendants ∪ the seeds themselves) of every seed transaction.
	CalculateCluster(seeds []externalapi.DomainTransactionID) []TxHandle

	// ScopedLock acquires the mempool's lock and returns a function that
	// releases it. Callers must call the returned function exactly once,
	// typically via defer.
	ScopedLock() (unlock func())
}
