package model

import (
	"sync"

	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
)

// Mempool is a minimal in-memory ClusterSource: enough transaction
// bookkeeping to compute clusters, without a full mempool acceptance
// pipeline (fee estimation, orphan handling, eviction), which is out of
// scope here. Grounded on transactions_pool.go's mutex-guarded mempool
// methods and their "MUST be called with the mempool mutex locked"
// convention: Exists and CalculateCluster assume the caller already
// holds the lock via ScopedLock, exactly like those methods assume
// mempool.cs is held.
type Mempool struct {
	mu     sync.Mutex
	byHash map[externalapi.DomainTransactionID]*Transaction
}

// NewMempool returns an empty Mempool.
func NewMempool() *Mempool {
	return &Mempool{byHash: make(map[externalapi.DomainTransactionID]*Transaction)}
}

// Add inserts tx, keyed by its hash. Safe to call concurrently with
// itself, but not while a ScopedLock caller is mid-traversal.
func (m *Mempool) Add(tx *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[tx.TransactionHash] = tx
}

// ScopedLock implements ClusterSource.
func (m *Mempool) ScopedLock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

// Exists implements ClusterSource. Must be called with the lock held.
func (m *Mempool) Exists(txid externalapi.DomainTransactionID) bool {
	_, ok := m.byHash[txid]
	return ok
}

// CalculateCluster implements ClusterSource. Must be called with the
// lock held. Walks parents and children from every seed until no new
// transaction is reached.
func (m *Mempool) CalculateCluster(seeds []externalapi.DomainTransactionID) []TxHandle {
	seen := make(map[externalapi.DomainTransactionID]*Transaction)
	var stack []*Transaction
	for _, id := range seeds {
		if tx, ok := m.byHash[id]; ok {
			stack = append(stack, tx)
		}
	}
	for len(stack) > 0 {
		tx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[tx.TransactionHash]; ok {
			continue
		}
		seen[tx.TransactionHash] = tx
		stack = append(stack, tx.Parents...)
		stack = append(stack, tx.Children...)
	}
	cluster := make([]TxHandle, 0, len(seen))
	for _, tx := range seen {
		cluster = append(cluster, tx)
	}
	return cluster
}
