package model

import "github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"

// Transaction is a concrete TxHandle: a simplified mempool entry
// carrying only what the mini-miner needs. Grounded on
// MempoolTransaction (mempool_transaction.go) — the same per-tx fee
// shape — trimmed of DAA-score/priority fields, which belong to full
// mempool acceptance policy and are out of scope for the mini-miner.
type Transaction struct {
	TransactionHash externalapi.DomainTransactionID
	Fee             int64
	Size            int64
	Parents         []*Transaction
	Children        []*Transaction
}

// Hash implements TxHandle.
func (t *Transaction) Hash() externalapi.DomainTransactionID { return t.TransactionHash }

// ModifiedFee implements TxHandle.
func (t *Transaction) ModifiedFee() int64 { return t.Fee }

// VSize implements TxHandle.
func (t *Transaction) VSize() int64 { return t.Size }

// ParentsInPool implements TxHandle.
func (t *Transaction) ParentsInPool() []TxHandle {
	handles := make([]TxHandle, len(t.Parents))
	for i, p := range t.Parents {
		handles[i] = p
	}
	return handles
}

// ChildrenInPool implements TxHandle.
func (t *Transaction) ChildrenInPool() []TxHandle {
	handles := make([]TxHandle, len(t.Children))
	for i, c := range t.Children {
		handles[i] = c
	}
	return handles
}
