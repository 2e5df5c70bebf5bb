package miniminer

import (
	"testing"

	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
	"github.com/LarryRuane/bitcoin/domain/miningmanager/mempool/model"
)

func txID(b byte) externalapi.DomainTransactionID {
	var id externalapi.DomainTransactionID
	id[0] = b
	return id
}

func outpoint(b byte) externalapi.DomainOutpoint {
	return externalapi.DomainOutpoint{TransactionID: txID(b)}
}

// newDiamond builds the four-transaction diamond from spec.md §8:
//
//	A(100/100) -> B(200/100) -> D(150/100)
//	A(100/100) -> C(300/100) -> D(150/100)
func newDiamond() *model.Mempool {
	pool := model.NewMempool()
	a := &model.Transaction{TransactionHash: txID('A'), Fee: 100, Size: 100}
	b := &model.Transaction{TransactionHash: txID('B'), Fee: 200, Size: 100}
	c := &model.Transaction{TransactionHash: txID('C'), Fee: 300, Size: 100}
	d := &model.Transaction{TransactionHash: txID('D'), Fee: 150, Size: 100}

	a.Children = []*model.Transaction{b, c}
	b.Parents = []*model.Transaction{a}
	b.Children = []*model.Transaction{d}
	c.Parents = []*model.Transaction{a}
	c.Children = []*model.Transaction{d}
	d.Parents = []*model.Transaction{b, c}

	pool.Add(a)
	pool.Add(b)
	pool.Add(c)
	pool.Add(d)
	return pool
}

func TestCalculateBumpFeesDiamond(t *testing.T) {
	pool := newDiamond()
	miner := New(pool, []externalapi.DomainOutpoint{outpoint('D')})

	target := NewFeeRate(9, 5) // 1.8 fee/vsize, expressed as an exact ratio
	bumpFees := miner.CalculateBumpFees(target)

	// At 1.8, C's ancestor set {A, C} (400/200 = 2.0) clears the target
	// first, mining A and C; B alone (200/100 = 2.0) then clears on the
	// next pass. D alone (150/100 = 1.5) never does, so D is left owing
	// exactly what it would owe alone: ceil(1.8*100) - 150 = 30. Matches
	// spec.md §8's diamond scenario.
	want := int64(30)
	if got := bumpFees[outpoint('D')]; got != want {
		t.Fatalf("bump fee for D = %d, want %d", got, want)
	}
}

func TestCalculateBumpFeesSingleTransaction(t *testing.T) {
	pool := model.NewMempool()
	d := &model.Transaction{TransactionHash: txID('D'), Fee: 150, Size: 100}
	pool.Add(d)

	miner := New(pool, []externalapi.DomainOutpoint{outpoint('D')})
	target := NewFeeRate(9, 5) // 1.8
	bumpFees := miner.CalculateBumpFees(target)

	want := int64(30) // ceil(1.8*100) - 150 = 180 - 150
	if got := bumpFees[outpoint('D')]; got != want {
		t.Fatalf("bump fee = %d, want %d", got, want)
	}
}

func TestCalculateBumpFeesMiss(t *testing.T) {
	pool := model.NewMempool()
	miner := New(pool, []externalapi.DomainOutpoint{outpoint('Z')})

	bumpFees := miner.CalculateBumpFees(NewFeeRate(1, 1))
	if got := bumpFees[outpoint('Z')]; got != 0 {
		t.Fatalf("bump fee for an unknown tx = %d, want 0", got)
	}
}

func TestCalculateBumpFeesAlreadyMet(t *testing.T) {
	pool := model.NewMempool()
	d := &model.Transaction{TransactionHash: txID('D'), Fee: 500, Size: 100}
	pool.Add(d)

	miner := New(pool, []externalapi.DomainOutpoint{outpoint('D')})
	bumpFees := miner.CalculateBumpFees(NewFeeRate(1, 1))
	if got := bumpFees[outpoint('D')]; got != 0 {
		t.Fatalf("bump fee for a tx already meeting target = %d, want 0", got)
	}
}

// TestCalculateTotalBumpFeesSharedAncestor checks that a shared ancestor
// between two requested outpoints is paid for once by
// CalculateTotalBumpFees, while the sum of CalculateBumpFees' per-outpoint
// results double-counts it.
func TestCalculateTotalBumpFeesSharedAncestor(t *testing.T) {
	pool := model.NewMempool()
	a := &model.Transaction{TransactionHash: txID('A'), Fee: 10, Size: 100}
	b := &model.Transaction{TransactionHash: txID('B'), Fee: 10, Size: 100}
	c := &model.Transaction{TransactionHash: txID('C'), Fee: 10, Size: 100}
	a.Children = []*model.Transaction{b, c}
	b.Parents = []*model.Transaction{a}
	c.Parents = []*model.Transaction{a}
	pool.Add(a)
	pool.Add(b)
	pool.Add(c)

	requested := []externalapi.DomainOutpoint{outpoint('B'), outpoint('C')}
	target := NewFeeRate(1, 1) // feerate 1: every tx at fee 10/size 100 is under target

	perOutpoint := New(pool, requested).CalculateBumpFees(target)
	var summed int64
	for _, fee := range perOutpoint {
		summed += fee
	}

	total := New(pool, requested).CalculateTotalBumpFees(target)

	if total >= summed {
		t.Fatalf("total bump fee %d should be less than the double-counted sum %d", total, summed)
	}
}
