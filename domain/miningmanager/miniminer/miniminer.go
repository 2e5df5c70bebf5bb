// Package miniminer answers "what extra fee would it cost to get these
// specific outpoints confirmed at a target fee-rate?" over a snapshot of
// a mempool cluster, without touching the UTXO cache. Translated 1:1
// from node/mini_miner.{h,cpp} (read in full); see DESIGN.md for the
// per-method grounding.
package miniminer

import (
	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
	"github.com/LarryRuane/bitcoin/domain/miningmanager/mempool/model"
)

// txIndex is an index into MiniMiner.nodes. Cross-references between
// nodes are by index rather than pointer (spec.md §9's arena-of-nodes
// design note), matching the C++ original's Tx* back-references over a
// std::vector<Tx>.
type txIndex int

// node is the simplified per-transaction representation the mini-miner
// builds once at construction and never reshapes afterward. Grounded on
// mini_miner.h's Tx struct.
type node struct {
	handle   model.TxHandle
	parents  []txIndex
	children []txIndex
	inDegree int

	fee   int64
	vsize int64

	mined         bool
	ancestorFee   int64
	ancestorVSize int64
}

// MiniMiner evaluates package fee-rates over a mempool cluster. Grounded
// on node::MiniMiner.
type MiniMiner struct {
	requested []externalapi.DomainOutpoint
	nodes     []node
	byHash    map[externalapi.DomainTransactionID]txIndex
	topSort   []txIndex
}

// New builds the cluster graph for outpoints over cluster. This is the
// only method that touches the mempool; it holds cluster's scoped lock
// for its entire duration. Grounded on the MiniMiner constructor.
func New(cluster model.ClusterSource, outpoints []externalapi.DomainOutpoint) *MiniMiner {
	unlock := cluster.ScopedLock()
	defer unlock()

	m := &MiniMiner{
		requested: outpoints,
		byHash:    make(map[externalapi.DomainTransactionID]txIndex),
	}

	var seeds []externalapi.DomainTransactionID
	for _, outpoint := range outpoints {
		if !cluster.Exists(outpoint.TransactionID) {
			// Confirmed or altogether unknown: no bump fee required, or
			// none computable. Either way, drop it here; CalculateBumpFees
			// reports 0 for any requested outpoint absent from byHash.
			continue
		}
		if _, ok := m.byHash[outpoint.TransactionID]; ok {
			continue
		}
		m.byHash[outpoint.TransactionID] = txIndex(len(m.nodes))
		m.nodes = append(m.nodes, node{})
		seeds = append(seeds, outpoint.TransactionID)
	}

	handles := cluster.CalculateCluster(seeds)
	for _, h := range handles {
		m.nodeFor(h.Hash())
	}
	for _, h := range handles {
		idx := m.byHash[h.Hash()]
		n := &m.nodes[idx]
		n.handle = h
		n.fee = h.ModifiedFee()
		n.vsize = h.VSize()
	}

	var zeroInDegree []txIndex
	for _, h := range handles {
		idx := m.byHash[h.Hash()]
		n := &m.nodes[idx]
		for _, c := range h.ChildrenInPool() {
			if childIdx, ok := m.byHash[c.Hash()]; ok {
				n.children = append(n.children, childIdx)
			}
		}
		for _, p := range h.ParentsInPool() {
			if parentIdx, ok := m.byHash[p.Hash()]; ok {
				n.parents = append(n.parents, parentIdx)
			}
		}
		n.inDegree = len(n.parents)
		if n.inDegree == 0 {
			zeroInDegree = append(zeroInDegree, idx)
		}
	}

	for len(zeroInDegree) > 0 {
		idx := zeroInDegree[len(zeroInDegree)-1]
		zeroInDegree = zeroInDegree[:len(zeroInDegree)-1]
		m.topSort = append(m.topSort, idx)
		for _, c := range m.nodes[idx].children {
			m.nodes[c].inDegree--
			if m.nodes[c].inDegree <= 0 {
				zeroInDegree = append(zeroInDegree, c)
			}
		}
	}
	if len(m.topSort) != len(m.nodes) {
		logicErrorf("New", nil, "topological sort covers %d of %d nodes: cluster is not a DAG", len(m.topSort), len(m.nodes))
	}

	return m
}

// nodeFor returns hash's node index, creating an empty node if this is
// the first time hash has been seen (it may already exist as a
// requested-outpoint seed).
func (m *MiniMiner) nodeFor(hash externalapi.DomainTransactionID) txIndex {
	if idx, ok := m.byHash[hash]; ok {
		return idx
	}
	idx := txIndex(len(m.nodes))
	m.byHash[hash] = idx
	m.nodes = append(m.nodes, node{})
	return idx
}

// calculateAncestorValues recomputes nodes[idx]'s ancestor fee/vsize as
// its own plus those of every unmined transitive parent. Grounded on
// MiniMiner::calculateAncestorValues.
func (m *MiniMiner) calculateAncestorValues(idx txIndex) {
	visited := map[txIndex]bool{idx: true}
	stack := []txIndex{idx}
	var fee, vsize int64
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &m.nodes[cur]
		fee += n.fee
		vsize += n.vsize
		for _, p := range n.parents {
			if !m.nodes[p].mined && !visited[p] {
				visited[p] = true
				stack = append(stack, p)
			}
		}
	}
	m.nodes[idx].ancestorFee = fee
	m.nodes[idx].ancestorVSize = vsize
}

// mine marks idx and every unmined transitive parent as mined, then
// recalculates the ancestor values of every descendant reached through
// a newly-mined node. Grounded on the "to_mine"/"recalc_todo" loops in
// MiniMiner::BuildMockTemplate.
func (m *MiniMiner) mine(idx txIndex) {
	recalcSeen := map[txIndex]bool{}
	var recalcTodo []txIndex

	mineTodo := []txIndex{idx}
	for len(mineTodo) > 0 {
		cur := mineTodo[len(mineTodo)-1]
		mineTodo = mineTodo[:len(mineTodo)-1]
		n := &m.nodes[cur]
		if n.mined {
			continue
		}
		n.mined = true
		for _, p := range n.parents {
			if !m.nodes[p].mined {
				mineTodo = append(mineTodo, p)
			}
		}
		for _, c := range n.children {
			if !m.nodes[c].mined && !recalcSeen[c] {
				recalcSeen[c] = true
				recalcTodo = append(recalcTodo, c)
			}
		}
	}

	for len(recalcTodo) > 0 {
		cur := recalcTodo[len(recalcTodo)-1]
		recalcTodo = recalcTodo[:len(recalcTodo)-1]
		m.calculateAncestorValues(cur)
		for _, c := range m.nodes[cur].children {
			if !recalcSeen[c] {
				recalcSeen[c] = true
				recalcTodo = append(recalcTodo, c)
			}
		}
	}
}

// buildMockTemplate marks every node that would be mined in a block at
// target, restarting the topological pass whenever a node is mined
// since downstream ancestor aggregates are now stale. Grounded on
// MiniMiner::BuildMockTemplate.
func (m *MiniMiner) buildMockTemplate(target FeeRate) {
	for i := range m.nodes {
		m.nodes[i].mined = false
	}
	for i := range m.nodes {
		m.calculateAncestorValues(txIndex(i))
	}

	progress := true
	for progress {
		progress = false
		for _, idx := range m.topSort {
			n := &m.nodes[idx]
			if n.mined {
				continue
			}
			if !target.MetBy(n.ancestorFee, n.ancestorVSize) {
				continue
			}
			progress = true
			m.mine(idx)
			break
		}
	}
}

// CalculateBumpFees builds a mock template at target and reports, for
// every requested outpoint, the additional fee required to raise its
// tx's ancestor fee-rate to target: 0 if the tx is absent from the
// mempool or already mined in the template. Grounded on
// MiniMiner::CalculateBumpFees.
func (m *MiniMiner) CalculateBumpFees(target FeeRate) map[externalapi.DomainOutpoint]int64 {
	m.buildMockTemplate(target)

	bumpFees := make(map[externalapi.DomainOutpoint]int64, len(m.requested))
	for _, outpoint := range m.requested {
		idx, ok := m.byHash[outpoint.TransactionID]
		if !ok {
			bumpFees[outpoint] = 0
			continue
		}
		n := &m.nodes[idx]
		if n.mined {
			bumpFees[outpoint] = 0
			continue
		}
		targetFee := target.FeeFor(n.ancestorVSize)
		if targetFee <= n.ancestorFee {
			logicErrorf("CalculateBumpFees", outpoint.TransactionID, "target fee %d does not exceed ancestor fee %d", targetFee, n.ancestorFee)
		}
		bumpFees[outpoint] = targetFee - n.ancestorFee
	}
	return bumpFees
}

// CalculateTotalBumpFees builds a mock template at target and returns
// the single additional fee required to raise every requested,
// not-yet-mined transaction's whole shared ancestor set to target,
// counting any ancestor shared between requested outpoints exactly
// once. Grounded on MiniMiner::CalculateTotalBumpFees.
func (m *MiniMiner) CalculateTotalBumpFees(target FeeRate) int64 {
	m.buildMockTemplate(target)

	var totalFee, totalVSize int64
	var todo []txIndex
	for _, outpoint := range m.requested {
		idx, ok := m.byHash[outpoint.TransactionID]
		if !ok {
			continue
		}
		n := &m.nodes[idx]
		if n.mined {
			continue
		}
		n.mined = true
		todo = append(todo, idx)
	}
	for len(todo) > 0 {
		idx := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		n := &m.nodes[idx]
		totalFee += n.fee
		totalVSize += n.vsize
		for _, p := range n.parents {
			if !m.nodes[p].mined {
				m.nodes[p].mined = true
				todo = append(todo, p)
			}
		}
	}
	targetFee := target.FeeFor(totalVSize)
	return targetFee - totalFee
}
