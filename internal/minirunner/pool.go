// Package minirunner is a very minimal execution level of a workflow
// manager. It understands jobs requiring multiple nodes or cores, launches
// only local processes, and schedules them with a single-threaded
// cooperative polling loop. It is designed for debugging and for
// interactive allocations, not as a batch system replacement.
package minirunner

import "fmt"

// Node is one compute node available to the pool, with per-core accounting
// so thread-style jobs can share it.
type Node struct {
	ID    string
	Cores int
	free  int
}

// NewNode creates a node with the given identity and core count.
func NewNode(id string, cores int) *Node {
	return &Node{ID: id, Cores: cores, free: cores}
}

// Free returns the number of currently unallocated cores on the node.
func (n *Node) Free() int {
	return n.free
}

func (n *Node) String() string {
	return fmt.Sprintf("Node('%s', %d)", n.ID, n.Cores)
}

// grant records cores taken from one node as part of an allocation.
type grant struct {
	node  *Node
	cores int
}

// Allocation is the set of node/core grants held by one running job. It is
// returned to the pool exactly once via Release.
type Allocation struct {
	grants []grant
}

// Nodes returns the IDs of the nodes participating in the allocation.
func (a *Allocation) Nodes() []string {
	ids := make([]string, 0, len(a.grants))
	for _, g := range a.grants {
		ids = append(ids, g.node.ID)
	}
	return ids
}

// Cores returns the total core count held by the allocation.
func (a *Allocation) Cores() int {
	total := 0
	for _, g := range a.grants {
		total += g.cores
	}
	return total
}

// Pool tracks the free cores of a fixed set of nodes. The scheduler loop is
// single-threaded, so every acquire/release pair is naturally serialized;
// no locking is needed unless the loop is ever parallelized.
type Pool struct {
	nodes []*Node
}

// NewPool creates a pool over the given nodes.
func NewPool(nodes []*Node) *Pool {
	return &Pool{nodes: nodes}
}

// NewHostPool creates a pool of identically-sized nodes named after the
// host, matching how a site materializes its envelope.
func NewHostPool(host string, nodeCount, coresPerNode int) *Pool {
	nodes := make([]*Node, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		nodes = append(nodes, NewNode(fmt.Sprintf("%s_%d", host, i), coresPerNode))
	}
	return NewPool(nodes)
}

// TotalCores returns the core capacity of the whole pool.
func (p *Pool) TotalCores() int {
	total := 0
	for _, n := range p.nodes {
		total += n.Cores
	}
	return total
}

// FreeCores returns the number of currently unallocated cores.
func (p *Pool) FreeCores() int {
	total := 0
	for _, n := range p.nodes {
		total += n.free
	}
	return total
}

// TryAcquire attempts to grant `nodes` nodes with `cores` cores each
// without blocking. A multi-node (MPI-style) request takes whole nodes and
// requires them to be completely free; a single-node request shares the
// first node with enough free cores. Returns nil when the request cannot
// be satisfied right now; the caller simply retries on a later pass.
func (p *Pool) TryAcquire(nodes, cores int) *Allocation {
	if nodes < 1 || cores < 1 {
		return nil
	}

	if nodes == 1 {
		for _, n := range p.nodes {
			if n.free >= cores {
				n.free -= cores
				return &Allocation{grants: []grant{{node: n, cores: cores}}}
			}
		}
		return nil
	}

	var picked []*Node
	for _, n := range p.nodes {
		if n.free == n.Cores && n.Cores >= cores {
			picked = append(picked, n)
			if len(picked) == nodes {
				break
			}
		}
	}
	if len(picked) < nodes {
		return nil
	}

	alloc := &Allocation{grants: make([]grant, 0, nodes)}
	for _, n := range picked {
		n.free = 0
		alloc.grants = append(alloc.grants, grant{node: n, cores: n.Cores})
	}
	return alloc
}

// CanEverFit reports whether a request could be satisfied by a completely
// idle pool. A request that fails this check will never launch and blocks
// the run permanently.
func (p *Pool) CanEverFit(nodes, cores int) bool {
	if nodes < 1 || cores < 1 {
		return false
	}
	fitting := 0
	for _, n := range p.nodes {
		if n.Cores >= cores {
			fitting++
		}
	}
	return fitting >= nodes
}

// Release returns an allocation's cores to the pool.
func (p *Pool) Release(a *Allocation) {
	if a == nil {
		return
	}
	for _, g := range a.grants {
		g.node.free += g.cores
		if g.node.free > g.node.Cores {
			// A double release corrupts every later scheduling decision.
			panic(fmt.Sprintf("minirunner: node %s released beyond capacity", g.node.ID))
		}
	}
	a.grants = nil
}
