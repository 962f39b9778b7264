package routing

import (
	"container/heap"
	"context"
	"fmt"
	"math"
)

// ctxCheckEvery is how many settled nodes pass between context checks.
const ctxCheckEvery = 256

type queueItem struct {
	node int64
	dist float64
}

// nodeQueue is a min-heap on distance, ties broken by node id so the search order
// does not depend on map iteration.
type nodeQueue []queueItem

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *nodeQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

type hop struct {
	edge int
	from int64
}

// ShortestPath runs Dijkstra from start to end under Weight(alpha) and returns the
// traversed edges in order with the total cost. Negative weights, which only arise for
// alpha above 1, are treated as zero. Each call keeps its own search state.
func (g *Graph) ShortestPath(ctx context.Context, start, end int64, alpha float64) ([]Step, float64, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAlpha, alpha)
	}
	if !g.HasNode(start) {
		return nil, 0, fmt.Errorf("%w: start node %d", ErrUnknownNode, start)
	}
	if !g.HasNode(end) {
		return nil, 0, fmt.Errorf("%w: end node %d", ErrUnknownNode, end)
	}
	if start == end {
		return []Step{}, 0, nil
	}

	dist := map[int64]float64{start: 0}
	prev := make(map[int64]hop)
	settled := make(map[int64]bool)
	queue := &nodeQueue{{node: start}}

	for pops := 0; queue.Len() > 0; pops++ {
		if pops%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, fmt.Errorf("%w: search aborted: %w", ErrNoPathFound, err)
			}
		}

		item := heap.Pop(queue).(queueItem)
		if settled[item.node] {
			continue
		}
		settled[item.node] = true
		if item.node == end {
			break
		}

		for _, idx := range g.adj[item.node] {
			seg := g.edges[idx]
			next := seg.Other(item.node)
			if settled[next] {
				continue
			}
			candidate := item.dist + math.Max(0, Weight(seg, alpha))
			if old, seen := dist[next]; seen && candidate >= old {
				continue
			}
			dist[next] = candidate
			prev[next] = hop{edge: idx, from: item.node}
			heap.Push(queue, queueItem{node: next, dist: candidate})
		}
	}

	if !settled[end] {
		return nil, 0, fmt.Errorf("%w: %d and %d are not connected", ErrNoPathFound, start, end)
	}

	var steps []Step
	for node := end; node != start; {
		h := prev[node]
		steps = append(steps, Step{Segment: g.edges[h.edge], From: h.from, To: node})
		node = h.from
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}

	return steps, dist[end], nil
}
