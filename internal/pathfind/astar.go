// Package pathfind implements grid A* over a tilemap.Grid, returning
// tile-centered float waypoints from start to goal: an octile heuristic,
// heap-backed open list, and 8-directional movement with diagonal
// corner-cut prevention.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/papsh-soup/simcore/internal/tilemap"
)

type pathNode struct {
	r, c   int
	g, h   float64
	parent *pathNode
	index  int
}

type openList []*pathNode

func (ol openList) Len() int          { return len(ol) }
func (ol openList) Less(i, j int) bool { return (ol[i].g + ol[i].h) < (ol[j].g + ol[j].h) }
func (ol openList) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}
func (ol *openList) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*ol)
	*ol = append(*ol, n)
}
func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

func blocked(g *tilemap.Grid, r, c int) bool {
	if r < 0 || c < 0 || r >= g.Rows || c >= g.Cols {
		return true
	}
	return g.Tiles[r][c] == tilemap.Wall
}

// FindPath returns an ordered list of tile-centered (x, y) waypoints from
// (sx, sy) to (gx, gy), or nil if no path exists or either endpoint is a
// wall tile.
func FindPath(g *tilemap.Grid, sx, sy, gx, gy float64) [][2]float64 {
	scr, scc := int(sy), int(sx)
	gcr, gcc := int(gy), int(gx)

	if blocked(g, scr, scc) || blocked(g, gcr, gcc) {
		return nil
	}

	key := func(r, c int) int { return r*g.Cols + c }
	heuristic := func(ar, ac, br, bc int) float64 {
		dr := math.Abs(float64(ar - br))
		dc := math.Abs(float64(ac - bc))
		return dr + dc + (math.Sqrt2-2)*math.Min(dr, dc)
	}

	start := &pathNode{r: scr, c: scc, g: 0, h: heuristic(scr, scc, gcr, gcc)}
	ol := &openList{start}
	heap.Init(ol)

	closed := make(map[int]bool)
	best := map[int]*pathNode{key(scr, scc): start}

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.r == gcr && cur.c == gcc {
			return buildPath(cur)
		}
		k := key(cur.r, cur.c)
		if closed[k] {
			continue
		}
		closed[k] = true

		for _, d := range dirs {
			nr, nc := cur.r+d[0], cur.c+d[1]
			if blocked(g, nr, nc) {
				continue
			}
			if d[0] != 0 && d[1] != 0 {
				if blocked(g, cur.r+d[0], cur.c) || blocked(g, cur.r, cur.c+d[1]) {
					continue
				}
			}
			nk := key(nr, nc)
			if closed[nk] {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				cost = math.Sqrt2
			}
			ng := cur.g + cost
			if prev, ok := best[nk]; ok && ng >= prev.g {
				continue
			}
			node := &pathNode{r: nr, c: nc, g: ng, h: heuristic(nr, nc, gcr, gcc), parent: cur}
			best[nk] = node
			heap.Push(ol, node)
		}
	}
	return nil
}

func buildPath(end *pathNode) [][2]float64 {
	var cells [][2]int
	for n := end; n != nil; n = n.parent {
		cells = append(cells, [2]int{n.r, n.c})
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	path := make([][2]float64, len(cells))
	for i, rc := range cells {
		path[i] = [2]float64{float64(rc[1]) + 0.5, float64(rc[0]) + 0.5}
	}
	return path
}
