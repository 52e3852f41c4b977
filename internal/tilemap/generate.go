package tilemap

import "math/rand/v2"

// GenerateZone produces a deterministic, seeded room-and-corridor tile
// grid, used by tests to build scenario maps without hand-authored
// fixture files. The border is always Wall; the interior starts as Stone
// and has rectangular Grass rooms carved out, connected by
// single-tile-wide Dirt corridors.
func GenerateZone(seed uint64, rows, cols int, roomCount int) *Grid {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	g := NewGrid(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == 0 || c == 0 || r == rows-1 || c == cols-1 {
				g.Tiles[r][c] = Wall
			} else {
				g.Tiles[r][c] = Stone
			}
		}
	}

	type room struct{ r0, c0, r1, c1 int }
	var rooms []room
	for i := 0; i < roomCount; i++ {
		w := 3 + rng.IntN(6)
		h := 3 + rng.IntN(6)
		if cols-w-2 <= 1 || rows-h-2 <= 1 {
			continue
		}
		c0 := 1 + rng.IntN(cols-w-2)
		r0 := 1 + rng.IntN(rows-h-2)
		r1 := r0 + h
		c1 := c0 + w
		for r := r0; r < r1; r++ {
			for c := c0; c < c1; c++ {
				g.Tiles[r][c] = Grass
			}
		}
		rooms = append(rooms, room{r0, c0, r1, c1})
	}

	for i := 1; i < len(rooms); i++ {
		a := rooms[i-1]
		b := rooms[i]
		ax, ay := (a.c0+a.c1)/2, (a.r0+a.r1)/2
		bx, by := (b.c0+b.c1)/2, (b.r0+b.r1)/2
		carveCorridor(g, ax, ay, bx, by)
	}

	return g
}

func carveCorridor(g *Grid, x0, y0, x1, y1 int) {
	x, y := x0, y0
	for x != x1 {
		if g.Tiles[y][x] == Stone {
			g.Tiles[y][x] = Dirt
		}
		if x < x1 {
			x++
		} else {
			x--
		}
	}
	for y != y1 {
		if g.Tiles[y][x] == Stone {
			g.Tiles[y][x] = Dirt
		}
		if y < y1 {
			y++
		} else {
			y--
		}
	}
}
