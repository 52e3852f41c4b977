package tilemap

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// PortalSide is one endpoint of a bidirectional portal.
type PortalSide struct {
	Zone    string
	Tiles   [][2]int
	Spawn   [2]float64
	Subzone string
}

// Portal is a bidirectional interzone connection.
type Portal struct {
	ID    string
	SideA PortalSide
	SideB PortalSide
}

// PortalSet is the World resource holding every loaded portal plus a
// tile-triggered lookup.
type PortalSet struct {
	Portals []Portal
	lookup  map[string]map[[2]int]portalTarget
}

type portalTarget struct {
	Zone     string
	SpawnR   float64
	SpawnC   float64
	PortalID string
}

// tomlPortalFile mirrors data/portals.toml's [[portal]] repeated-table
// shape.
type tomlPortalFile struct {
	Portal []tomlPortal `toml:"portal"`
}

type tomlPortal struct {
	ID       string    `toml:"id"`
	ZoneA    string    `toml:"zone_a"`
	ZoneB    string    `toml:"zone_b"`
	TilesA   [][2]int  `toml:"tiles_a"`
	TilesB   [][2]int  `toml:"tiles_b"`
	SpawnA   [2]float64 `toml:"spawn_a"`
	SpawnB   [2]float64 `toml:"spawn_b"`
	SubzoneA string    `toml:"subzone_a"`
	SubzoneB string    `toml:"subzone_b"`
}

// LoadPortals reads data/portals.toml-shaped content from path.
func LoadPortals(path string) (*PortalSet, error) {
	var file tomlPortalFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("tilemap: load portals: %w", err)
	}
	ps := &PortalSet{lookup: make(map[string]map[[2]int]portalTarget)}
	for _, p := range file.Portal {
		portal := Portal{
			ID: p.ID,
			SideA: PortalSide{Zone: p.ZoneA, Tiles: p.TilesA, Spawn: p.SpawnA, Subzone: p.SubzoneA},
			SideB: PortalSide{Zone: p.ZoneB, Tiles: p.TilesB, Spawn: p.SpawnB, Subzone: p.SubzoneB},
		}
		ps.add(portal)
	}
	return ps, nil
}

func (ps *PortalSet) add(portal Portal) {
	ps.Portals = append(ps.Portals, portal)
	for _, rc := range portal.SideA.Tiles {
		ps.index(portal.SideA.Zone, rc, portalTarget{portal.SideB.Zone, portal.SideB.Spawn[0], portal.SideB.Spawn[1], portal.ID})
	}
	for _, rc := range portal.SideB.Tiles {
		ps.index(portal.SideB.Zone, rc, portalTarget{portal.SideA.Zone, portal.SideA.Spawn[0], portal.SideA.Spawn[1], portal.ID})
	}
}

func (ps *PortalSet) index(zone string, rc [2]int, t portalTarget) {
	m, ok := ps.lookup[zone]
	if !ok {
		m = make(map[[2]int]portalTarget)
		ps.lookup[zone] = m
	}
	m[rc] = t
}

// SavePortals writes ps back out in the TOML shape LoadPortals reads.
func SavePortals(path string, ps *PortalSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	file := tomlPortalFile{}
	for _, p := range ps.Portals {
		file.Portal = append(file.Portal, tomlPortal{
			ID: p.ID, ZoneA: p.SideA.Zone, ZoneB: p.SideB.Zone,
			TilesA: p.SideA.Tiles, TilesB: p.SideB.Tiles,
			SpawnA: p.SideA.Spawn, SpawnB: p.SideB.Spawn,
			SubzoneA: p.SideA.Subzone, SubzoneB: p.SideB.Subzone,
		})
	}
	enc := toml.NewEncoder(f)
	return enc.Encode(file)
}

// PortalAt returns the (targetZone, spawnX, spawnY, portalID) for tile
// (r, c) in zone, if a portal owns it.
func (ps *PortalSet) PortalAt(zone string, r, c int) (targetZone string, spawnX, spawnY float64, portalID string, ok bool) {
	m, found := ps.lookup[zone]
	if !found {
		return "", 0, 0, "", false
	}
	t, found := m[[2]int{r, c}]
	if !found {
		return "", 0, 0, "", false
	}
	return t.Zone, t.SpawnC, t.SpawnR, t.PortalID, true
}

// FindSafeSpawn returns a non-wall-overlapping (x, y) near tile (row,
// col) for the canonical 0.8x0.8 hitbox, expanding in a ring search if the
// exact tile is blocked.
func FindSafeSpawn(g *Grid, row, col float64) (x, y float64) {
	off := HitboxInset
	x0, y0 := col+off, row+off
	if g == nil || !g.AABBHitsWall(x0, y0, HitboxW, HitboxH) {
		return x0, y0
	}
	for radius := 1; radius < 6; radius++ {
		for dr := -radius; dr <= radius; dr++ {
			for dc := -radius; dc <= radius; dc++ {
				if abs(dr) != radius && abs(dc) != radius {
					continue
				}
				tx := col + float64(dc) + off
				ty := row + float64(dr) + off
				if tx < 0 || ty < 0 {
					continue
				}
				if !g.AABBHitsWall(tx, ty, HitboxW, HitboxH) {
					return tx, ty
				}
			}
		}
	}
	return x0, y0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
