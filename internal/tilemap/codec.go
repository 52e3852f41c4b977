package tilemap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// zoneMagic is the 8-byte file signature identifying a zone save file.
var zoneMagic = [8]byte{'P', 'A', 'P', 'S', 'Z', 'O', 'N', 0}

const zoneVersion = 0x01

const (
	flagAnchorPresent      = 1 << 0
	flagTeleportersPresent = 1 << 1
)

// Teleporter is one teleporter record in a zone file.
type Teleporter struct {
	Row, Col   int32
	TargetType uint8
	Name       string
	HasTarget  bool
	TargetRow  int32
	TargetCol  int32
}

// ZoneFile is the decoded contents of one .zone binary file.
type ZoneFile struct {
	Width, Height int
	Tiles         []TileID // row-major, length Width*Height
	HasAnchor     bool
	AnchorX       float64
	AnchorY       float64
	Teleporters   []Teleporter
}

// Encode writes zf in its versioned magic-prefixed binary layout.
func Encode(w io.Writer, zf *ZoneFile) error {
	if len(zf.Tiles) != zf.Width*zf.Height {
		return fmt.Errorf("tilemap: tile slice length %d does not match %dx%d", len(zf.Tiles), zf.Width, zf.Height)
	}
	buf := &bytes.Buffer{}
	buf.Write(zoneMagic[:])
	buf.WriteByte(zoneVersion)
	binary.Write(buf, binary.LittleEndian, uint32(zf.Width))
	binary.Write(buf, binary.LittleEndian, uint32(zf.Height))

	var flags uint8
	if zf.HasAnchor {
		flags |= flagAnchorPresent
	}
	if len(zf.Teleporters) > 0 {
		flags |= flagTeleportersPresent
	}
	buf.WriteByte(flags)

	if zf.HasAnchor {
		binary.Write(buf, binary.LittleEndian, zf.AnchorX)
		binary.Write(buf, binary.LittleEndian, zf.AnchorY)
	}

	for _, t := range zf.Tiles {
		buf.WriteByte(byte(t))
	}

	binary.Write(buf, binary.LittleEndian, uint32(len(zf.Teleporters)))
	for _, t := range zf.Teleporters {
		binary.Write(buf, binary.LittleEndian, t.Row)
		binary.Write(buf, binary.LittleEndian, t.Col)
		buf.WriteByte(t.TargetType)
		nameBytes := []byte(t.Name)
		binary.Write(buf, binary.LittleEndian, uint16(len(nameBytes)))
		buf.Write(nameBytes)
		if t.HasTarget {
			binary.Write(buf, binary.LittleEndian, t.TargetRow)
			binary.Write(buf, binary.LittleEndian, t.TargetCol)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Decode reads a binary zone file written by Encode.
func Decode(r io.Reader) (*ZoneFile, error) {
	br := bufReader(r)

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if magic != zoneMagic {
		return nil, errors.New("tilemap: bad magic, not a zone file")
	}
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}

	var width, height uint32
	binary.Read(br, binary.LittleEndian, &width)
	binary.Read(br, binary.LittleEndian, &height)

	var flags uint8
	if err := binary.Read(br, binary.LittleEndian, &flags); err != nil {
		return nil, err
	}

	zf := &ZoneFile{Width: int(width), Height: int(height)}

	if flags&flagAnchorPresent != 0 {
		zf.HasAnchor = true
		binary.Read(br, binary.LittleEndian, &zf.AnchorX)
		binary.Read(br, binary.LittleEndian, &zf.AnchorY)
	}

	tileCount := int(width) * int(height)
	raw := make([]byte, tileCount)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, err
	}
	zf.Tiles = make([]TileID, tileCount)
	for i, b := range raw {
		zf.Tiles[i] = TileID(b)
	}

	if flags&flagTeleportersPresent != 0 {
		var count uint32
		binary.Read(br, binary.LittleEndian, &count)
		for i := uint32(0); i < count; i++ {
			var t Teleporter
			binary.Read(br, binary.LittleEndian, &t.Row)
			binary.Read(br, binary.LittleEndian, &t.Col)
			binary.Read(br, binary.LittleEndian, &t.TargetType)
			var nameLen uint16
			binary.Read(br, binary.LittleEndian, &nameLen)
			name := make([]byte, nameLen)
			io.ReadFull(br, name)
			t.Name = string(name)
			if t.TargetType == 0 {
				// target_type 0 reserved to mean "no explicit target
				// coordinates follow"; anything else carries (tr, tc).
			} else {
				t.HasTarget = true
				binary.Read(br, binary.LittleEndian, &t.TargetRow)
				binary.Read(br, binary.LittleEndian, &t.TargetCol)
			}
			zf.Teleporters = append(zf.Teleporters, t)
		}
	}

	return zf, nil
}

// ToGrid converts a decoded ZoneFile into a Grid.
func (zf *ZoneFile) ToGrid() *Grid {
	g := &Grid{Rows: zf.Height, Cols: zf.Width, Tiles: make([][]TileID, zf.Height)}
	for r := 0; r < zf.Height; r++ {
		row := make([]TileID, zf.Width)
		copy(row, zf.Tiles[r*zf.Width:(r+1)*zf.Width])
		g.Tiles[r] = row
	}
	return g
}

// FromGrid builds a ZoneFile ready for Encode from a Grid.
func FromGrid(g *Grid) *ZoneFile {
	zf := &ZoneFile{Width: g.Cols, Height: g.Rows, Tiles: make([]TileID, g.Rows*g.Cols)}
	for r := 0; r < g.Rows; r++ {
		copy(zf.Tiles[r*g.Cols:(r+1)*g.Cols], g.Tiles[r])
	}
	return zf
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

func bufReader(r io.Reader) byteReader {
	if br, ok := r.(byteReader); ok {
		return br
	}
	return &simpleByteReader{r}
}

type simpleByteReader struct{ io.Reader }

func (s *simpleByteReader) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(s, b[:])
	return b[0], err
}
