package aerialmap

import (
	"strconv"
	"sync"
)

// keyBufPool provides a shared buffer pool with 64-byte pre-allocated buffers
var keyBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 64)
		return &buf
	},
}

// TileId identifies one cacheable tile: a tile source, integer tile
// coordinates and a zoom level. Equality is structural over all three fields,
// so two sources at identical coordinates are distinct cache entries.
type TileId struct {
	Server string              `json:"server"`
	Coord  TileCoordinate[int] `json:"coord"`
	Zoom   int                 `json:"zoom"`
}

// Key renders the tile identity as a flat string, used as cache and
// singleflight key and as the texture name of a loaded tile.
func (t TileId) Key() string {
	bufPtr, _ := keyBufPool.Get().(*[]byte) //nolint:errcheck
	buf := (*bufPtr)[:0]
	defer keyBufPool.Put(bufPtr)

	buf = append(buf, t.Server...)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(t.Zoom), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(t.Coord.X), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(t.Coord.Y), 10)

	return string(buf)
}

// Area is the inclusive square block of tiles with edge length 2*Blocks+1
// centered on Center. Blocks zero denotes the center tile alone. Negative
// block counts are a caller contract violation and are rejected at the
// configuration boundary, not here.
type Area struct {
	Center TileId `json:"center"`
	Blocks int    `json:"blocks"`
}

func NewArea(center TileId, blocks int) Area {
	return Area{Center: center, Blocks: blocks}
}

func (a Area) TopLeft() TileCoordinate[int] {
	return TileCoordinate[int]{X: a.Center.Coord.X - a.Blocks, Y: a.Center.Coord.Y - a.Blocks}
}

func (a Area) BottomRight() TileCoordinate[int] {
	return TileCoordinate[int]{X: a.Center.Coord.X + a.Blocks, Y: a.Center.Coord.Y + a.Blocks}
}

// Contains reports whether the tile belongs to the area. The source and zoom
// must match the center's; a coordinate alone does not identify a tile.
func (a Area) Contains(t TileId) bool {
	if t.Server != a.Center.Server || t.Zoom != a.Center.Zoom {
		return false
	}
	tl, br := a.TopLeft(), a.BottomRight()
	return t.Coord.X >= tl.X && t.Coord.X <= br.X && t.Coord.Y >= tl.Y && t.Coord.Y <= br.Y
}

// Tiles lists every tile of the area in raster order, outer loop over x and
// inner loop over y. The grid assembler iterates its slot pool in the same
// fixed order, so slot index i always maps to the same offset from center.
func (a Area) Tiles() []TileId {
	edge := 2*a.Blocks + 1
	tiles := make([]TileId, 0, edge*edge)
	tl, br := a.TopLeft(), a.BottomRight()
	for xx := tl.X; xx <= br.X; xx++ {
		for yy := tl.Y; yy <= br.Y; yy++ {
			tiles = append(tiles, TileId{
				Server: a.Center.Server,
				Coord:  TileCoordinate[int]{X: xx, Y: yy},
				Zoom:   a.Center.Zoom,
			})
		}
	}
	return tiles
}
