package aerialmap

import (
	"errors"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	// MaxZoom is the highest zoom level a tile source can be queried at.
	MaxZoom = 22
	// MaxBlocks is the largest supported block radius around the center tile.
	MaxBlocks = 10

	// MaxLatitude is the web-mercator latitude cutoff. The projection has a
	// singularity at the poles; tile coordinates are undefined beyond this.
	MaxLatitude = 85.05112877980659

	// tileSizePx is the pixel edge length the slippy-map base resolution is
	// defined against. It cancels out against the resolution formula, but
	// keeping it makes the math line up with the published scheme.
	tileSizePx = 256

	// equatorial circumference of the WGS84 reference sphere in meters
	earthCircumference = 2 * math.Pi * 6378137.0
)

var ErrLatitudeOutOfRange = errors.New("latitude out of web-mercator range")

// GeoPoint is a WGS84 position in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TileCoordinate addresses a tile position at some zoom level. The integer
// instantiation indexes a tile, the float instantiation is a fractional
// position within the tile raster.
type TileCoordinate[T constraints.Signed | constraints.Float] struct {
	X T `json:"x"`
	Y T `json:"y"`
}

// TileFromWGS projects a WGS84 position onto the web-mercator tile raster at
// the given zoom. The result is fractional; floor it to get the tile index.
// Latitudes at or beyond +-MaxLatitude are rejected, callers must clamp.
func TileFromWGS(p GeoPoint, zoom int) (TileCoordinate[float64], error) {
	if math.Abs(p.Latitude) >= MaxLatitude {
		return TileCoordinate[float64]{}, ErrLatitudeOutOfRange
	}

	latRad := p.Latitude * math.Pi / 180
	n := math.Exp2(float64(zoom))

	return TileCoordinate[float64]{
		X: (p.Longitude + 180) / 360 * n,
		Y: (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n,
	}, nil
}

// floorTile maps a fractional tile coordinate to the index of the containing tile.
func floorTile(c TileCoordinate[float64]) TileCoordinate[int] {
	return TileCoordinate[int]{
		X: int(math.Floor(c.X)),
		Y: int(math.Floor(c.Y)),
	}
}

// TileSizeMeters returns the ground distance spanned by one tile edge at the
// given latitude and zoom. It uses the same base-resolution constant as the
// tiling scheme, so distances are consistent with tile-coordinate deltas.
func TileSizeMeters(latitude float64, zoom int) float64 {
	// meter per pixel at this latitude and zoom
	resolution := earthCircumference / tileSizePx * math.Cos(latitude*math.Pi/180) / math.Exp2(float64(zoom))
	return tileSizePx * resolution
}
