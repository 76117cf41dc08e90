package aerialmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileFromWGS(t *testing.T) {
	tests := []struct {
		name     string
		point    GeoPoint
		zoom     int
		wantX    float64
		wantY    float64
		wantTile TileCoordinate[int]
	}{
		{
			name:     "origin at zoom 0",
			point:    GeoPoint{Latitude: 0, Longitude: 0},
			zoom:     0,
			wantX:    0.5,
			wantY:    0.5,
			wantTile: TileCoordinate[int]{X: 0, Y: 0},
		},
		{
			name:     "origin at zoom 1",
			point:    GeoPoint{Latitude: 0, Longitude: 0},
			zoom:     1,
			wantX:    1.0,
			wantY:    1.0,
			wantTile: TileCoordinate[int]{X: 1, Y: 1},
		},
		{
			name:     "zurich at zoom 16",
			point:    GeoPoint{Latitude: 47.398, Longitude: 8.546},
			zoom:     16,
			wantX:    34323.75182222222,
			wantY:    22944.093913487653,
			wantTile: TileCoordinate[int]{X: 34323, Y: 22944},
		},
		{
			name:     "london at zoom 12",
			point:    GeoPoint{Latitude: 51.507222, Longitude: -0.1275},
			zoom:     12,
			wantX:    2046.5493333333334,
			wantY:    1362.0277944838056,
			wantTile: TileCoordinate[int]{X: 2046, Y: 1362},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TileFromWGS(tt.point, tt.zoom)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantX, got.X, 1e-9)
			assert.InDelta(t, tt.wantY, got.Y, 1e-9)
			assert.Equal(t, tt.wantTile, floorTile(got))
		})
	}
}

func TestTileFromWGSLatitudeOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
	}{
		{name: "north of cutoff", lat: 85.06},
		{name: "south of cutoff", lat: -85.06},
		{name: "north pole", lat: 90},
		{name: "exactly at cutoff", lat: MaxLatitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TileFromWGS(GeoPoint{Latitude: tt.lat}, 10)
			require.ErrorIs(t, err, ErrLatitudeOutOfRange)
		})
	}
}

func TestTileSizeMetersEquator(t *testing.T) {
	// one tile covers the full equator at zoom 0
	assert.InDelta(t, 40075016.68557849, TileSizeMeters(0, 0), 1e-3)
	assert.InDelta(t, 611.49622628141, TileSizeMeters(0, 16), 1e-6)
}

func TestTileSizeMetersMonotonicInZoom(t *testing.T) {
	for _, lat := range []float64{0, 23.5, 47.398, -47.398, 80} {
		prev := TileSizeMeters(lat, 0)
		for zoom := 1; zoom <= MaxZoom; zoom++ {
			cur := TileSizeMeters(lat, zoom)
			require.Lessf(t, cur, prev, "tile size must shrink from zoom %d to %d at lat %f", zoom-1, zoom, lat)
			prev = cur
		}
	}
}

func TestTileSizeMetersShrinksTowardsPoles(t *testing.T) {
	for _, zoom := range []int{0, 8, 16} {
		prev := TileSizeMeters(0, zoom)
		for _, lat := range []float64{10, 30, 50, 70, 85} {
			cur := TileSizeMeters(lat, zoom)
			require.Lessf(t, cur, prev, "tile size must shrink towards the poles at zoom %d, lat %f", zoom, lat)
			// mercator distortion is symmetric
			require.InDelta(t, cur, TileSizeMeters(-lat, zoom), 1e-9)
			prev = cur
		}
	}
}

func TestTileSizeMetersMatchesTileCoordinateDeltas(t *testing.T) {
	// moving one full tile east at constant latitude spans one tile size;
	// this pins the base-resolution constant to the projection formula
	lat, zoom := 47.0, 14.0

	a, err := TileFromWGS(GeoPoint{Latitude: lat, Longitude: 8.0}, int(zoom))
	require.NoError(t, err)

	// longitude delta of exactly one tile at this zoom
	lonPerTile := 360.0 / math.Exp2(zoom)
	b, err := TileFromWGS(GeoPoint{Latitude: lat, Longitude: 8.0 + lonPerTile}, int(zoom))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, b.X-a.X, 1e-9)
}
