package aerialmap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/ksuid"
)

// PositionFix is the single consumed message of the inbound position feed.
type PositionFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Frame     string    `json:"frame"`
	Stamp     time.Time `json:"stamp"`
}

// option models an explicitly optional value. The display is the sole owner
// and mutator of its optional state.
type option[T any] struct {
	value T
	ok    bool
}

func some[T any](v T) option[T] {
	return option[T]{value: v, ok: true}
}

func (o option[T]) get() (T, bool) {
	return o.value, o.ok
}

// configField enumerates the tunable fields for the invalidation table.
type configField uint8

const (
	fieldAlpha configField = iota
	fieldDrawBehind
	fieldTileURL
	fieldZoom
	fieldBlocks
)

// action enumerates what a configuration change can require.
type action uint8

const (
	actRebuildGrid action = iota
	actRecenter
	actRequestTiles
	actMarkDirty
)

// invalidations states, per configuration field, exactly what has to happen
// when it changes. Order within a row is execution order. Recentering
// re-derives the center tile from the stored fix and, since it changed,
// re-requests tiles and recomputes the anchor offset; rows with a recenter
// never also request, that would issue the same area twice.
var invalidations = map[configField][]action{
	fieldAlpha:      {actMarkDirty},
	fieldDrawBehind: {actMarkDirty},
	fieldTileURL:    {actRecenter, actMarkDirty},
	fieldZoom:       {actRebuildGrid, actRecenter, actMarkDirty},
	fieldBlocks:     {actRebuildGrid, actRequestTiles, actMarkDirty},
}

// Display keeps a grid of map tiles anchored to a moving reference position
// and placed in the render frame. It is single-threaded from the host's
// perspective: HandleFix and Update must be called from one goroutine.
type Display struct {
	cfg    Config
	cache  TileCache
	frames FrameLookup
	node   SceneNode
	status StatusSink
	log    *slog.Logger

	// id makes generated slot names unique per display instance.
	id string

	enabled      bool
	slots        []*TileSlot
	lastCenter   option[TileId]
	refFix       option[PositionFix]
	dirty        bool
	anchorOffset mgl64.Vec3
}

// DisplayOption is a functional option for configuring a Display.
type DisplayOption = func(d *Display)

func WithLogger(log *slog.Logger) DisplayOption {
	return func(d *Display) {
		d.log = log
	}
}

func WithStatusSink(sink StatusSink) DisplayOption {
	return func(d *Display) {
		d.status = sink
	}
}

func NewDisplay(cfg Config, cache TileCache, frames FrameLookup, node SceneNode, options ...DisplayOption) (*Display, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	d := &Display{
		cfg:    cfg,
		cache:  cache,
		frames: frames,
		node:   node,
		log:    slog.Default(),
		id:     ksuid.New().String(),
	}
	for _, o := range options {
		o(d)
	}
	if d.status == nil {
		d.status = logSink{log: d.log}
	}

	return d, nil
}

// Config returns the current configuration.
func (d *Display) Config() Config {
	return d.cfg
}

// Slots exposes the slot pool for a renderer to read. Empty while disabled.
func (d *Display) Slots() []*TileSlot {
	return d.slots
}

// Enable builds the slot pool and readies the display for fixes.
func (d *Display) Enable() {
	if d.enabled {
		return
	}
	d.enabled = true
	d.createSlots()
	d.status.SetStatus(StatusOk, StatusKeyTopic, "OK")
	d.status.SetStatus(StatusWarn, StatusKeyMessage, "No map received yet")
}

// Disable tears the grid down and forgets the reference position.
func (d *Display) Disable() {
	if !d.enabled {
		return
	}
	d.enabled = false
	d.clearAll()
}

// Reset clears all received state and rebuilds the grid, keeping the display
// enabled.
func (d *Display) Reset() {
	if !d.enabled {
		return
	}
	d.clearAll()
	d.createSlots()
}

func (d *Display) clearAll() {
	d.refFix = option[PositionFix]{}
	d.lastCenter = option[TileId]{}
	d.slots = nil
	d.dirty = false
	d.status.SetStatus(StatusWarn, StatusKeyMessage, "No map received yet")
}

func (d *Display) createSlots() {
	edge := 2*d.cfg.Blocks + 1
	d.slots = make([]*TileSlot, 0, edge*edge)
	for i := 0; i < edge*edge; i++ {
		d.slots = append(d.slots, &TileSlot{
			Name:           fmt.Sprintf("satellite_object_%s_%d", d.id, i),
			Alpha:          d.cfg.Alpha,
			DepthBias:      -16,
			FilterBilinear: true,
		})
	}
}

// HandleFix consumes one position update. The center tile changes only when
// the floor-divided tile coordinate differs from the stored one at the
// current zoom and source; sub-tile movement changes nothing here and is
// tracked by the per-tick placement alone.
func (d *Display) HandleFix(fix PositionFix) {
	if !d.enabled {
		return
	}

	frac, err := TileFromWGS(GeoPoint{Latitude: fix.Latitude, Longitude: fix.Longitude}, d.cfg.Zoom)
	if err != nil {
		d.status.SetStatus(StatusError, StatusKeyMessage, fmt.Sprintf("invalid fix coordinate: %v", err))
		return
	}

	center := TileId{Server: d.cfg.TileURL, Coord: floorTile(frac), Zoom: d.cfg.Zoom}
	if last, ok := d.lastCenter.get(); ok && last == center {
		d.status.SetStatus(StatusOk, StatusKeyMessage, "Position fix okay")
		return
	}

	d.log.Debug("updating center tile", "tile", center.Key())

	d.lastCenter = some(center)
	d.refFix = some(fix)

	d.requestTiles()
	d.recomputeAnchor()

	d.status.SetStatus(StatusOk, StatusKeyMessage, "Position fix okay")
}

// Update is the per-render-tick entry point: reassemble the scene if dirty,
// then reposition the grid node against the latest render-frame estimate.
func (d *Display) Update() {
	if !d.enabled {
		return
	}
	if _, ok := d.refFix.get(); !ok {
		return
	}
	if _, ok := d.lastCenter.get(); !ok {
		return
	}

	d.assembleScene()
	d.applyPlacement()
}

// requestTiles asks the cache for the block around the current center tile.
func (d *Display) requestTiles() {
	if !d.enabled {
		return
	}

	if d.cfg.TileURL == "" {
		d.status.SetStatus(StatusError, StatusKeyTileRequest, "Tile URL is not set")
		return
	}

	center, ok := d.lastCenter.get()
	if !ok {
		d.status.SetStatus(StatusError, StatusKeyMessage, "No position fix received yet")
		return
	}

	if err := d.cache.Request(NewArea(center, d.cfg.Blocks)); err != nil {
		d.status.SetStatus(StatusError, StatusKeyTileRequest, err.Error())
		return
	}

	d.dirty = true
}

// recomputeAnchor runs stage one of the transform pipeline. On failure the
// previously committed offset stays in place; stale is better than undefined.
func (d *Display) recomputeAnchor() {
	fix, ok := d.refFix.get()
	if !ok {
		d.log.Error("no reference fix, cannot compute transforms")
		return
	}

	offset, err := anchorOffset(d.frames, fix, d.cfg.AnchorFrame, d.cfg.Zoom)
	if err != nil {
		d.status.SetStatus(StatusError, StatusKeyTransform, err.Error())
		return
	}

	d.anchorOffset = offset
}

// applyPlacement runs stage two: resolve the anchor frame at the latest
// available time and compose with the stored offset. On failure the grid
// freezes at its last good placement.
func (d *Display) applyPlacement() {
	anchor, err := d.frames.Lookup(d.cfg.AnchorFrame, time.Time{})
	if err != nil {
		d.status.SetStatus(StatusError, StatusKeyTransform, lookupError(d.frames, d.cfg.AnchorFrame, time.Time{}).Error())
		return
	}

	d.node.SetPose(composePlacement(anchor, d.anchorOffset))
	d.status.SetStatus(StatusOk, StatusKeyTransform, "Transform OK")
}

// recenter re-derives the center tile from the stored fix, forcing the
// center-changed path so tiles are re-requested and the anchor offset is
// recomputed against the new zoom or source.
func (d *Display) recenter() {
	fix, ok := d.refFix.get()
	if !ok {
		return
	}
	d.lastCenter = option[TileId]{}
	d.HandleFix(fix)
}

// apply executes the invalidation table row for a changed field.
func (d *Display) apply(field configField) {
	for _, act := range invalidations[field] {
		switch act {
		case actRebuildGrid:
			d.createSlots()
		case actRecenter:
			d.recenter()
		case actRequestTiles:
			d.requestTiles()
		case actMarkDirty:
			d.dirty = true
		}
	}
}

// SetAlpha repaints the textures; it never re-queries tiles or touches
// geometry or transforms.
func (d *Display) SetAlpha(alpha float64) error {
	if alpha == d.cfg.Alpha {
		return nil
	}

	candidate := d.cfg
	candidate.Alpha = alpha
	if err := candidate.Validate(); err != nil {
		d.status.SetStatus(StatusError, StatusKeyMessage, err.Error())
		return err
	}
	d.cfg = candidate

	if !d.enabled {
		return nil
	}
	d.apply(fieldAlpha)
	return nil
}

// SetDrawBehind repaints the textures, like SetAlpha.
func (d *Display) SetDrawBehind(drawBehind bool) {
	if drawBehind == d.cfg.DrawBehind {
		return
	}
	d.cfg.DrawBehind = drawBehind

	if !d.enabled {
		return
	}
	d.apply(fieldDrawBehind)
}

// SetTileURL switches the tile source: re-request and repaint, the grid
// geometry and pool are untouched.
func (d *Display) SetTileURL(tileURL string) {
	if tileURL == d.cfg.TileURL {
		return
	}
	d.cfg.TileURL = tileURL

	if !d.enabled {
		return
	}
	d.apply(fieldTileURL)
}

// SetZoom rebuilds the grid geometry and recenters: tile size depends on
// zoom, and the center tile index changes with it.
func (d *Display) SetZoom(zoom int) error {
	if zoom == d.cfg.Zoom {
		return nil
	}

	candidate := d.cfg
	candidate.Zoom = zoom
	if err := candidate.Validate(); err != nil {
		d.status.SetStatus(StatusError, StatusKeyMessage, err.Error())
		return err
	}
	d.cfg = candidate

	if !d.enabled {
		return nil
	}
	d.apply(fieldZoom)
	return nil
}

// SetBlocks resizes the slot pool and re-requests the larger or smaller
// block; the center tile and transforms are untouched.
func (d *Display) SetBlocks(blocks int) error {
	if blocks == d.cfg.Blocks {
		return nil
	}

	candidate := d.cfg
	candidate.Blocks = blocks
	if err := candidate.Validate(); err != nil {
		d.status.SetStatus(StatusError, StatusKeyMessage, err.Error())
		return err
	}
	d.cfg = candidate

	if !d.enabled {
		return nil
	}
	d.apply(fieldBlocks)
	return nil
}
