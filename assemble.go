package aerialmap

// opaqueAlphaThreshold separates replace-blending from alpha-blending.
const opaqueAlphaThreshold = 0.9998

// assembleScene walks the slot pool in the fixed raster order of the wanted
// area and rewrites each slot from the cache's readiness. Slots of tiles
// that are not ready yet are hidden and the pass stays dirty for the next
// tick. Purging happens strictly after all readiness polls of the pass.
func (d *Display) assembleScene() {
	if !d.enabled || !d.dirty {
		return
	}
	center, ok := d.lastCenter.get()
	if !ok {
		return
	}
	fix, ok := d.refFix.get()
	if !ok {
		return
	}
	if len(d.slots) == 0 {
		d.log.Error("no tile slots to draw on, grid was never built")
		return
	}

	d.dirty = false

	area := NewArea(center, d.cfg.Blocks)
	// Tile size depends on the fix latitude, so geometry cannot be reused
	// across assemblies even when the texture is unchanged.
	size := TileSizeMeters(fix.Latitude, d.cfg.Zoom)

	loadedAll := true
	i := 0
	tl, br := area.TopLeft(), area.BottomRight()
	for xx := tl.X; xx <= br.X; xx++ {
		for yy := tl.Y; yy <= br.Y; yy++ {
			slot := d.slots[i]
			i++

			tile := TileId{Server: center.Server, Coord: TileCoordinate[int]{X: xx, Y: yy}, Zoom: center.Zoom}
			ready, ok := d.cache.Ready(tile)
			if !ok {
				// don't show tiles with old textures
				slot.Visible = false
				loadedAll = false
				continue
			}

			slot.Visible = true
			slot.Texture = ready.Texture
			slot.Alpha = d.cfg.Alpha

			if d.cfg.Alpha >= opaqueAlphaThreshold {
				slot.Blend = BlendReplace
				slot.DepthWrite = !d.cfg.DrawBehind
			} else {
				slot.Blend = BlendAlpha
				slot.DepthWrite = false
			}

			if d.cfg.DrawBehind {
				slot.Order = DrawOrderBackground
			} else {
				slot.Order = DrawOrderNormal
			}

			// The center tile spans (0,0)..(1,1) in the local frame; the y
			// coordinate flips so the tile raster lines up with the
			// east-north-up anchor frame.
			x := float64(xx-center.Coord.X) * size
			y := -float64(yy-center.Coord.Y) * size
			slot.Geometry = tileQuad(x, y, size)
		}
	}

	if !loadedAll {
		// not everything was drawable yet, run again next tick
		d.dirty = true
	}

	d.cache.Purge(area)

	d.reportErrorRate(center.Server)
}

// reportErrorRate maps the server's rolling error rate onto the status
// surface. The thresholds are policy constants.
func (d *Display) reportErrorRate(server string) {
	rate := d.cache.ErrorRate(server)
	switch {
	case rate > 0.95:
		d.status.SetStatus(StatusError, StatusKeyTileRequest, "Few or no tiles received")
	case rate > 0.3:
		d.status.SetStatus(StatusWarn, StatusKeyTileRequest,
			"Not all requested tiles have been received. Possibly the server is throttling?")
	default:
		d.status.SetStatus(StatusOk, StatusKeyTileRequest, "OK")
	}
}
