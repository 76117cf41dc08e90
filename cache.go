package aerialmap

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/brunomvsouza/singleflight"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// ReadyTile is a loaded tile texture the cache exposes once a requested tile
// has been fetched and decoded. The cache owns it; consumers hold a
// non-owning reference while assembling one frame.
type ReadyTile struct {
	Tile    TileId      `json:"tile"`
	Texture string      `json:"texture"`
	Format  ImageFormat `json:"format"`
	Image   image.Image `json:"-"`
}

// TileCache is the narrow contract the display consumes tiles through.
//
// Request declares that all tiles of an area are wanted. It never blocks on
// network traffic; only synchronous validation errors (a malformed tile
// source, for example) are returned. Ready is a non-blocking point-in-time
// poll. Purge releases entries outside the area and must only be called
// after a full Ready scan for that area has finished. ErrorRate is the
// rolling fraction of recent failed requests for a tile server.
type TileCache interface {
	Request(area Area) error
	Ready(tile TileId) (*ReadyTile, bool)
	Purge(area Area)
	ErrorRate(server string) float64
}

const (
	DefaultCacheMaxTiles = 512
	DefaultFetchTimeout  = 15 * time.Second

	ristrettoBufferItems = 64
)

// FetcherFactory builds a TileFetcher for a tile source string.
type FetcherFactory = func(ctx context.Context, source string) (TileFetcher, error)

// CacheConfig holds customization options for a MemoryTileCache.
type CacheConfig struct {
	maxTiles     int64
	fetchTimeout time.Duration
	newFetcher   FetcherFactory
	log          *slog.Logger
}

// CacheOption is a functional option for configuring a MemoryTileCache.
type CacheOption = func(config *CacheConfig)

// WithMaxCachedTiles bounds how many decoded tiles are retained.
func WithMaxCachedTiles(n int64) CacheOption {
	return func(config *CacheConfig) {
		config.maxTiles = n
	}
}

// WithFetchTimeout bounds a single tile fetch.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(config *CacheConfig) {
		config.fetchTimeout = d
	}
}

// WithFetcherFactory replaces the scheme-dispatched default factory.
func WithFetcherFactory(f FetcherFactory) CacheOption {
	return func(config *CacheConfig) {
		config.newFetcher = f
	}
}

// WithCacheLogger sets the logger fetch failures are reported through.
func WithCacheLogger(log *slog.Logger) CacheOption {
	return func(config *CacheConfig) {
		config.log = log
	}
}

// MemoryTileCache is the production TileCache: fetches run on background
// goroutines deduplicated per tile, decoded textures live in a ristretto
// cache, and a tracked set supports purging by area.
type MemoryTileCache struct {
	config   *CacheConfig
	ctx      context.Context
	cancel   context.CancelFunc
	textures *ristretto.Cache[string, *ReadyTile]
	flight   singleflight.Group[string, *ReadyTile]
	errors   *errorRates

	mu       sync.Mutex
	fetchers map[string]TileFetcher
	tracked  map[TileId]struct{}
	pending  map[TileId]struct{}

	wg sync.WaitGroup
}

var _ TileCache = (*MemoryTileCache)(nil)

func NewMemoryTileCache(options ...CacheOption) (*MemoryTileCache, error) {
	config := &CacheConfig{
		maxTiles:     DefaultCacheMaxTiles,
		fetchTimeout: DefaultFetchTimeout,
		newFetcher:   NewTileFetcher,
		log:          slog.Default(),
	}
	for _, o := range options {
		o(config)
	}

	textures, err := ristretto.NewCache(&ristretto.Config[string, *ReadyTile]{
		NumCounters: config.maxTiles * 10,
		MaxCost:     config.maxTiles,
		BufferItems: ristrettoBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("creating texture cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MemoryTileCache{
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		textures: textures,
		errors:   newErrorRates(),
		fetchers: make(map[string]TileFetcher),
		tracked:  make(map[TileId]struct{}),
		pending:  make(map[TileId]struct{}),
	}, nil
}

// Request marks every tile of the area as wanted and starts background
// fetches for the ones that are neither loaded nor already in flight.
func (c *MemoryTileCache) Request(area Area) error {
	fetcher, err := c.fetcherFor(area.Center.Server)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tile := range area.Tiles() {
		c.tracked[tile] = struct{}{}

		if _, inFlight := c.pending[tile]; inFlight {
			continue
		}
		if _, loaded := c.textures.Get(tile.Key()); loaded {
			continue
		}

		c.pending[tile] = struct{}{}
		c.wg.Add(1)
		go c.fetch(fetcher, tile)
	}

	return nil
}

// Ready returns the loaded texture for a tile, or false if the tile has not
// finished loading, errored, or was never requested.
func (c *MemoryTileCache) Ready(tile TileId) (*ReadyTile, bool) {
	return c.textures.Get(tile.Key())
}

// Purge drops every tracked tile outside the area. Safe with respect to
// in-flight fetches: a purged tile's result is discarded on completion.
func (c *MemoryTileCache) Purge(area Area) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tile := range c.tracked {
		if area.Contains(tile) {
			continue
		}
		delete(c.tracked, tile)
		c.textures.Del(tile.Key())
	}
}

func (c *MemoryTileCache) ErrorRate(server string) float64 {
	return c.errors.Rate(server)
}

// Clear drops all cached textures and tracking state.
func (c *MemoryTileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracked = make(map[TileId]struct{})
	c.textures.Clear()
}

// Close stops background fetching and releases the texture cache.
func (c *MemoryTileCache) Close() {
	c.cancel()
	c.wg.Wait()
	c.textures.Close()
}

func (c *MemoryTileCache) fetcherFor(source string) (TileFetcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fetcher, ok := c.fetchers[source]; ok {
		return fetcher, nil
	}

	fetcher, err := c.config.newFetcher(c.ctx, source)
	if err != nil {
		return nil, fmt.Errorf("building fetcher for %q: %w", source, err)
	}
	c.fetchers[source] = fetcher

	return fetcher, nil
}

func (c *MemoryTileCache) fetch(fetcher TileFetcher, tile TileId) {
	defer c.wg.Done()

	timer := prometheus.NewTimer(tileFetchDuration)
	defer timer.ObserveDuration()
	tileRequestsTotal.WithLabelValues(tile.Server).Inc()

	// Concurrent loads of the same tile collapse into one fetch.
	ready, err, _ := c.flight.Do(tile.Key(), func() (*ReadyTile, error) {
		ctx, cancel := context.WithTimeout(c.ctx, c.config.fetchTimeout)
		defer cancel()

		data, err := fetcher.Fetch(ctx, tile)
		if err != nil {
			return nil, err
		}

		img, format, err := decodeTile(data)
		if err != nil {
			return nil, err
		}

		return &ReadyTile{Tile: tile, Texture: tile.Key(), Format: format, Image: img}, nil
	})

	c.errors.Record(tile.Server, err != nil)

	if err != nil {
		c.mu.Lock()
		delete(c.pending, tile)
		c.mu.Unlock()

		tileFetchErrorsTotal.WithLabelValues(tile.Server).Inc()
		c.config.log.Warn("tile fetch failed", "tile", tile.Key(), "error", err)
		return
	}

	// The tracked check and the insert share one critical section: a Purge
	// between them would delete the tracked entry but miss the texture.
	c.mu.Lock()
	delete(c.pending, tile)
	if _, wanted := c.tracked[tile]; !wanted {
		// purged while in flight
		c.mu.Unlock()
		return
	}
	c.textures.Set(ready.Texture, ready, 1)
	c.mu.Unlock()

	c.textures.Wait()
}

// wait blocks until all in-flight fetches settled. Test helper.
func (c *MemoryTileCache) wait() {
	c.wg.Wait()
	c.textures.Wait()
}
