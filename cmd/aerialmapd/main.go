// Command aerialmapd runs a headless aerialmap display: it accepts position
// fixes over HTTP, keeps the tile grid assembled against a live tile server,
// and exposes the resulting scene, status surface and prometheus metrics.
// Without a localization stack every frame resolves to identity, so the grid
// placement equals the anchor offset.
package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"

	"github.com/skymap/aerialmap"
)

const (
	flagTileURL     = "tile-url"
	flagZoom        = "zoom"
	flagBlocks      = "blocks"
	flagAlpha       = "alpha"
	flagDrawBehind  = "draw-behind"
	flagAnchorFrame = "anchor-frame"
	flagListen      = "listen"
	flagTick        = "tick"
)

// staticFrames resolves every frame to identity.
type staticFrames struct{}

func (staticFrames) Lookup(string, time.Time) (aerialmap.Pose, error) {
	return aerialmap.IdentityPose(), nil
}

func (staticFrames) Diagnose(string, time.Time) string {
	return ""
}

func main() {
	app := &cli.App{
		Name:  "aerialmapd",
		Usage: "headless georeferenced tile-grid display",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagTileURL,
				Aliases:  []string{"u"},
				Usage:    "tile source template, e.g. https://tile.example.com/{z}/{x}/{y}.png",
				Required: true,
				EnvVars:  []string{"AERIALMAP_TILE_URL"},
			},
			&cli.IntFlag{
				Name:    flagZoom,
				Aliases: []string{"z"},
				Usage:   "zoom level (0-22)",
				Value:   16,
				EnvVars: []string{"AERIALMAP_ZOOM"},
			},
			&cli.IntFlag{
				Name:    flagBlocks,
				Aliases: []string{"b"},
				Usage:   "adjacent blocks around the center tile (0-10)",
				Value:   3,
				EnvVars: []string{"AERIALMAP_BLOCKS"},
			},
			&cli.Float64Flag{
				Name:    flagAlpha,
				Usage:   "tile transparency (0-1)",
				Value:   0.7,
				EnvVars: []string{"AERIALMAP_ALPHA"},
			},
			&cli.BoolFlag{
				Name:    flagDrawBehind,
				Usage:   "draw the grid behind everything else",
				EnvVars: []string{"AERIALMAP_DRAW_BEHIND"},
			},
			&cli.StringFlag{
				Name:    flagAnchorFrame,
				Usage:   "anchor frame name",
				Value:   "map",
				EnvVars: []string{"AERIALMAP_ANCHOR_FRAME"},
			},
			&cli.StringFlag{
				Name:    flagListen,
				Aliases: []string{"l"},
				Usage:   "listen address",
				Value:   ":8080",
				EnvVars: []string{"AERIALMAP_LISTEN"},
			},
			&cli.DurationFlag{
				Name:    flagTick,
				Usage:   "render tick interval",
				Value:   100 * time.Millisecond,
				EnvVars: []string{"AERIALMAP_TICK"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cache, err := aerialmap.NewMemoryTileCache(aerialmap.WithCacheLogger(logger))
	if err != nil {
		return err
	}
	defer cache.Close()

	status := aerialmap.NewStatusMap()
	node := aerialmap.NewGridNode()

	display, err := aerialmap.NewDisplay(
		aerialmap.Config{
			TileURL:     c.String(flagTileURL),
			Zoom:        c.Int(flagZoom),
			Blocks:      c.Int(flagBlocks),
			Alpha:       c.Float64(flagAlpha),
			DrawBehind:  c.Bool(flagDrawBehind),
			AnchorFrame: c.String(flagAnchorFrame),
		},
		cache,
		staticFrames{},
		node,
		aerialmap.WithLogger(logger),
		aerialmap.WithStatusSink(status),
	)
	if err != nil {
		return err
	}

	// The display is single-threaded: one goroutine owns it and everything
	// else reaches it through the calls channel.
	calls := make(chan func())
	done := make(chan struct{})
	ticker := time.NewTicker(c.Duration(flagTick))
	defer ticker.Stop()

	go func() {
		display.Enable()
		for {
			select {
			case <-done:
				display.Disable()
				return
			case <-ticker.C:
				display.Update()
			case f := <-calls:
				f()
			}
		}
	}()

	onDisplay := func(f func()) {
		ran := make(chan struct{})
		calls <- func() {
			f()
			close(ran)
		}
		<-ran
	}

	srv := fiber.New(fiber.Config{AppName: "aerialmapd", DisableStartupMessage: true})

	prom := fiberprometheus.New("aerialmapd")
	prom.RegisterAt(srv, "/metrics")
	srv.Use(prom.Middleware)

	srv.Post("/fix", func(ctx *fiber.Ctx) error {
		var fix aerialmap.PositionFix
		if err := ctx.BodyParser(&fix); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if fix.Stamp.IsZero() {
			fix.Stamp = time.Now()
		}
		onDisplay(func() {
			display.HandleFix(fix)
		})
		return ctx.SendStatus(fiber.StatusAccepted)
	})

	srv.Get("/status", func(ctx *fiber.Ctx) error {
		return ctx.JSON(status.Snapshot())
	})

	srv.Get("/scene", func(ctx *fiber.Ctx) error {
		var slots []aerialmap.TileSlot
		onDisplay(func() {
			for _, s := range display.Slots() {
				slots = append(slots, *s)
			}
		})
		return ctx.JSON(fiber.Map{
			"placement": node.Pose(),
			"slots":     slots,
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		close(done)
		_ = srv.Shutdown()
	}()

	logger.Info("listening", "addr", c.String(flagListen))
	return srv.Listen(c.String(flagListen))
}
