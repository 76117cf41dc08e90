package aerialmap

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config is the user-tunable surface of a Display. Defaults mirror the
// property defaults of the display this design derives from.
type Config struct {
	// TileURL is the tile source template, e.g.
	// https://tile.example.com/{z}/{x}/{y}.png. May be empty; requesting
	// tiles without a source reports an error status instead.
	TileURL string `json:"tile_url"`

	Zoom   int     `json:"zoom" default:"16" validate:"gte=0,lte=22"`
	Blocks int     `json:"blocks" default:"3" validate:"gte=0,lte=10"`
	Alpha  float64 `json:"alpha" default:"0.7" validate:"gte=0,lte=1"`

	// DrawBehind renders the grid behind everything else.
	DrawBehind bool `json:"draw_behind"`

	// AnchorFrame is the fixed intermediate frame the grid is rigidly
	// attached to between center-tile changes.
	AnchorFrame string `json:"anchor_frame" default:"map"`
}

// Normalize fills defaults into zero fields and validates bounds. Used once
// at construction; setters validate without re-defaulting.
func (c *Config) Normalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("applying config defaults: %w", err)
	}
	return c.Validate()
}

// Validate checks the configured bounds.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
