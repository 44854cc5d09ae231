package viewer

import (
	"fmt"
	"time"

	"github.com/matzehuels/tracelane/pkg/layout"
	"github.com/matzehuels/tracelane/pkg/physics"
	"github.com/matzehuels/tracelane/pkg/poscache"
	"github.com/matzehuels/tracelane/pkg/timeline"
)

// Config tunes a Session.
type Config struct {
	// LaneWidth is the pixel width of every lane.
	LaneWidth float64 `toml:"lane_width"`

	// Viewport and Height are the initial container size in pixels.
	Viewport float64 `toml:"viewport"`
	Height   float64 `toml:"height"`

	// Margin is the look-ahead/look-behind distance in pixels used when
	// deciding which lanes to load.
	Margin float64 `toml:"margin"`

	// Debounce is the quiet period after scroll or resize input.
	Debounce time.Duration `toml:"debounce"`

	// IterationCap bounds physics steps after each sync.
	IterationCap int `toml:"iteration_cap"`

	// SettleDelay is the time after a sync at which every node is frozen.
	SettleDelay time.Duration `toml:"settle_delay"`

	// CacheCapacity bounds the position cache.
	CacheCapacity int `toml:"cache_capacity"`

	// SeedSpread scatters fresh nodes around their cell center.
	SeedSpread float64 `toml:"seed_spread"`

	Bands   layout.Bands   `toml:"layout"`
	Physics physics.Params `toml:"physics"`
}

// DefaultConfig returns the settings used by the CLI front-ends.
func DefaultConfig() Config {
	return Config{
		LaneWidth:     timeline.DefaultLaneWidth,
		Viewport:      1200,
		Height:        600,
		Margin:        300,
		Debounce:      timeline.DefaultDebounce,
		IterationCap:  300,
		SettleDelay:   3 * time.Second,
		CacheCapacity: poscache.DefaultCapacity,
		SeedSpread:    40,
		Bands:         layout.DefaultBands(),
		Physics:       physics.DefaultParams(),
	}
}

// SetDefaults fills zero fields from DefaultConfig.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.LaneWidth <= 0 {
		c.LaneWidth = d.LaneWidth
	}
	if c.Viewport <= 0 {
		c.Viewport = d.Viewport
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.Margin < 0 {
		c.Margin = 0
	}
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.IterationCap < 0 {
		c.IterationCap = 0
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = d.CacheCapacity
	}
	if c.Bands == (layout.Bands{}) {
		c.Bands = d.Bands
	}
	if c.Physics == (physics.Params{}) {
		c.Physics = d.Physics
	}
}

// Validate reports settings that cannot produce a usable grid.
func (c Config) Validate() error {
	b := c.Bands
	if b.LongDistanceTop > b.LongDistanceBottom {
		return fmt.Errorf("long-distance band is inverted: [%v, %v]", b.LongDistanceTop, b.LongDistanceBottom)
	}
	if b.LaneMargin < 0 || b.BottomMargin < 0 || b.Epsilon < 0 {
		return fmt.Errorf("layout margins must not be negative")
	}
	if c.LaneWidth > 0 && 2*b.LaneMargin >= c.LaneWidth {
		return fmt.Errorf("lane margin %v leaves no room in lanes %v wide", b.LaneMargin, c.LaneWidth)
	}
	return nil
}
