package storycanvas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds editor session settings.
type Config struct {
	Page    PageConfig    `yaml:"page"`
	Scale   ScaleConfig   `yaml:"scale"`
	Gesture GestureConfig `yaml:"gesture"`
	Debug   bool          `yaml:"debug"`
}

// PageConfig is the page size in document units.
type PageConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ScaleConfig holds the background scale slider bounds in percent.
type ScaleConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
	// Clamp limits the derived background zoom to [0, 1]. Defaults to true.
	Clamp *bool `yaml:"clamp"`
}

// GestureConfig tunes pointer handling. Distances are viewport pixels except
// MinSize, which is in document units.
type GestureConfig struct {
	DragDeadZone       float64 `yaml:"drag_dead_zone"`
	HandleSize         float64 `yaml:"handle_size"`
	MinSize            float64 `yaml:"min_size"`
	RotateHandleOffset float64 `yaml:"rotate_handle_offset"`
}

func (c *Config) defaults() {
	if c.Page.Width <= 0 {
		c.Page.Width = DefaultPageWidth
	}
	if c.Page.Height <= 0 {
		c.Page.Height = DefaultPageHeight
	}
	if c.Scale.Min <= 0 {
		c.Scale.Min = DefaultMinScale
	}
	if c.Scale.Max <= 0 {
		c.Scale.Max = DefaultMaxScale
	}
	if c.Scale.Clamp == nil {
		clamp := true
		c.Scale.Clamp = &clamp
	}
	if c.Gesture.DragDeadZone <= 0 {
		c.Gesture.DragDeadZone = DefaultDragDeadZone
	}
	if c.Gesture.HandleSize <= 0 {
		c.Gesture.HandleSize = DefaultHandleSize
	}
	if c.Gesture.MinSize <= 0 {
		c.Gesture.MinSize = DefaultMinSize
	}
	if c.Gesture.RotateHandleOffset <= 0 {
		c.Gesture.RotateHandleOffset = DefaultRotateHandleOffset
	}
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Scale.Max <= c.Scale.Min {
		return fmt.Errorf("config: scale.max %v must exceed scale.min %v", c.Scale.Max, c.Scale.Min)
	}
	return nil
}

// ScaleRange returns the background zoom derivation settings.
func (c *Config) ScaleRange() ScaleRange {
	clamp := true
	if c.Scale.Clamp != nil {
		clamp = *c.Scale.Clamp
	}
	return ScaleRange{Min: c.Scale.Min, Max: c.Scale.Max, Clamp: clamp}
}

// PointerConfig returns the pointer hit-testing settings.
func (c *Config) PointerConfig() PointerConfig {
	return PointerConfig{
		DragDeadZone:       c.Gesture.DragDeadZone,
		HandleSize:         c.Gesture.HandleSize,
		RotateHandleOffset: c.Gesture.RotateHandleOffset,
	}
}

// Viewport returns a viewport for the configured page shown on a canvas of
// the given pixel width at zoom 1.
func (c *Config) Viewport(canvasWidth float64) ViewportState {
	return ViewportState{
		PageWidth:    c.Page.Width,
		PageHeight:   c.Page.Height,
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasWidth * c.Page.Height / c.Page.Width,
		Zoom:         1,
	}
}

// ParseConfig decodes YAML config data and fills in defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}
