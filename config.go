package frankentui

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SessionMode selects how the session claims the terminal.
type SessionMode string

const (
	// ModeAlt takes over the full screen via the alternate buffer.
	ModeAlt SessionMode = "alt"
	// ModeInline reserves a region below the shell cursor and leaves
	// scrollback intact.
	ModeInline SessionMode = "inline"
)

// Config configures a TerminalSession. The YAML shape is loadable from a
// config file; FRANKENTUI_* environment variables override it, and the
// non-serializable fields are wired programmatically.
type Config struct {
	Mode         SessionMode `yaml:"mode"`
	InlineHeight int         `yaml:"inline_height"`

	// HideCursor hides the terminal cursor for the session (alt mode)
	// or during frames (inline mode).
	HideCursor bool `yaml:"hide_cursor"`

	// Capability overrides; nil leaves detection alone.
	TrueColor  *bool `yaml:"truecolor"`
	SyncOutput *bool `yaml:"sync_output"`
	Hyperlinks *bool `yaml:"hyperlinks"`

	// Output overrides the terminal stream; used by tests with an
	// in-memory terminal model. When set, termios handling is skipped.
	Output io.Writer `yaml:"-"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns an alt-screen session config.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeAlt,
		InlineHeight: 8,
		HideCursor:   true,
	}
}

// LoadConfig reads a YAML config file and applies environment overrides
// on top. A missing file is not an error; defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.ApplyEnv(nil)
	return cfg, cfg.validate()
}

// ApplyEnv overlays FRANKENTUI_* variables. Pass nil to read the real
// environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	switch SessionMode(getenv("FRANKENTUI_MODE")) {
	case ModeAlt:
		c.Mode = ModeAlt
	case ModeInline:
		c.Mode = ModeInline
	}
	if v := getenv("FRANKENTUI_INLINE_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.InlineHeight = n
		}
	}
	if v := getenv("FRANKENTUI_HIDE_CURSOR"); v != "" {
		c.HideCursor = v == "1" || v == "true"
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeAlt, ModeInline, "":
	default:
		return fmt.Errorf("unknown session mode %q", c.Mode)
	}
	if c.Mode == ModeInline && c.InlineHeight < 1 {
		return fmt.Errorf("inline mode needs a positive height, got %d", c.InlineHeight)
	}
	return nil
}

// capabilities applies the config's overrides to a detected set.
func (c Config) capabilities(base Capabilities) Capabilities {
	if c.TrueColor != nil {
		base.TrueColor = *c.TrueColor
	}
	if c.SyncOutput != nil {
		base.SyncOutput = *c.SyncOutput
	}
	if c.Hyperlinks != nil {
		base.Hyperlinks = *c.Hyperlinks
	}
	return base
}
