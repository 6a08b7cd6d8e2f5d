package frankentui

import (
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// Capabilities records what the attached terminal can do. The presenter
// evaluates the record per call and degrades silently where a feature is
// absent: truecolor falls back to the 256 palette, hyperlinks to plain
// text, sync output to unfenced frames.
type Capabilities struct {
	TrueColor      bool
	ANSI256        bool
	SyncOutput     bool
	Hyperlinks     bool
	KittyKeyboard  bool
	BracketedPaste bool
}

// DetectCapabilities probes the environment. Pass nil to read the real
// process environment (color support then comes from termenv's profile
// detection); tests inject their own lookup.
func DetectCapabilities(getenv func(string) string) Capabilities {
	fromOS := getenv == nil
	if getenv == nil {
		getenv = os.Getenv
	}

	term := getenv("TERM")
	prog := getenv("TERM_PROGRAM")

	caps := Capabilities{BracketedPaste: true}

	if fromOS {
		profile := termenv.EnvColorProfile()
		caps.TrueColor = profile == termenv.TrueColor
		caps.ANSI256 = profile <= termenv.ANSI256
	} else {
		ct := getenv("COLORTERM")
		caps.TrueColor = ct == "truecolor" || ct == "24bit"
		caps.ANSI256 = caps.TrueColor || strings.Contains(term, "256color")
	}

	isKitty := strings.Contains(term, "kitty") || getenv("KITTY_WINDOW_ID") != ""
	isGhostty := prog == "ghostty" || term == "xterm-ghostty"
	caps.KittyKeyboard = isKitty || isGhostty

	switch {
	case isKitty, isGhostty:
		caps.SyncOutput = true
		caps.Hyperlinks = true
	case prog == "WezTerm", prog == "iTerm.app", prog == "Contour":
		caps.SyncOutput = true
		caps.Hyperlinks = true
	case strings.HasPrefix(term, "foot"), strings.HasPrefix(term, "alacritty"):
		caps.SyncOutput = true
		caps.Hyperlinks = term != "alacritty"
	case prog == "vscode":
		caps.Hyperlinks = true
	}
	if v, err := strconv.Atoi(getenv("VTE_VERSION")); err == nil && v >= 5000 {
		// VTE ≥ 0.50 handles OSC 8.
		caps.Hyperlinks = true
	}

	applyEnvOverride(getenv, "FRANKENTUI_TRUECOLOR", &caps.TrueColor)
	applyEnvOverride(getenv, "FRANKENTUI_SYNC", &caps.SyncOutput)
	applyEnvOverride(getenv, "FRANKENTUI_HYPERLINKS", &caps.Hyperlinks)
	applyEnvOverride(getenv, "FRANKENTUI_KITTY", &caps.KittyKeyboard)
	return caps
}

func applyEnvOverride(getenv func(string) string, key string, dst *bool) {
	switch getenv(key) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}
