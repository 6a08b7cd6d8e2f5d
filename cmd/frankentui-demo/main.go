// Command frankentui-demo exercises the rendering core against a real
// terminal: a color gradient, styled text, and a live frame counter,
// in either alt-screen or inline mode.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"frankentui"
)

var (
	inline   bool
	height   int
	duration time.Duration
	config   string
)

func main() {
	root := &cobra.Command{
		Use:   "frankentui-demo",
		Short: "Render a demo scene through the frankentui core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	root.Flags().BoolVar(&inline, "inline", false, "render inline below the shell cursor")
	root.Flags().IntVar(&height, "height", 8, "inline region height")
	root.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run")
	root.Flags().StringVar(&config, "config", "", "YAML config file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := frankentui.LoadConfig(config)
	if err != nil {
		return err
	}
	if inline {
		cfg.Mode = frankentui.ModeInline
		cfg.InlineHeight = height
	}
	cfg.Logger = slog.New(slog.DiscardHandler)

	session, err := frankentui.NewTerminalSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()
	if err := session.Start(); err != nil {
		return err
	}

	p := session.NewPresenter()
	w, h := p.Dims()
	back := frankentui.NewBuffer(w, h)
	back.SetGraphemePool(p.Pool())

	link := p.Links().Register("https://example.com/frankentui")
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()
	deadline := time.After(duration)

	frame := 0
	for {
		select {
		case <-deadline:
			return nil
		case sz := <-session.ResizeChan():
			nh := sz.Height
			if inline && height < nh {
				nh = height
			}
			p.Resize(sz.Width, nh)
			back.Resize(sz.Width, nh)
			if !inline {
				session.Writer().WriteString("\x1b[2J")
			}
			w, h = sz.Width, nh
		case <-ticker.C:
		}

		drawScene(back, w, h, frame, link)
		if _, err := p.Present(back); err != nil {
			return err
		}
		frame++
	}
}

func drawScene(back *frankentui.Buffer, w, h, frame int, link frankentui.LinkID) {
	for x := 0; x < w; x++ {
		hue := uint8((x*255/max(w, 1) + frame*3) % 256)
		cell := frankentui.NewCell('█', frankentui.DefaultStyle().
			Foreground(frankentui.RGB(hue, 128, 255-hue)))
		back.Set(x, 0, cell)
	}
	title := " frankentui core demo — 世界 "
	back.WriteString(2, min(1, h-1), title, frankentui.DefaultStyle().Bold())
	counter := fmt.Sprintf("frame %d", frame)
	back.WriteString(2, min(2, h-1), counter, frankentui.DefaultStyle().Dim())
	back.WriteString(2, min(3, h-1), "docs", frankentui.DefaultStyle().
		Underline().Foreground(frankentui.Indexed(12)).Hyperlink(link))
}
