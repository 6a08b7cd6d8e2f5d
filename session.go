package frankentui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Session construction errors.
var (
	ErrSessionActive = errors.New("a terminal session is already active in this process")
	ErrNotATerminal  = errors.New("output is not a terminal")
)

// sessionActive enforces the one-session-per-process rule: the terminal
// is a process-level resource.
var sessionActive atomic.Bool

// Size is a terminal dimension report.
type Size struct {
	Width  int
	Height int
}

// MouseMode selects the granularity of mouse tracking.
type MouseMode int

const (
	MouseOff MouseMode = iota
	MouseButtons
	MouseDrag
	MouseAll
)

func (m MouseMode) enableSeq() string {
	switch m {
	case MouseButtons:
		return "\x1b[?1000h\x1b[?1006h"
	case MouseDrag:
		return "\x1b[?1002h\x1b[?1006h"
	case MouseAll:
		return "\x1b[?1003h\x1b[?1006h"
	}
	return ""
}

func (m MouseMode) disableSeq() string {
	switch m {
	case MouseButtons:
		return "\x1b[?1006l\x1b[?1000l"
	case MouseDrag:
		return "\x1b[?1006l\x1b[?1002l"
	case MouseAll:
		return "\x1b[?1006l\x1b[?1003l"
	}
	return ""
}

// sessionState is the modal state of the owned terminal.
type sessionState int

const (
	stateNormal sessionState = iota
	stateRaw
	stateAltRaw
)

// undoEntry records one mode transition that must be reversed on exit.
// Entries replay in reverse push order; seq-only entries write bytes,
// fn entries run arbitrary restoration (termios).
type undoEntry struct {
	key string
	seq string
	fn  func() error
}

// TerminalSession owns the physical terminal's modal state: raw mode,
// alternate screen, mouse tracking, bracketed paste and cursor
// visibility. Every transition records its undo; Close replays the
// undos in reverse on every exit path. Construct exactly one per
// process and defer Close immediately — Close is idempotent and safe to
// run after a panic has started unwinding.
type TerminalSession struct {
	cfg    Config
	out    io.Writer
	fd     int
	writer *TerminalWriter
	caps   Capabilities
	log    *slog.Logger

	mu           sync.Mutex
	state        sessionState
	inline       bool
	inlineHeight int
	undo         []undoEntry
	origTermios  *unix.Termios

	width  int
	height int

	resizeCh chan Size
	winchCh  chan os.Signal
	fatalCh  chan os.Signal
	stopCh   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewTerminalSession probes the terminal and claims the process-wide
// session slot. No modes are changed yet; call Start (or the individual
// transitions) afterwards, and defer Close.
func NewTerminalSession(cfg Config) (*TerminalSession, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !sessionActive.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := cfg.Output
	fd := -1
	width, height := 80, 24
	if out == nil {
		fd = int(os.Stdout.Fd())
		if !term.IsTerminal(fd) {
			sessionActive.Store(false)
			return nil, ErrNotATerminal
		}
		out = os.Stdout
		if w, h, err := terminalSize(fd); err == nil {
			width, height = w, h
		}
	}

	caps := cfg.capabilities(DetectCapabilities(nil))
	s := &TerminalSession{
		cfg:      cfg,
		out:      out,
		fd:       fd,
		writer:   NewTerminalWriter(out),
		caps:     caps,
		log:      logger,
		width:    width,
		height:   height,
		resizeCh: make(chan Size, 1),
		winchCh:  make(chan os.Signal, 1),
		fatalCh:  make(chan os.Signal, 1),
		stopCh:   make(chan struct{}),
	}
	logger.Debug("terminal session created",
		"width", width, "height", height,
		"truecolor", caps.TrueColor, "sync", caps.SyncOutput, "osc8", caps.Hyperlinks)
	return s, nil
}

// terminalSize reads the kernel's window size for the fd.
func terminalSize(fd int) (int, int, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// Writer returns the session's serialized output channel.
func (s *TerminalSession) Writer() *TerminalWriter { return s.writer }

// Caps returns the detected capability set after config overrides.
func (s *TerminalSession) Caps() Capabilities { return s.caps }

// Size returns the last known terminal dimensions.
func (s *TerminalSession) Size() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Size{Width: s.width, Height: s.height}
}

// ResizeChan delivers terminal size changes observed via SIGWINCH.
func (s *TerminalSession) ResizeChan() <-chan Size { return s.resizeCh }

// NewPresenter builds a presenter wired to this session: its writer,
// capability set, dimensions and mode.
func (s *TerminalSession) NewPresenter() *Presenter {
	sz := s.Size()
	height := sz.Height
	if s.cfg.Mode == ModeInline {
		height = s.cfg.InlineHeight
		if height > sz.Height {
			height = sz.Height
		}
	}
	return NewPresenter(PresenterConfig{
		Writer:     s.writer,
		Width:      sz.Width,
		Height:     height,
		Caps:       s.caps,
		Inline:     s.cfg.Mode == ModeInline,
		HideCursor: s.cfg.HideCursor && s.cfg.Mode == ModeInline,
		Logger:     s.log,
	})
}

// Start enters the configured mode: raw+alt for ModeAlt (cursor hidden
// when configured), raw+inline region for ModeInline.
func (s *TerminalSession) Start() error {
	if err := s.EnterRaw(); err != nil {
		return err
	}
	if s.cfg.Mode == ModeInline {
		return s.EnterInline(s.cfg.InlineHeight)
	}
	if err := s.EnterAlt(); err != nil {
		return err
	}
	if s.cfg.HideCursor {
		s.HideCursor()
	}
	if s.caps.BracketedPaste {
		s.EnablePaste()
	}
	return nil
}

// EnterRaw switches the terminal into raw mode and starts the resize
// and fatal-signal watchers.
func (s *TerminalSession) EnterRaw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateNormal {
		return nil
	}
	if s.fd >= 0 {
		termios, err := unix.IoctlGetTermios(s.fd, ioctlGetTermios)
		if err != nil {
			return fmt.Errorf("get termios: %w", err)
		}
		s.origTermios = termios

		raw := *termios
		raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
		raw.Oflag &^= unix.OPOST
		raw.Cflag |= unix.CS8
		raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
		raw.Cc[unix.VMIN] = 1
		raw.Cc[unix.VTIME] = 0
		if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, &raw); err != nil {
			return fmt.Errorf("set raw mode: %w", err)
		}
	}
	s.state = stateRaw
	s.pushUndo(undoEntry{key: "raw", fn: s.restoreTermios})

	signal.Notify(s.winchCh, syscall.SIGWINCH)
	signal.Notify(s.fatalCh, syscall.SIGINT, syscall.SIGTERM)
	go s.watchResize()
	go s.watchFatal()
	s.log.Debug("entered raw mode")
	return nil
}

// LeaveRaw restores cooked mode, leaving the alternate screen or the
// inline region first if needed.
func (s *TerminalSession) LeaveRaw() error {
	s.mu.Lock()
	if s.state == stateAltRaw {
		s.mu.Unlock()
		if err := s.LeaveAlt(); err != nil {
			return err
		}
		s.mu.Lock()
	}
	if s.inline {
		s.mu.Unlock()
		if err := s.LeaveInline(); err != nil {
			return err
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()
	if s.state != stateRaw {
		return nil
	}
	if err := s.restoreTermios(); err != nil {
		return err
	}
	s.dropUndo("raw")
	s.state = stateNormal
	s.log.Debug("left raw mode")
	return nil
}

// EnterAlt switches to the alternate screen and clears it so the front
// buffer's blank assumption holds.
func (s *TerminalSession) EnterAlt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRaw || s.inline {
		return nil
	}
	s.writer.WriteString("\x1b[?1049h" + ansi.EraseEntireScreen + ansi.CursorHomePosition)
	s.pushUndo(undoEntry{key: "alt", seq: "\x1b[?1049l"})
	s.state = stateAltRaw
	s.log.Debug("entered alternate screen")
	return nil
}

// LeaveAlt returns to the primary screen.
func (s *TerminalSession) LeaveAlt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateAltRaw {
		return nil
	}
	s.writer.WriteString("\x1b[?1049l")
	s.dropUndo("alt")
	s.state = stateRaw
	s.log.Debug("left alternate screen")
	return nil
}

// EnterInline reserves a region of the given height below the current
// shell cursor. The cursor parks at the region origin; presents use
// relative movement only, so the region rides along if the terminal
// scrolls.
func (s *TerminalSession) EnterInline(height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRaw || s.inline {
		return nil
	}
	if height < 1 {
		height = 1
	}
	if height > s.height {
		height = s.height
	}
	// Scroll enough lines into existence, then climb back to the top of
	// the region.
	var b strings.Builder
	b.WriteString("\r")
	for i := 0; i < height-1; i++ {
		b.WriteString("\n")
	}
	if height > 1 {
		b.WriteString(ansi.CursorUp(height - 1))
	}
	s.writer.WriteString(b.String())
	s.inline = true
	s.inlineHeight = height
	s.pushUndo(undoEntry{key: "inline", fn: func() error {
		return s.clearInlineRegion(height)
	}})
	s.log.Debug("entered inline region", "height", height)
	return nil
}

// LeaveInline clears the reserved region, parks the cursor at the
// anchor, and releases the inline state so raw mode can be re-entered
// cleanly.
func (s *TerminalSession) LeaveInline() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inline {
		return nil
	}
	err := s.clearInlineRegion(s.inlineHeight)
	s.dropUndo("inline")
	s.inline = false
	s.inlineHeight = 0
	s.log.Debug("left inline region")
	return err
}

// clearInlineRegion erases the reserved rows and leaves the cursor at
// the anchor.
func (s *TerminalSession) clearInlineRegion(height int) error {
	var b strings.Builder
	for i := 0; i < height; i++ {
		b.WriteString("\r")
		b.WriteString("\x1b[2K")
		if i < height-1 {
			b.WriteString("\n")
		}
	}
	if height > 1 {
		b.WriteString(ansi.CursorUp(height - 1))
	}
	b.WriteString("\r" + ansi.ResetStyle)
	_, err := s.writer.WriteString(b.String())
	return err
}

// EnableMouse turns on mouse tracking in the given mode (always with
// SGR encoding). Switching modes disables the previous one first.
func (s *TerminalSession) EnableMouse(mode MouseMode) {
	if mode == MouseOff {
		s.DisableMouse()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.findUndo("mouse"); prev != nil {
		s.writer.WriteString(prev.seq)
		s.dropUndo("mouse")
	}
	s.writer.WriteString(mode.enableSeq())
	s.pushUndo(undoEntry{key: "mouse", seq: mode.disableSeq()})
	s.log.Debug("mouse tracking enabled", "mode", int(mode))
}

// DisableMouse turns off mouse tracking.
func (s *TerminalSession) DisableMouse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.findUndo("mouse"); prev != nil {
		s.writer.WriteString(prev.seq)
		s.dropUndo("mouse")
	}
}

// EnablePaste turns on bracketed paste.
func (s *TerminalSession) EnablePaste() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUndo("paste") != nil {
		return
	}
	s.writer.WriteString("\x1b[?2004h")
	s.pushUndo(undoEntry{key: "paste", seq: "\x1b[?2004l"})
}

// DisablePaste turns off bracketed paste.
func (s *TerminalSession) DisablePaste() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUndo("paste") == nil {
		return
	}
	s.writer.WriteString("\x1b[?2004l")
	s.dropUndo("paste")
}

// HideCursor hides the terminal cursor until ShowCursor or Close.
func (s *TerminalSession) HideCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUndo("cursor") != nil {
		return
	}
	s.writer.WriteString(ansi.HideCursor)
	s.pushUndo(undoEntry{key: "cursor", seq: ansi.ShowCursor})
}

// ShowCursor makes the cursor visible again.
func (s *TerminalSession) ShowCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUndo("cursor") == nil {
		return
	}
	s.writer.WriteString(ansi.ShowCursor)
	s.dropUndo("cursor")
}

// SetCursorShape changes the cursor glyph; the default shape returns on
// Close.
func (s *TerminalSession) SetCursorShape(shape CursorShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.WriteString(shape.sequence())
	if shape == CursorDefault {
		s.dropUndo("shape")
		return
	}
	if s.findUndo("shape") == nil {
		s.pushUndo(undoEntry{key: "shape", seq: CursorDefault.sequence()})
	}
}

func (s *TerminalSession) pushUndo(e undoEntry) {
	s.undo = append(s.undo, e)
}

func (s *TerminalSession) findUndo(key string) *undoEntry {
	for i := range s.undo {
		if s.undo[i].key == key {
			return &s.undo[i]
		}
	}
	return nil
}

func (s *TerminalSession) dropUndo(key string) {
	for i := range s.undo {
		if s.undo[i].key == key {
			s.undo = append(s.undo[:i], s.undo[i+1:]...)
			return
		}
	}
}

func (s *TerminalSession) restoreTermios() error {
	if s.fd < 0 || s.origTermios == nil {
		return nil
	}
	if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, s.origTermios); err != nil {
		return fmt.Errorf("restore termios: %w", err)
	}
	return nil
}

// watchResize forwards SIGWINCH size changes to the resize channel.
func (s *TerminalSession) watchResize() {
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.winchCh:
		}
		if s.fd < 0 {
			continue
		}
		w, h, err := terminalSize(s.fd)
		if err != nil {
			continue
		}
		s.mu.Lock()
		changed := w != s.width || h != s.height
		if changed {
			s.width, s.height = w, h
		}
		s.mu.Unlock()
		if changed {
			select {
			case s.resizeCh <- Size{Width: w, Height: h}:
			default:
			}
		}
	}
}

// watchFatal restores the terminal on SIGINT/SIGTERM. The process is
// about to die without unwinding, so this is the best-effort path: write
// the restore bytes straight to the terminal, then re-deliver the
// signal with its default disposition.
func (s *TerminalSession) watchFatal() {
	var sig os.Signal
	select {
	case <-s.stopCh:
		return
	case sig = <-s.fatalCh:
	}
	s.emergencyRestore()
	signal.Reset(sig.(syscall.Signal))
	_ = syscall.Kill(syscall.Getpid(), sig.(syscall.Signal))
}

// emergencyRestore bypasses the serialized writer: it may be mid-frame
// or wedged, and partial SGR garbage beats a broken shell.
func (s *TerminalSession) emergencyRestore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	b.WriteString(ansi.ResetStyle)
	for i := len(s.undo) - 1; i >= 0; i-- {
		if s.undo[i].seq != "" {
			b.WriteString(s.undo[i].seq)
		}
	}
	b.WriteString(ansi.ShowCursor)
	s.out.Write([]byte(b.String()))
	s.restoreTermios()
}

// Close restores every set mode in reverse order and releases the
// process session slot. Idempotent; safe on all exit paths including
// deferred execution during a panic.
func (s *TerminalSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		signal.Stop(s.winchCh)
		signal.Stop(s.fatalCh)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.writer.WriteString(ansi.ResetStyle)
		for i := len(s.undo) - 1; i >= 0; i-- {
			e := s.undo[i]
			if e.seq != "" {
				if _, err := s.writer.WriteString(e.seq); err != nil && s.closeErr == nil {
					s.closeErr = err
				}
			}
			if e.fn != nil {
				if err := e.fn(); err != nil && s.closeErr == nil {
					s.closeErr = err
				}
			}
		}
		s.undo = nil
		s.state = stateNormal
		s.inline = false
		s.inlineHeight = 0
		s.writer.Flush()
		sessionActive.Store(false)
		s.log.Debug("terminal session closed", "err", s.closeErr)
	})
	return s.closeErr
}
