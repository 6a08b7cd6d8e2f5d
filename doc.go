// Package frankentui is the core rendering pipeline of the FrankenTUI
// toolkit: a packed 16-byte cell grid with double buffering and dirty
// spans, a differential engine that reduces grid mutations to minimal
// change runs, a presenter that encodes runs into cost-optimized ANSI
// byte streams, and a terminal session that owns the terminal's modal
// state with guaranteed restoration on every exit path.
//
// Layout engines and widget libraries write cells into a back Buffer;
// a Presenter diffs it against its front buffer and flushes the delta
// through the session's serialized TerminalWriter. The typical shape:
//
//	session, err := frankentui.NewTerminalSession(frankentui.DefaultConfig())
//	if err != nil { ... }
//	defer session.Close()
//	if err := session.Start(); err != nil { ... }
//
//	p := session.NewPresenter()
//	w, h := p.Dims()
//	back := frankentui.NewBuffer(w, h)
//	back.SetGraphemePool(p.Pool())
//
//	back.WriteString(0, 0, "hello", frankentui.DefaultStyle().Bold())
//	if _, err := p.Present(back); err != nil { ... }
package frankentui
