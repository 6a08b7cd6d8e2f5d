package frankentui

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalWriter(t *testing.T) {
	t.Run("ConcurrentWritersNeverInterleave", func(t *testing.T) {
		var out bytes.Buffer
		w := NewTerminalWriter(&out)

		const writers = 8
		const perWriter = 200
		var wg sync.WaitGroup
		for g := 0; g < writers; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for j := 0; j < perWriter; j++ {
					payload := fmt.Sprintf("\x1b[3%dm<w%d:%d>\x1b[0m", g%8, g, j)
					_, err := w.WriteString(payload)
					assert.NoError(t, err)
				}
			}(g)
		}
		wg.Wait()

		s := out.String()
		total := 0
		for g := 0; g < writers; g++ {
			for j := 0; j < perWriter; j++ {
				payload := fmt.Sprintf("\x1b[3%dm<w%d:%d>\x1b[0m", g%8, g, j)
				require.Equal(t, 1, strings.Count(s, payload),
					"payload torn or duplicated: %s", payload)
				total += len(payload)
			}
		}
		require.Equal(t, total, len(s), "stream contains bytes outside whole payloads")
	})

	t.Run("FrameIsOneWrite", func(t *testing.T) {
		rec := &writeRecorder{}
		w := NewTerminalWriter(rec)
		frame := []byte("\x1b[1;1HAB\x1b[2;1HCD")
		require.NoError(t, w.WriteFrame(frame))
		require.Len(t, rec.writes, 1)
		assert.Equal(t, string(frame), rec.writes[0])
	})

	t.Run("DiagnosticsFlushBeforeNextWrite", func(t *testing.T) {
		rec := &writeRecorder{}
		w := NewTerminalWriter(rec)
		w.Diagnostic("span cap exceeded on row %d", 7)
		require.NoError(t, w.WriteFrame([]byte("FRAME")))

		require.Len(t, rec.writes, 2)
		assert.Contains(t, rec.writes[0], "frankentui: span cap exceeded on row 7")
		assert.Equal(t, "FRAME", rec.writes[1])
	})

	t.Run("DiagnosticIsOutOfBand", func(t *testing.T) {
		rec := &writeRecorder{}
		w := NewTerminalWriter(rec)
		w.Diagnostic("queued")
		assert.Empty(t, rec.writes, "diagnostic must not write directly")
		w.Flush()
		require.Len(t, rec.writes, 1)
	})
}

type writeRecorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *writeRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, string(p))
	return len(p), nil
}
