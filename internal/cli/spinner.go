package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/pradreader/pkg/observability"
)

// Spinner shows the current pipeline stage on stderr while a read runs,
// so stdout stays clean for JSON output. The message changes as the
// pipeline moves from ingest to export.
type Spinner struct {
	w       io.Writer
	message string
	width   int // widest message drawn, for clearing
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string
	mu      sync.Mutex
}

func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that stops when ctx is cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       os.Stderr,
		message: message,
		width:   len(message),
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// SetMessage replaces the text drawn next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.width = max(s.width, len(message))
}

// Message returns the text currently drawn.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s %-*s", styleIconSpinner.Render(frame), s.width, StyleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Stop stops the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner stopped because its context ended.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

func ingestMessage(format, path string) string {
	if format == "" {
		return fmt.Sprintf("Reading %s...", filepath.Base(path))
	}
	return fmt.Sprintf("Reading %s file %s...", format, filepath.Base(path))
}

func exportMessage(kind, path string) string {
	return fmt.Sprintf("Writing %s %s...", kind, filepath.Base(path))
}

// stageHooks moves the spinner through the pipeline stages and forwards
// every event to next.
type stageHooks struct {
	spinner *Spinner
	next    observability.PipelineHooks
}

func (h stageHooks) OnIngestStart(ctx context.Context, format, path string) {
	h.spinner.SetMessage(ingestMessage(format, path))
	h.next.OnIngestStart(ctx, format, path)
}

func (h stageHooks) OnIngestComplete(ctx context.Context, format, path string, rows, cols int, d time.Duration, err error) {
	if err == nil {
		h.spinner.SetMessage(fmt.Sprintf("Completing %dx%d %s record...", rows, cols, format))
	}
	h.next.OnIngestComplete(ctx, format, path, rows, cols, d, err)
}

func (h stageHooks) OnExportStart(ctx context.Context, kind, path string) {
	h.spinner.SetMessage(exportMessage(kind, path))
	h.next.OnExportStart(ctx, kind, path)
}

func (h stageHooks) OnExportComplete(ctx context.Context, kind, path string, d time.Duration, err error) {
	h.next.OnExportComplete(ctx, kind, path, d, err)
}

// trackStages routes pipeline events through s until the returned
// function restores the previous hooks.
func trackStages(s *Spinner) (restore func()) {
	prev := observability.Pipeline()
	observability.SetPipelineHooks(stageHooks{spinner: s, next: prev})
	return func() { observability.SetPipelineHooks(prev) }
}
