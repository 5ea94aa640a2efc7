// SPDX-License-Identifier: MPL-2.0

package upload

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// DefaultPollInterval is how often Monitor samples its operations.
const DefaultPollInterval = 100 * time.Millisecond

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\x1b[2K"

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type (
	// Operation is an in-flight unit of work observed by a Monitor.
	// Err is only meaningful once Done reports true.
	Operation interface {
		Done() bool
		Err() error
	}

	// Reporter renders progress. Report is called on every poll; Finish
	// once, when the wait ends.
	Reporter interface {
		Report(completed, total int)
		Finish(completed, total int, err error)
	}

	// Monitor polls a fixed set of operations until all complete or one
	// fails. It never blocks the operations themselves.
	Monitor struct {
		Interval time.Duration
		Reporter Reporter
	}

	// NopReporter discards progress.
	NopReporter struct{}

	// TerminalReporter repaints a spinner line in place on terminals and
	// falls back to one line per completed-count increase elsewhere.
	TerminalReporter struct {
		out           io.Writer
		label         string
		style         lipgloss.Style
		inPlace       bool
		painted       bool
		frame         int
		lastCompleted int
	}

	// task is the Operation backing one chunk upload.
	task struct {
		done atomic.Bool
		err  error
	}
)

// Wait blocks until every operation is done, an operation fails, or ctx is
// cancelled. The first failure found is returned at once; operations still
// running are not waited for.
func (m Monitor) Wait(ctx context.Context, ops []Operation) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	var rep Reporter = NopReporter{}
	if m.Reporter != nil {
		rep = m.Reporter
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	total := len(ops)
	for {
		completed := 0
		for _, op := range ops {
			if !op.Done() {
				continue
			}
			if err := op.Err(); err != nil {
				rep.Finish(completed, total, err)
				return err
			}
			completed++
		}

		if completed == total {
			rep.Finish(completed, total, nil)
			return nil
		}
		rep.Report(completed, total)

		select {
		case <-ctx.Done():
			rep.Finish(completed, total, ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Report implements Reporter.
func (NopReporter) Report(int, int) {}

// Finish implements Reporter.
func (NopReporter) Finish(int, int, error) {}

// NewTerminalReporter creates a reporter writing to out. In-place repainting
// is only attempted when out is a terminal.
func NewTerminalReporter(out io.Writer, label string) *TerminalReporter {
	inPlace := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		inPlace = term.IsTerminal(int(f.Fd()))
	}
	return &TerminalReporter{
		out:           out,
		label:         label,
		style:         lipgloss.NewStyle().Bold(true),
		inPlace:       inPlace,
		lastCompleted: -1,
	}
}

// Report implements Reporter.
func (r *TerminalReporter) Report(completed, total int) {
	if r.inPlace {
		frame := spinnerFrames[r.frame%len(spinnerFrames)]
		r.frame++
		if _, err := fmt.Fprintf(r.out, "%s%s %s %s", clearLine, frame, r.label, r.count(completed, total)); err == nil {
			r.painted = true
			return
		}
		// Cursor control failed; degrade to append-only lines.
		r.inPlace = false
		r.painted = false
	}
	r.line(completed, total)
}

// Finish implements Reporter.
func (r *TerminalReporter) Finish(completed, total int, err error) {
	if r.painted {
		_, _ = fmt.Fprint(r.out, clearLine) //nolint:errcheck // Best-effort terminal cleanup.
		r.painted = false
	}
	status := "done"
	if err != nil {
		status = "failed"
	}
	_, _ = fmt.Fprintf(r.out, "%s %s %s\n", r.label, r.count(completed, total), status) //nolint:errcheck // Best-effort progress output.
}

// line emits one progress line when completed has grown since the last one.
func (r *TerminalReporter) line(completed, total int) {
	if completed <= r.lastCompleted {
		return
	}
	r.lastCompleted = completed
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.label, r.count(completed, total)) //nolint:errcheck // Best-effort progress output.
}

func (r *TerminalReporter) count(completed, total int) string {
	return r.style.Render(fmt.Sprintf("%d/%d", completed, total))
}

// finish records the outcome. err must be written before done so a reader
// that observes Done also observes Err.
func (t *task) finish(err error) {
	t.err = err
	t.done.Store(true)
}

// Done implements Operation.
func (t *task) Done() bool { return t.done.Load() }

// Err implements Operation.
func (t *task) Err() error {
	if !t.done.Load() {
		return nil
	}
	return t.err
}
