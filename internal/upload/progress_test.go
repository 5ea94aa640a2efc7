// SPDX-License-Identifier: MPL-2.0

package upload

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingReporter struct {
	mu       sync.Mutex
	reports  int
	finished bool
	lastErr  error
	last     [2]int
}

func (r *recordingReporter) Report(completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports++
	r.last = [2]int{completed, total}
}

func (r *recordingReporter) Finish(completed, total int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	r.lastErr = err
	r.last = [2]int{completed, total}
}

func TestMonitor_WaitsForAll(t *testing.T) {
	t.Parallel()
	tasks := []*task{{}, {}, {}}
	ops := []Operation{tasks[0], tasks[1], tasks[2]}

	go func() {
		for _, tk := range tasks {
			time.Sleep(5 * time.Millisecond)
			tk.finish(nil)
		}
	}()

	rep := &recordingReporter{}
	err := Monitor{Interval: time.Millisecond, Reporter: rep}.Wait(context.Background(), ops)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !rep.finished || rep.last != [2]int{3, 3} || rep.lastErr != nil {
		t.Errorf("reporter = %+v", rep)
	}
}

func TestMonitor_FailsFastWithoutStragglers(t *testing.T) {
	t.Parallel()
	boom := errors.New("part 2 failed")
	stuck := &task{}
	failed := &task{}
	failed.finish(boom)

	rep := &recordingReporter{}
	done := make(chan error, 1)
	go func() {
		done <- Monitor{Interval: time.Millisecond, Reporter: rep}.Wait(context.Background(), []Operation{stuck, failed})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("Wait() error = %v, want %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() blocked on an unfinished operation after a failure")
	}
	if !errors.Is(rep.lastErr, boom) {
		t.Errorf("reporter finish error = %v", rep.lastErr)
	}
}

func TestMonitor_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Monitor{Interval: time.Millisecond}.Wait(ctx, []Operation{&task{}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTask_ErrHiddenUntilDone(t *testing.T) {
	t.Parallel()
	tk := &task{}
	if tk.Done() || tk.Err() != nil {
		t.Fatal("new task should be pending without error")
	}
	tk.finish(errors.New("x"))
	if !tk.Done() || tk.Err() == nil {
		t.Fatal("finished task should expose its error")
	}
}

func TestTerminalReporter_NonTerminalEmitsLineOnIncrease(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, "Uploading")
	if r.inPlace {
		t.Fatal("bytes.Buffer must not be treated as a terminal")
	}

	for _, c := range []int{0, 0, 1, 1, 1, 2} {
		r.Report(c, 3)
	}
	r.Finish(3, 3, nil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"0/3", "1/3", "2/3", "3/3"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
	if strings.Contains(buf.String(), "\r") {
		t.Error("non-terminal output must not contain carriage returns")
	}
}

// cursorlessWriter rejects cursor control sequences.
type cursorlessWriter struct {
	bytes.Buffer
}

func (w *cursorlessWriter) Write(p []byte) (int, error) {
	if bytes.HasPrefix(p, []byte(clearLine)) {
		return 0, errors.New("cursor control unsupported")
	}
	return w.Buffer.Write(p)
}

func TestTerminalReporter_FallsBackWhenCursorFails(t *testing.T) {
	t.Parallel()
	w := &cursorlessWriter{}
	r := NewTerminalReporter(w, "Uploading")
	r.inPlace = true

	r.Report(1, 2)
	if r.inPlace {
		t.Fatal("reporter should degrade after a failed cursor write")
	}
	r.Report(1, 2)
	r.Report(2, 2)

	out := w.String()
	if strings.Count(out, "\n") != 2 || !strings.Contains(out, "1/2") || !strings.Contains(out, "2/2") {
		t.Errorf("unexpected fallback output %q", out)
	}
}
