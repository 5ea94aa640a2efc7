// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for the watcher's callback goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunWatch_RebuildsOnChange(t *testing.T) {
	t.Parallel()

	p := testutil.NewProject(t, "Ns", "Pkg", "1.0.0")
	cfg := loadFixture(t, p)
	path := filepath.Join(p.Dir, "modcrate.toml")

	var stdout, stderr syncBuffer
	var reloads atomic.Int32
	reload := func(context.Context) (*config.Config, error) {
		reloads.Add(1)
		cfg, err := config.LoadProject(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(config.Defaults(), config.MergeOverrideIfUnset)
		return cfg, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runWatchWithDebounce(ctx, buildParams{stdout: &stdout, stderr: &stderr, cfg: cfg}, reload, 50*time.Millisecond)
	}()

	builds := func() int { return strings.Count(stdout.String(), "Built") }
	waitFor(t, "initial build", func() bool { return strings.Contains(stdout.String(), "Watching") })
	if builds() != 1 {
		t.Fatalf("initial builds = %d, want 1", builds())
	}

	testutil.MustWriteFile(t, filepath.Join(p.Dir, "README.md"), []byte("# Pkg v2\n"))
	waitFor(t, "rebuild", func() bool { return builds() >= 2 })

	// Writing the artifact must not trigger another round.
	time.Sleep(300 * time.Millisecond)
	if got := builds(); got != 2 {
		t.Errorf("builds = %d, want 2 (output dir retriggered the watcher?)\n%s", got, stdout.String())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("runWatch() error = %v", err)
	}
	if reloads.Load() == 0 {
		t.Error("configuration was not reloaded before rebuilding")
	}
}

func TestOutputIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outDir string
		want   []string
	}{
		{outDir: "./build", want: []string{"build", "build/**"}},
		{outDir: "out/zips", want: []string{"out/zips", "out/zips/**"}},
		{outDir: "../elsewhere", want: nil},
		{outDir: ".", want: nil},
	}
	for _, tt := range tests {
		cfg := &config.Config{ProjectDir: filepath.Join(t.TempDir(), "proj"), Build: config.BuildSection{OutDir: tt.outDir}}
		if got := outputIgnores(cfg); !slices.Equal(got, tt.want) {
			t.Errorf("outputIgnores(%q) = %v, want %v", tt.outDir, got, tt.want)
		}
	}
}
