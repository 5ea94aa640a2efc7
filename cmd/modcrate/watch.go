// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/watch"
)

// reloadFunc re-reads the configuration before each rebuild.
type reloadFunc func(ctx context.Context) (*config.Config, error)

// runWatch builds once, then rebuilds after every burst of changes under the
// project directory until ctx is cancelled. Failed builds are reported and
// watching continues.
func runWatch(ctx context.Context, p buildParams, reload reloadFunc) error {
	return runWatchWithDebounce(ctx, p, reload, watch.DefaultDebounce)
}

func runWatchWithDebounce(ctx context.Context, p buildParams, reload reloadFunc, debounce time.Duration) error {
	build := func(ctx context.Context) {
		if _, err := runBuild(ctx, p); err != nil {
			fmt.Fprintf(p.stderr, "%s %s\n", errorIcon, formatErrorForDisplay(err, false))
		}
	}
	build(ctx)

	w, err := watch.New(watch.Config{
		Dir:      p.cfg.ProjectDir,
		Ignore:   outputIgnores(p.cfg),
		Debounce: debounce,
		Logger:   p.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(p.stdout, "\n%s %d file(s) changed, rebuilding\n", VerboseStyle.Render("»"), len(changed))
			cfg, err := reload(ctx)
			if err != nil {
				fmt.Fprintf(p.stderr, "%s %s\n", errorIcon, formatErrorForDisplay(err, false))
				return nil
			}
			p.cfg = cfg
			build(ctx)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", p.cfg.ProjectDir, err)
	}

	fmt.Fprintf(p.stdout, "%s Watching %s (Ctrl+C to stop)\n", VerboseStyle.Render("»"), CmdStyle.Render(p.cfg.ProjectDir))
	return w.Run(ctx)
}

// outputIgnores keeps the output directory from retriggering builds.
func outputIgnores(cfg *config.Config) []string {
	rel, err := filepath.Rel(cfg.ProjectDir, cfg.ResolvePath(cfg.Build.OutDir))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{rel, rel + "/**"}
}
