// Package hooks runs user scripts at named hook points.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
)

// Failure modes decide what a failing synchronous hook does to the caller.
const (
	FailureAbort  = "abort"
	FailureWarn   = "warn"
	FailureIgnore = "ignore"
)

// waitDelay bounds how long a killed hook may keep its output pipes open.
const waitDelay = time.Second

// ErrHookFailed wraps the error of a hook that failed in abort mode.
var ErrHookFailed = errors.New("hook failed")

// Options configure a Runner.
type Options struct {
	Dir          string
	Enabled      bool
	FailureMode  string
	Async        bool
	AsyncTimeout time.Duration
	MaxPending   int
	// Output receives the combined output of hook scripts.
	Output io.Writer
}

// OptionsFromConfig reads hook settings from the loaded configuration.
func OptionsFromConfig() Options {
	return Options{
		Dir:          config.Get("hooks_dir", ""),
		Enabled:      config.GetBool("hooks_enabled", true),
		FailureMode:  config.Get("hooks_failure_mode", FailureWarn),
		Async:        config.GetBool("hooks_async", true),
		AsyncTimeout: config.GetDuration("hooks_async_timeout", 30*time.Second),
		MaxPending:   config.GetInt("max_hooks", 10),
	}
}

// Runner executes the executable files in Dir/<hookPoint>/ in name order.
type Runner struct {
	opts Options
	log  logging.Logger

	mu      sync.Mutex
	pending int
	wg      sync.WaitGroup
}

// NewRunner creates a runner.
func NewRunner(opts Options, log logging.Logger) *Runner {
	if opts.FailureMode == "" {
		opts.FailureMode = FailureWarn
	}
	if opts.AsyncTimeout <= 0 {
		opts.AsyncTimeout = 30 * time.Second
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = 10
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if log == nil {
		log = logging.GetGlobal()
	}
	return &Runner{opts: opts, log: log.With("component", "hooks")}
}

// Init creates the hooks directory.
func (r *Runner) Init() error {
	if r.opts.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(r.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create hooks directory %s: %w", r.opts.Dir, err)
	}
	return nil
}

// enabled honours hooks_enabled and the per-point hooks_enabled_<point> key.
func (r *Runner) enabled(hookPoint string) bool {
	if !r.opts.Enabled {
		return false
	}
	key := "hooks_enabled_" + strings.ReplaceAll(hookPoint, "-", "_")
	return config.GetBool(key, true)
}

// Scripts returns the executable scripts registered for hookPoint.
func (r *Runner) Scripts(hookPoint string) []string {
	if r.opts.Dir == "" {
		return nil
	}
	dir := filepath.Join(r.opts.Dir, hookPoint)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || info.Mode()&0111 == 0 {
			continue
		}
		scripts = append(scripts, path)
	}
	sort.Strings(scripts)
	return scripts
}

// Run executes the hooks for hookPoint with env appended to the process
// environment. Only synchronous hooks in abort mode return an error.
func (r *Runner) Run(ctx context.Context, hookPoint string, env map[string]string) error {
	if !r.enabled(hookPoint) {
		return nil
	}
	scripts := r.Scripts(hookPoint)
	if len(scripts) == 0 {
		return nil
	}
	environ := r.environ(hookPoint, env)
	r.log.Debug("running hooks", "hook_point", hookPoint, "scripts", len(scripts))

	for _, script := range scripts {
		if r.opts.Async {
			r.startAsync(script, environ)
			continue
		}
		if err := r.runSync(ctx, script, environ); err != nil && r.opts.FailureMode == FailureAbort {
			return err
		}
	}
	return nil
}

func (r *Runner) environ(hookPoint string, env map[string]string) []string {
	out := os.Environ()
	out = append(out,
		"HOOK_POINT="+hookPoint,
		"HOOK_TIMESTAMP="+time.Now().Format(time.RFC3339),
		config.EnvPrefix+"HOOKS_FAILURE_MODE="+r.opts.FailureMode,
	)
	if exe, err := os.Executable(); err == nil {
		out = append(out, config.EnvPrefix+"BINARY="+exe)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func (r *Runner) runSync(ctx context.Context, script string, environ []string) error {
	name := filepath.Base(script)
	start := time.Now()
	cmd := exec.CommandContext(ctx, script)
	cmd.Env = environ
	cmd.WaitDelay = waitDelay
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		r.opts.Output.Write(output)
	}
	if err == nil {
		r.log.Debug("hook completed", "hook", name, "duration", time.Since(start))
		return nil
	}
	switch r.opts.FailureMode {
	case FailureAbort:
		return fmt.Errorf("%w: %s: %v", ErrHookFailed, name, err)
	case FailureWarn:
		r.log.Warn("hook failed", "hook", name, "error", err)
		fmt.Fprintf(r.opts.Output, "warning: hook %s failed: %v\n", name, err)
	}
	return nil
}

// startAsync runs script in the background unless MaxPending hooks are
// already running, in which case it is skipped.
func (r *Runner) startAsync(script string, environ []string) {
	name := filepath.Base(script)
	r.mu.Lock()
	if r.pending >= r.opts.MaxPending {
		r.mu.Unlock()
		r.log.Warn("too many async hooks pending, skipping", "hook", name, "max", r.opts.MaxPending)
		return
	}
	r.pending++
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.pending--
			r.mu.Unlock()
			r.wg.Done()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.opts.AsyncTimeout)
		defer cancel()
		start := time.Now()
		cmd := exec.CommandContext(ctx, script)
		cmd.Env = environ
		cmd.WaitDelay = waitDelay
		cmd.Stdout = r.opts.Output
		cmd.Stderr = r.opts.Output
		err := cmd.Run()
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			r.log.Warn("async hook timed out", "hook", name, "timeout", r.opts.AsyncTimeout)
		case err != nil && r.opts.FailureMode != FailureIgnore:
			r.log.Warn("async hook failed", "hook", name, "error", err)
		case err == nil:
			r.log.Debug("async hook completed", "hook", name, "duration", time.Since(start))
		}
	}()
}

// Pending returns the number of async hooks still running.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Wait blocks until every async hook has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
