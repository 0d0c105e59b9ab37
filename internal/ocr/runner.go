package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var _ Engine = (*Runner)(nil)

// DefaultWaitDelay bounds how long output is drained once the process has
// exited or been killed
const DefaultWaitDelay = 2 * time.Second

// Runner drives the EasyOCR CLI as a subprocess. It implements Engine.
type Runner struct {
	Resolver *Resolver

	// Executable is probed by Available; Run uses Settings.Executable
	Executable string

	// WaitDelay overrides DefaultWaitDelay
	WaitDelay time.Duration

	Logger *slog.Logger
}

// NewRunner creates a runner using the default resolver
func NewRunner() *Runner {
	return &Runner{Resolver: DefaultResolver()}
}

// Name identifies the engine
func (r *Runner) Name() string {
	return "easyocr"
}

// Available probes for a launchable command
func (r *Runner) Available(ctx context.Context) bool {
	_, ok := r.resolver().Resolve(ctx, r.Executable)
	return ok
}

// Recognize implements Engine
func (r *Runner) Recognize(ctx context.Context, image string, settings Settings) Outcome {
	return r.Run(ctx, image, settings)
}

// Run resolves the command, runs it to completion and parses its output.
// Every failure is folded into the returned Outcome.
func (r *Runner) Run(ctx context.Context, image string, settings Settings) Outcome {
	log := r.logger()

	cmd, ok := r.resolver().Resolve(ctx, settings.Executable)
	if !ok {
		return Outcome{Err: newResolutionError(r.resolver().Tried(settings.Executable))}
	}

	argv := cmd.Argv(settings, image)

	proc := exec.CommandContext(ctx, cmd.Program, argv...)
	proc.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	proc.WaitDelay = r.waitDelay()
	hideWindow(proc)

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	log.Debug("running easyocr", "command", cmd.String(), "image", image)
	start := time.Now()

	err := proc.Run()
	duration := time.Since(start)

	out := strings.ToValidUTF8(stdout.String(), "�")
	errOut := strings.ToValidUTF8(stderr.String(), "�")

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Debug("easyocr run cancelled", "command", cmd.String(), "error", ctxErr)
		return Outcome{Err: NewCancelledError(ctxErr)}
	}

	// the tool exited 0 but a child it left behind still holds the output
	// pipes; what was written before exit is complete
	if errors.Is(err, exec.ErrWaitDelay) {
		log.Warn("easyocr output left open after exit", "command", cmd.String(), "wait_delay", proc.WaitDelay)
		err = nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Warn("easyocr exited with error", "command", cmd.String(), "exit_code", exitErr.ExitCode(), "duration", duration)
			return Outcome{Err: newExitError(cmd.Program, exitErr.ExitCode(), errOut, out)}
		}

		log.Error("failed to start easyocr", "command", cmd.String(), "error", err)
		return Outcome{Err: newSpawnError(cmd.Program, err)}
	}

	records := ParseOutput(out)
	log.Info("easyocr finished", "records", len(records), "duration", duration)

	if len(records) == 0 {
		return Outcome{Err: newNoTextError(cmd.Program)}
	}
	return Outcome{Records: records}
}

func (r *Runner) resolver() *Resolver {
	if r.Resolver == nil {
		return DefaultResolver()
	}
	return r.Resolver
}

func (r *Runner) waitDelay() time.Duration {
	if r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return DefaultWaitDelay
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
