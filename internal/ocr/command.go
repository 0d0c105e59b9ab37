package ocr

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Command is a launchable form of the EasyOCR CLI. Prefix holds arguments
// that must precede the tool's own flags, e.g. "-m easyocr.cli" when the tool
// is only reachable as a Python module.
type Command struct {
	Program string   `json:"program"`
	Prefix  []string `json:"prefix,omitempty"`
}

// Argv returns the full argument vector for a recognition run
func (c Command) Argv(s Settings, image string) []string {
	argv := make([]string, 0, len(c.Prefix)+48)
	argv = append(argv, c.Prefix...)
	return append(argv, BuildArgs(s, image)...)
}

func (c Command) String() string {
	if len(c.Prefix) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Prefix, " ")
}

// ProbeFunc runs program with args and reports whether it exited with status 0
type ProbeFunc func(ctx context.Context, program string, args ...string) bool

// Resolver determines how to invoke the tool. Nothing is cached: the tool may
// be installed or removed between two calls.
type Resolver struct {
	// BareCommand is the script name looked up on the search path
	BareCommand string

	// Interpreters are tried in order with ModulePrefix
	Interpreters []string

	// ModulePrefix launches the tool as a module of an interpreter
	ModulePrefix []string

	// HelpFlag is appended to every probe
	HelpFlag string

	// Timeout bounds a single probe; zero disables the bound
	Timeout time.Duration

	// Probe runs a candidate; defaults to ExecProbe
	Probe ProbeFunc

	Logger *slog.Logger
}

// DefaultResolver returns a resolver for a pip-installed EasyOCR
func DefaultResolver() *Resolver {
	return &Resolver{
		BareCommand:  "easyocr",
		Interpreters: []string{"python3", "python"},
		ModulePrefix: []string{"-m", "easyocr.cli"},
		HelpFlag:     "--help",
		Timeout:      15 * time.Second,
		Probe:        ExecProbe,
	}
}

// Resolve returns the first candidate whose probe succeeds. An explicit path
// is tried directly and then as an interpreter with the module prefix; when
// both fail resolution fails without falling back to a system install.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (*Command, bool) {
	for _, candidate := range r.candidates(explicit) {
		if r.probe(ctx, candidate) {
			r.logger().Debug("resolved easyocr command", "command", candidate.String())
			return &candidate, true
		}
	}

	r.logger().Debug("easyocr command not found", "tried", r.Tried(explicit))
	return nil, false
}

// Tried describes the candidates Resolve attempts, for guidance messages
func (r *Resolver) Tried(explicit string) string {
	var names []string
	for _, c := range r.candidates(explicit) {
		names = append(names, "'"+c.String()+"'")
	}
	return strings.Join(names, " and ")
}

func (r *Resolver) candidates(explicit string) []Command {
	if explicit != "" {
		return []Command{
			{Program: explicit},
			{Program: explicit, Prefix: r.ModulePrefix},
		}
	}

	candidates := []Command{{Program: r.BareCommand}}
	for _, interpreter := range r.Interpreters {
		candidates = append(candidates, Command{Program: interpreter, Prefix: r.ModulePrefix})
	}
	return candidates
}

func (r *Resolver) probe(ctx context.Context, c Command) bool {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	probe := r.Probe
	if probe == nil {
		probe = ExecProbe
	}

	args := append(append([]string(nil), c.Prefix...), r.HelpFlag)
	return probe(ctx, c.Program, args...)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// ExecProbe starts program with both output streams discarded and reports
// whether it exited with status 0. A cancelled context kills the process and
// counts as failure.
func ExecProbe(ctx context.Context, program string, args ...string) bool {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	hideWindow(cmd)

	if err := cmd.Run(); err != nil {
		return false
	}
	return ctx.Err() == nil
}
