// Package script is the scripting runtime surface (component R): it loads
// and runs user-defined command/hook scripts through an embedded POSIX
// shell interpreter rather than shelling out to the OS, so a script body
// can be sandboxed (path-prefix checks on file access, a blocked-command
// list for escape-prone binaries) and size-bounded before it ever touches
// a real process. Grounded on
// _examples/sacenox-symb/internal/shell's Shell/BlockFunc: same
// interp.Runner/ExecHandlers wiring, generalized from "run one LLM-issued
// shell command" to "load and run one user script module, with a Context
// record injected as environment for the functions it defines".
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	humanize "github.com/dustin/go-humanize"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// MaxScriptSize bounds a single script module's source size; larger scripts
// are rejected before parsing, per spec's "size-bounded scripts".
const MaxScriptSize = 512 * 1024

// Context is the record injected into a script invocation as environment
// variables (TOME_*), giving the script body read access to the editor
// state that triggered it without granting it a live handle into the
// process.
type Context struct {
	// Event is the hook/command name that triggered this invocation
	// (e.g. "buffer.save", "cmd.format").
	Event string
	// Path is the active buffer's file path, if any.
	Path string
	// Language is the active buffer's detected language id.
	Language string
}

func (c Context) env() []string {
	return []string{
		"TOME_EVENT=" + c.Event,
		"TOME_PATH=" + c.Path,
		"TOME_LANGUAGE=" + c.Language,
	}
}

// BlockFunc returns true if the given command args should be blocked.
type BlockFunc func(args []string) bool

// CommandsBlocker returns a BlockFunc that blocks exact command name matches.
func CommandsBlocker(cmds []string) BlockFunc {
	blocked := make(map[string]struct{}, len(cmds))
	for _, c := range cmds {
		blocked[c] = struct{}{}
	}
	return func(args []string) bool {
		if len(args) == 0 {
			return false
		}
		_, ok := blocked[args[0]]
		return ok
	}
}

// BannedCommands is the default set of commands blocked inside a script
// module: shells/interpreters that could re-exec around the sandbox,
// network/download tools, privilege escalation, and system mutation.
var BannedCommands = []string{
	"bash", "sh", "zsh", "fish", "csh", "tcsh", "ksh", "dash",
	"env", "nohup", "xargs", "strace", "ltrace",
	"python", "python3", "python2", "node", "ruby", "perl",
	"php", "lua", "tclsh", "wish",
	"aria2c", "axel", "curl", "curlie", "http-prompt", "httpie",
	"links", "lynx", "nc", "ncat", "scp", "sftp", "ssh",
	"telnet", "w3m", "wget", "xh",
	"doas", "su", "sudo",
	"apk", "apt", "apt-cache", "apt-get", "dnf", "dpkg", "emerge",
	"home-manager", "makepkg", "opkg", "pacman", "paru", "pkg",
	"pkg_add", "pkg_delete", "portage", "rpm", "yay", "yum", "zypper",
	"at", "batch", "chkconfig", "crontab", "fdisk", "mkfs", "mount",
	"parted", "service", "systemctl", "umount",
	"firewall-cmd", "ifconfig", "ip", "iptables", "netstat", "pfctl",
	"route", "ufw",
}

// DefaultBlockFuncs returns the standard set of block functions applied to
// every script module.
func DefaultBlockFuncs() []BlockFunc {
	return []BlockFunc{CommandsBlocker(BannedCommands)}
}

// Module is a loaded, parsed script body ready to run. Loading is separate
// from running so the size bound and parse error surface before any
// interpreter state is built.
type Module struct {
	name   string
	file   *syntax.File
	source string
}

// Load parses a script module's source, rejecting it outright if it
// exceeds MaxScriptSize.
func Load(name, source string) (*Module, error) {
	if len(source) > MaxScriptSize {
		return nil, fmt.Errorf("script %q exceeds %s (got %s)",
			name, humanize.Bytes(MaxScriptSize), humanize.Bytes(uint64(len(source))))
	}
	file, err := syntax.NewParser().Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("could not parse script %q: %w", name, err)
	}
	return &Module{name: name, file: file, source: source}, nil
}

// Runtime is the sandboxed module loader and executor: one Runtime per
// project root, anchoring every script's cwd to that root and persisting
// cwd/env across successive Run calls the way a real shell session would.
type Runtime struct {
	mu         sync.Mutex
	root       string
	cwd        string
	env        []string
	blockFuncs []BlockFunc
}

// NewRuntime creates a Runtime anchored at root with the given block
// functions (DefaultBlockFuncs() if nil).
func NewRuntime(root string, blockers []BlockFunc) *Runtime {
	if root == "" {
		root, _ = os.Getwd()
	}
	if blockers == nil {
		blockers = DefaultBlockFuncs()
	}
	return &Runtime{
		root:       root,
		cwd:        root,
		env:        os.Environ(),
		blockFuncs: blockers,
	}
}

// Dir returns the runtime's current working directory.
func (rt *Runtime) Dir() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.cwd
}

// Run executes mod with ctx injected as environment, returning stdout,
// stderr, and any error.
func (rt *Runtime) Run(ctx context.Context, mod *Module, sctx Context) (string, string, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var stdout, stderr bytes.Buffer
	err := rt.runCommon(ctx, mod, sctx, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// RunStream executes mod, streaming output to the provided writers.
func (rt *Runtime) RunStream(ctx context.Context, mod *Module, sctx Context, stdout, stderr io.Writer) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	return rt.runCommon(ctx, mod, sctx, stdout, stderr)
}

func (rt *Runtime) runCommon(ctx context.Context, mod *Module, sctx Context, stdout, stderr io.Writer) (err error) {
	var runner *interp.Runner
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script %q panicked: %v", mod.name, r)
		}
		if runner != nil {
			rt.updateFromRunner(runner, stderr)
		}
	}()

	runner, err = rt.newInterp(sctx, stdout, stderr)
	if err != nil {
		return fmt.Errorf("could not create script interpreter: %w", err)
	}

	return runner.Run(ctx, mod.file)
}

func (rt *Runtime) newInterp(sctx Context, stdout, stderr io.Writer) (*interp.Runner, error) {
	env := append(append([]string{}, rt.env...), sctx.env()...)
	return interp.New(
		interp.StdIO(nil, stdout, stderr),
		interp.Interactive(false),
		interp.Env(expand.ListEnviron(env...)),
		interp.Dir(rt.cwd),
		interp.ExecHandlers(rt.blockHandler()),
	)
}

func (rt *Runtime) blockHandler() func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return next(ctx, args)
			}
			for _, bf := range rt.blockFuncs {
				if bf(args) {
					return fmt.Errorf("command blocked: %q", args[0])
				}
			}
			return next(ctx, args)
		}
	}
}

// updateFromRunner persists cwd and exported env vars after execution. If
// the runner's cwd escaped the project root, it is clamped back and a
// warning is written to stderr.
func (rt *Runtime) updateFromRunner(runner *interp.Runner, stderr io.Writer) {
	dir := runner.Dir
	if !isSubdir(dir, rt.root) {
		fmt.Fprintf(stderr, "[cd rejected: script is anchored to %s]\n", rt.root)
		dir = rt.root
	}
	rt.cwd = dir
	rt.env = rt.env[:0]
	runner.Env.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported {
			rt.env = append(rt.env, name+"="+vr.Str)
		}
		return true
	})
}

func isSubdir(dir, root string) bool {
	return dir == root || strings.HasPrefix(dir, root+string(os.PathSeparator))
}

// ExitCode extracts the exit code from an interpreter error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr interp.ExitStatus
	if errors.As(err, &exitErr) {
		return int(exitErr)
	}
	return 1
}
