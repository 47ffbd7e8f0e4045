// Command tome is the editor process: it loads configuration, sets up
// file logging, builds a runtime.Runtime, optionally opens a file named on
// the command line, and runs it as a bubbletea Program. Grounded on
// _examples/sacenox-symb/cmd/symb/main.go's bootstrap shape (flags →
// logging → config → model → tea.NewProgram), retargeted from the
// teacher's chat-session CLI to a single-document editor entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"

	"tome.dev/tome/internal/config"
	"tome.dev/tome/internal/grammar"
	"tome.dev/tome/internal/highlight"
	"tome.dev/tome/internal/logging"
	"tome.dev/tome/internal/overlay"
	"tome.dev/tome/internal/registry"
	"tome.dev/tome/internal/runtime"
	"tome.dev/tome/internal/script"
)

// paletteCatalog is the command palette's fixed action list (component N's
// Registry), name/description pairs for actions actions.go already
// registered via its init(); Run is left nil here so RegisterAction only
// builds the catalog entry without re-touching the dispatch table.
var paletteCatalog = []registry.Action{
	{Name: "buffer.save", Desc: "Save the focused buffer"},
	{Name: "undo.undo", Desc: "Undo the last edit"},
	{Name: "undo.redo", Desc: "Redo the last undone edit"},
	{Name: "overlay.open_file_picker", Desc: "Open a file by fuzzy name"},
	{Name: "app.quit", Desc: "Quit tome"},
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "grammar" {
		if err := runGrammarCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	configFlag := flag.String("config", "", "path to config.toml")
	flag.Parse()

	closer, err := logging.Setup("tome", os.Getenv("TOME_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to set up logging: %v\n", err)
	} else {
		defer closer.Close()
	}

	configPath := *configFlag
	if configPath == "" {
		if dataDir, err := config.DataDir(); err == nil {
			candidate := filepath.Join(dataDir, "config.toml")
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
			}
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	rt := runtime.New()
	if theme := cfg.UI.SyntaxThemeOrDefault(); theme != "" {
		rt.Theme = theme
	}
	wireSaveHookScripts(rt, cfg)
	wireRegistry(rt)

	if args := flag.Args(); len(args) > 0 {
		path := args[0]
		content, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
			os.Exit(1)
		}
		rt.OpenFile(path, string(content))
	}

	p := tea.NewProgram(rt)
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("tome exited with error")
		fmt.Fprintf(os.Stderr, "error running tome: %v\n", err)
		os.Exit(1)
	}
}

// wireSaveHookScripts loads every enabled plugin's script file and appends
// a Runtime.SaveHook that runs it with a buffer_saved Context, the binding
// site between component R's sandboxed scripting runtime and the
// buffer.save action's hook point. A plugin whose script fails to load is
// logged and skipped rather than aborting startup.
func wireSaveHookScripts(rt *runtime.Runtime, cfg *config.Config) {
	for name, pc := range cfg.Plugins {
		if !pc.Enabled || pc.Path == "" {
			continue
		}
		src, err := os.ReadFile(pc.Path)
		if err != nil {
			log.Warn().Err(err).Str("plugin", name).Msg("failed to read plugin script")
			continue
		}
		mod, err := script.Load(name, string(src))
		if err != nil {
			log.Warn().Err(err).Str("plugin", name).Msg("failed to load plugin script")
			continue
		}
		sr := script.NewRuntime(filepath.Dir(pc.Path), script.DefaultBlockFuncs())
		rt.SaveHooks = append(rt.SaveHooks, func(path, content string) {
			sctx := script.Context{Event: "buffer_saved", Path: path, Language: highlight.DetectLanguage(path)}
			if _, stderr, err := sr.Run(context.Background(), mod, sctx); err != nil {
				log.Warn().Err(err).Str("plugin", name).Str("stderr", stderr).Msg("save hook script failed")
			}
		})
	}
}

// wireRegistry builds the component N registry that supplies the command
// palette's candidate list and subscribes a HookBufferSaved handler that
// logs each save, giving the registry's hook plane a real in-process
// subscriber alongside SaveHooks' script/plugin-specific one.
func wireRegistry(rt *runtime.Runtime) {
	reg := registry.New()
	for _, a := range paletteCatalog {
		reg.RegisterAction(a)
	}
	reg.Subscribe(registry.HookBufferSaved, func(event registry.HookEvent, payload any) {
		path, _ := payload.(string)
		log.Info().Str("path", path).Msg("buffer saved")
	})
	rt.SaveHooks = append(rt.SaveHooks, func(path, content string) {
		reg.Fire(registry.HookBufferSaved, path)
	})
	rt.PaletteCommands = func() []overlay.Command {
		actions := reg.Actions()
		cmds := make([]overlay.Command, len(actions))
		for i, a := range actions {
			name := a.Name
			cmds[i] = overlay.Command{
				Name: name,
				Desc: a.Desc,
				Run:  func() tea.Cmd { return rt.DispatchAction(name) },
			}
		}
		return cmds
	}
}

// runGrammarCommand implements `tome grammar fetch|build|sync [--only=a,b]`,
// managing the tree-sitter grammar sources under the config dir that sit
// alongside internal/syntax's statically linked Go grammar.
func runGrammarCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tome grammar fetch|build|sync [--only=name,name]")
	}
	action := args[0]

	fs := flag.NewFlagSet("grammar "+action, flag.ExitOnError)
	onlyFlag := fs.String("only", "", "comma-separated grammar names to operate on (default: all)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	var only []string
	if *onlyFlag != "" {
		only = strings.Split(*onlyFlag, ",")
	}

	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	manifestPath := filepath.Join(dataDir, "grammars.toml")
	manifest, err := grammar.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	if len(manifest.Grammars) == 0 {
		manifest = grammar.DefaultManifest()
	}
	mgr := grammar.NewManager(filepath.Join(dataDir, "grammars"), manifest)

	ctx := context.Background()
	switch action {
	case "fetch":
		return mgr.Fetch(ctx, only)
	case "build":
		return mgr.Build(ctx, only)
	case "sync":
		return mgr.Sync(ctx, only)
	case "status":
		for _, s := range mgr.StatusAll() {
			fmt.Printf("%-16s fetched=%v built=%v\n", s.Name, s.Fetched, s.Built)
		}
		return nil
	default:
		return fmt.Errorf("unknown grammar action %q (want fetch, build, sync, or status)", action)
	}
}
