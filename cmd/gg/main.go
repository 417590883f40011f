package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/gitgraph/internal/backend"
	"github.com/vanderheijden86/gitgraph/internal/reviewdb"
	"github.com/vanderheijden86/gitgraph/internal/watch"
	"github.com/vanderheijden86/gitgraph/pkg/config"
	"github.com/vanderheijden86/gitgraph/pkg/store"
	"github.com/vanderheijden86/gitgraph/pkg/ui"
	"github.com/vanderheijden86/gitgraph/pkg/version"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	repoFlag := flag.String("repo", "", "Open this repository instead of the last active one")
	pollFlag := flag.Bool("poll", false, "Poll for repository changes instead of using filesystem notifications")
	flag.Parse()

	if *help {
		fmt.Println("Usage: gg [options]")
		fmt.Println("\nA terminal commit-graph viewer.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("gg %s\n", version.Version)
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "gg requires an interactive terminal")
		os.Exit(1)
	}

	if *repoFlag != "" {
		abs, err := filepath.Abs(*repoFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --repo path: %v\n", err)
			os.Exit(1)
		}
		os.Setenv("GG_REPO", abs)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not load configuration: %v\n", err)
		os.Exit(1)
	}

	stateDir := config.StateDir()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Could not create state directory: %v\n", err)
		os.Exit(1)
	}

	persister := store.NewPersister(stateDir)
	state := store.NewViewState(cfg)
	state.Restore(persister.Load())

	// Review state is best-effort durable; a broken database degrades to
	// snapshot-only persistence.
	reviews, err := reviewdb.Open(stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: review database unavailable: %v\n", err)
		reviews = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var program *tea.Program
	service := backend.New(cfg, reviews, func(msg any) {
		program.Send(msg)
	})

	program = tea.NewProgram(
		ui.New(state, service, persister),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		if err := service.Run(ctx); err != nil && ctx.Err() == nil {
			program.Send(tea.Quit())
		}
	}()

	if watcher := startWatcher(state, cfg, *pollFlag, program); watcher != nil {
		defer watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cancel()
	if err := persister.Save(state.Snapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save view state: %v\n", err)
	}
	if reviews != nil {
		reviews.Close()
	}
}

// startWatcher wires repository change notifications into the UI as refresh
// messages. The watched repository is resolved at startup (snapshot, then
// explicit --repo, then first configured, then the working directory); a
// watcher failure only disables auto-refresh.
func startWatcher(state *store.ViewState, cfg config.Config, forcePoll bool, program *tea.Program) *watch.Watcher {
	repo := state.CurrentRepo
	if env := os.Getenv("GG_REPO"); env != "" {
		repo = env
	}
	if repo == "" {
		if paths := cfg.RepositoryPaths(); len(paths) > 0 {
			repo = paths[0]
		} else if wd, err := os.Getwd(); err == nil {
			repo = wd
		}
	}
	if repo == "" {
		return nil
	}

	watcher, err := watch.New(repo,
		watch.WithForcePoll(forcePoll),
		watch.WithOnChange(func() {
			program.Send(ui.RefreshMsg{})
		}),
	)
	if err != nil {
		return nil
	}
	if err := watcher.Start(); err != nil {
		return nil
	}
	return watcher
}
