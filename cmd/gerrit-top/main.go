package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/marcin-skalski/gerrit-top/internal/config"
	"github.com/marcin-skalski/gerrit-top/internal/gerrit"
	"github.com/marcin-skalski/gerrit-top/internal/logging"
	"github.com/marcin-skalski/gerrit-top/internal/poller"
	"github.com/marcin-skalski/gerrit-top/internal/tui"
)

var version = "dev"

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 255
	exitInterrupted = 255
)

type CLI struct {
	URL     string           `arg:"" optional:"" name:"gerrit_url" help:"Gerrit REST API base URL, e.g. https://review.example.org/"`
	Config  string           `short:"c" type:"path" help:"Path to YAML config file"`
	NoTUI   bool             `name:"no-tui" help:"Print plain-text frames to stdout instead of the full-screen table"`
	Version kong.VersionFlag `help:"Show version information"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("gerrit-top"),
		kong.Description("Live table of open changes on a Gerrit server."),
		kong.Vars{"version": version},
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	if _, err := parser.Parse(args); err != nil || cli.URL == "" {
		usage(stdout)
		return exitUsage
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	// Auto-detect TUI capability
	enableTUI := !cli.NoTUI && os.Getenv("GERRIT_TOP_TUI") != "0" &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	logOpts := logging.Options{File: cfg.LogFile, Level: cfg.Log.Level}
	if !enableTUI {
		logOpts.Console = stderr
		logOpts.NoColor = !isatty.IsTerminal(os.Stderr.Fd()) || os.Getenv("NO_COLOR") != ""
	}
	logger, err := logging.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(stderr, "setup logger: %v\n", err)
		return exitFailure
	}
	defer logger.Close()

	client, err := gerrit.NewClient(cli.URL, cfg.UserAgent, logger.Logger)
	if err != nil {
		fmt.Fprintf(stdout, "error: %v\n", err)
		usage(stdout)
		return exitUsage
	}
	p := poller.New(client, logger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if enableTUI {
		logger.Info("gerrit-top starting", "url", cli.URL, "interval", cfg.RefreshInterval)
		m := tui.NewModel(ctx, p, cfg.RefreshInterval)
		prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := prog.Run(); err != nil {
			if errors.Is(err, tea.ErrInterrupted) || errors.Is(err, tea.ErrProgramKilled) {
				logger.Info("interrupted")
				return exitInterrupted
			}
			fmt.Fprintf(stderr, "TUI error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	// Headless mode
	logger.Info("gerrit-top starting (headless)", "url", cli.URL, "interval", cfg.RefreshInterval)
	err = p.Run(ctx, cfg.RefreshInterval,
		func() int {
			_, rows := terminalSize()
			return rows
		},
		func(snap tui.Snapshot) {
			cols, rows := terminalSize()
			fmt.Fprintf(stdout, "%s\n\n", strings.Join(tui.Lines(snap, cols, rows), "\n"))
		})
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		return exitInterrupted
	}
	if err != nil {
		logger.Error("poller error", "err", err)
		return exitFailure
	}
	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: gerrit-top <gerrit_url>")
}

// terminalSize falls back to 80x24 when stdout is not a terminal.
func terminalSize() (cols, rows int) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return tui.DefaultWidth, tui.DefaultHeight
	}
	return cols, rows
}
