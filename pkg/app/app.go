// Package app wires the command line, configuration, player and debug
// console into the dirplayer executable.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zurustar/dirplayer/pkg/cli"
	"github.com/zurustar/dirplayer/pkg/config"
	"github.com/zurustar/dirplayer/pkg/debug"
	"github.com/zurustar/dirplayer/pkg/engine"
	"github.com/zurustar/dirplayer/pkg/logger"
)

// Application runs one movie as the command line asks.
type Application struct {
	config   *cli.Config
	settings *config.Config
	log      *slog.Logger
	player   *engine.Player

	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
}

// New returns an Application bound to the process's standard streams.
func New() *Application {
	return &Application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run executes the command line in args (without the program name).
func (app *Application) Run(ctx context.Context, args []string) error {
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := app.loadSettings(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := app.loadMovie(); err != nil {
		return err
	}

	if dir := app.settings.Export.Dir; dir != "" {
		if err := app.export(dir); err != nil {
			return err
		}
		if app.config.ExportDir != "" {
			return nil
		}
	}

	if app.settings.Debug.Console {
		return app.runConsole(ctx)
	}
	return app.runHeadless(ctx)
}

func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger sends logs to stderr while the console owns stdout.
func (app *Application) initLogger() error {
	w := app.stdout
	if app.config.Console {
		w = app.stderr
	}
	if err := logger.InitLoggerTo(w, app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// loadSettings reads dirplayer.toml (or -config) and lays the command line
// over it.
func (app *Application) loadSettings() error {
	var (
		s   *config.Config
		err error
	)
	if app.config.ConfigPath != "" {
		s, err = config.Load(app.config.ConfigPath)
	} else {
		s, err = config.ForMovie(app.config.MoviePath)
	}
	if err != nil {
		return err
	}
	mergeFlags(s, app.config)
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Path != "" {
		app.log.Info("configuration loaded", "path", s.Path)
	}
	app.settings = s
	return nil
}

func mergeFlags(s *config.Config, c *cli.Config) {
	if c.FPS > 0 {
		s.Player.FPS = c.FPS
	}
	if c.Timeout > 0 {
		s.Player.Timeout.Duration = c.Timeout
	}
	if c.ExportDir != "" {
		s.Export.Dir = c.ExportDir
	}
	s.Debug.Breakpoints = append(s.Debug.Breakpoints, c.Breakpoints...)
	switch {
	case c.Console:
		s.Debug.Console = true
	case c.Headless:
		s.Debug.Console = false
	}
}

func (app *Application) loadMovie() error {
	opts, err := app.settings.PlayerOptions()
	if err != nil {
		return err
	}
	opts = append(opts, engine.WithLogger(app.log))
	app.player = engine.New(opts...)
	if err := app.player.LoadMovie(app.config.MoviePath); err != nil {
		return err
	}
	if n := len(app.player.Breakpoints()); n > 0 {
		app.log.Info("breakpoints set", "count", n)
	}
	return nil
}

func (app *Application) export(dir string) error {
	files, err := app.player.VM().Movie().Export(dir)
	if err != nil {
		return fmt.Errorf("failed to export members: %w", err)
	}
	app.log.Info("members exported", "dir", dir, "files", len(files))
	return nil
}

// runHeadless plays until the movie halts, the timeout passes or ctx ends.
func (app *Application) runHeadless(ctx context.Context) error {
	app.log.Info("playback started", "movie", app.config.MoviePath)
	err := app.player.Run(ctx)
	if errors.Is(err, context.Canceled) {
		app.log.Info("playback interrupted")
		return nil
	}
	return err
}

// runConsole plays in the background while the console reads commands.
// Quitting the console stops playback.
func (app *Application) runConsole(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.player.Run(ctx) }()

	c := debug.NewConsole(app.player, app.stdout)
	err := c.Run(ctx, app.stdin)
	cancel()
	if perr := <-done; perr != nil && !errors.Is(perr, context.Canceled) {
		app.log.Error("playback failed", "error", perr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
