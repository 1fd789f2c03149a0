// Package cli parses the dirplayer command line.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/dirplayer/pkg/logger"
)

// Environment variables read when the matching flag is absent.
const (
	EnvLogLevel = "DIRPLAYER_LOG_LEVEL"
	EnvTimeout  = "DIRPLAYER_TIMEOUT"
	EnvHeadless = "DIRPLAYER_HEADLESS"
)

// Config holds the settings parsed from the command line. Zero values mean
// "not given" so that dirplayer.toml can fill them in.
type Config struct {
	MoviePath   string
	ConfigPath  string
	ExportDir   string
	Breakpoints []string
	FPS         int
	Timeout     time.Duration
	LogLevel    string
	Console     bool
	Headless    bool
	ShowHelp    bool
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// ParseArgs parses args (without the program name). Flags may appear
// before or after the movie path.
func ParseArgs(args []string) (*Config, error) {
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("dirplayer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}
	var timeoutSec int
	var breaks stringList
	fs.IntVar(&timeoutSec, "timeout", 0, "stop after this many seconds")
	fs.IntVar(&timeoutSec, "t", 0, "stop after this many seconds (short)")
	fs.StringVar(&config.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "", "log level (short)")
	fs.StringVar(&config.ConfigPath, "config", "", "configuration file")
	fs.StringVar(&config.ExportDir, "export", "", "export bitmaps and text to this directory and exit")
	fs.IntVar(&config.FPS, "fps", 0, "frame rate override")
	fs.Var(&breaks, "break", "breakpoint script:handler:index (repeatable)")
	fs.BoolVar(&config.Console, "console", false, "interactive debug console")
	fs.BoolVar(&config.Headless, "headless", false, "play without the console")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (short)")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return nil, err
	}
	config.Breakpoints = breaks

	if !config.Headless && !config.Console {
		if v := getenv(EnvHeadless); v != "" {
			config.Headless = v == "1" || strings.EqualFold(v, "true")
		}
	}
	if timeoutSec == 0 {
		if v := getenv(EnvTimeout); v != "" {
			if t, err := strconv.Atoi(v); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}
	if config.LogLevel == "" {
		config.LogLevel = strings.ToLower(getenv(EnvLogLevel))
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second
	if config.FPS < 0 {
		return nil, fmt.Errorf("fps must be non-negative, got %d", config.FPS)
	}
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return nil, err
	}
	if config.Console && config.Headless {
		return nil, fmt.Errorf("-console and -headless cannot be combined")
	}

	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected one movie path, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		config.MoviePath = fs.Arg(0)
	}
	if config.MoviePath == "" && !config.ShowHelp {
		return nil, fmt.Errorf("no movie given")
	}
	return config, nil
}

// boolFlags take no value, so the argument after them is positional.
var boolFlags = map[string]bool{
	"h": true, "help": true, "headless": true, "console": true,
}

// reorderArgs moves flags (with their values) ahead of positional
// arguments, since flag stops at the first non-flag.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(arg) == 0 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") || boolFlags[name] {
			continue
		}
		if i+1 < len(args) && (len(args[i+1]) == 0 || args[i+1][0] != '-' || isNumber(args[i+1])) {
			i++
			flags = append(flags, args[i])
		}
	}
	flags = append(flags, "--")
	return append(flags, positional...)
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// PrintHelp writes the usage text.
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `dirplayer - Director movie player and Lingo debugger

Usage:
  dirplayer [options] <movie>

Arguments:
  movie                       .dir/.dxr/.dcr movie file; dirplayer.toml next to it is read if present

Options:
  -console                    interactive debug console
  -headless                   play without the console until halt or timeout
  -fps <n>                    frame rate override (1-999)
  -config <file>              configuration file instead of dirplayer.toml
  -break <script:handler:n>   set a breakpoint before playback (repeatable)
  -export <dir>               write bitmaps (.bmp) and text (.txt) and exit
  -t, -timeout <seconds>      stop after this many seconds (default: none)
  -l, -log-level <level>      debug, info, warn, error (default: info)
  -h, -help                   show this help

Environment Variables:
  %s=<level>
  %s=<seconds>
  %s=1

Examples:
  dirplayer movie.dir
  dirplayer -console -break main:startMovie:0 movie.dir
  dirplayer -export out movie.dxr
  %s=5 dirplayer -headless movie.dir
`, EnvLogLevel, EnvTimeout, EnvHeadless, EnvTimeout)
}
