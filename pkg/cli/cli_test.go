package cli

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "movie only",
			args:     []string{"movie.dir"},
			expected: Config{MoviePath: "movie.dir", LogLevel: "info"},
		},
		{
			name:     "timeout",
			args:     []string{"--timeout", "10", "movie.dir"},
			expected: Config{MoviePath: "movie.dir", Timeout: 10 * time.Second, LogLevel: "info"},
		},
		{
			name:     "timeout short",
			args:     []string{"-t", "5", "movie.dir"},
			expected: Config{MoviePath: "movie.dir", Timeout: 5 * time.Second, LogLevel: "info"},
		},
		{
			name:     "log level short",
			args:     []string{"-l", "error", "movie.dir"},
			expected: Config{MoviePath: "movie.dir", LogLevel: "error"},
		},
		{
			name:     "help without movie",
			args:     []string{"-h"},
			expected: Config{LogLevel: "info", ShowHelp: true},
		},
		{
			name: "flags after the movie",
			args: []string{"-log-level", "debug", "./movies/intro.dxr", "--fps", "30", "-console"},
			expected: Config{
				MoviePath: "./movies/intro.dxr",
				FPS:       30,
				LogLevel:  "debug",
				Console:   true,
			},
		},
		{
			name: "bool flag before the movie",
			args: []string{"-headless", "movie.dir", "-export=out"},
			expected: Config{
				MoviePath: "movie.dir",
				ExportDir: "out",
				LogLevel:  "info",
				Headless:  true,
			},
		},
		{
			name: "repeated breakpoints",
			args: []string{"-break", "main:startMovie:0", "movie.dir", "-break", "frame:exitFrame:2", "-config", "alt.toml"},
			expected: Config{
				MoviePath:   "movie.dir",
				ConfigPath:  "alt.toml",
				Breakpoints: []string{"main:startMovie:0", "frame:exitFrame:2"},
				LogLevel:    "info",
			},
		},
		{
			name:     "dash dash ends flags",
			args:     []string{"--", "-odd name.dir"},
			expected: Config{MoviePath: "-odd name.dir", LogLevel: "info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := parse(tt.args, noEnv)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(*config, tt.expected) {
				t.Errorf("config = %+v\nwant     %+v", *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	env := map[string]string{
		EnvLogLevel: "WARN",
		EnvTimeout:  "7",
		EnvHeadless: "true",
	}
	getenv := func(k string) string { return env[k] }

	config, err := parse([]string{"movie.dir"}, getenv)
	if err != nil {
		t.Fatal(err)
	}
	if config.LogLevel != "warn" || config.Timeout != 7*time.Second || !config.Headless {
		t.Errorf("config = %+v", config)
	}

	config, err = parse([]string{"-l", "debug", "-t", "2", "movie.dir"}, getenv)
	if err != nil {
		t.Fatal(err)
	}
	if config.LogLevel != "debug" || config.Timeout != 2*time.Second {
		t.Errorf("flags did not win over environment: %+v", config)
	}

	env[EnvTimeout] = "soon"
	config, err = parse([]string{"movie.dir"}, getenv)
	if err != nil || config.Timeout != 0 {
		t.Errorf("bad %s: %+v, %v", EnvTimeout, config, err)
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative timeout", []string{"--timeout", "-10", "movie.dir"}},
		{"invalid log level", []string{"--log-level", "invalid", "movie.dir"}},
		{"invalid log level short", []string{"-l", "trace", "movie.dir"}},
		{"negative fps", []string{"-fps", "-1", "movie.dir"}},
		{"unknown flag", []string{"-fullscreen", "movie.dir"}},
		{"no movie", []string{"-console"}},
		{"two movies", []string{"a.dir", "b.dir"}},
		{"console and headless", []string{"-console", "-headless", "movie.dir"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse(tt.args, noEnv); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, want := range []string{"Usage:", "-console", EnvHeadless} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help missing %q", want)
		}
	}
}
