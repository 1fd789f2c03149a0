package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/dirplayer/pkg/vm"
)

const sample = `
[player]
fps = 30
timeout = "1m30s"
text_encoding = "shift_jis"
stage_width = 320
stage_height = 240

[debug]
breakpoints = ["main:startMovie:3", "lib:a:b:exitFrame:0"]
console = true

[events]
order = ["movie", "sprite", "frame"]
always_propagate = ["mouseUp"]

[export]
dir = "out"
`

func TestParse(t *testing.T) {
	c, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Player.FPS != 30 || c.Player.Timeout.Duration != 90*time.Second {
		t.Errorf("Player = %+v", c.Player)
	}
	if c.Player.StageWidth != 320 || c.Player.StageHeight != 240 || c.Export.Dir != "out" || !c.Debug.Console {
		t.Errorf("Config = %+v", c)
	}
	bps, err := c.Breakpoints()
	if err != nil {
		t.Fatal(err)
	}
	want := []vm.Breakpoint{
		{Script: "main", Handler: "startMovie", Index: 3, Enabled: true},
		{Script: "lib:a:b", Handler: "exitFrame", Index: 0, Enabled: true},
	}
	if len(bps) != 2 || bps[0] != want[0] || bps[1] != want[1] {
		t.Errorf("Breakpoints() = %+v", bps)
	}
	if _, err := c.Encoding(); err != nil {
		t.Errorf("Encoding() error = %v", err)
	}
	vmOpts, err := c.VMOptions()
	if err != nil || len(vmOpts) != 3 {
		t.Errorf("VMOptions() = %d options, %v", len(vmOpts), err)
	}
	opts, err := c.PlayerOptions()
	if err != nil || len(opts) != 5 {
		t.Errorf("PlayerOptions() = %d options, %v", len(opts), err)
	}
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Player.TextEncoding != "macroman" || len(c.Events.Order) != 3 || c.Player.FPS != 0 {
		t.Errorf("defaults = %+v", c)
	}
	opts, err := c.PlayerOptions()
	if err != nil || len(opts) != 2 {
		t.Errorf("PlayerOptions() = %d options, %v", len(opts), err)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"syntax", "[player\nfps = 1", ""},
		{"unknown key", "[player]\nframes = 3", "unknown keys: player.frames"},
		{"fps range", "[player]\nfps = 1000", "player.fps"},
		{"bad duration", "[player]\ntimeout = \"soon\"", ""},
		{"negative duration", "[player]\ntimeout = \"-1s\"", "negative"},
		{"encoding", "[player]\ntext_encoding = \"ebcdic\"", "text_encoding"},
		{"breakpoint", "[debug]\nbreakpoints = [\"main:3\"]", "debug.breakpoints"},
		{"event order", "[events]\norder = [\"sprite\", \"sprite\"]", "events.order"},
		{"stage", "[player]\nstage_width = -1", "stage_width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil {
				t.Fatal("Parse() error = nil")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestForMovie(t *testing.T) {
	dir := t.TempDir()
	movie := filepath.Join(dir, "intro.dir")

	c, err := ForMovie(movie)
	if err != nil || c.Path != "" {
		t.Fatalf("ForMovie() without file = %+v, %v", c, err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[player]\nfps = 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = ForMovie(movie)
	if err != nil {
		t.Fatal(err)
	}
	if c.Path != path || c.Player.FPS != 12 {
		t.Errorf("ForMovie() = %+v", c)
	}

	if err := os.WriteFile(path, []byte("[player]\nfps = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ForMovie(movie); err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("ForMovie() error = %v, want mention of %s", err, path)
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte(" 2s ")); err != nil || d.Duration != 2*time.Second {
		t.Fatalf("UnmarshalText = %v, %v", d, err)
	}
	b, _ := d.MarshalText()
	if string(b) != "2s" {
		t.Errorf("MarshalText = %s", b)
	}
}
