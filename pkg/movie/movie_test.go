package movie

import (
	"errors"
	"image"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/fileutil"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/opcode"
	"github.com/zurustar/dirplayer/pkg/score"
)

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleBuilder(bigEndian bool) *Builder {
	b := NewBuilder()
	b.BigEndian = bigEndian
	b.AddScript(1, "main", cast.ScriptMovie, &lingo.Script{
		Handlers: []*lingo.Handler{
			b.Handler("startMovie", nil, nil,
				opcode.OpCode{Cmd: opcode.PushInt8, Obj: 42},
				opcode.OpCode{Cmd: opcode.SetGlobal, Obj: int64(b.Name("gAnswer"))},
				opcode.OpCode{Cmd: opcode.Ret},
			),
		},
	})
	b.AddScript(2, "frameScript", cast.ScriptScore, &lingo.Script{
		Handlers: []*lingo.Handler{b.Handler("exitFrame", []string{"me"}, nil, opcode.OpCode{Cmd: opcode.Ret})},
	})
	b.AddMember(4, &cast.Member{
		Type: cast.MemberBitmap,
		Name: "Logo",
		Bitmap: &cast.BitmapInfo{
			Rect:     image.Rect(0, 0, 2, 2),
			BitDepth: 8,
		},
	}, map[chunk.FourCC][]byte{
		chunk.TagBitmap: {1, 2, 3, 4},
	})
	txt, _ := cast.EncodeText("hello\rworld", nil)
	b.AddMember(5, &cast.Member{Type: cast.MemberText, Name: "Greeting"}, map[chunk.FourCC][]byte{
		chunk.TagText: txt,
	})
	s := score.New(3)
	s.FrameCount = 10
	s.AddKeyframe(1, 1, score.Sprite{CastLib: 1, Member: 4, LocH: 5, LocV: 6})
	s.Intervals = []score.Interval{{Start: 1, End: 10, Channel: 0, CastLib: 1, Member: 2}}
	s.Labels = []score.Label{{Frame: 3, Name: "loop"}}
	b.Score = s
	return b
}

func TestLoad_Assembly(t *testing.T) {
	for _, be := range []bool{true, false} {
		m, err := Load("test.dir", sampleBuilder(be).Bytes(), Options{Logger: quiet()})
		if err != nil {
			t.Fatalf("bigEndian=%v: Load() error = %v", be, err)
		}
		if len(m.Issues) != 0 {
			t.Errorf("bigEndian=%v: issues = %v", be, m.Issues)
		}
		if m.Version != 500 || m.FrameRate != 15 || m.Stage.Dx() != 640 {
			t.Errorf("bigEndian=%v: version %d, fps %d, stage %v", be, m.Version, m.FrameRate, m.Stage)
		}
		if len(m.Casts) != 1 || m.Casts[0].Name != "Internal" {
			t.Fatalf("casts = %+v", m.Casts)
		}

		main, ok := m.Member(1, 1)
		if !ok || main.Script == nil || main.ScriptType != cast.ScriptMovie {
			t.Fatalf("member 1 = %+v", main)
		}
		names := m.Names(1)
		if h, _, ok := main.Script.HandlerByName(names, "startmovie"); !ok || len(h.Bytecode) != 3 {
			t.Errorf("startMovie handler = %+v, %v", h, ok)
		}
		if got := len(m.MovieScripts()); got != 1 {
			t.Errorf("MovieScripts() = %d", got)
		}
		if got := len(m.ScriptMembers()); got != 2 {
			t.Errorf("ScriptMembers() = %d", got)
		}

		logo, ok := m.FindMember("LOGO")
		if !ok || logo.Number != 4 || logo.BitmapData == nil || logo.BitmapData.Index(1, 1) != 4 {
			t.Errorf("Logo = %+v", logo)
		}
		greeting, ok := m.Member(1, 5)
		if !ok || greeting.Text == nil || greeting.Text.Export() != "hello\nworld" {
			t.Errorf("Greeting = %+v", greeting)
		}

		if sp, ok := m.Score.SpriteAt(7, 1); !ok || sp.Member != 4 || sp.LocH != 5 {
			t.Errorf("SpriteAt(7, 1) = %+v, %v", sp, ok)
		}
		if f, ok := m.Score.LabelFrame("Loop"); !ok || f != 3 {
			t.Errorf("LabelFrame = %d, %v", f, ok)
		}
		if _, mem, ok := m.Score.FrameScript(4); !ok || mem != 2 {
			t.Errorf("FrameScript(4) = %d, %v", mem, ok)
		}

		text := m.Disassembler(main).Handler(main.Script.Handlers[0])
		if want := "setglobal gAnswer"; !strings.Contains(text, want) {
			t.Errorf("disassembly missing %q:\n%s", want, text)
		}
	}
}

func TestLoad_RecordsIssues(t *testing.T) {
	b := sampleBuilder(true)
	// A bitmap member whose BITD is empty and whose depth is invalid.
	b.AddMember(6, &cast.Member{Type: cast.MemberBitmap, Bitmap: &cast.BitmapInfo{Rect: image.Rect(0, 0, 1, 1), BitDepth: 3}},
		map[chunk.FourCC][]byte{chunk.TagBitmap: {0}})
	m, err := Load("broken.dir", b.Bytes(), Options{Logger: quiet()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Issues) != 1 {
		t.Fatalf("issues = %v", m.Issues)
	}
	is := m.Issues[0]
	if is.Member != 6 || is.Tag != chunk.TagBitmap || !errors.Is(is, cast.ErrDecode) {
		t.Errorf("issue = %+v", is)
	}
	if _, ok := m.Member(1, 1); !ok {
		t.Error("other members must still load")
	}
}

func TestLoad_RejectsBadContainer(t *testing.T) {
	if _, err := Load("bad", []byte("RIFX"), Options{Logger: quiet()}); !errors.Is(err, chunk.ErrMalformedContainer) {
		t.Errorf("Load() err = %v", err)
	}
}

func TestLoad_ExternalCast(t *testing.T) {
	shared := NewBuilder()
	shared.AddScript(1, "util", cast.ScriptMovie, &lingo.Script{
		Handlers: []*lingo.Handler{shared.Handler("helper", nil, nil, opcode.OpCode{Cmd: opcode.Ret})},
	})

	b := sampleBuilder(true)
	b.LinkCast("Shared", "HD:Work:Shared.cst")
	b.LinkCast("Missing", "HD:Work:Gone.cst")
	fsys := fileutil.NewDirFS(fstest.MapFS{
		"movies/SHARED.CST": {Data: shared.Bytes()},
	})
	m, err := Load("main.dir", b.Bytes(), Options{FS: fsys, Dir: "movies", Logger: quiet()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Casts) != 3 {
		t.Fatalf("casts = %d", len(m.Casts))
	}
	lib, ok := m.CastByName("shared")
	if !ok || !lib.External || !lib.Loaded || lib.Number != 2 {
		t.Fatalf("Shared = %+v", lib)
	}
	util, ok := lib.Member(1)
	if !ok || util.Script == nil || util.Lib != 2 {
		t.Fatalf("Shared member 1 = %+v", util)
	}
	if _, _, ok := util.Script.HandlerByName(lib.Names, "helper"); !ok {
		t.Error("helper not found in external cast")
	}
	if missing, _ := m.Cast(3); missing.Loaded {
		t.Error("missing cast reported as loaded")
	}
	if got := len(m.MovieScripts()); got != 2 {
		t.Errorf("MovieScripts() = %d, want 2", got)
	}
}
