// Package movie assembles a loaded movie: container, config, cast
// libraries with their members, scripts and media, and the score.
//
// Decode failures below the container header are recorded as DecodeIssue
// values and logged; the rest of the movie still loads.
package movie

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/fileutil"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/score"
)

// movieOwner is the key table owner id of movie-level chunks and of the
// internal cast when no cast list is present.
const movieOwner = 1024

// DefaultVersion is assumed when the config chunk is missing or broken.
const DefaultVersion = 500

// DecodeIssue records a chunk or member that failed to decode.
type DecodeIssue struct {
	Tag    chunk.FourCC
	ID     uint32
	Lib    int
	Member int
	Err    error
}

func (d DecodeIssue) Error() string {
	where := fmt.Sprintf("%s #%d", d.Tag, d.ID)
	if d.Member > 0 {
		where = fmt.Sprintf("member %d:%d (%s)", d.Lib, d.Member, where)
	}
	return where + ": " + d.Err.Error()
}

func (d DecodeIssue) Unwrap() error { return d.Err }

// Options control loading.
type Options struct {
	// Encoding converts names and text; nil means Mac Roman.
	Encoding encoding.Encoding
	// FS and Dir locate linked external casts. A nil FS leaves external
	// casts unloaded.
	FS     fileutil.FileSystem
	Dir    string
	Logger *slog.Logger
}

// Member is a cast member with its decoded payloads.
type Member struct {
	*cast.Member
	Lib       int
	Number    int
	SectionID uint32

	Script     *lingo.Script
	BitmapData *cast.Bitmap
	Palette    color.Palette
	Text       *cast.Text
	Sound      *cast.Sound
}

// CastLib is one cast library.
type CastLib struct {
	Number    int
	Name      string
	Path      string
	Preload   uint16
	MinMember int
	MaxMember int
	External  bool
	// Loaded is false for an external cast whose file was not found.
	Loaded bool

	Names   lingo.Names
	Options lingo.Options
	Members map[int]*Member
}

// Member returns the member with the given number.
func (c *CastLib) Member(n int) (*Member, bool) {
	m, ok := c.Members[n]
	return m, ok
}

// MemberList returns the members in number order.
func (c *CastLib) MemberList() []*Member {
	out := make([]*Member, 0, len(c.Members))
	for _, m := range c.Members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Movie is a loaded movie.
type Movie struct {
	Name      string
	Container *chunk.Container
	Config    *cast.Config
	Version   int
	FrameRate int
	Stage     image.Rectangle
	Casts     []*CastLib
	Score     *score.Score
	Issues    []DecodeIssue

	opts Options
}

// Load parses data and assembles the movie. Only an unreadable container
// is fatal.
func Load(name string, data []byte, opts Options) (*Movie, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c, err := chunk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	m := &Movie{Name: name, Container: c, Version: DefaultVersion, FrameRate: 15, opts: opts}
	m.loadConfig()

	kt := m.loadKeyTable(c)
	libs := m.castEntries(c)
	for i, e := range libs {
		lib := &CastLib{
			Number:    i + 1,
			Name:      e.Name,
			Path:      e.Path,
			Preload:   e.Preload,
			MinMember: int(e.MinMember),
			MaxMember: int(e.MaxMember),
			Members:   map[int]*Member{},
		}
		m.Casts = append(m.Casts, lib)
		owner := e.ID
		if _, ok := kt.Child(owner, chunk.TagCastAssoc); !ok && e.Path != "" {
			lib.External = true
			m.loadExternal(lib)
			continue
		}
		m.loadCast(lib, c, kt, owner, len(libs) == 1)
	}
	m.loadScore(c, kt)
	return m, nil
}

func (m *Movie) issue(d DecodeIssue) {
	m.Issues = append(m.Issues, d)
	m.opts.Logger.Warn("decode issue", "movie", m.Name, "chunk", d.Tag.String(), "id", d.ID,
		"lib", d.Lib, "member", d.Member, "error", d.Err)
}

func (m *Movie) loadConfig() {
	h, ok := m.Container.First(chunk.TagConfig, chunk.TagConfigOld)
	if !ok {
		m.issue(DecodeIssue{Tag: chunk.TagConfig, Err: chunk.ErrNotFound})
		return
	}
	data, err := m.Container.Data(h.ID)
	if err == nil {
		m.Config, err = cast.DecodeConfig(data, !m.Container.BigEndian())
	}
	if err != nil {
		m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Err: err})
		return
	}
	if !m.Config.ChecksumOK {
		m.opts.Logger.Info("config checksum mismatch", "movie", m.Name,
			"stored", m.Config.Checksum, "computed", m.Config.ComputeChecksum(!m.Container.BigEndian()))
	}
	m.Version = m.Config.Version
	m.Stage = m.Config.Stage
	if m.Config.FrameRate > 0 {
		m.FrameRate = int(m.Config.FrameRate)
	}
}

func (m *Movie) loadKeyTable(c *chunk.Container) *cast.KeyTable {
	h, ok := c.First(chunk.TagKeyTable)
	if !ok {
		m.issue(DecodeIssue{Tag: chunk.TagKeyTable, Err: chunk.ErrNotFound})
		return &cast.KeyTable{}
	}
	data, err := c.Data(h.ID)
	var kt *cast.KeyTable
	if err == nil {
		kt, err = cast.DecodeKeyTable(data, c.Order())
	}
	if err != nil {
		m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Err: err})
		return &cast.KeyTable{}
	}
	return kt
}

// castEntries returns the cast list, or a single internal cast for movies
// without MCsL.
func (m *Movie) castEntries(c *chunk.Container) []cast.LibraryEntry {
	internal := []cast.LibraryEntry{{Name: "Internal", MinMember: 1, ID: movieOwner}}
	if m.Config != nil {
		internal[0].MinMember = m.Config.MinMember
		internal[0].MaxMember = m.Config.MaxMember
	}
	h, ok := c.First(chunk.TagCastList)
	if !ok {
		return internal
	}
	data, err := c.Data(h.ID)
	var libs []cast.LibraryEntry
	if err == nil {
		libs, err = cast.DecodeCastList(data, c.Order(), m.opts.Encoding)
	}
	if err != nil || len(libs) == 0 {
		if err != nil {
			m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Err: err})
		}
		return internal
	}
	return libs
}

// loadCast decodes the members, scripts and media of one library stored in
// c. single allows falling back to the first CAS*/Lctx when the key table
// has no entry for owner.
func (m *Movie) loadCast(lib *CastLib, c *chunk.Container, kt *cast.KeyTable, owner uint32, single bool) {
	lib.Loaded = true
	child := func(tags ...chunk.FourCC) (chunk.Header, bool) {
		for _, t := range tags {
			if id, ok := kt.Child(owner, t); ok {
				if h, ok := c.ByID(id); ok {
					return h, true
				}
			}
		}
		if single {
			return c.First(tags...)
		}
		return chunk.Header{}, false
	}

	lib.Options = lingo.Options{Version: m.Version, Encoding: m.opts.Encoding}
	var ctx *lingo.Context
	if h, ok := child(chunk.TagLctx, chunk.TagLctX); ok {
		lib.Options.CapitalX = h.FourCC == chunk.TagLctX
		data, err := c.Data(h.ID)
		if err == nil {
			ctx, err = lingo.DecodeContext(data)
		}
		if err != nil {
			m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Lib: lib.Number, Err: err})
		} else {
			lib.Names = m.loadNames(c, ctx.NamesID, lib.Number)
		}
	}

	h, ok := child(chunk.TagCastAssoc)
	if !ok {
		return
	}
	data, err := c.Data(h.ID)
	var ids []uint32
	if err == nil {
		ids, err = cast.DecodeCastAssoc(data)
	}
	if err != nil {
		m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Lib: lib.Number, Err: err})
		return
	}
	if lib.MinMember == 0 {
		lib.MinMember = 1
	}
	for i, sid := range ids {
		if sid == 0 {
			continue
		}
		num := lib.MinMember + i
		if mem := m.loadMember(lib, c, kt, ctx, sid, num); mem != nil {
			lib.Members[num] = mem
			if num > lib.MaxMember {
				lib.MaxMember = num
			}
		}
	}
}

func (m *Movie) loadNames(c *chunk.Container, id uint32, lib int) lingo.Names {
	data, err := c.Data(id)
	var names lingo.Names
	if err == nil {
		names, err = lingo.DecodeNames(data, m.opts.Encoding)
	}
	if err != nil {
		m.issue(DecodeIssue{Tag: chunk.TagLnam, ID: id, Lib: lib, Err: err})
	}
	return names
}

func (m *Movie) loadMember(lib *CastLib, c *chunk.Container, kt *cast.KeyTable, ctx *lingo.Context, sid uint32, num int) *Member {
	fail := func(tag chunk.FourCC, id uint32, err error) {
		m.issue(DecodeIssue{Tag: tag, ID: id, Lib: lib.Number, Member: num, Err: err})
	}
	data, err := c.Data(sid)
	var cm *cast.Member
	if err == nil {
		cm, err = cast.DecodeMember(data, m.Version, m.opts.Encoding)
	}
	if err != nil {
		fail(chunk.TagCastMember, sid, err)
		return nil
	}
	mem := &Member{Member: cm, Lib: lib.Number, Number: num, SectionID: sid}

	if cm.ScriptID > 0 && ctx != nil {
		idx := int(cm.ScriptID) - 1
		if idx < len(ctx.Entries) && ctx.Entries[idx].SectionID > 0 {
			scriptID := uint32(ctx.Entries[idx].SectionID)
			data, err := c.Data(scriptID)
			if err == nil {
				mem.Script, err = lingo.DecodeScript(data, lib.Options)
			}
			if err != nil {
				fail(chunk.TagLscr, scriptID, err)
			}
		}
	}

	for _, e := range kt.Children(sid) {
		data, err := c.Data(e.SectionID)
		if err != nil {
			fail(e.Tag, e.SectionID, err)
			continue
		}
		switch e.Tag {
		case chunk.TagBitmap:
			if cm.Bitmap != nil {
				mem.BitmapData, err = cast.DecodeBitmap(data, cm.Bitmap)
			}
		case chunk.TagPalette:
			mem.Palette, err = cast.DecodePalette(data)
		case chunk.TagText:
			mem.Text, err = cast.DecodeText(data, m.opts.Encoding)
		case chunk.TagSound:
			mem.Sound, err = cast.DecodeSound(data)
		}
		if err != nil {
			fail(e.Tag, e.SectionID, err)
		}
	}
	return mem
}

func (m *Movie) loadExternal(lib *CastLib) {
	if m.opts.FS == nil {
		m.opts.Logger.Info("external cast not loaded", "cast", lib.Name, "path", lib.Path)
		return
	}
	file, err := fileutil.ResolveCast(m.opts.FS, m.opts.Dir, lib.Path)
	if err != nil {
		m.opts.Logger.Warn("external cast not found", "cast", lib.Name, "path", lib.Path, "error", err)
		return
	}
	data, err := m.opts.FS.ReadFile(file)
	if err != nil {
		m.opts.Logger.Warn("external cast unreadable", "cast", lib.Name, "file", file, "error", err)
		return
	}
	c, err := chunk.Parse(data)
	if err != nil {
		m.issue(DecodeIssue{Tag: chunk.TagRIFX, Lib: lib.Number, Err: err})
		return
	}
	kt := m.loadKeyTable(c)
	m.loadCast(lib, c, kt, movieOwner, true)
	m.opts.Logger.Debug("external cast loaded", "cast", lib.Name, "file", path.Base(file), "members", len(lib.Members))
}

func (m *Movie) loadScore(c *chunk.Container, kt *cast.KeyTable) {
	find := func(tag chunk.FourCC) (chunk.Header, bool) {
		if id, ok := kt.Child(movieOwner, tag); ok {
			if h, ok := c.ByID(id); ok {
				return h, true
			}
		}
		return c.First(tag)
	}
	m.Score = score.New(0)
	if h, ok := find(chunk.TagScore); ok {
		data, err := c.Data(h.ID)
		var s *score.Score
		if err == nil {
			s, err = score.Decode(data)
		}
		if err != nil {
			m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Err: err})
		} else {
			m.Score = s
		}
	}
	if h, ok := find(chunk.TagLabels); ok {
		data, err := c.Data(h.ID)
		var labels []score.Label
		if err == nil {
			labels, err = score.DecodeLabels(data, m.opts.Encoding)
		}
		if err != nil {
			m.issue(DecodeIssue{Tag: h.FourCC, ID: h.ID, Err: err})
		} else {
			m.Score.Labels = labels
		}
	}
}

// Cast returns the library with the 1-based number n.
func (m *Movie) Cast(n int) (*CastLib, bool) {
	if n < 1 || n > len(m.Casts) {
		return nil, false
	}
	return m.Casts[n-1], true
}

// CastByName finds a library by name, ignoring case.
func (m *Movie) CastByName(name string) (*CastLib, bool) {
	for _, c := range m.Casts {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// Member returns member n of library lib.
func (m *Movie) Member(lib, n int) (*Member, bool) {
	c, ok := m.Cast(lib)
	if !ok {
		return nil, false
	}
	return c.Member(n)
}

// FindMember finds a member by name across all libraries, ignoring case.
// Lower library numbers win.
func (m *Movie) FindMember(name string) (*Member, bool) {
	for _, c := range m.Casts {
		for _, mem := range c.MemberList() {
			if strings.EqualFold(mem.Name, name) {
				return mem, true
			}
		}
	}
	return nil, false
}

// ScriptMembers returns every member carrying a decoded script, ordered by
// library and number.
func (m *Movie) ScriptMembers() []*Member {
	var out []*Member
	for _, c := range m.Casts {
		for _, mem := range c.MemberList() {
			if mem.Script != nil {
				out = append(out, mem)
			}
		}
	}
	return out
}

// MovieScripts returns the script members of type movie.
func (m *Movie) MovieScripts() []*Member {
	var out []*Member
	for _, mem := range m.ScriptMembers() {
		if mem.Type == cast.MemberScript && mem.ScriptType == cast.ScriptMovie {
			out = append(out, mem)
		}
	}
	return out
}

// Names returns the name table of library lib.
func (m *Movie) Names(lib int) lingo.Names {
	if c, ok := m.Cast(lib); ok {
		return c.Names
	}
	return nil
}

// Disassembler returns a disassembler bound to the member's script and
// name table.
func (m *Movie) Disassembler(mem *Member) lingo.Disassembler {
	d := lingo.Disassembler{Script: mem.Script}
	if c, ok := m.Cast(mem.Lib); ok {
		d.Names = c.Names
		d.Options = c.Options
	}
	return d
}
