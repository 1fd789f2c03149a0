package movie

import (
	"image"
	"sort"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/opcode"
	"github.com/zurustar/dirplayer/pkg/score"
)

// Builder writes a small uncompressed movie with one internal cast. It is
// the inverse of Load for the chunks Load understands and is used to build
// fixtures and test movies.
type Builder struct {
	BigEndian  bool
	RawVersion uint16
	FrameRate  uint16
	Stage      image.Rectangle
	Score      *score.Score

	names   lingo.Names
	members map[int]*builtMember
	linked  []cast.LibraryEntry
}

type builtMember struct {
	member *cast.Member
	script *lingo.Script
	media  map[chunk.FourCC][]byte
}

// NewBuilder returns a builder for a big-endian D5 movie.
func NewBuilder() *Builder {
	return &Builder{
		BigEndian:  true,
		RawVersion: 1201,
		FrameRate:  15,
		Stage:      image.Rect(0, 0, 640, 480),
		members:    map[int]*builtMember{},
	}
}

// Version returns the human version the movie will load as.
func (b *Builder) Version() int { return cast.HumanVersion(b.RawVersion) }

// Options returns the script options Load will use for the internal cast.
func (b *Builder) Options() lingo.Options { return lingo.Options{Version: b.Version()} }

// Name interns name in the cast's name table and returns its id.
func (b *Builder) Name(name string) uint16 {
	for i, n := range b.names {
		if n == name {
			return uint16(i)
		}
	}
	b.names = append(b.names, name)
	return uint16(len(b.names) - 1)
}

func (b *Builder) ids(names []string) []uint16 {
	out := make([]uint16, len(names))
	for i, n := range names {
		out[i] = b.Name(n)
	}
	return out
}

// Handler builds a handler, interning its names.
func (b *Builder) Handler(name string, args, locals []string, code ...opcode.OpCode) *lingo.Handler {
	return &lingo.Handler{
		NameID:       b.Name(name),
		ArgNameIDs:   b.ids(args),
		LocalNameIDs: b.ids(locals),
		Bytecode:     code,
	}
}

// AddScript adds a script member.
func (b *Builder) AddScript(number int, name string, kind cast.ScriptType, s *lingo.Script) {
	b.members[number] = &builtMember{
		member: &cast.Member{Type: cast.MemberScript, Name: name, ScriptType: kind},
		script: s,
	}
}

// AddMember adds a non-script member with media children keyed by tag.
func (b *Builder) AddMember(number int, m *cast.Member, media map[chunk.FourCC][]byte) {
	b.members[number] = &builtMember{member: m, media: media}
}

// LinkCast adds an external cast library stored at path.
func (b *Builder) LinkCast(name, path string) {
	b.linked = append(b.linked, cast.LibraryEntry{
		Name: name,
		Path: path,
		ID:   uint32(movieOwner + 1 + len(b.linked)),
	})
}

// Bytes lays out the movie.
func (b *Builder) Bytes() []byte {
	cb := chunk.NewBuilder(b.BigEndian)
	order := cb.Order()
	opts := b.Options()

	cfg := &cast.Config{
		Stage:      b.Stage,
		MinMember:  1,
		RawVersion: b.RawVersion,
		FrameRate:  b.FrameRate,
		BitDepth:   8,
	}
	numbers := make([]int, 0, len(b.members))
	for n := range b.members {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	maxMember := 0
	if len(numbers) > 0 {
		maxMember = numbers[len(numbers)-1]
	}
	cfg.MaxMember = uint16(maxMember)
	cb.Add(chunk.TagConfig, cfg.Encode(!b.BigEndian))
	libs := append([]cast.LibraryEntry{
		{Name: "Internal", MinMember: 1, MaxMember: uint16(maxMember), ID: movieOwner},
	}, b.linked...)
	cb.Add(chunk.TagCastList, cast.EncodeCastList(libs, order))

	// Scripts are numbered in member order; Lnam is encoded after every
	// script so names interned by callers are complete.
	var keys []cast.KeyEntry
	ctx := &lingo.Context{}
	scriptIDs := map[int]uint32{}
	for _, n := range numbers {
		bm := b.members[n]
		if bm.script == nil {
			continue
		}
		bm.script.Number = uint16(len(ctx.Entries) + 1)
		id := cb.Add(chunk.TagLscr, lingo.EncodeScript(bm.script, opts))
		ctx.Entries = append(ctx.Entries, lingo.ContextEntry{SectionID: int32(id)})
		scriptIDs[n] = uint32(len(ctx.Entries))
	}
	ctx.NamesID = cb.Add(chunk.TagLnam, lingo.EncodeNames(b.names))
	keys = append(keys, cast.KeyEntry{SectionID: cb.Add(chunk.TagLctx, lingo.EncodeContext(ctx)), CastID: movieOwner, Tag: chunk.TagLctx})

	assoc := make([]uint32, maxMember)
	for _, n := range numbers {
		bm := b.members[n]
		m := *bm.member
		m.ScriptID = scriptIDs[n]
		sid := cb.Add(chunk.TagCastMember, cast.EncodeMember(&m))
		if n >= 1 {
			assoc[n-1] = sid
		}
		tags := make([]chunk.FourCC, 0, len(bm.media))
		for t := range bm.media {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
		for _, t := range tags {
			keys = append(keys, cast.KeyEntry{SectionID: cb.Add(t, bm.media[t]), CastID: sid, Tag: t})
		}
	}
	keys = append(keys, cast.KeyEntry{SectionID: cb.Add(chunk.TagCastAssoc, cast.EncodeCastAssoc(assoc)), CastID: movieOwner, Tag: chunk.TagCastAssoc})

	if b.Score != nil {
		keys = append(keys, cast.KeyEntry{SectionID: cb.Add(chunk.TagScore, score.Encode(b.Score)), CastID: movieOwner, Tag: chunk.TagScore})
		if len(b.Score.Labels) > 0 {
			keys = append(keys, cast.KeyEntry{SectionID: cb.Add(chunk.TagLabels, score.EncodeLabels(b.Score.Labels)), CastID: movieOwner, Tag: chunk.TagLabels})
		}
	}
	cb.Add(chunk.TagKeyTable, (&cast.KeyTable{Entries: keys}).Encode(order))
	return cb.Bytes()
}
