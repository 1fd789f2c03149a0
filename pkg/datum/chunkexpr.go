package datum

import (
	"strings"
	"unicode/utf8"
)

// ChunkType selects the unit of a string chunk expression.
type ChunkType uint8

const (
	ChunkChar ChunkType = iota + 1
	ChunkWord
	ChunkItem
	ChunkLine
)

func (t ChunkType) String() string {
	switch t {
	case ChunkChar:
		return "char"
	case ChunkWord:
		return "word"
	case ChunkItem:
		return "item"
	case ChunkLine:
		return "line"
	}
	return "chunk"
}

// ChunkExpr addresses chunks First..Last (1-based, inclusive) of a string.
// Last 0 means First alone; a Last past the end is clamped.
type ChunkExpr struct {
	Type  ChunkType
	First int
	Last  int
	// Delim is the item delimiter; zero means ','.
	Delim rune
}

// PutMode selects how PutChunk combines the new text with the chunk.
type PutMode uint8

const (
	PutInto PutMode = iota
	PutAfter
	PutBefore
)

type span struct{ start, end int }

func (e ChunkExpr) delim() rune {
	if e.Delim == 0 {
		return ','
	}
	return e.Delim
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' || r == '\n' }

// spans returns the byte ranges of every chunk of s, delimiters excluded.
func spans(s string, t ChunkType, delim rune) []span {
	if s == "" {
		return nil
	}
	var out []span
	switch t {
	case ChunkChar:
		for i, r := range s {
			out = append(out, span{i, i + utf8.RuneLen(r)})
		}
	case ChunkWord:
		start := -1
		for i, r := range s {
			if isSpace(r) {
				if start >= 0 {
					out = append(out, span{start, i})
					start = -1
				}
			} else if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			out = append(out, span{start, len(s)})
		}
	case ChunkItem:
		start := 0
		for i, r := range s {
			if r == delim {
				out = append(out, span{start, i})
				start = i + utf8.RuneLen(r)
			}
		}
		out = append(out, span{start, len(s)})
	case ChunkLine:
		start := 0
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '\r':
				out = append(out, span{start, i})
				if i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
				start = i + 1
			case '\n':
				out = append(out, span{start, i})
				start = i + 1
			}
		}
		out = append(out, span{start, len(s)})
	}
	return out
}

// ChunkCount returns the number of chunks of type t in s.
func ChunkCount(s string, t ChunkType, delim rune) int {
	if delim == 0 {
		delim = ','
	}
	return len(spans(s, t, delim))
}

func (e ChunkExpr) locate(s string) (int, int, bool) {
	sp := spans(s, e.Type, e.delim())
	first, last := e.First, e.Last
	if last == 0 {
		last = first
	}
	if first < 1 || first > len(sp) || last < first {
		return 0, 0, false
	}
	if last > len(sp) {
		last = len(sp)
	}
	return sp[first-1].start, sp[last-1].end, true
}

// Locate resolves nested chunk expressions, outermost first (for example
// line, then item, then word, then char), to a byte range of s.
func Locate(s string, exprs ...ChunkExpr) (start, end int, ok bool) {
	start, end = 0, len(s)
	for _, e := range exprs {
		st, en, ok := e.locate(s[start:end])
		if !ok {
			return 0, 0, false
		}
		start, end = start+st, start+en
	}
	return start, end, true
}

// GetChunk returns the text addressed by exprs, or "" when it does not
// exist.
func GetChunk(s string, exprs ...ChunkExpr) string {
	st, en, ok := Locate(s, exprs...)
	if !ok {
		return ""
	}
	return s[st:en]
}

// LastChunk returns the last chunk of type t.
func LastChunk(s string, t ChunkType, delim rune) string {
	n := ChunkCount(s, t, delim)
	if n == 0 {
		return ""
	}
	return GetChunk(s, ChunkExpr{Type: t, First: n, Delim: delim})
}

// PutChunk replaces, appends to or prepends to the addressed chunk. Item
// and line chunks past the end are created by padding with delimiters.
func PutChunk(s string, mode PutMode, v string, exprs ...ChunkExpr) string {
	if len(exprs) == 0 {
		return s
	}
	ps, pe, ok := Locate(s, exprs[:len(exprs)-1]...)
	if !ok {
		return s
	}
	inner := putOne(s[ps:pe], mode, v, exprs[len(exprs)-1])
	return s[:ps] + inner + s[pe:]
}

func putOne(s string, mode PutMode, v string, e ChunkExpr) string {
	if st, en, ok := e.locate(s); ok {
		switch mode {
		case PutAfter:
			return s[:en] + v + s[en:]
		case PutBefore:
			return s[:st] + v + s[st:]
		}
		return s[:st] + v + s[en:]
	}
	if e.First < 1 {
		return s
	}
	n := len(spans(s, e.Type, e.delim()))
	switch e.Type {
	case ChunkItem, ChunkLine:
		sep := string(e.delim())
		if e.Type == ChunkLine {
			sep = "\r"
		}
		pad := e.First - n
		if n == 0 {
			pad = e.First - 1
		}
		return s + strings.Repeat(sep, pad) + v
	case ChunkWord:
		if s == "" {
			return v
		}
		return s + " " + v
	}
	return s + v
}

// DeleteChunk removes the addressed chunk. For words, items and lines one
// adjacent delimiter goes with it.
func DeleteChunk(s string, exprs ...ChunkExpr) string {
	if len(exprs) == 0 {
		return s
	}
	ps, pe, ok := Locate(s, exprs[:len(exprs)-1]...)
	if !ok {
		return s
	}
	inner := deleteOne(s[ps:pe], exprs[len(exprs)-1])
	return s[:ps] + inner + s[pe:]
}

func deleteOne(s string, e ChunkExpr) string {
	st, en, ok := e.locate(s)
	if !ok {
		return s
	}
	switch e.Type {
	case ChunkWord:
		for en < len(s) && isSpace(rune(s[en])) {
			en++
		}
	case ChunkItem, ChunkLine:
		sep := string(e.delim())
		if e.Type == ChunkLine {
			sep = "\r"
			if strings.HasPrefix(s[en:], "\r\n") {
				sep = "\r\n"
			} else if strings.HasPrefix(s[en:], "\n") {
				sep = "\n"
			}
		}
		switch {
		case strings.HasPrefix(s[en:], sep):
			en += len(sep)
		case st > 0 && strings.HasSuffix(s[:st], sep):
			st -= len(sep)
		}
	}
	return s[:st] + s[en:]
}
