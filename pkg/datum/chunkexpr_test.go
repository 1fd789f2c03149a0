package datum

import "testing"

func TestGetChunk(t *testing.T) {
	const text = "alpha beta  gamma\rone,two,three\r\nlast line"
	tests := []struct {
		name  string
		exprs []ChunkExpr
		want  string
	}{
		{"char", []ChunkExpr{{Type: ChunkChar, First: 2, Last: 4}}, "lph"},
		{"word", []ChunkExpr{{Type: ChunkWord, First: 3}}, "gamma"},
		{"word range", []ChunkExpr{{Type: ChunkWord, First: 2, Last: 3}}, "beta  gamma"},
		{"line", []ChunkExpr{{Type: ChunkLine, First: 3}}, "last line"},
		{"item of line", []ChunkExpr{{Type: ChunkLine, First: 2}, {Type: ChunkItem, First: 2}}, "two"},
		{"char of item of line", []ChunkExpr{
			{Type: ChunkLine, First: 2}, {Type: ChunkItem, First: 3}, {Type: ChunkChar, First: 1, Last: 2},
		}, "th"},
		{"clamped", []ChunkExpr{{Type: ChunkWord, First: 6, Last: 99}}, "line"},
		{"missing", []ChunkExpr{{Type: ChunkLine, First: 9}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetChunk(text, tt.exprs...); got != tt.want {
				t.Errorf("GetChunk() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkCount(t *testing.T) {
	tests := []struct {
		s     string
		typ   ChunkType
		delim rune
		want  int
	}{
		{"", ChunkItem, 0, 0},
		{"a,b,,c", ChunkItem, 0, 4},
		{"a;b", ChunkItem, ';', 2},
		{"  two words ", ChunkWord, 0, 2},
		{"日本語", ChunkChar, 0, 3},
		{"a\rb\r\nc\nd", ChunkLine, 0, 4},
	}
	for _, tt := range tests {
		if got := ChunkCount(tt.s, tt.typ, tt.delim); got != tt.want {
			t.Errorf("ChunkCount(%q, %v) = %d, want %d", tt.s, tt.typ, got, tt.want)
		}
	}
	if got := LastChunk("a,b,c", ChunkItem, 0); got != "c" {
		t.Errorf("LastChunk() = %q", got)
	}
}

func TestPutAndDeleteChunk(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"into item", PutChunk("a,b,c", PutInto, "X", ChunkExpr{Type: ChunkItem, First: 2}), "a,X,c"},
		{"after word", PutChunk("hello world", PutAfter, "!", ChunkExpr{Type: ChunkWord, First: 1}), "hello! world"},
		{"before char", PutChunk("abc", PutBefore, "_", ChunkExpr{Type: ChunkChar, First: 3}), "ab_c"},
		{"pads items", PutChunk("a", PutInto, "e", ChunkExpr{Type: ChunkItem, First: 5}), "a,,,,e"},
		{"pads empty", PutChunk("", PutInto, "c", ChunkExpr{Type: ChunkItem, First: 3}), ",,c"},
		{"nested", PutChunk("x,y\rp,q", PutInto, "Q", ChunkExpr{Type: ChunkLine, First: 2}, ChunkExpr{Type: ChunkItem, First: 2}), "x,y\rp,Q"},
		{"delete item", DeleteChunk("a,b,c", ChunkExpr{Type: ChunkItem, First: 2}), "a,c"},
		{"delete last item", DeleteChunk("a,b,c", ChunkExpr{Type: ChunkItem, First: 3}), "a,b"},
		{"delete word", DeleteChunk("one two three", ChunkExpr{Type: ChunkWord, First: 2}), "one three"},
		{"delete crlf line", DeleteChunk("a\r\nb\r\nc", ChunkExpr{Type: ChunkLine, First: 2}), "a\r\nc"},
		{"delete chars", DeleteChunk("abcdef", ChunkExpr{Type: ChunkChar, First: 2, Last: 4}), "aef"},
		{"delete missing", DeleteChunk("abc", ChunkExpr{Type: ChunkWord, First: 4}), "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
