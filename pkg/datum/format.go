package datum

import (
	"strconv"
	"strings"
)

const maxFormatDepth = 32

// String returns the string form of d used by concatenation, put and the
// string() primitive. Strings are returned unquoted, symbols without '#'
// and void as the empty string; everything else uses Format.
func (a *Arena) String(d Datum) string {
	switch d.Kind {
	case KindVoid:
		return ""
	case KindString:
		return d.S
	case KindSymbol:
		return d.S
	case KindInt:
		return strconv.FormatInt(d.I, 10)
	case KindFloat:
		return a.formatFloat(d.F)
	}
	return a.Format(d)
}

// Format returns the literal form of d as the message window shows it:
// strings quoted, symbols with '#', lists in brackets.
func (a *Arena) Format(d Datum) string {
	var b strings.Builder
	a.format(&b, d, 0)
	return b.String()
}

func (a *Arena) formatFloat(f float64) string {
	p := a.FloatPrecision
	if p <= 0 || p > 15 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', p, 64)
}

func (a *Arena) format(b *strings.Builder, d Datum, depth int) {
	if depth > maxFormatDepth {
		b.WriteString("...")
		return
	}
	switch d.Kind {
	case KindVoid:
		b.WriteString("<Void>")
	case KindInt:
		b.WriteString(strconv.FormatInt(d.I, 10))
	case KindFloat:
		b.WriteString(a.formatFloat(d.F))
	case KindString:
		b.WriteString(strconv.Quote(d.S))
	case KindSymbol:
		b.WriteString("#" + d.S)
	case KindList, KindArgList, KindArgListNoRet:
		l, err := a.List(d)
		if err != nil {
			b.WriteString("<invalid list>")
			return
		}
		b.WriteByte('[')
		for i, it := range l.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			a.format(b, it, depth+1)
		}
		b.WriteByte(']')
	case KindPropList:
		p, err := a.PropList(d)
		if err != nil {
			b.WriteString("<invalid propList>")
			return
		}
		if len(p.Entries) == 0 {
			b.WriteString("[:]")
			return
		}
		b.WriteByte('[')
		for i, e := range p.Entries {
			if i > 0 {
				b.WriteString(", ")
			}
			a.format(b, e.Key, depth+1)
			b.WriteString(": ")
			a.format(b, e.Value, depth+1)
		}
		b.WriteByte(']')
	case KindInstance:
		inst, err := a.Instance(d)
		if err != nil {
			b.WriteString("<invalid instance>")
			return
		}
		b.WriteString("<offspring ")
		b.WriteString(strconv.Quote(inst.ScriptName))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(d.H), 10))
		b.WriteByte('>')
	case KindScriptRef:
		b.WriteString("(script " + strconv.FormatInt(d.J, 10) + " of castLib " + strconv.FormatInt(d.I, 10) + ")")
	case KindMemberRef:
		b.WriteString("(member " + strconv.FormatInt(d.J, 10) + " of castLib " + strconv.FormatInt(d.I, 10) + ")")
	case KindSpriteRef:
		b.WriteString("(sprite " + strconv.FormatInt(d.I, 10) + ")")
	case KindCastLibRef:
		b.WriteString("(castLib " + strconv.FormatInt(d.I, 10) + ")")
	case KindPoint:
		b.WriteString("point(" + joinInts(d.P[:2]) + ")")
	case KindRect:
		b.WriteString("rect(" + joinInts(d.P[:]) + ")")
	case KindColor:
		if d.I != 0 {
			b.WriteString("paletteIndex(" + strconv.FormatInt(d.P[0], 10) + ")")
		} else {
			b.WriteString("rgb(" + joinInts(d.P[:3]) + ")")
		}
	case KindTimeout:
		b.WriteString("timeout(" + strconv.Quote(d.S) + ")")
	case KindVarRef:
		b.WriteString("<varref " + d.S + ">")
	default:
		b.WriteString("<unknown>")
	}
}

func joinInts(v []int64) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, ", ")
}
