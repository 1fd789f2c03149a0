// Package lingo decodes compiled Lingo: script contexts (Lctx/LctX), name
// tables (Lnam) and scripts (Lscr) with their handlers, literals and
// bytecode, and renders bytecode as disassembly text.
//
// Lingo chunks are big-endian regardless of the container byte order.
package lingo

import "errors"

// ErrDecode is returned when a script chunk cannot be decoded.
var ErrDecode = errors.New("decode error")
