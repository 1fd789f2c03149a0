package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/zurustar/dirplayer/pkg/vm"
)

// SnapshotVersion is written into every encoded snapshot.
const SnapshotVersion = 1

// Snapshot is the complete debugger view at one instant.
type Snapshot struct {
	Version     int             `cbor:"version"`
	State       State           `cbor:"state"`
	Frame       vm.FrameInfo    `cbor:"frame"`
	Tasks       []vm.TaskInfo   `cbor:"tasks,omitempty"`
	Globals     []vm.NamedValue `cbor:"globals,omitempty"`
	Breakpoints []vm.Breakpoint `cbor:"breakpoints,omitempty"`
	Console     []string        `cbor:"console,omitempty"`
}

// canonical encoding, so equal snapshots give equal bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("debug: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// EncodeSnapshot serializes a snapshot to CBOR.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return encMode.Marshal(s)
}

// DecodeSnapshot deserializes a snapshot written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("debug: unmarshal snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("debug: snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	return s, nil
}

// EncodeValue serializes any debug result (a value, task list or script
// detail) to CBOR.
func EncodeValue(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// WriteText prints the snapshot for a terminal.
func (s Snapshot) WriteText(w io.Writer) error {
	var b strings.Builder
	st := s.State
	fmt.Fprintf(&b, "frame %d  tempo %d  playing %v  halted %v\n", st.Frame, st.Tempo, st.Playing, st.Halted)
	if st.Suspended {
		fmt.Fprintf(&b, "stopped in task %d at %s:%s:%d\n", st.Task, st.Script, st.Handler, st.Index)
	}
	for _, r := range st.Pending {
		fmt.Fprintf(&b, "waiting for %s (%s)\n", r.URL, r.ID)
	}
	if len(s.Tasks) > 0 {
		b.WriteString("tasks:\n")
		writeTasks(&b, s.Tasks)
	}
	if len(s.Globals) > 0 {
		b.WriteString("globals:\n")
		writeVars(&b, "  ", s.Globals)
	}
	if len(s.Breakpoints) > 0 {
		b.WriteString("breakpoints:\n")
		writeBreakpoints(&b, s.Breakpoints)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTasks(b *strings.Builder, tasks []vm.TaskInfo) {
	for _, t := range tasks {
		fmt.Fprintf(b, "  #%d %s (%s)", t.ID, t.Event, t.State)
		if t.AsyncID != "" {
			fmt.Fprintf(b, " waiting %s", t.AsyncID)
		}
		b.WriteByte('\n')
		for i := len(t.Scopes) - 1; i >= 0; i-- {
			sc := t.Scopes[i]
			fmt.Fprintf(b, "    %s:%s [%d]", sc.Script, sc.Handler, sc.Index)
			if sc.Line != "" {
				fmt.Fprintf(b, "  %s", sc.Line)
			}
			b.WriteByte('\n')
			writeVars(b, "      ", sc.Args)
			writeVars(b, "      ", sc.Locals)
		}
	}
}

func writeVars(b *strings.Builder, indent string, vars []vm.NamedValue) {
	for _, nv := range vars {
		fmt.Fprintf(b, "%s%s = %s\n", indent, nv.Name, FormatValue(nv.Value))
	}
}

func writeBreakpoints(b *strings.Builder, bps []vm.Breakpoint) {
	for _, bp := range bps {
		state := "on"
		if !bp.Enabled {
			state = "off"
		}
		fmt.Fprintf(b, "  %s (%s)\n", bp, state)
	}
}

// FormatValue renders a value with its ilk and, for containers, the arena
// handle to inspect it by.
func FormatValue(v vm.Value) string {
	s := v.Text
	if v.Truncated {
		s += " ..."
	}
	if v.Handle != 0 {
		return fmt.Sprintf("%s  <%s @%d>", s, v.Ilk, v.Handle)
	}
	return s
}
