package debug

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/zurustar/dirplayer/pkg/engine"
	"github.com/zurustar/dirplayer/pkg/vm"
)

const (
	prompt      = "dir> "
	historyFile = ".dirplayer_history"
)

// errQuit ends the console loop.
var errQuit = errors.New("quit")

// Console is a line-oriented debugger in front of a Surface.
type Console struct {
	s   *Surface
	p   *engine.Player
	out io.Writer
	mu  sync.Mutex
}

// NewConsole creates a console for p writing to out.
func NewConsole(p *engine.Player, out io.Writer) *Console {
	return &Console{s: NewSurface(p), p: p, out: out}
}

// Surface returns the query surface behind the console.
func (c *Console) Surface() *Surface { return c.s }

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Watch prints script errors, put output and network requests as they
// happen. Call the returned function to stop.
func (c *Console) Watch() func() {
	ids := []int{
		c.p.Subscribe(vm.NotifyScriptError, func(n vm.Notification) {
			if info, ok := n.Payload.(vm.ScriptErrorInfo); ok {
				c.printf("error: [%s] %s at %s:%s[%d]\n", info.Type, info.Message, info.Script, info.Handler, info.Index)
			}
		}),
		c.p.Subscribe(vm.NotifyDebugMessage, func(n vm.Notification) {
			if line, ok := n.Payload.(string); ok {
				c.printf("%s\n", line)
			}
		}),
		c.p.Subscribe(vm.NotifyAsyncRequest, func(n vm.Notification) {
			if info, ok := n.Payload.(vm.AsyncRequestInfo); ok {
				c.printf("request %s: %s (answer with: provide %s <file>)\n", info.ID, info.URL, info.ID)
			}
		}),
	}
	return func() {
		for _, id := range ids {
			c.p.Unsubscribe(id)
		}
	}
}

// Run reads commands until quit, end of input or ctx is cancelled. A
// terminal gets line editing and history; other input is read line by
// line.
func (c *Console) Run(ctx context.Context, in *os.File) error {
	stop := c.Watch()
	defer stop()
	if term.IsTerminal(int(in.Fd())) {
		return c.runLiner(ctx)
	}
	return c.RunReader(ctx, in)
}

func (c *Console) runLiner(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(complete)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for ctx.Err() == nil {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if err := c.Exec(line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			c.printf("%v\n", err)
		}
	}
	return ctx.Err()
}

// RunReader executes one command per line of r.
func (c *Console) RunReader(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := c.Exec(line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			c.printf("%v\n", err)
		}
	}
	return sc.Err()
}

type command struct {
	usage string
	run   func(c *Console, args []string, rest string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":     {"help", (*Console).help},
		"quit":     {"quit", func(*Console, []string, string) error { return errQuit }},
		"play":     {"play", func(c *Console, _ []string, _ string) error { return c.p.Play() }},
		"stop":     {"stop", func(c *Console, _ []string, _ string) error { return c.p.Stop() }},
		"reset":    {"reset", func(c *Console, _ []string, _ string) error { return c.p.Reset() }},
		"tick":     {"tick [n]", (*Console).tick},
		"frame":    {"frame <n>", (*Console).frame},
		"continue": {"continue", func(c *Console, _ []string, _ string) error { return c.p.Resume() }},
		"step":     {"step", func(c *Console, _ []string, _ string) error { return c.afterStep(c.p.StepInto()) }},
		"next":     {"next", func(c *Console, _ []string, _ string) error { return c.afterStep(c.p.StepOver()) }},
		"out":      {"out", func(c *Console, _ []string, _ string) error { return c.afterStep(c.p.StepOut()) }},
		"break":    {"break <script:handler:index>", (*Console).setBreak},
		"delete":   {"delete <script:handler:index>", (*Console).deleteBreak},
		"toggle":   {"toggle <script:handler:index>", (*Console).toggleBreak},
		"breaks":   {"breaks", (*Console).listBreaks},
		"scripts":  {"scripts", (*Console).scripts},
		"script":   {"script <lib> <member>", (*Console).script},
		"dis":      {"dis <lib> <member> <handler>", (*Console).disassemble},
		"stack":    {"stack", (*Console).stack},
		"globals":  {"globals", (*Console).globals},
		"state":    {"state", (*Console).state},
		"console":  {"console", (*Console).console},
		"inspect":  {"inspect <handle>", (*Console).inspect},
		"print":    {"print <expression>", (*Console).eval},
		"provide":  {"provide <request-id> <file>", (*Console).provide},
		"dump":     {"dump <file>", (*Console).dump},
	}
	aliases := map[string]string{"c": "continue", "s": "step", "n": "next", "b": "break", "p": "print", "bt": "stack", "q": "quit", "?": "help"}
	for a, name := range aliases {
		commands[a] = commands[name]
	}
}

func complete(line string) []string {
	var out []string
	for name := range commands {
		if len(name) > 2 && strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	return out
}

// Exec runs one console command. A line that is not a command is
// evaluated as an expression.
func (c *Console) Exec(line string) error {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return c.eval(nil, line)
	}
	rest := strings.TrimSpace(line[len(fields[0]):])
	return cmd.run(c, fields[1:], rest)
}

func (c *Console) help(_ []string, _ string) error {
	seen := map[string]bool{}
	var lines []string
	for _, cmd := range commands {
		if !seen[cmd.usage] {
			seen[cmd.usage] = true
			lines = append(lines, "  "+cmd.usage)
		}
	}
	slices.Sort(lines)
	c.printf("commands:\n%s\nanything else is evaluated as an expression\n", strings.Join(lines, "\n"))
	return nil
}

func (c *Console) tick(args []string, _ string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("tick: bad count %q", args[0])
		}
		n = v
	}
	var errs []error
	for range n {
		errs = append(errs, c.p.Tick())
	}
	c.printf("frame %d\n", c.p.Frame())
	return errors.Join(errs...)
}

func (c *Console) frame(args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: frame <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	return c.p.GoToFrame(n)
}

func (c *Console) afterStep(err error) error {
	if err != nil {
		return err
	}
	st := c.s.ExecutionState()
	if st.Suspended {
		c.printf("%s:%s [%d]\n", st.Script, st.Handler, st.Index)
	}
	return nil
}

func (c *Console) setBreak(_ []string, rest string) error {
	bp, err := c.s.SetBreakpoint(rest)
	if err != nil {
		return err
	}
	c.printf("breakpoint %s\n", bp)
	return nil
}

func (c *Console) deleteBreak(_ []string, rest string) error {
	return c.s.RemoveBreakpoint(rest)
}

func (c *Console) toggleBreak(_ []string, rest string) error {
	bp, err := vm.ParseBreakpoint(rest)
	if err != nil {
		return err
	}
	on := c.p.ToggleBreakpoint(bp.Script, bp.Handler, bp.Index)
	c.printf("breakpoint %s enabled=%v\n", bp, on)
	return nil
}

func (c *Console) listBreaks(_ []string, _ string) error {
	var b strings.Builder
	writeBreakpoints(&b, c.s.Breakpoints())
	c.printf("%s", b.String())
	return nil
}

func (c *Console) scripts(_ []string, _ string) error {
	list, err := c.s.ListScripts()
	if err != nil {
		return err
	}
	for _, sc := range list {
		c.printf("%d:%d %s (%s) %s\n", sc.Lib, sc.Member, sc.Name, sc.Kind, strings.Join(sc.Handlers, ", "))
	}
	return nil
}

func parseMember(args []string) (int, int, error) {
	if len(args) < 2 {
		return 0, 0, errors.New("want <lib> <member>")
	}
	lib, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("lib: %w", err)
	}
	mem, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("member: %w", err)
	}
	return lib, mem, nil
}

func (c *Console) script(args []string, _ string) error {
	lib, mem, err := parseMember(args)
	if err != nil {
		return err
	}
	d, err := c.s.ScriptDetail(lib, mem)
	if err != nil {
		return err
	}
	c.printf("%s (%s)\n", d.Name, d.Kind)
	if len(d.Properties) > 0 {
		c.printf("  property %s\n", strings.Join(d.Properties, ", "))
	}
	if len(d.Globals) > 0 {
		c.printf("  global %s\n", strings.Join(d.Globals, ", "))
	}
	for _, h := range d.Detail {
		c.printf("  on %s %s  -- %d instructions\n", h.Name, strings.Join(h.Args, ", "), h.Length)
	}
	return nil
}

func (c *Console) disassemble(args []string, _ string) error {
	lib, mem, err := parseMember(args)
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return errors.New("usage: dis <lib> <member> <handler>")
	}
	code, err := c.s.Disassemble(lib, mem, args[2])
	if err != nil {
		return err
	}
	for _, in := range code {
		mark := "  "
		switch {
		case in.Current:
			mark = "->"
		case in.Breakpoint:
			mark = "* "
		}
		c.printf("%s %3d %s\n", mark, in.Index, in.Text)
	}
	return nil
}

func (c *Console) stack(_ []string, _ string) error {
	var b strings.Builder
	writeTasks(&b, c.s.CallStack())
	c.printf("%s", b.String())
	return nil
}

func (c *Console) globals(_ []string, _ string) error {
	var b strings.Builder
	writeVars(&b, "", c.s.Globals())
	c.printf("%s", b.String())
	return nil
}

func (c *Console) state(_ []string, _ string) error {
	var b strings.Builder
	if err := c.s.Snapshot().WriteText(&b); err != nil {
		return err
	}
	c.printf("%s", b.String())
	return nil
}

func (c *Console) console(_ []string, _ string) error {
	for _, line := range c.s.ConsoleOutput() {
		c.printf("%s\n", line)
	}
	return nil
}

func (c *Console) inspect(args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: inspect <handle>")
	}
	h, err := strconv.ParseUint(strings.TrimPrefix(args[0], "@"), 10, 32)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	v, err := c.s.InspectDatum(uint32(h))
	if err != nil {
		return err
	}
	c.printf("%s\n", FormatValue(v))
	for i, item := range v.Items {
		key := strconv.Itoa(i + 1)
		if i < len(v.Keys) {
			key = v.Keys[i].Text
		}
		c.printf("  %s: %s\n", key, FormatValue(item))
	}
	return nil
}

func (c *Console) eval(_ []string, rest string) error {
	if rest == "" {
		return errors.New("usage: print <expression>")
	}
	v, err := c.s.Eval(rest)
	if err != nil {
		return err
	}
	c.printf("%s\n", FormatValue(v))
	return nil
}

func (c *Console) provide(args []string, _ string) error {
	if len(args) != 2 {
		return errors.New("usage: provide <request-id> <file>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("provide: %w", err)
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		c.printf("%v; answering with an empty result\n", err)
		data = nil
	}
	return c.p.ProvideAsyncResource(id, data)
}

func (c *Console) dump(args []string, _ string) error {
	if len(args) != 1 {
		return errors.New("usage: dump <file>")
	}
	data, err := EncodeSnapshot(c.s.Snapshot())
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	c.printf("wrote %d bytes to %s\n", len(data), args[0])
	return nil
}
