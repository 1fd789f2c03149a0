package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

func (t *Task) executeProperty(s *Scope, op opcode.OpCode) error {
	switch op.Cmd {
	case opcode.Get:
		return t.executeGet(s, int(op.Obj))
	case opcode.Set:
		return t.executeSet(s, int(op.Obj))
	}
	name, err := s.name(op.Obj)
	if err != nil {
		return err
	}
	switch op.Cmd {
	case opcode.GetMovieProp:
		v, err := t.theProp(s, name)
		if err != nil {
			return err
		}
		s.push(v)
	case opcode.SetMovieProp:
		v, err := s.pop()
		if err != nil {
			return err
		}
		return t.vm.setTheProp(name, v)
	case opcode.TheBuiltin:
		if _, _, err := t.popArgs(s); err != nil {
			return err
		}
		v, err := t.theProp(s, name)
		if err != nil {
			return err
		}
		s.push(v)
	case opcode.GetObjProp:
		obj, err := s.pop()
		if err != nil {
			return err
		}
		v, err := t.objProp(s, obj, name)
		if err != nil {
			return err
		}
		s.push(v)
	case opcode.SetObjProp:
		v, err := s.pop()
		if err != nil {
			return err
		}
		obj, err := s.pop()
		if err != nil {
			return err
		}
		return t.setObjProp(obj, name, v)
	case opcode.GetChainedProp:
		obj, err := s.pop()
		if err != nil {
			return err
		}
		v, err := t.chainedProp(s, obj, name)
		if err != nil {
			return err
		}
		s.push(v)
	case opcode.GetTopLevelProp:
		switch strings.ToLower(name) {
		case "_movie", "_player":
			s.push(datum.Symbol(name))
		default:
			return NewTypeError("unknown top level property %s", name)
		}
	}
	return nil
}

func (t *Task) executeGet(s *Scope, propType int) error {
	vm := t.vm
	idv, err := s.pop()
	if err != nil {
		return err
	}
	id64, err := datum.ToInt(idv)
	if err != nil {
		return err
	}
	id := int(id64)
	var v datum.Datum
	switch propType {
	case opcode.PropMovie:
		if id < len(opcode.MovieProps) {
			v, err = t.theProp(s, opcode.MovieProps[id])
			break
		}
		str, err2 := s.pop()
		if err2 != nil {
			return err2
		}
		v = datum.String(datum.LastChunk(vm.arena.String(str), datum.ChunkType(id-0x0b), vm.itemDelim))
	case opcode.PropCount:
		str, err2 := s.pop()
		if err2 != nil {
			return err2
		}
		v = datum.Int(int64(datum.ChunkCount(vm.arena.String(str), datum.ChunkType(id), vm.itemDelim)))
	case opcode.PropSprite:
		name := opcode.PropName(opcode.SpriteProps, id)
		if name == "" {
			return NewTypeError("unknown sprite property %d", id)
		}
		sv, err2 := s.pop()
		if err2 != nil {
			return err2
		}
		n, err2 := spriteNumber(sv)
		if err2 != nil {
			return err2
		}
		v, err = vm.spriteProp(n, name)
	case opcode.PropAnim:
		name := opcode.PropName(opcode.AnimProps, id)
		if name == "" {
			return NewTypeError("unknown movie property %d", id)
		}
		v, err = t.theProp(s, name)
	case opcode.PropAnim2:
		v, err = t.anim2Prop(s, id)
	default:
		return NewTypeError("property type %d is not supported", propType)
	}
	if err != nil {
		return err
	}
	s.push(v)
	return nil
}

func (t *Task) anim2Prop(s *Scope, id int) (datum.Datum, error) {
	vm := t.vm
	switch id {
	case 2:
		lib := datum.Int(0)
		if s.Options.Version >= 500 {
			v, err := s.pop()
			if err != nil {
				return datum.Void, err
			}
			lib = v
		}
		var c *movie.CastLib
		switch {
		case lib.Kind == datum.KindString:
			c, _ = vm.movie.CastByName(lib.S)
		case lib.I > 0:
			c, _ = vm.movie.Cast(int(lib.I))
		default:
			c, _ = vm.movie.Cast(1)
		}
		if c == nil {
			return datum.Void, NewTypeError("castLib %s not found", vm.arena.Format(lib))
		}
		return datum.Int(int64(maxMember(c))), nil
	case 4:
		return datum.Int(int64(len(vm.movie.Casts))), nil
	case 1, 3, 5:
		return datum.Int(0), nil
	}
	return datum.Void, NewTypeError("unknown movie property %d", id)
}

func maxMember(c *movie.CastLib) int {
	n := 0
	for k := range c.Members {
		n = max(n, k)
	}
	return n
}

func (t *Task) executeSet(s *Scope, propType int) error {
	vm := t.vm
	idv, err := s.pop()
	if err != nil {
		return err
	}
	id64, err := datum.ToInt(idv)
	if err != nil {
		return err
	}
	id := int(id64)
	v, err := s.pop()
	if err != nil {
		return err
	}
	switch propType {
	case opcode.PropMovie:
		if id >= len(opcode.MovieProps) {
			return NewTypeError("movie property %d cannot be set", id)
		}
		return vm.setTheProp(opcode.MovieProps[id], v)
	case opcode.PropSprite:
		name := opcode.PropName(opcode.SpriteProps, id)
		if name == "" {
			return NewTypeError("unknown sprite property %d", id)
		}
		sv, err := s.pop()
		if err != nil {
			return err
		}
		n, err := spriteNumber(sv)
		if err != nil {
			return err
		}
		return vm.setSpriteProp(n, name, v)
	case opcode.PropAnim:
		name := opcode.PropName(opcode.AnimProps, id)
		if name == "" {
			return NewTypeError("unknown movie property %d", id)
		}
		return vm.setTheProp(name, v)
	}
	return NewTypeError("property type %d cannot be set", propType)
}

// theProp reads a "the" property of the movie or player.
func (t *Task) theProp(s *Scope, name string) (datum.Datum, error) {
	vm := t.vm
	switch strings.ToLower(name) {
	case "paramcount":
		if s == nil {
			return datum.Int(0), nil
		}
		return datum.Int(int64(len(s.Args))), nil
	case "result":
		if s == nil {
			return datum.Void, nil
		}
		return s.lastCall, nil
	case "currentspritenum":
		if s != nil && s.Receiver.Kind == datum.KindInstance {
			if v, ok, _ := vm.arena.InstanceProp(s.Receiver, "spriteNum"); ok {
				return v, nil
			}
		}
		return datum.Int(0), nil
	}
	return vm.movieProp(name)
}

func (vm *VM) movieProp(name string) (datum.Datum, error) {
	st := vm.stage
	now := vm.clock()
	switch strings.ToLower(name) {
	case "frame":
		return datum.Int(int64(st.Frame)), nil
	case "framelabel":
		if vm.movie != nil && vm.movie.Score != nil {
			if l := vm.movie.Score.LabelAt(st.Frame); l != "" {
				return datum.String(l), nil
			}
		}
		return datum.Int(0), nil
	case "lastframe":
		if vm.movie != nil && vm.movie.Score != nil {
			return datum.Int(int64(vm.movie.Score.FrameCount)), nil
		}
		return datum.Int(0), nil
	case "moviename":
		if vm.movie != nil {
			return datum.String(vm.movie.Name), nil
		}
		return datum.String(""), nil
	case "moviepath", "pathname", "applicationpath":
		return datum.String(""), nil
	case "frametempo", "tempo":
		return datum.Int(int64(st.Tempo)), nil
	case "ticks":
		return datum.Int(vm.ticks()), nil
	case "milliseconds":
		return datum.Int(vm.milliseconds()), nil
	case "timer":
		return datum.Int(vm.ticks() - vm.timerStart), nil
	case "mouseh":
		return datum.Int(int64(st.MouseH)), nil
	case "mousev":
		return datum.Int(int64(st.MouseV)), nil
	case "mouseloc":
		return datum.Point(int64(st.MouseH), int64(st.MouseV)), nil
	case "mousedown", "stilldown":
		return datum.Bool(st.MouseDown), nil
	case "mouseup":
		return datum.Bool(!st.MouseDown), nil
	case "clickon":
		return datum.Int(int64(st.ClickOn)), nil
	case "rollover", "lastroll":
		return datum.Int(int64(st.RollOver)), nil
	case "key", "lastkey":
		return datum.String(st.Key), nil
	case "keycode":
		return datum.Int(int64(st.KeyCode)), nil
	case "lastclick":
		return datum.Int(vm.ticks() - st.LastClick), nil
	case "lastevent":
		return datum.Int(vm.ticks() - st.LastEvent), nil
	case "shiftdown", "optiondown", "commanddown", "controldown", "altdown", "doubleclick":
		return datum.Bool(false), nil
	case "floatprecision":
		return datum.Int(int64(vm.arena.FloatPrecision)), nil
	case "itemdelimiter":
		return datum.String(string(vm.itemDelim)), nil
	case "actorlist":
		return vm.actorList, nil
	case "exitlock":
		return datum.Bool(st.ExitLock), nil
	case "pausestate":
		return datum.Bool(st.Paused), nil
	case "stageleft", "stagetop":
		return datum.Int(0), nil
	case "stageright":
		return datum.Int(int64(st.Width)), nil
	case "stagebottom":
		return datum.Int(int64(st.Height)), nil
	case "maxinteger":
		return datum.Int(math.MaxInt32), nil
	case "pi":
		return datum.Float(math.Pi), nil
	case "short time":
		return datum.String(now.Format("3:04 PM")), nil
	case "abbr time", "abbreviated time":
		return datum.String(now.Format("3:04 PM")), nil
	case "long time", "time":
		return datum.String(now.Format("3:04:05 PM")), nil
	case "short date", "date":
		return datum.String(now.Format("1/2/06")), nil
	case "abbr date", "abbreviated date":
		return datum.String(now.Format("Mon, Jan 2, 2006")), nil
	case "long date":
		return datum.String(now.Format("Monday, January 2, 2006")), nil
	case "platform":
		return datum.String("Windows,32"), nil
	case "runmode":
		return datum.String("Projector"), nil
	case "productversion":
		return datum.String(strconv.Itoa(vm.movieVersion()/100) + ".0"), nil
	case "colordepth":
		return datum.Int(32), nil
	case "netpresent", "soundenabled", "centerstage", "safeplayer":
		if v, ok := vm.props[strings.ToLower(name)]; ok {
			return v, nil
		}
		return datum.Bool(true), nil
	case "number of castlibs":
		if vm.movie != nil {
			return datum.Int(int64(len(vm.movie.Casts))), nil
		}
		return datum.Int(0), nil
	case "number of castmembers":
		if vm.movie != nil {
			if c, ok := vm.movie.Cast(1); ok {
				return datum.Int(int64(maxMember(c))), nil
			}
		}
		return datum.Int(0), nil
	case "timeoutlapsed":
		return datum.Int(vm.ticks() - st.LastEvent), nil
	}
	if v, ok := vm.props[strings.ToLower(name)]; ok {
		return v, nil
	}
	if isSettableProp(name) {
		return datum.Int(0), nil
	}
	return datum.Void, NewTypeError("unknown property the %s", name)
}

func (vm *VM) movieVersion() int {
	if vm.movie == nil {
		return 0
	}
	return vm.movie.Version
}

// settableProps are movie properties scripts may assign without an effect
// beyond reading them back.
var settableProps = map[string]bool{
	"mousedownscript": true, "mouseupscript": true, "keydownscript": true,
	"keyupscript": true, "timeoutscript": true, "keyboardfocussprite": true,
	"selstart": true, "selend": true, "centerstage": true, "soundenabled": true,
	"soundlevel": true, "beepon": true, "stagecolor": true, "timeoutlength": true,
	"timeoutkeydown": true, "timeoutmouse": true, "timeoutplay": true,
	"buttonstyle": true, "checkboxaccess": true, "checkboxtype": true,
	"fixstagesize": true, "fullcolorpermit": true, "imagedirect": true,
	"colorqd": true, "switchcolordepth": true, "preloadram": true,
	"multisound": true, "soundkeepdevice": true, "soundmixmedia": true,
	"updatelock": true, "cursor": true, "netpresent": true, "safeplayer": true,
	"quicktimepresent": true, "videoforwindowspresent": true, "perframework": true,
}

func isSettableProp(name string) bool { return settableProps[strings.ToLower(name)] }

func (vm *VM) setTheProp(name string, v datum.Datum) error {
	key := strings.ToLower(name)
	switch key {
	case "floatprecision":
		n, err := datum.ToInt(v)
		if err != nil {
			return err
		}
		vm.arena.FloatPrecision = int(n)
	case "itemdelimiter":
		str := vm.arena.String(v)
		if str == "" {
			return NewTypeError("itemDelimiter must not be empty")
		}
		vm.itemDelim = []rune(str)[0]
	case "actorlist":
		if v.Kind != datum.KindList {
			return NewTypeError("actorList must be a list, got %s", v.Ilk())
		}
		vm.actorList = v
	case "exitlock":
		vm.stage.ExitLock = datum.Truthy(v)
	case "frametempo", "tempo":
		n, err := datum.ToInt(v)
		if err != nil {
			return err
		}
		if n > 0 {
			vm.stage.Tempo = int(n)
		}
	case "timer":
		vm.timerStart = vm.ticks()
	default:
		if !isSettableProp(key) {
			return NewTypeError("the %s cannot be set", name)
		}
		vm.props[key] = v
	}
	return nil
}

func (vm *VM) spriteProp(n int, name string) (datum.Datum, error) {
	sp, ok := vm.stage.Sprite(n)
	if !ok {
		return datum.Void, NewIndexOutOfRangeError(n, len(vm.stage.Sprites))
	}
	switch strings.ToLower(name) {
	case "type":
		return datum.Int(int64(sp.Type)), nil
	case "spritenum":
		return datum.Int(int64(sp.Channel)), nil
	case "backcolor":
		return datum.Int(int64(sp.BackColor)), nil
	case "forecolor":
		return datum.Int(int64(sp.ForeColor)), nil
	case "castnum":
		if sp.CastLib > 1 {
			return datum.Int(int64(sp.CastLib<<16 | sp.Member)), nil
		}
		return datum.Int(int64(sp.Member)), nil
	case "membernum":
		return datum.Int(int64(sp.Member)), nil
	case "castlibnum":
		return datum.Int(int64(sp.CastLib)), nil
	case "member":
		return sp.MemberRef(), nil
	case "loch", "left":
		return datum.Int(int64(sp.LocH)), nil
	case "locv", "top":
		return datum.Int(int64(sp.LocV)), nil
	case "right":
		return datum.Int(int64(sp.LocH + sp.Width)), nil
	case "bottom":
		return datum.Int(int64(sp.LocV + sp.Height)), nil
	case "width":
		return datum.Int(int64(sp.Width)), nil
	case "height":
		return datum.Int(int64(sp.Height)), nil
	case "loc":
		return datum.Point(int64(sp.LocH), int64(sp.LocV)), nil
	case "rect":
		r := sp.Rect()
		return datum.Rect(int64(r.Min.X), int64(r.Min.Y), int64(r.Max.X), int64(r.Max.Y)), nil
	case "ink":
		return datum.Int(int64(sp.Ink)), nil
	case "blend":
		return datum.Int(int64(sp.Blend)), nil
	case "visible", "visibility":
		return datum.Bool(sp.Visible), nil
	case "puppet":
		return datum.Bool(sp.Puppet), nil
	case "scriptinstancelist":
		return vm.arena.NewList(sp.Behaviors...), nil
	}
	if v, ok := sp.Props[strings.ToLower(name)]; ok {
		return v, nil
	}
	return datum.Int(0), nil
}

func (vm *VM) setSpriteProp(n int, name string, v datum.Datum) error {
	sp, ok := vm.stage.Sprite(n)
	if !ok {
		return NewIndexOutOfRangeError(n, len(vm.stage.Sprites))
	}
	key := strings.ToLower(name)
	intVal := func(dst *int) error {
		i, err := datum.ToInt(v)
		if err != nil {
			return err
		}
		*dst = int(i)
		return nil
	}
	switch key {
	case "loch", "left":
		return intVal(&sp.LocH)
	case "locv", "top":
		return intVal(&sp.LocV)
	case "width":
		return intVal(&sp.Width)
	case "height":
		return intVal(&sp.Height)
	case "right":
		var r int
		if err := intVal(&r); err != nil {
			return err
		}
		sp.Width = r - sp.LocH
	case "bottom":
		var b int
		if err := intVal(&b); err != nil {
			return err
		}
		sp.Height = b - sp.LocV
	case "ink":
		return intVal(&sp.Ink)
	case "blend":
		return intVal(&sp.Blend)
	case "forecolor":
		return intVal(&sp.ForeColor)
	case "backcolor":
		return intVal(&sp.BackColor)
	case "type":
		return intVal(&sp.Type)
	case "visible", "visibility":
		sp.Visible = datum.Truthy(v)
	case "puppet":
		sp.Puppet = datum.Truthy(v)
	case "loc":
		if v.Kind != datum.KindPoint {
			return NewTypeError("loc must be a point, got %s", v.Ilk())
		}
		sp.LocH, sp.LocV = int(v.P[0]), int(v.P[1])
	case "rect":
		if v.Kind != datum.KindRect {
			return NewTypeError("rect must be a rect, got %s", v.Ilk())
		}
		sp.LocH, sp.LocV = int(v.P[0]), int(v.P[1])
		sp.Width, sp.Height = int(v.P[2]-v.P[0]), int(v.P[3]-v.P[1])
	case "member", "castnum", "membernum":
		lib, mem, err := vm.memberNumber(v, sp.CastLib)
		if err != nil {
			return err
		}
		sp.CastLib, sp.Member = lib, mem
	case "scriptinstancelist":
		l, err := vm.arena.List(v)
		if err != nil {
			return err
		}
		sp.Behaviors = append([]datum.Datum(nil), l.Items...)
	default:
		if sp.Props == nil {
			sp.Props = make(map[string]datum.Datum)
		}
		sp.Props[key] = v
	}
	return nil
}

// memberNumber resolves a member reference, name or number to a library
// and member number. Plain numbers above 0xffff encode the library in the
// high word.
func (vm *VM) memberNumber(v datum.Datum, defLib int) (int, int, error) {
	switch v.Kind {
	case datum.KindMemberRef:
		return int(v.I), int(v.J), nil
	case datum.KindString:
		m, err := vm.resolveMember(v, datum.Void)
		if err != nil {
			return 0, 0, err
		}
		return m.Lib, m.Number, nil
	}
	n, err := datum.ToInt(v)
	if err != nil {
		return 0, 0, err
	}
	if n > 0xffff {
		return int(n >> 16), int(n & 0xffff), nil
	}
	if defLib == 0 {
		defLib = 1
	}
	return defLib, int(n), nil
}

// objProp reads obj.name.
func (t *Task) objProp(s *Scope, obj datum.Datum, name string) (datum.Datum, error) {
	vm := t.vm
	arena := vm.arena
	key := strings.ToLower(name)
	if key == "ilk" {
		return datum.Symbol(obj.Ilk()), nil
	}
	switch obj.Kind {
	case datum.KindInstance:
		v, ok, err := arena.InstanceProp(obj, name)
		if err != nil {
			return datum.Void, err
		}
		if !ok {
			return datum.Void, NewTypeError("property %s not found on %s", name, arena.Format(obj))
		}
		return v, nil
	case datum.KindSpriteRef:
		return vm.spriteProp(int(obj.I), name)
	case datum.KindMemberRef, datum.KindScriptRef:
		return vm.memberProp(obj, name)
	case datum.KindCastLibRef:
		return vm.castLibProp(int(obj.I), name)
	case datum.KindSymbol:
		switch strings.ToLower(obj.S) {
		case "_movie", "_player":
			return t.theProp(s, name)
		}
	case datum.KindList, datum.KindArgList, datum.KindArgListNoRet:
		if key == "count" {
			n, err := arena.Count(obj)
			return datum.Int(int64(n)), err
		}
	case datum.KindPropList:
		if key == "count" {
			n, err := arena.Count(obj)
			return datum.Int(int64(n)), err
		}
		v, _, err := arena.GetaProp(obj, datum.Symbol(name))
		return v, err
	case datum.KindString:
		if key == "length" {
			return datum.Int(int64(len([]rune(obj.S)))), nil
		}
	case datum.KindPoint:
		switch key {
		case "loch", "x":
			return datum.Int(obj.P[0]), nil
		case "locv", "y":
			return datum.Int(obj.P[1]), nil
		}
	case datum.KindRect:
		switch key {
		case "left":
			return datum.Int(obj.P[0]), nil
		case "top":
			return datum.Int(obj.P[1]), nil
		case "right":
			return datum.Int(obj.P[2]), nil
		case "bottom":
			return datum.Int(obj.P[3]), nil
		case "width":
			return datum.Int(obj.P[2] - obj.P[0]), nil
		case "height":
			return datum.Int(obj.P[3] - obj.P[1]), nil
		}
	case datum.KindColor:
		switch key {
		case "red":
			return datum.Int(obj.P[0]), nil
		case "green":
			return datum.Int(obj.P[1]), nil
		case "blue":
			return datum.Int(obj.P[2]), nil
		case "paletteindex":
			return datum.Int(obj.P[0]), nil
		}
	case datum.KindTimeout:
		return vm.timeoutProp(obj.S, name)
	}
	return datum.Void, NewTypeError("%s has no property %s", obj.Ilk(), name)
}

func (t *Task) setObjProp(obj datum.Datum, name string, v datum.Datum) error {
	vm := t.vm
	switch obj.Kind {
	case datum.KindInstance:
		return vm.arena.SetInstanceProp(obj, name, v)
	case datum.KindSpriteRef:
		return vm.setSpriteProp(int(obj.I), name, v)
	case datum.KindMemberRef:
		return vm.setMemberProp(obj, name, v)
	case datum.KindPropList:
		return vm.arena.SetaProp(obj, datum.Symbol(name), v)
	case datum.KindSymbol:
		switch strings.ToLower(obj.S) {
		case "_movie", "_player":
			return vm.setTheProp(name, v)
		}
	case datum.KindTimeout:
		return vm.setTimeoutProp(obj.S, name, v)
	}
	return NewTypeError("cannot set %s of %s", name, obj.Ilk())
}

// chainedProp resolves a dotted property access: sprite behaviors before
// the sprite itself, numeric names as list indexes.
func (t *Task) chainedProp(s *Scope, obj datum.Datum, name string) (datum.Datum, error) {
	vm := t.vm
	switch obj.Kind {
	case datum.KindSpriteRef:
		if sp, ok := vm.stage.Sprite(int(obj.I)); ok {
			for _, b := range sp.Behaviors {
				if v, ok, err := vm.arena.InstanceProp(b, name); err == nil && ok {
					return v, nil
				}
			}
		}
	case datum.KindList:
		if n, err := strconv.Atoi(name); err == nil {
			return vm.arena.GetAt(obj, n)
		}
	}
	return t.objProp(s, obj, name)
}

func (vm *VM) memberProp(ref datum.Datum, name string) (datum.Datum, error) {
	m, ok := vm.movie.Member(int(ref.I), int(ref.J))
	switch strings.ToLower(name) {
	case "number":
		if ref.I > 1 {
			return datum.Int(ref.I<<16 | ref.J), nil
		}
		return datum.Int(ref.J), nil
	case "membernum":
		return datum.Int(ref.J), nil
	case "castlibnum":
		return datum.Int(ref.I), nil
	}
	if !ok {
		if strings.EqualFold(name, "type") {
			return datum.Symbol("empty"), nil
		}
		return datum.Void, NewTypeError("member %d of castLib %d not found", ref.J, ref.I)
	}
	switch strings.ToLower(name) {
	case "name":
		return datum.String(m.Name), nil
	case "type":
		return datum.Symbol(m.Type.String()), nil
	case "text":
		return datum.String(fieldText(m)), nil
	case "scripttext":
		return datum.String(m.ScriptText), nil
	case "scripttype":
		if m.Script == nil {
			return datum.Void, nil
		}
		return datum.Symbol(m.ScriptType.String()), nil
	case "width":
		if m.BitmapData != nil {
			return datum.Int(int64(m.BitmapData.Width)), nil
		}
		return datum.Int(0), nil
	case "height":
		if m.BitmapData != nil {
			return datum.Int(int64(m.BitmapData.Height)), nil
		}
		return datum.Int(0), nil
	case "rect":
		if m.BitmapData != nil {
			return datum.Rect(0, 0, int64(m.BitmapData.Width), int64(m.BitmapData.Height)), nil
		}
		return datum.Rect(0, 0, 0, 0), nil
	case "depth":
		if m.BitmapData != nil {
			return datum.Int(int64(m.BitmapData.Depth)), nil
		}
		return datum.Int(0), nil
	case "script":
		if m.Script == nil {
			return datum.Void, nil
		}
		return datum.ScriptRef(m.Lib, m.Number), nil
	case "castlib":
		return datum.CastLibRef(m.Lib), nil
	}
	return datum.Void, NewTypeError("member has no property %s", name)
}

func (vm *VM) setMemberProp(ref datum.Datum, name string, v datum.Datum) error {
	m, ok := vm.movie.Member(int(ref.I), int(ref.J))
	if !ok {
		return NewTypeError("member %d of castLib %d not found", ref.J, ref.I)
	}
	switch strings.ToLower(name) {
	case "text":
		return vm.setFieldText(m, vm.arena.String(v))
	case "name":
		m.Name = vm.arena.String(v)
		vm.notify(NotifyCastMemberChanged, MemberInfoOf(m))
		return nil
	}
	return NewTypeError("member property %s cannot be set", name)
}

func (vm *VM) castLibProp(n int, name string) (datum.Datum, error) {
	c, ok := vm.movie.Cast(n)
	if !ok {
		return datum.Void, NewTypeError("castLib %d not found", n)
	}
	switch strings.ToLower(name) {
	case "name":
		return datum.String(c.Name), nil
	case "number":
		return datum.Int(int64(c.Number)), nil
	case "filename":
		return datum.String(c.Path), nil
	case "preloadmode":
		return datum.Int(int64(c.Preload)), nil
	case "membercount":
		return datum.Int(int64(maxMember(c))), nil
	}
	return datum.Void, NewTypeError("castLib has no property %s", name)
}

// memberTypeOf returns the member type of a reference, or MemberNull.
func (vm *VM) memberTypeOf(ref datum.Datum) cast.MemberType {
	if m, ok := vm.movie.Member(int(ref.I), int(ref.J)); ok {
		return m.Type
	}
	return cast.MemberNull
}
