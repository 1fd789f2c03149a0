package vm

// NotificationKind identifies a VM to host notification.
type NotificationKind string

const (
	NotifyMovieLoaded           NotificationKind = "movie-loaded"
	NotifyCastListChanged       NotificationKind = "cast-list-changed"
	NotifyCastMemberChanged     NotificationKind = "cast-member-changed"
	NotifyScoreChanged          NotificationKind = "score-changed"
	NotifyFrameChanged          NotificationKind = "frame-changed"
	NotifyScopeListChanged      NotificationKind = "scope-list-changed"
	NotifyScriptError           NotificationKind = "script-error"
	NotifyBreakpointListChanged NotificationKind = "breakpoint-list-changed"
	NotifyGlobalListChanged     NotificationKind = "global-list-changed"
	NotifyDebugMessage          NotificationKind = "debug-message"
	NotifyDatumSnapshot         NotificationKind = "datum-snapshot"
	NotifyAsyncRequest          NotificationKind = "async-request"
)

// Notification carries a resolved snapshot, never a live reference into the
// VM. Payload types by kind:
//
//	movie-loaded             MovieInfo
//	cast-list-changed        []CastInfo
//	cast-member-changed      MemberInfo
//	score-changed, frame-changed FrameInfo
//	scope-list-changed       []TaskInfo
//	script-error             ScriptErrorInfo
//	breakpoint-list-changed  []Breakpoint
//	global-list-changed      []NamedValue
//	debug-message            string
//	datum-snapshot           Value
//	async-request            AsyncRequestInfo
type Notification struct {
	Kind    NotificationKind
	Payload any
}

type subscription struct {
	kind NotificationKind
	fn   func(Notification)
}

// Subscribe registers fn for notifications of kind, or of every kind when
// kind is empty. fn runs synchronously while the VM is locked and must not
// call back into the VM.
func (vm *VM) Subscribe(kind NotificationKind, fn func(Notification)) int {
	vm.subsMu.Lock()
	defer vm.subsMu.Unlock()
	vm.subSeq++
	vm.subs[vm.subSeq] = subscription{kind: kind, fn: fn}
	return vm.subSeq
}

// Unsubscribe removes a subscription.
func (vm *VM) Unsubscribe(id int) {
	vm.subsMu.Lock()
	defer vm.subsMu.Unlock()
	delete(vm.subs, id)
}

func (vm *VM) notify(kind NotificationKind, payload any) {
	vm.subsMu.Lock()
	var fns []func(Notification)
	for id := 1; id <= vm.subSeq; id++ {
		if s, ok := vm.subs[id]; ok && (s.kind == "" || s.kind == kind) {
			fns = append(fns, s.fn)
		}
	}
	vm.subsMu.Unlock()
	n := Notification{Kind: kind, Payload: payload}
	for _, fn := range fns {
		fn(n)
	}
}
