package vm

import (
	"github.com/zurustar/dirplayer/pkg/datum"
)

// netErrorNoData is the code netError reports for a failed fetch.
const netErrorNoData = 4165

func (vm *VM) registerNetBuiltins() {
	fetch := func(kind string) BuiltinFunc {
		return func(t *Task, args []datum.Datum) (datum.Datum, error) {
			if err := needArgs(kind, args, 1); err != nil {
				return datum.Void, err
			}
			body := ""
			if kind == AsyncPostText && len(args) > 1 {
				body = t.vm.arena.Format(args[1])
			}
			req, err := t.awaitAsync(kind, t.vm.argString(args, 0), body)
			if err != nil {
				return datum.Void, err
			}
			return datum.Int(int64(req.NetID)), nil
		}
	}
	vm.RegisterBuiltinFunction("getNetText", fetch(AsyncGetText))
	vm.RegisterBuiltinFunction("postNetText", fetch(AsyncPostText))
	vm.RegisterBuiltinFunction("preloadNetThing", fetch(AsyncPreload))

	vm.RegisterBuiltinFunction("netDone", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		req, err := t.vm.netRequest(args)
		if err != nil || req == nil {
			return datum.Int(1), err
		}
		return datum.Bool(req.Done), nil
	})

	vm.RegisterBuiltinFunction("netTextResult", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		req, err := t.vm.netRequest(args)
		if err != nil || req == nil {
			return datum.String(""), err
		}
		return datum.String(string(req.Data)), nil
	})

	vm.RegisterBuiltinFunction("netError", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		req, err := t.vm.netRequest(args)
		if err != nil {
			return datum.Void, err
		}
		switch {
		case req == nil, !req.Done:
			return datum.String(""), nil
		case req.Failed:
			return datum.Int(netErrorNoData), nil
		}
		return datum.String("OK"), nil
	})

	// getStreamStatus reports a finished request as a prop list.
	vm.RegisterBuiltinFunction("getStreamStatus", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		req, err := t.vm.netRequest(args)
		if err != nil {
			return datum.Void, err
		}
		if req == nil {
			return datum.Void, nil
		}
		state, code := "InProgress", datum.Int(0)
		if req.Done {
			state = "Complete"
			if req.Failed {
				state, code = "Error", datum.Int(netErrorNoData)
			}
		}
		n := int64(len(req.Data))
		return t.vm.arena.NewPropList(
			datum.PropEntry{Key: datum.Symbol("URL"), Value: datum.String(req.URL)},
			datum.PropEntry{Key: datum.Symbol("state"), Value: datum.String(state)},
			datum.PropEntry{Key: datum.Symbol("bytesSoFar"), Value: datum.Int(n)},
			datum.PropEntry{Key: datum.Symbol("bytesTotal"), Value: datum.Int(n)},
			datum.PropEntry{Key: datum.Symbol("error"), Value: code},
		), nil
	})
}

// netRequest resolves an optional net id argument; without one it is the
// most recent request.
func (vm *VM) netRequest(args []datum.Datum) (*AsyncRequest, error) {
	if len(args) == 0 || args[0].IsVoid() {
		return vm.net[vm.netSeq], nil
	}
	id, err := datum.ToInt(args[0])
	if err != nil {
		return nil, err
	}
	return vm.net[int(id)], nil
}
