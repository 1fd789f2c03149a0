package vm

import (
	"sort"

	"github.com/google/uuid"
)

// Kinds of async request.
const (
	AsyncGetText  = "getNetText"
	AsyncPostText = "postNetText"
	AsyncPreload  = "preloadNetThing"
)

// AsyncRequest is a resource a suspended task waits on. The host fetches
// it and answers with ProvideAsyncResource.
type AsyncRequest struct {
	ID    uuid.UUID
	NetID int
	URL   string
	Kind  string
	// Body is the payload of a post request.
	Body string

	Data []byte
	Done bool
	// Failed is set when the host answered with an empty buffer.
	Failed bool

	task *Task
}

func (r *AsyncRequest) info() AsyncRequestInfo {
	return AsyncRequestInfo{ID: r.ID.String(), NetID: r.NetID, URL: r.URL, Kind: r.Kind}
}

// awaitAsync registers a request and suspends t until the host provides
// the resource. It returns the request, answered.
func (t *Task) awaitAsync(kind, url, body string) (*AsyncRequest, error) {
	vm := t.vm
	vm.netSeq++
	req := &AsyncRequest{
		ID:    uuid.New(),
		NetID: vm.netSeq,
		URL:   url,
		Kind:  kind,
		Body:  body,
		task:  t,
	}
	vm.async[req.ID] = req
	vm.net[req.NetID] = req
	t.AsyncID = req.ID
	vm.log.Debug("async request", "id", req.ID, "kind", kind, "url", url)
	vm.notify(NotifyAsyncRequest, req.info())
	if err := t.suspend(TaskSuspendedAsync); err != nil {
		delete(vm.async, req.ID)
		return nil, err
	}
	t.AsyncID = uuid.Nil
	return req, nil
}

// PendingRequests lists the requests tasks are waiting on, oldest first.
func (vm *VM) PendingRequests() []AsyncRequestInfo {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]AsyncRequestInfo, 0, len(vm.async))
	for _, r := range vm.async {
		out = append(out, r.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetID < out[j].NetID })
	return out
}

// ProvideAsyncResource answers a pending request and resumes the task
// waiting on it. An empty buffer is a failed fetch: the script sees an
// empty result and netError reports it. The returned error is the script
// error the resumed task raised, if any.
func (vm *VM) ProvideAsyncResource(id uuid.UUID, data []byte) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	req, ok := vm.async[id]
	if !ok {
		return ErrUnknownRequest
	}
	delete(vm.async, id)
	req.Data = append([]byte(nil), data...)
	req.Done = true
	req.Failed = len(data) == 0
	if req.Failed {
		vm.log.Warn("async resource failed", "id", id, "url", req.URL, "type", ErrorAsyncResource)
	}
	t := req.task
	req.task = nil
	if t == nil || t.State != TaskSuspendedAsync {
		return nil
	}
	vm.resume(t, resumeCmd{})
	err := vm.finishTask(t)
	vm.drainQueued()
	return err
}
