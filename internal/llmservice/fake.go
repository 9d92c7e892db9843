package llmservice

import (
	"context"
	"sync"
)

// Fake is a deterministic Completer for tests. Respond, when set, takes
// precedence over Response/Err.
type Fake struct {
	Response string
	Err      error
	Respond  func(req Request) (string, error)

	mu    sync.Mutex
	calls []Request
}

// NewFake returns a Fake that always answers response.
func NewFake(response string) *Fake {
	return &Fake{Response: response}
}

func (f *Fake) Complete(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(req)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}

// Calls returns a copy of every request received so far.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times Complete was invoked.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
