package llm

import (
	"context"
	"sync"
)

// FakeResponse is one scripted turn of a Fake client: either generated
// text or an error.
type FakeResponse struct {
	Text string
	Err  error
}

// Fake is a scripted Client for tests and offline debugging. It replays
// the queued responses in order and keeps repeating the last one once the
// script is exhausted. It also records every call it receives.
type Fake struct {
	mu     sync.Mutex
	script []FakeResponse
	calls  []FakeCall
}

// FakeCall captures the arguments of one Generate invocation.
type FakeCall struct {
	System string
	User   string
}

// NewFake builds a scripted client from the given responses.
func NewFake(script ...FakeResponse) *Fake {
	return &Fake{script: script}
}

// Generate replays the next scripted response.
func (f *Fake) Generate(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{System: system, User: user})
	if len(f.script) == 0 {
		return "", nil
	}
	next := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return next.Text, next.Err
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}
