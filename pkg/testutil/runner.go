package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
)

// Call is one recorded command invocation.
type Call struct {
	Command string
	Args    []string
	Stdin   string
}

// String renders the call as a single command line.
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// Response is what a FakeRunner returns for a matching command line.
type Response struct {
	Output string
	Err    error
}

// FakeRunner is an execute.Runner that records every call and answers from
// a table keyed by command-line prefix. The longest matching prefix wins.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []Call
	responses map[string]Response
	// Handler, when set, is consulted before the response table.
	Handler func(call Call) (Response, bool)
}

var _ execute.Runner = (*FakeRunner)(nil)

// NewFakeRunner returns a runner that succeeds with empty output by default.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On registers a response for every command line starting with prefix.
func (f *FakeRunner) On(prefix string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

// Run implements execute.Runner.
func (f *FakeRunner) Run(_ context.Context, opts execute.Options) (string, error) {
	call := Call{Command: opts.Command, Args: append([]string(nil), opts.Args...), Stdin: opts.Stdin}

	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	handler := f.Handler
	f.mu.Unlock()

	if handler != nil {
		if resp, ok := handler(call); ok {
			return resp.Output, resp.Err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	line := call.String()
	best, found := "", false
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best, found = prefix, true
		}
	}
	if !found {
		return "", nil
	}
	resp := f.responses[best]
	return resp.Output, resp.Err
}

// Commands returns every recorded call as a command line.
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}

// Count returns how many recorded command lines start with prefix.
func (f *FakeRunner) Count(prefix string) int {
	n := 0
	for _, line := range f.Commands() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// Reset drops the recorded calls and keeps the response table.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}
