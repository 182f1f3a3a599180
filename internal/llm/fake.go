package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/aretw0/canvas/pkg/ports"
)

// FakeHandler scripts the reply of one step. call is the 0-based number of
// previous calls that matched the same script.
type FakeHandler func(req ports.ModelRequest, call int) (*ports.ModelResponse, error)

// FakeStreamHandler scripts the chunks of a streamed step.
type FakeStreamHandler func(req ports.ModelRequest, call int) ([]ports.ModelChunk, error)

type fakeScript struct {
	prefix string
	invoke FakeHandler
	stream FakeStreamHandler
	calls  int
}

// Fake is a deterministic ModelInvoker for tests and offline runs. Replies
// are scripted per step name prefix; the longest matching prefix wins.
type Fake struct {
	name string

	mu      sync.Mutex
	scripts []*fakeScript
	log     []ports.ModelRequest
}

// NewFake creates an empty fake model.
func NewFake(name string) *Fake {
	return &Fake{name: name}
}

func (f *Fake) Name() string { return f.name }

// On scripts blocking calls and, unless OnStream is also set, streamed calls
// of every step starting with prefix. Streamed text is split into chunks and
// the structured payload is sent with the last chunk.
func (f *Fake) On(prefix string, h FakeHandler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script(prefix).invoke = h
	return f
}

// OnStream scripts the exact chunks of streamed calls.
func (f *Fake) OnStream(prefix string, h FakeStreamHandler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script(prefix).stream = h
	return f
}

func (f *Fake) script(prefix string) *fakeScript {
	for _, s := range f.scripts {
		if s.prefix == prefix {
			return s
		}
	}
	s := &fakeScript{prefix: prefix}
	f.scripts = append(f.scripts, s)
	return s
}

// Calls returns how many requests were made for steps starting with prefix.
func (f *Fake) Calls(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.log {
		if strings.HasPrefix(r.Step, prefix) {
			n++
		}
	}
	return n
}

// Requests returns a copy of every request received.
func (f *Fake) Requests() []ports.ModelRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.ModelRequest(nil), f.log...)
}

func (f *Fake) match(req ports.ModelRequest) (*fakeScript, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, req)
	var best *fakeScript
	for _, s := range f.scripts {
		if strings.HasPrefix(req.Step, s.prefix) && (best == nil || len(s.prefix) > len(best.prefix)) {
			best = s
		}
	}
	if best == nil {
		return nil, 0, fmt.Errorf("fake model: no script for step %q", req.Step)
	}
	call := best.calls
	best.calls++
	return best, call, nil
}

func (f *Fake) Invoke(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, call, err := f.match(req)
	if err != nil {
		return nil, err
	}
	if s.invoke == nil {
		return nil, fmt.Errorf("fake model: step %q is stream only", req.Step)
	}
	resp, err := s.invoke(req, call)
	if resp != nil && resp.Model == "" {
		resp.Model = f.name
	}
	return resp, err
}

func (f *Fake) Stream(ctx context.Context, req ports.ModelRequest) iter.Seq2[ports.ModelChunk, error] {
	return func(yield func(ports.ModelChunk, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(ports.ModelChunk{}, err)
			return
		}
		s, call, err := f.match(req)
		if err != nil {
			yield(ports.ModelChunk{}, err)
			return
		}
		var chunks []ports.ModelChunk
		switch {
		case s.stream != nil:
			chunks, err = s.stream(req, call)
		case s.invoke != nil:
			var resp *ports.ModelResponse
			resp, err = s.invoke(req, call)
			if resp != nil {
				chunks = chunkResponse(resp)
			}
		}
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield(ports.ModelChunk{}, err)
		}
	}
}

func chunkResponse(resp *ports.ModelResponse) []ports.ModelChunk {
	text := resp.Content
	size := max(len(text)/3, 1)
	var out []ports.ModelChunk
	for len(text) > size {
		out = append(out, ports.ModelChunk{Delta: text[:size]})
		text = text[size:]
	}
	out = append(out, ports.ModelChunk{Delta: text, Args: resp.Args})
	return out
}

// Text is a FakeHandler replying with fixed text.
func Text(s string) FakeHandler {
	return func(ports.ModelRequest, int) (*ports.ModelResponse, error) {
		return &ports.ModelResponse{Content: s}, nil
	}
}

// Args is a FakeHandler replying with a fixed structured payload.
func Args(args map[string]any) FakeHandler {
	return func(ports.ModelRequest, int) (*ports.ModelResponse, error) {
		return &ports.ModelResponse{Args: args}, nil
	}
}

// Fail is a FakeHandler that always returns err.
func Fail(err error) FakeHandler {
	return func(ports.ModelRequest, int) (*ports.ModelResponse, error) {
		return nil, err
	}
}
