package verifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

// fakeChannel replays scripted outputs per command. When a script runs out,
// its last output repeats.
type fakeChannel struct {
	mu       sync.Mutex
	scripts  map[string][]string
	sendErrs map[string]error
	pending  map[string]string
	calls    []string
	next     int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		scripts:  make(map[string][]string),
		sendErrs: make(map[string]error),
		pending:  make(map[string]string),
	}
}

func (f *fakeChannel) script(cmd string, outputs ...string) *fakeChannel {
	f.scripts[cmd] = outputs
	return f
}

func (f *fakeChannel) Send(_ context.Context, _ domain.Target, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if err := f.sendErrs[cmd]; err != nil {
		return "", err
	}
	f.next++
	id := fmt.Sprintf("cmd-%d", f.next)
	f.pending[id] = cmd
	return id, nil
}

func (f *fakeChannel) AwaitCompletion(_ context.Context, _ domain.Target, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[id]; !ok {
		return errors.New("unknown command")
	}
	return nil
}

func (f *fakeChannel) FetchOutput(_ context.Context, _ domain.Target, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd, ok := f.pending[id]
	if !ok {
		return "", errors.New("unknown command")
	}
	delete(f.pending, id)

	outs := f.scripts[cmd]
	if len(outs) == 0 {
		return "", nil
	}
	out := outs[0]
	if len(outs) > 1 {
		f.scripts[cmd] = outs[1:]
	}
	return out, nil
}

func (f *fakeChannel) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

type fakeProber struct {
	result domain.ProbeResult
	err    error
	urls   []string
}

func (p *fakeProber) Check(_ context.Context, url string) (domain.ProbeResult, error) {
	p.urls = append(p.urls, url)
	res := p.result
	res.URL = url
	return res, p.err
}
