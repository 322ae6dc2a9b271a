package graph

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type runCall struct {
	operation string
	cypher    string
	params    map[string]any
}

type fakeResponse struct {
	contains string // empty matches any statement
	result   *Result
	err      error
}

// fakeRunner records statements and answers them from queued responses.
// A response is used once, by the first statement containing its text;
// unmatched statements get an empty result.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []runCall
	responses []fakeResponse
	closed    bool
}

func (f *fakeRunner) on(contains string, res *Result) *fakeRunner {
	f.responses = append(f.responses, fakeResponse{contains: contains, result: res})
	return f
}

func (f *fakeRunner) fail(contains string, err error) *fakeRunner {
	f.responses = append(f.responses, fakeResponse{contains: contains, err: err})
	return f
}

func (f *fakeRunner) Run(_ context.Context, operation, cypher string, params map[string]any) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{operation: operation, cypher: cypher, params: params})

	for i, r := range f.responses {
		if r.contains == "" || strings.Contains(cypher, r.contains) {
			f.responses = append(f.responses[:i], f.responses[i+1:]...)
			if r.err != nil {
				return nil, r.err
			}
			return r.result, nil
		}
	}
	return &Result{}, nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

// statements returns the cypher of every call, in order.
func (f *fakeRunner) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.cypher
	}
	return out
}

// find returns the first call whose cypher contains text.
func (f *fakeRunner) find(text string) (runCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c.cypher, text) {
			return c, true
		}
	}
	return runCall{}, false
}

func (f *fakeRunner) count(text string) int {
	n := 0
	for _, s := range f.statements() {
		if strings.Contains(s, text) {
			n++
		}
	}
	return n
}

// overlapRunner wraps a runner and records the most statements that were
// ever in flight at once.
type overlapRunner struct {
	queryRunner
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (o *overlapRunner) Run(ctx context.Context, operation, cypher string, params map[string]any) (*Result, error) {
	n := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}
	// hold the statement open long enough for an overlapping call to show
	time.Sleep(5 * time.Millisecond)
	return o.queryRunner.Run(ctx, operation, cypher, params)
}

func testClient(opts Options) (*Client, *fakeRunner) {
	if opts.Host == "" {
		opts.Host = "bolt://localhost:7687"
	}
	c := newClient(opts, nil)
	f := &fakeRunner{}
	c.runner = f
	return c, f
}

// rows builds a Result with one record per values slice.
func rows(keys []string, values ...[]any) *Result {
	res := &Result{Keys: keys}
	for _, v := range values {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: v})
	}
	return res
}

func row(keys []string, values ...any) *Result {
	return rows(keys, values)
}
