// Package providerstest provides a scripted provider for tests.
package providerstest

import (
	"context"
	"sync"

	"github.com/medigen/catalyst/internal/providers"
)

// Reply is one scripted response
type Reply struct {
	Text string
	Err  error
}

// Fake returns scripted replies in order and records every request.
// Once the script runs out the last reply is repeated.
type Fake struct {
	mu      sync.Mutex
	replies []Reply
	calls   []providers.Config
}

// New returns a Fake that answers with the given replies
func New(replies ...Reply) *Fake {
	return &Fake{replies: replies}
}

func (f *Fake) Name() string {
	return "fake"
}

func (f *Fake) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, config)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.replies) == 0 {
		return "", providers.ErrEmptyResponse
	}

	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r.Text, r.Err
}

// Calls returns a copy of the recorded requests
func (f *Fake) Calls() []providers.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.Config(nil), f.calls...)
}
