package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrAttemptTimeout is returned when a single attempt outlives its deadline
// while the caller's context is still live.
var ErrAttemptTimeout = eris.New("llm: attempt deadline exceeded")

// Within runs fn under its own deadline. fn runs on a separate goroutine, so
// a call that ignores its context still cannot hold the caller past the
// deadline. Cancellation of ctx itself is reported as ctx.Err().
func Within[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		val T
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		v, err := fn(actx)
		ch <- reply{v, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return zero, eris.Wrapf(ErrAttemptTimeout, "after %s", timeout)
		}
		return r.val, r.err
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return zero, eris.Wrap(err, "llm: attempt canceled")
		}
		return zero, eris.Wrapf(ErrAttemptTimeout, "after %s", timeout)
	}
}

// StripFence removes a surrounding markdown code fence such as ```json.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the info string ("json") on the opening line.
		if !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
