package client

import (
	"context"
	"errors"
	"time"
)

// DefaultSummaryTimeout is how long a caller waits for an AI summary.
const DefaultSummaryTimeout = 30 * time.Second

// ErrSummaryTimeout is returned by Wait when the summary did not arrive in
// time.
var ErrSummaryTimeout = errors.New("summary timed out")

// SummaryRequest is an in-flight summary. The result is delivered once; Wait
// may be called any number of times after that.
type SummaryRequest struct {
	done    chan struct{}
	cancel  context.CancelFunc
	summary string
	err     error
}

// Summarize starts a summary of content in the background and returns at
// once.
func (s *State) Summarize(ctx context.Context, content string) *SummaryRequest {
	timeout := s.SummaryTimeout
	if timeout <= 0 {
		timeout = DefaultSummaryTimeout
	}
	return startSummary(ctx, timeout, func(ctx context.Context) (string, error) {
		if !s.LoggedIn() {
			return "", ErrNotLoggedIn
		}
		return s.api.Summarize(ctx, s.Token, content)
	})
}

func startSummary(parent context.Context, timeout time.Duration, call func(context.Context) (string, error)) *SummaryRequest {
	ctx, cancel := context.WithTimeout(parent, timeout)
	r := &SummaryRequest{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(r.done)
		defer cancel()
		summary, err := call(ctx)
		if err != nil {
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				err = ErrSummaryTimeout
			case ctx.Err() != nil:
				err = ctx.Err()
			}
		}
		r.summary, r.err = summary, err
	}()
	return r
}

// Done is closed when the result is available.
func (r *SummaryRequest) Done() <-chan struct{} { return r.done }

// Wait blocks until the summary arrives, the timeout passes or Cancel is
// called.
func (r *SummaryRequest) Wait() (string, error) {
	<-r.done
	if r.err != nil {
		return "", r.err
	}
	return r.summary, nil
}

// Cancel stops waiting. The request already sent to the server is not
// recalled; its answer is dropped.
func (r *SummaryRequest) Cancel() { r.cancel() }
