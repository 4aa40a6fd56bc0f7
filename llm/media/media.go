// Package media drives long-running image and video generation jobs:
// submit, poll until a terminal state, then download the result into a
// local Store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hrayleung/jin-llm/llm"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type State string

const (
	StateSubmitted State = "submitted"
	StatePending   State = "pending"
	StateDone      State = "done"
	StateExpired   State = "expired"
	StateFailed    State = "failed"
)

// Terminal reports whether polling stops at s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateExpired, StateFailed:
		return true
	default:
		return false
	}
}

// Status is one observation of a job.
//
// A done job carries its result either inline in Data or as a URL to fetch
// through Backend.Download. Message holds the vendor's failure text verbatim.
type Status struct {
	State   State
	Message string

	MIME string
	Data []byte
	URL  string
}

type Job struct {
	ID string

	// Status is the state reported by the submit response. Synchronous
	// endpoints return a done job straight away.
	Status Status
}

// Backend is one vendor's job API.
type Backend interface {
	Submit(ctx context.Context) (Job, error)
	Poll(ctx context.Context, id string) (Status, error)

	// Download fetches a done job's media. The returned MIME may be empty,
	// in which case Status.MIME is used.
	Download(ctx context.Context, st Status) (body io.ReadCloser, mime string, err error)
}

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// Controller runs one job to completion. The zero value polls every
// DefaultPollInterval for up to DefaultTimeout and returns results by
// reference instead of storing them.
type Controller struct {
	Family llm.ProviderFamily
	Kind   Kind

	PollInterval time.Duration
	Timeout      time.Duration

	// Store receives finished media. Without one, inline results are returned
	// as data and remote results as URLs.
	Store *Store

	Logger *slog.Logger
}

// Run submits the job and blocks until it reaches a terminal state, the
// timeout elapses or ctx is done.
func (c *Controller) Run(ctx context.Context, b Backend) (llm.MediaRef, error) {
	logger := c.logger()

	job, err := b.Submit(ctx)
	if err != nil {
		return llm.MediaRef{}, err
	}
	st := job.Status
	if st.State == "" {
		st.State = StateSubmitted
	}
	logger.Debug("llm media: submitted", "provider", c.Family, "kind", c.Kind, "job", job.ID, "state", st.State)

	pollCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()

	for !st.State.Terminal() {
		select {
		case <-pollCtx.Done():
			return llm.MediaRef{}, c.stopped(ctx)
		case <-ticker.C:
		}

		next, err := b.Poll(pollCtx, job.ID)
		if err != nil {
			if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return llm.MediaRef{}, c.timedOut()
			}
			return llm.MediaRef{}, err
		}
		if next.State == "" {
			next.State = StatePending
		}
		if next.State != st.State {
			logger.Debug("llm media: state changed", "provider", c.Family, "job", job.ID, "from", st.State, "to", next.State)
		}
		st = next
	}

	switch st.State {
	case StateDone:
		return c.fetch(ctx, b, st)
	default:
		return llm.MediaRef{}, c.terminalError(st)
	}
}

func (c *Controller) fetch(ctx context.Context, b Backend, st Status) (llm.MediaRef, error) {
	if len(st.Data) > 0 {
		if c.Store == nil {
			return llm.MediaRef{MIME: st.MIME, Data: st.Data}, nil
		}
		path, err := c.Store.Save(ctx, st.MIME, bytes.NewReader(st.Data))
		if err != nil {
			return llm.MediaRef{}, err
		}
		return llm.MediaRef{MIME: st.MIME, Path: path}, nil
	}

	if c.Store == nil && st.URL != "" {
		return llm.MediaRef{MIME: st.MIME, URL: st.URL}, nil
	}

	body, mime, err := b.Download(ctx, st)
	if err != nil {
		return llm.MediaRef{}, err
	}
	defer body.Close()
	if mime == "" {
		mime = st.MIME
	}

	if c.Store == nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return llm.MediaRef{}, err
		}
		return llm.MediaRef{MIME: mime, Data: data}, nil
	}
	path, err := c.Store.Save(ctx, mime, body)
	if err != nil {
		return llm.MediaRef{}, err
	}
	c.logger().Debug("llm media: stored", "provider", c.Family, "kind", c.Kind, "path", path)
	return llm.MediaRef{MIME: mime, Path: path, URL: st.URL}, nil
}

func (c *Controller) terminalError(st Status) error {
	if st.Message != "" {
		return llm.ProviderError(c.Family, fmt.Sprintf("%s_poll_error", c.Kind), st.Message)
	}
	if st.State == StateExpired {
		return llm.ProviderError(c.Family, fmt.Sprintf("%s_generation_expired", c.Kind), fmt.Sprintf("%s generation expired", c.Kind))
	}
	return llm.ProviderError(c.Family, fmt.Sprintf("%s_generation_failed", c.Kind), fmt.Sprintf("%s generation failed", c.Kind))
}

func (c *Controller) timedOut() error {
	return llm.ProviderError(c.Family, fmt.Sprintf("%s_generation_timeout", c.Kind),
		fmt.Sprintf("%s generation did not finish within %s", c.Kind, c.timeout()))
}

// stopped tells a canceled caller apart from an exhausted poll budget.
func (c *Controller) stopped(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return &llm.LLMError{Provider: c.Family, Kind: llm.ErrKindCanceled, Message: err.Error(), Cause: err}
	}
	return c.timedOut()
}

func (c *Controller) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

func (c *Controller) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Event wraps a finished result as the content delta adapters emit.
func Event(kind Kind, ref llm.MediaRef) llm.StreamEvent {
	d := &llm.ContentDelta{}
	if kind == KindVideo {
		d.Video = &ref
	} else {
		d.Image = &ref
	}
	return llm.StreamEvent{Kind: llm.EventContentDelta, Content: d}
}
