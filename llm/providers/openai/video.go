package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/media"
	"github.com/hrayleung/jin-llm/llm/params"
)

const videosPath = "/videos"

var videoStatus = media.StatusRule{
	StatePath: "status",
	States: map[string]media.State{
		"queued":      media.StatePending,
		"in_progress": media.StatePending,
		"completed":   media.StateDone,
		"failed":      media.StateFailed,
		"expired":     media.StateExpired,
	},
	ErrorPath:    "error",
	MessagePaths: []string{"error.message"},
}

// generateVideo runs a sora job to completion and emits the result as a
// single video delta.
func (p *Provider) generateVideo(ctx context.Context, req llm.Request) (llm.Stream, error) {
	last, ok := lastUser(req.Messages)
	if !ok || last.Text() == "" {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "video generation needs a text prompt")
	}

	fields := params.Wire(req.Model, req.Controls)
	fields["model"] = req.Model.ID
	fields["prompt"] = last.Text()
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "encode request: %v", err)
	}
	if body, err = transport.Overlay(body, req.Controls.ProviderSpecific); err != nil {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "provider specific: %v", err)
	}

	b := &videoBackend{p: p, body: body}
	return eventstream.Lazy(llm.FamilyOpenAI, p.tr.Logger, func(emit eventstream.Emit) error {
		ref, err := p.controller(media.KindVideo).Run(ctx, b)
		if err != nil {
			return err
		}
		emit(llm.MessageStart(b.id))
		emit(media.Event(media.KindVideo, ref))
		emit(llm.MessageEnd(nil))
		return nil
	}), nil
}

type videoBackend struct {
	p    *Provider
	body []byte
	id   string
}

func (b *videoBackend) Submit(ctx context.Context) (media.Job, error) {
	_, raw, err := b.p.tr.DoJSON(ctx, http.MethodPost, videosPath, b.p.headers(b.p.apiKey, "application/json"), b.body)
	if err != nil {
		return media.Job{}, transport.MapError(llm.FamilyOpenAI, err)
	}
	var job videoJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return media.Job{}, llm.DecodeError(llm.FamilyOpenAI, raw, err)
	}
	if job.ID == "" {
		return media.Job{}, llm.ProviderError(llm.FamilyOpenAI, "video_submit_error", "video job has no id")
	}
	b.id = job.ID
	return media.Job{ID: job.ID, Status: media.ParseStatus(http.StatusOK, raw, videoStatus)}, nil
}

// Poll reports vendor failures as a status, not an error, so the controller
// can surface the vendor's message.
func (b *videoBackend) Poll(ctx context.Context, id string) (media.Status, error) {
	_, raw, err := b.p.tr.DoJSON(ctx, http.MethodGet, videosPath+"/"+url.PathEscape(id), b.p.headers(b.p.apiKey, "application/json"), nil)
	if err != nil {
		var se *transport.HTTPStatusError
		if errors.As(err, &se) {
			return media.ParseStatus(se.StatusCode, se.Body, videoStatus), nil
		}
		return media.Status{}, transport.MapError(llm.FamilyOpenAI, err)
	}
	return media.ParseStatus(http.StatusOK, raw, videoStatus), nil
}

func (b *videoBackend) Download(ctx context.Context, _ media.Status) (io.ReadCloser, string, error) {
	resp, err := b.p.tr.Do(ctx, http.MethodGet, videosPath+"/"+url.PathEscape(b.id)+"/content", b.p.headers(b.p.apiKey, ""), nil)
	if err != nil {
		return nil, "", transport.MapError(llm.FamilyOpenAI, err)
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mt == "application/octet-stream" {
		mt = "video/mp4"
	}
	return resp.Body, mt, nil
}
