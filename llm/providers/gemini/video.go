package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/media"
	"github.com/hrayleung/jin-llm/llm/params"
)

var operationStatus = media.StatusRule{
	StatePath: "done",
	States: map[string]media.State{
		"true":  media.StateDone,
		"false": media.StatePending,
	},
	ErrorPath:    "error",
	MessagePaths: []string{"error.message"},
}

const samplesPath = "response.generateVideoResponse.generatedSamples"

// generateVideo runs a Veo operation to completion and emits the result as a
// single video delta. An image in the prompt turn becomes the first frame.
func (p *Provider) generateVideo(ctx context.Context, req llm.Request) (llm.Stream, error) {
	last, ok := lastUser(req.Messages)
	if !ok || last.Text() == "" {
		return nil, llm.InvalidRequest(llm.FamilyGemini, "video generation needs a text prompt")
	}

	instance := map[string]any{"prompt": last.Text()}
	for _, b := range last.Blocks {
		if b.Type != llm.ContentImage {
			continue
		}
		data, err := b.Bytes()
		if err != nil {
			return nil, llm.InvalidRequest(llm.FamilyGemini, "video start frame: %v", err)
		}
		mt := b.MIME
		if mt == "" {
			mt = "image/png"
		}
		instance["image"] = map[string]any{"bytesBase64Encoded": base64.StdEncoding.EncodeToString(data), "mimeType": mt}
		break
	}

	body := params.Wire(req.Model, req.Controls)
	body["instances"] = []any{instance}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, llm.InvalidRequest(llm.FamilyGemini, "encode request: %v", err)
	}
	if raw, err = transport.Overlay(raw, req.Controls.ProviderSpecific); err != nil {
		return nil, llm.InvalidRequest(llm.FamilyGemini, "apply provider-specific fields: %v", err)
	}

	b := &videoBackend{p: p, model: req.Model.ID, body: raw}
	return eventstream.Lazy(llm.FamilyGemini, p.tr.Logger, func(emit eventstream.Emit) error {
		ref, err := p.controller(media.KindVideo).Run(ctx, b)
		if err != nil {
			return err
		}
		emit(llm.MessageStart(b.name))
		emit(media.Event(media.KindVideo, ref))
		emit(llm.MessageEnd(nil))
		return nil
	}), nil
}

func lastUser(msgs []llm.Message) (llm.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i], true
		}
	}
	return llm.Message{}, false
}

type videoBackend struct {
	p     *Provider
	model string
	body  []byte

	name string
	uri  string
}

func (b *videoBackend) Submit(ctx context.Context) (media.Job, error) {
	_, raw, err := b.p.tr.DoJSON(ctx, http.MethodPost, modelPath(b.model)+":predictLongRunning", b.p.headers(b.p.apiKey), b.body)
	if err != nil {
		return media.Job{}, transport.MapError(llm.FamilyGemini, err)
	}
	var op operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return media.Job{}, llm.DecodeError(llm.FamilyGemini, raw, err)
	}
	if op.Name == "" {
		return media.Job{}, llm.ProviderError(llm.FamilyGemini, "video_submit_error", "operation has no name")
	}
	b.name = op.Name
	return media.Job{ID: op.Name, Status: b.status(http.StatusOK, raw)}, nil
}

func (b *videoBackend) Poll(ctx context.Context, name string) (media.Status, error) {
	_, raw, err := b.p.tr.DoJSON(ctx, http.MethodGet, "/"+strings.TrimPrefix(name, "/"), b.p.headers(b.p.apiKey), nil)
	if err != nil {
		var se *transport.HTTPStatusError
		if errors.As(err, &se) {
			return b.status(se.StatusCode, se.Body), nil
		}
		return media.Status{}, transport.MapError(llm.FamilyGemini, err)
	}
	return b.status(http.StatusOK, raw), nil
}

// status reads an operation. A done operation without samples was filtered
// by safety checks; the first filter reason becomes the failure message.
//
// The sample URI needs the API key, so it is kept for Download instead of
// being handed out as the result URL.
func (b *videoBackend) status(code int, raw []byte) media.Status {
	st := media.ParseStatus(code, raw, operationStatus)
	if st.State != media.StateDone {
		return st
	}
	sample := gjson.GetBytes(raw, samplesPath+".0.video")
	if !sample.Exists() {
		st.State = media.StateFailed
		st.Message = gjson.GetBytes(raw, "response.generateVideoResponse.raiMediaFilteredReasons.0").String()
		if st.Message == "" {
			st.Message = "operation finished without a video"
		}
		return st
	}
	st.MIME = sample.Get("mimeType").String()
	if st.MIME == "" {
		st.MIME = "video/mp4"
	}
	if enc := sample.Get("bytesBase64Encoded").String(); enc != "" {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err == nil {
			st.Data = data
			return st
		}
	}
	b.uri = sample.Get("uri").String()
	return st
}

func (b *videoBackend) Download(ctx context.Context, _ media.Status) (io.ReadCloser, string, error) {
	if b.uri == "" {
		return nil, "", llm.ProviderError(llm.FamilyGemini, "video_download_error", "operation has no video uri")
	}
	h := b.p.headers(b.p.apiKey)
	h.Del("Content-Type")
	resp, err := b.p.tr.Do(ctx, http.MethodGet, b.uri, h, nil)
	if err != nil {
		return nil, "", transport.MapError(llm.FamilyGemini, err)
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mt == "application/octet-stream" {
		mt = ""
	}
	return resp.Body, mt, nil
}
