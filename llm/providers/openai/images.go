package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/media"
	"github.com/hrayleung/jin-llm/llm/params"
)

const (
	imageGenerationsPath = "/images/generations"
	imageEditsPath       = "/images/edits"
)

// generateImage serves gpt-image models. The prompt is the last user turn;
// images attached to it switch the call to the edits endpoint.
func (p *Provider) generateImage(ctx context.Context, req llm.Request) (llm.Stream, error) {
	last, ok := lastUser(req.Messages)
	if !ok || last.Text() == "" {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "image generation needs a text prompt")
	}

	fields := params.Wire(req.Model, req.Controls)
	fields["model"] = req.Model.ID
	fields["prompt"] = last.Text()

	var sources []llm.ContentBlock
	for _, b := range last.Blocks {
		if b.Type == llm.ContentImage {
			sources = append(sources, b)
		}
	}

	var (
		path string
		body []byte
		hdr  = p.headers(p.apiKey, "application/json")
		err  error
	)
	if len(sources) == 0 {
		path = imageGenerationsPath
		if body, err = json.Marshal(fields); err != nil {
			return nil, llm.InvalidRequest(llm.FamilyOpenAI, "encode request: %v", err)
		}
		if body, err = transport.Overlay(body, req.Controls.ProviderSpecific); err != nil {
			return nil, llm.InvalidRequest(llm.FamilyOpenAI, "provider specific: %v", err)
		}
	} else {
		path = imageEditsPath
		// Form fields are flat, so overrides replace whole values.
		maps.Copy(fields, req.Controls.ProviderSpecific)
		var contentType string
		if body, contentType, err = editForm(fields, sources); err != nil {
			return nil, err
		}
		hdr.Set("Content-Type", contentType)
	}

	format := "png"
	if ig := req.Controls.ImageGeneration; ig != nil && ig.OutputFormat != "" {
		format = ig.OutputFormat
	}

	return eventstream.Lazy(llm.FamilyOpenAI, p.tr.Logger, func(emit eventstream.Emit) error {
		_, raw, err := p.tr.DoJSON(ctx, http.MethodPost, path, hdr, body)
		if err != nil {
			return transport.MapError(llm.FamilyOpenAI, err)
		}
		var resp imageResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return llm.DecodeError(llm.FamilyOpenAI, raw, err)
		}
		if resp.OutputFormat != "" {
			format = resp.OutputFormat
		}
		for _, d := range resp.Data {
			ref, err := p.imageRef(ctx, "image/"+format, d.B64JSON, d.URL)
			if err != nil {
				return err
			}
			emit(media.Event(media.KindImage, ref))
		}
		emit(llm.MessageEnd(parseUsage(resp.Usage)))
		return nil
	}), nil
}

func (p *Provider) imageRef(ctx context.Context, mime, b64, url string) (llm.MediaRef, error) {
	if b64 == "" {
		return llm.MediaRef{URL: url}, nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return llm.MediaRef{}, llm.DecodeError(llm.FamilyOpenAI, []byte(b64), err)
	}
	if p.store == nil {
		return llm.MediaRef{MIME: mime, Data: data}, nil
	}
	path, err := p.store.Save(ctx, mime, bytes.NewReader(data))
	if err != nil {
		return llm.MediaRef{}, err
	}
	return llm.MediaRef{MIME: mime, Path: path}, nil
}

// editForm builds the multipart body of an edit. Source images must be
// available locally.
func editForm(fields map[string]any, sources []llm.ContentBlock) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range slices.Sorted(maps.Keys(fields)) {
		var v string
		switch x := fields[k].(type) {
		case string:
			v = x
		default:
			b, err := json.Marshal(x)
			if err != nil {
				return nil, "", llm.InvalidRequest(llm.FamilyOpenAI, "encode %s: %v", k, err)
			}
			v = string(b)
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for i, src := range sources {
		if len(src.Data) == 0 && src.Path == "" {
			return nil, "", llm.InvalidRequest(llm.FamilyOpenAI, "image edit source %q must be a local file or inline data", src.DisplayName())
		}
		data, err := src.Bytes()
		if err != nil {
			if e, ok := llm.AsLLMError(err); ok {
				e.Provider = llm.FamilyOpenAI
			}
			return nil, "", err
		}
		mime := src.MIME
		if mime == "" {
			mime = "image/png"
		}
		name := src.Filename
		if name == "" {
			name = fmt.Sprintf("image-%d%s", i, media.Extension(mime))
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image[]"; filename=%q`, name))
		h.Set("Content-Type", mime)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func lastUser(msgs []llm.Message) (llm.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i], true
		}
	}
	return llm.Message{}, false
}
