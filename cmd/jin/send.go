package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

type sendOptions struct {
	model    string
	system   string
	attach   []string
	noStream bool
	jsonOut  bool
	thinking bool
	controls controlFlags
}

func newSendCmd(a *app) *cobra.Command {
	o := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send [prompt]",
		Short: "Send one prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, o, strings.Join(args, " "))
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&o.model, "model", "m", "", "model id (defaults to providers.<family>.model)")
	fs.StringVar(&o.system, "system", "", "system prompt")
	fs.StringSliceVarP(&o.attach, "attach", "a", nil, "attach a local image, video or document")
	fs.BoolVar(&o.noStream, "no-stream", false, "request a single non-streamed response")
	fs.BoolVar(&o.jsonOut, "json", false, "print canonical events as JSON lines")
	fs.BoolVar(&o.thinking, "show-thinking", false, "print reasoning text to stderr")
	o.controls.bind(cmd)
	return cmd
}

func (a *app) runSend(cmd *cobra.Command, o *sendOptions, prompt string) error {
	family, err := a.family()
	if err != nil {
		return err
	}
	modelID, err := a.model(family, o.model)
	if err != nil {
		return err
	}
	controls, err := o.controls.build(cmd, family, modelID)
	if err != nil {
		return err
	}
	user, err := userMessage(prompt, o.attach)
	if err != nil {
		return err
	}
	var messages []llm.Message
	if o.system != "" {
		messages = append(messages, llm.System(o.system))
	}
	messages = append(messages, user)

	adapter, err := a.adapter(family, "")
	if err != nil {
		return err
	}
	p := &printer{out: a.out, errOut: a.errOut, json: o.jsonOut, thinking: o.thinking}
	defer p.flush()
	client := llm.New(adapter, resolve.Default().For(family), llm.WithEventHandler(p.event))
	info := capability.Lookup(family, modelID).ModelInfo(modelID)

	a.logger.Debug("sending message", "family", family, "model", modelID, "stream", !o.noStream)
	if !o.noStream {
		_, err = client.Generate(cmd.Context(), info, messages, nil, llm.WithControls(controls))
		return err
	}

	s, err := client.SendMessage(cmd.Context(), info, messages, controls, nil, false)
	if err != nil {
		return err
	}
	for ev, err := range llm.Events(s) {
		if err != nil {
			return err
		}
		if err := p.event(cmd.Context(), ev); err != nil {
			return err
		}
	}
	return nil
}

// userMessage builds the user turn from the prompt and attachments.
func userMessage(prompt string, attachments []string) (llm.Message, error) {
	msg := llm.User(prompt)
	for _, path := range attachments {
		b, err := attachment(path)
		if err != nil {
			return llm.Message{}, err
		}
		msg.Blocks = append(msg.Blocks, b)
	}
	return msg, nil
}

func attachment(path string) (llm.ContentBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.ContentBlock{}, fmt.Errorf("attach: %w", err)
	}
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}

	t := llm.ContentFile
	switch {
	case strings.HasPrefix(mt, "image/"):
		t = llm.ContentImage
	case strings.HasPrefix(mt, "video/"):
		t = llm.ContentVideo
	}
	b := llm.ContentBlock{Type: t, MIME: mt, Data: data, Filename: filepath.Base(path)}
	if t == llm.ContentFile && strings.HasPrefix(mt, "text/") {
		b.ExtractedText = string(data)
	}
	return b, nil
}

// printer renders canonical events for a terminal.
type printer struct {
	out, errOut io.Writer

	json     bool
	thinking bool

	midLine bool
}

func (p *printer) event(_ context.Context, ev llm.StreamEvent) error {
	out, errOut := p.out, p.errOut
	if p.json {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}

	switch ev.Kind {
	case llm.EventContentDelta:
		if ev.Content == nil {
			return nil
		}
		if ev.Content.Text != "" {
			fmt.Fprint(out, ev.Content.Text)
			p.midLine = !strings.HasSuffix(ev.Content.Text, "\n")
		}
		if ev.Content.Image != nil {
			p.flush()
			fmt.Fprintf(out, "[image %s]\n", location(*ev.Content.Image))
		}
		if ev.Content.Video != nil {
			p.flush()
			fmt.Fprintf(out, "[video %s]\n", location(*ev.Content.Video))
		}
	case llm.EventThinkingDelta:
		if p.thinking && ev.Thinking != nil && ev.Thinking.Text != "" {
			fmt.Fprint(errOut, ev.Thinking.Text)
		}
	case llm.EventToolCallEnd:
		if ev.ToolCall == nil {
			return nil
		}
		p.flush()
		fmt.Fprintf(out, "[tool call %s %s %s]\n", ev.ToolCall.ID, ev.ToolCall.Name, ev.ToolCall.ArgumentsJSON())
	case llm.EventSearchActivity:
		sa := ev.Search
		if sa == nil {
			return nil
		}
		target := sa.Query
		if target == "" {
			target = sa.URL
		}
		fmt.Fprintf(errOut, "[%s %s] %s\n", sa.Type, sa.Status, target)
	case llm.EventMessageEnd:
		p.flush()
		if !ev.Usage.IsZero() {
			fmt.Fprintf(errOut, "[usage %s]\n", usageLine(ev.Usage))
		}
	}
	return nil
}

func (p *printer) flush() {
	if p.midLine {
		fmt.Fprintln(p.out)
		p.midLine = false
	}
}

func location(ref llm.MediaRef) string {
	switch {
	case ref.Path != "":
		return ref.Path
	case ref.URL != "":
		return ref.URL
	default:
		return fmt.Sprintf("%s, %d bytes inline", ref.MIME, len(ref.Data))
	}
}

func usageLine(u *llm.Usage) string {
	var parts []string
	add := func(name string, v *int) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s=%d", name, *v))
		}
	}
	add("input", u.InputTokens)
	add("output", u.OutputTokens)
	add("thinking", u.ThinkingTokens)
	add("cached", u.CachedTokens)
	add("cache_write", u.CacheCreationTokens)
	return strings.Join(parts, " ")
}
