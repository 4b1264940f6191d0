package gpt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/audio"
	"github.com/r9s-ai/gptdesk/pkg/jsonutil"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

const (
	speechEndpoint        = "speech"
	transcriptionEndpoint = "transcription"
	translationEndpoint   = "translation"
	transcriptTextPath    = "$.text"
)

// Speak converts text to audio in opts.ResponseFormat.
func (c *Client) Speak(ctx context.Context, opts options.SpeechOptions, text string) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("speech options: %w", err)
	}
	p, err := opts.Payload(text)
	if err != nil {
		return nil, err
	}
	cl := call{endpoint: speechEndpoint, method: http.MethodPost, path: "/audio/speech", model: p.Model}
	b, err := marshalPayload(cl.endpoint, p)
	if err != nil {
		return nil, err
	}
	cl.body, cl.contentType = b, "application/json"
	r, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	if len(r.body) == 0 {
		return nil, emptyResponse("audio body")
	}
	fields := r.withIDs(map[string]any{"bytes": len(r.body)})
	if p.ResponseFormat == "mp3" {
		if d, err := audio.MP3Duration(r.body); err == nil {
			fields["audio_seconds"] = d.Seconds()
		}
	}
	c.logCall(timeBefore(r), r.status, cl, fields)
	return r.body, nil
}

// Transcribe returns the text spoken in f. For text, srt and vtt formats the
// raw body is returned.
func (c *Client) Transcribe(ctx context.Context, opts options.TranscriptionOptions, f audio.File) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("transcription options: %w", err)
	}
	p := opts.Payload()
	return c.audioText(ctx, call{endpoint: transcriptionEndpoint, path: "/audio/transcriptions", model: p.Model}, p.Fields(), p.ResponseFormat, f)
}

// TranscribeVerbose returns segments and timing. opts.ResponseFormat is forced to verbose_json.
func (c *Client) TranscribeVerbose(ctx context.Context, opts options.TranscriptionOptions, f audio.File) (*apitypes.TranscriptionResponse, error) {
	opts.ResponseFormat = "verbose_json"
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("transcription options: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	p := opts.Payload()
	r, err := c.sendAudio(ctx, call{endpoint: transcriptionEndpoint, path: "/audio/transcriptions", model: p.Model}, p.Fields(), f)
	if err != nil {
		return nil, err
	}
	var out apitypes.TranscriptionResponse
	if err := decodeInto(r, transcriptionEndpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Translate returns the English translation of the speech in f.
func (c *Client) Translate(ctx context.Context, opts options.TranslationOptions, f audio.File) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("translation options: %w", err)
	}
	p := opts.Payload()
	return c.audioText(ctx, call{endpoint: translationEndpoint, path: "/audio/translations", model: p.Model}, p.Fields(), p.ResponseFormat, f)
}

func (c *Client) audioText(ctx context.Context, cl call, fields url.Values, format string, f audio.File) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	r, err := c.sendAudio(ctx, cl, fields, f)
	if err != nil {
		return "", err
	}
	if !options.IsJSONTranscript(format) {
		text := strings.TrimSpace(string(r.body))
		if text == "" {
			return "", emptyResponse("transcript body")
		}
		return text, nil
	}
	root, err := apitypes.ParseJSONObject(r.body, cl.endpoint+" response")
	if err != nil {
		return "", err
	}
	text := jsonutil.GetStringByPath(root, transcriptTextPath)
	if text == "" {
		return "", emptyResponse(transcriptTextPath)
	}
	return text, nil
}

func (c *Client) sendAudio(ctx context.Context, cl call, fields url.Values, f audio.File) (*reply, error) {
	body, ct, err := encodeMultipart(fields, Upload{Field: "file", Name: f.Name, Data: f.Data, ContentType: f.ContentType()})
	if err != nil {
		return nil, err
	}
	cl.method = http.MethodPost
	cl.body, cl.contentType = body, ct
	r, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}
	logFields := r.withIDs(map[string]any{"bytes": len(f.Data)})
	if d := f.Duration(); d > 0 {
		logFields["audio_seconds"] = d.Seconds()
	}
	c.logCall(timeBefore(r), r.status, cl, logFields)
	return r, nil
}
