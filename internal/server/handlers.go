package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/gptdesk/internal/models"
	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/audio"
	"github.com/r9s-ai/gptdesk/pkg/gpt"
	"github.com/r9s-ai/gptdesk/pkg/requestid"
)

const maxJSONBody = 16 << 20

type validator interface{ Validate() error }

type textReply struct {
	Text string `json:"text"`
}

func handleChat(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Messages []apitypes.ChatMessage `json:"messages"`
			Options  json.RawMessage        `json:"options"`
		}
		opts := st.Defaults().Chat
		if !bindRequest(c, "chat", &req, &req.Options, &opts) {
			return
		}
		if len(req.Messages) == 0 {
			writeError(c, http.StatusBadRequest, "invalid_request_error", "missing_messages", "messages is required")
			return
		}
		if !checkModel(c, st, models.KindChat, opts.Model) {
			return
		}
		text, err := st.Client().Chat(c.Request.Context(), opts, req.Messages)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, textReply{Text: text})
	}
}

func handleComplete(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Prompt  string          `json:"prompt"`
			Options json.RawMessage `json:"options"`
		}
		opts := st.Defaults().Completion
		if !bindRequest(c, "completion", &req, &req.Options, &opts) {
			return
		}
		if !checkModel(c, st, models.KindCompletion, opts.Model) {
			return
		}
		text, err := st.Client().Complete(c.Request.Context(), opts, req.Prompt)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, textReply{Text: text})
	}
}

func handleEmbed(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Input   []string        `json:"input"`
			Options json.RawMessage `json:"options"`
		}
		opts := st.Defaults().Embedding
		if !bindRequest(c, "embedding", &req, &req.Options, &opts) {
			return
		}
		if !checkModel(c, st, models.KindEmbedding, opts.Model) {
			return
		}
		vectors, err := st.Client().Embed(c.Request.Context(), opts, req.Input)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"embeddings": vectors})
	}
}

func handleImage(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Prompt  string          `json:"prompt"`
			Options json.RawMessage `json:"options"`
		}
		opts := st.Defaults().Image
		if !bindRequest(c, "image", &req, &req.Options, &opts) {
			return
		}
		if !checkModel(c, st, models.KindImage, opts.Model) {
			return
		}
		images, err := st.Client().GenerateImage(c.Request.Context(), opts, req.Prompt)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"images": images, "response_format": opts.ResponseFormat})
	}
}

func handleSpeech(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Input   string          `json:"input"`
			Options json.RawMessage `json:"options"`
		}
		opts := st.Defaults().Speech
		if !bindRequest(c, "speech", &req, &req.Options, &opts) {
			return
		}
		if !checkModel(c, st, models.KindSpeech, opts.Model) {
			return
		}
		b, err := st.Client().Speak(c.Request.Context(), opts, req.Input)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.Data(http.StatusOK, audio.SpeechContentType(opts.ResponseFormat), b)
	}
}

func handleTranscribe(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxEndpoint, "transcription")
		opts := st.Defaults().Transcription
		f, ok := bindAudio(c, &opts)
		if !ok || !checkModel(c, st, models.KindTranscription, opts.Model) {
			return
		}
		text, err := st.Client().Transcribe(c.Request.Context(), opts, f)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, textReply{Text: text})
	}
}

func handleTranslate(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxEndpoint, "translation")
		opts := st.Defaults().Translation
		f, ok := bindAudio(c, &opts)
		if !ok || !checkModel(c, st, models.KindTranslation, opts.Model) {
			return
		}
		text, err := st.Client().Translate(c.Request.Context(), opts, f)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, textReply{Text: text})
	}
}

func handleAsk(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Question string          `json:"question"`
			Options  json.RawMessage `json:"options"`
		}
		opts := st.Defaults().Assistant
		if !bindRequest(c, "assistant", &req, &req.Options, &opts) {
			return
		}
		text, err := st.Client().Ask(c.Request.Context(), opts, c.Param("id"), req.Question)
		if err != nil {
			writeCallError(c, err)
			return
		}
		c.JSON(http.StatusOK, textReply{Text: text})
	}
}

// handleModels lists the catalog, merged with the live /models list when ?live=1.
func handleModels(st *state) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxEndpoint, "models")
		catalog := st.Catalog()
		switch strings.ToLower(strings.TrimSpace(c.Query("live"))) {
		case "1", "true", "yes":
			live, err := st.Client().ListModels(c.Request.Context())
			if err != nil {
				writeCallError(c, err)
				return
			}
			c.JSON(http.StatusOK, catalog.Merge(live))
		default:
			c.JSON(http.StatusOK, catalog.ToList())
		}
	}
}

// bindRequest decodes the JSON body into req, then layers the raw options
// object over opts and validates the result.
func bindRequest(c *gin.Context, endpoint string, req any, raw *json.RawMessage, opts validator) bool {
	c.Set(ctxEndpoint, endpoint)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "invalid_json", err.Error())
		return false
	}
	return applyOptions(c, endpoint, *raw, opts)
}

func applyOptions(c *gin.Context, endpoint string, raw []byte, opts validator) bool {
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, opts); err != nil {
			writeError(c, http.StatusBadRequest, "invalid_request_error", "invalid_options", fmt.Sprintf("%s options: %v", endpoint, err))
			return false
		}
	}
	if err := opts.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "invalid_options", fmt.Sprintf("%s options: %v", endpoint, err))
		return false
	}
	return true
}

// bindAudio reads the multipart "file" part and the optional "options" JSON field.
func bindAudio(c *gin.Context, opts validator) (audio.File, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "missing_file", "multipart field \"file\" is required")
		return audio.File{}, false
	}
	rc, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "invalid_file", err.Error())
		return audio.File{}, false
	}
	defer func() { _ = rc.Close() }()
	f, err := audio.Read(fh.Filename, rc)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "invalid_file", err.Error())
		return audio.File{}, false
	}
	if !applyOptions(c, c.GetString(ctxEndpoint), []byte(c.PostForm("options")), opts) {
		return audio.File{}, false
	}
	return f, true
}

func checkModel(c *gin.Context, st *state, kind models.Kind, model string) bool {
	c.Set(ctxModel, model)
	if err := st.Catalog().Check(kind, model); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request_error", "model_not_supported", err.Error())
		return false
	}
	return true
}

// writeCallError maps a pkg/gpt error to the vendor-style error envelope.
// API errors keep the vendor status and fields.
func writeCallError(c *gin.Context, err error) {
	var apiErr *gpt.APIError
	var runErr *gpt.RunError
	switch {
	case errors.As(err, &apiErr):
		typ := apiErr.Type
		if typ == "" {
			typ = "api_error"
		}
		apiErrorsTotal.WithLabelValues(c.GetString(ctxEndpoint), typ).Inc()
		writeErrorParam(c, apiErr.StatusCode, typ, apiErr.Code, apiErr.Param, apiErr.Message)
	case errors.Is(err, gpt.ErrStreamUnsupported):
		writeError(c, http.StatusBadRequest, "invalid_request_error", "stream_unsupported", err.Error())
	case errors.As(err, &runErr):
		apiErrorsTotal.WithLabelValues(c.GetString(ctxEndpoint), "run_"+runErr.Status).Inc()
		writeError(c, http.StatusBadGateway, "api_error", "run_"+runErr.Status, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		apiErrorsTotal.WithLabelValues(c.GetString(ctxEndpoint), "timeout").Inc()
		writeError(c, http.StatusGatewayTimeout, "api_error", "timeout", err.Error())
	case errors.Is(err, gpt.ErrEmptyResponse):
		apiErrorsTotal.WithLabelValues(c.GetString(ctxEndpoint), "empty_response").Inc()
		writeError(c, http.StatusBadGateway, "api_error", "empty_response", err.Error())
	default:
		apiErrorsTotal.WithLabelValues(c.GetString(ctxEndpoint), "upstream_error").Inc()
		writeError(c, http.StatusBadGateway, "api_error", "upstream_error", err.Error())
	}
}

func writeError(c *gin.Context, status int, typ, code, msg string) {
	writeErrorParam(c, status, typ, code, "", msg)
}

func writeErrorParam(c *gin.Context, status int, typ, code, param, msg string) {
	c.Set(ctxErrType, typ)
	if rid := strings.TrimSpace(c.GetString(requestid.HeaderKey)); rid != "" {
		msg = msg + " (request id: " + rid + ")"
	}
	eb := apitypes.ErrorBody{Message: msg, Type: typ}
	if code != "" {
		eb.Code = code
	}
	if param != "" {
		eb.Param = param
	}
	c.AbortWithStatusJSON(status, apitypes.ErrorEnvelope{Error: &eb})
}
