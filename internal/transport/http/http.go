// Package http implements the HTTP transport for enlisten.
//
// This transport exposes a REST API for compiling and previewing scripts.
// It is best suited for web front-ends and services that prefer HTTP-based
// communication. Results can be forwarded to webhooks through Send.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/enlisten/docs" // registers the OpenAPI document
	"github.com/nadzzz/enlisten/internal/message"
	"github.com/nadzzz/enlisten/internal/transport"
)

// maxScriptBytes bounds request bodies.
const maxScriptBytes = 1 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	voices func() message.VoiceCatalog
	client *http.Client
	server *http.Server
}

// New creates a new HTTP transport on the given port. voices backs GET /voices.
func New(port int, voices func() message.VoiceCatalog) *Transport {
	return &Transport{
		port:   port,
		voices: voices,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes builds the request multiplexer for handler.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /compile: compiles a script into one audio track.
	mux.HandleFunc("POST /compile", func(w http.ResponseWriter, r *http.Request) {
		t.handleCompile(w, r, handler)
	})

	// POST /plan: previews voices and texts without synthesis.
	mux.HandleFunc("POST /plan", func(w http.ResponseWriter, r *http.Request) {
		t.handlePlan(w, r, handler)
	})

	mux.HandleFunc("GET /voices", t.handleVoices)

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleCompile processes a POST /compile request.
//
// @Summary     Compile a listening-test script
// @Description Accepts a JSON compile request, or the raw script as text/plain with settings in the
// @Description X-Enlisten-Settings header. Each sentence is synthesized and the clips are joined with
// @Description inter-line and inter-question silences into one track.
// @Tags        compile
// @Accept      json
// @Accept      plain
// @Produce     json
// @Produce     audio/wav
// @Produce     audio/mpeg
// @Param       request  body      message.CompileRequest  true  "Compile request (JSON). For a raw script, POST the text directly with Content-Type text/plain."
// @Param       raw      query     bool    false  "Return the audio bytes instead of JSON"
// @Param       X-Enlisten-Source    header  string  false  "Sender identifier (used with text/plain uploads)"
// @Param       X-Enlisten-Settings  header  string  false  "JSON-encoded Settings (used with text/plain uploads)"
// @Success     200  {object}  message.CompileResult  "Compiled track and cue list"
// @Failure     400  {object}  message.CompileResult  "Invalid request, settings or script"
// @Failure     413  {string}  string                 "Request body over 1 MiB"
// @Failure     502  {object}  message.CompileResult  "Synthesis backend failure"
// @Router      /compile [post]
func (t *Transport) handleCompile(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	req, err := decodeRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), requestErrorStatus(err))
		return
	}

	result, err := handler(r.Context(), req)
	if err != nil {
		slog.Error("compile failed", "error", err)
		http.Error(w, "compile error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	raw, _ := strconv.ParseBool(r.URL.Query().Get("raw"))
	if raw && result.Error == "" {
		audio, err := result.AudioBytes()
		if err != nil {
			http.Error(w, "decoding audio: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
		w.Header().Set("X-Enlisten-Request-Id", result.RequestID)
		w.Header().Set("X-Enlisten-Duration-Ms", strconv.FormatInt(result.DurationMs, 10))
		_, _ = w.Write(audio)
		return
	}

	writeResult(w, result)
}

// handlePlan processes a POST /plan request.
//
// @Summary     Preview a script
// @Description Runs segmentation, annotation and voice casting without synthesis.
// @Tags        compile
// @Accept      json
// @Accept      plain
// @Produce     json
// @Param       request  body      message.CompileRequest  true  "Compile request (JSON) or raw script text"
// @Success     200  {object}  message.CompileResult  "Cue list"
// @Failure     400  {object}  message.CompileResult  "Invalid request, settings or script"
// @Failure     413  {string}  string                 "Request body over 1 MiB"
// @Router      /plan [post]
func (t *Transport) handlePlan(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	req, err := decodeRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), requestErrorStatus(err))
		return
	}
	req.PlanOnly = true

	result, err := handler(r.Context(), req)
	if err != nil {
		slog.Error("plan failed", "error", err)
		http.Error(w, "plan error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeResult(w, result)
}

// handleVoices processes a GET /voices request.
//
// @Summary     List voices
// @Description Returns the voice sets used by the random and order policies.
// @Tags        voices
// @Produce     json
// @Success     200  {object}  message.VoiceCatalog
// @Router      /voices [get]
func (t *Transport) handleVoices(w http.ResponseWriter, r *http.Request) {
	var catalog message.VoiceCatalog
	if t.voices != nil {
		catalog = t.voices()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(catalog)
}

// decodeRequest reads a JSON compile request or a raw text/plain script.
// Bodies over maxScriptBytes are rejected, never truncated.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*message.CompileRequest, error) {
	var req message.CompileRequest
	body := http.MaxBytesReader(w, r.Body, maxScriptBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	case "text/plain", "":
		script, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("reading script: %w", err)
		}
		req.Script = string(script)
		req.Source = r.Header.Get("X-Enlisten-Source")
		if s := r.Header.Get("X-Enlisten-Settings"); s != "" {
			if err := json.Unmarshal([]byte(s), &req.Settings); err != nil {
				return nil, fmt.Errorf("invalid settings header: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}

	req.Timestamp = time.Now()
	return &req, nil
}

// requestErrorStatus maps a decodeRequest error to an HTTP status.
func requestErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// writeResult encodes result with a status derived from its error kind.
func writeResult(w http.ResponseWriter, result *message.CompileResult) {
	status := http.StatusOK
	switch result.ErrorKind {
	case "":
	case "configuration", "empty_script":
		status = http.StatusBadRequest
	case "synthesis", "decode":
		status = http.StatusBadGateway
	case "cancelled":
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

// Send delivers a payload to an HTTP target via POST.
func (t *Transport) Send(ctx context.Context, target message.Target, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("http send: status %d: %s", resp.StatusCode, body)
	}

	slog.Debug("http send success", "target", target.Endpoint, "status", resp.StatusCode)
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
