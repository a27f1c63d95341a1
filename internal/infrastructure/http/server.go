// Package http serves the chat page and the question endpoints.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/infrastructure/bootstrap"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// MaxErrorDetail bounds the init error reported by /health.
const MaxErrorDetail = 4000

const templateMissing = "<h2>Chat app</h2><p>Template missing.</p>"

// Backend builds the query service on first use and reports its state.
// *bootstrap.Lazy implements it.
type Backend interface {
	Get(ctx context.Context) (*bootstrap.Services, error)
	Status() (bool, error)
}

// Server is the HTTP front end.
type Server struct {
	backend   Backend
	templates *template.Template
	addr      string
	logger    *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(backend Backend, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "http"))

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("chat template unavailable", slog.Any("error", err))
		tmpl = nil
	}

	return &Server{
		backend:   backend,
		templates: tmpl,
		addr:      addr,
		logger:    logger,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	staticContent, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /get", s.handleGet)
	mux.HandleFunc("POST /get", s.handleGet)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /health", s.handleHealth)

	return requestIDMiddleware(corsMiddleware(s.loggingMiddleware(mux)))
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      300 * time.Second, // streamed answers can be slow
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server starting", slog.String("addr", s.addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		fmt.Fprint(w, templateMissing)
		return
	}
	data := struct{ Title string }{Title: "Medical Chatbot"}
	if err := s.templates.ExecuteTemplate(w, "chat.html", data); err != nil {
		s.logger.Error("rendering chat page", slog.Any("error", err))
	}
}

// handleGet answers the question in msg, read from the query string, a form body or a JSON body.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	msg := messageFrom(r)
	if msg == "" {
		http.Error(w, "No message provided", http.StatusBadRequest)
		return
	}

	services, err := s.backend.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Backend init failed", Detail: truncate(err.Error(), MaxErrorDetail)})
		return
	}

	resp, err := services.Query.Answer(r.Context(), &entities.ChatRequest{Query: msg})
	if err != nil {
		s.logger.Error("query failed", slog.String("request_id", requestID(r)), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Server error", Detail: err.Error()})
		return
	}

	if wantsPlainText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, resp.Answer)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": resp.Answer})
}

// handleStream answers msg as server-sent events of {"content","done"} frames.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	msg := strings.TrimSpace(r.URL.Query().Get("msg"))
	if msg == "" {
		http.Error(w, "No message provided", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	services, err := s.backend.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Backend init failed", Detail: truncate(err.Error(), MaxErrorDetail)})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	tokens, sources, err := services.Query.Stream(r.Context(), &entities.ChatRequest{Query: msg})
	if err != nil {
		s.logger.Error("stream failed", slog.String("request_id", requestID(r)), slog.Any("error", err))
		sendSSE(w, flusher, streamFrame{Error: err.Error(), Done: true})
		return
	}

	for token := range tokens {
		if token.Error != nil {
			sendSSE(w, flusher, streamFrame{Error: token.Error.Error(), Done: true})
			return
		}
		frame := streamFrame{Content: token.Content, Done: token.Done}
		if token.Done {
			frame.Sources = sourceNames(sources)
		}
		sendSSE(w, flusher, frame)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready, err := s.backend.Status()
	detail := ""
	if err != nil {
		detail = truncate(err.Error(), MaxErrorDetail)
	}
	writeJSON(w, http.StatusOK, healthBody{Ready: ready, Error: detail})
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type healthBody struct {
	Ready bool   `json:"ready"`
	Error string `json:"error"`
}

type streamFrame struct {
	Content string   `json:"content"`
	Done    bool     `json:"done"`
	Error   string   `json:"error,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

func messageFrom(r *http.Request) string {
	if msg := strings.TrimSpace(r.URL.Query().Get("msg")); msg != "" {
		return msg
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			Msg string `json:"msg"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
			return ""
		}
		return strings.TrimSpace(body.Msg)
	}
	return strings.TrimSpace(r.PostFormValue("msg"))
}

func wantsPlainText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain") && !strings.Contains(accept, "application/json")
}

func sourceNames(results []entities.QueryResult) []string {
	seen := make(map[string]bool, len(results))
	var names []string
	for _, r := range results {
		if r.SourceDoc == "" || seen[r.SourceDoc] {
			continue
		}
		seen[r.SourceDoc] = true
		names = append(names, r.SourceDoc)
	}
	return names
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, frame streamFrame) {
	data, _ := json.Marshal(frame)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
