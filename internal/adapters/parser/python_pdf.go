package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ServicePDFParser implements ports.DocumentParser by posting the file to a PDF
// extraction sidecar (POST /parse, GET /health).
type ServicePDFParser struct {
	serviceURL string
	client     *http.Client
	logger     *slog.Logger
	cmd        *exec.Cmd
}

// NewServicePDFParser creates a parser for the sidecar at serviceURL.
func NewServicePDFParser(serviceURL string, logger *slog.Logger) *ServicePDFParser {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ServicePDFParser{
		serviceURL: strings.TrimSuffix(serviceURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.With(slog.String("component", "parser"), slog.String("parser", "service")),
	}
}

// parseResponse is the sidecar response. PageTexts is preferred; older sidecars only send Text
// with pages separated by form feeds.
type parseResponse struct {
	Text      string   `json:"text"`
	PageTexts []string `json:"page_texts,omitempty"`
	Pages     int      `json:"pages"`
	Library   string   `json:"library,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Parse extracts the text of every page via the sidecar.
func (p *ServicePDFParser) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("PDF parse error: %s", result.Error)
	}

	if len(result.PageTexts) > 0 {
		return result.PageTexts, nil
	}
	return strings.Split(result.Text, "\f"), nil
}

// SupportedFormats returns formats this parser handles.
func (p *ServicePDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// StartService runs the sidecar script with python3 and waits until /health answers.
// The returned function stops the process.
func (p *ServicePDFParser) StartService(ctx context.Context, scriptPath string) (func(), error) {
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("pdf service script: %w", err)
	}

	p.cmd = exec.Command("python3", scriptPath)
	p.cmd.Stdout = os.Stdout
	p.cmd.Stderr = os.Stderr

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting PDF service: %w", err)
	}
	p.logger.Info("started pdf service", slog.String("script", scriptPath), slog.Int("pid", p.cmd.Process.Pid))

	cleanup := func() {
		if p.cmd != nil && p.cmd.Process != nil {
			p.cmd.Process.Kill()
			p.cmd.Wait()
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	for !p.IsServiceHealthy(waitCtx) {
		select {
		case <-waitCtx.Done():
			cleanup()
			return nil, fmt.Errorf("pdf service did not become healthy: %w", waitCtx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}

	return cleanup, nil
}

// IsServiceHealthy checks if the sidecar is running.
func (p *ServicePDFParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
