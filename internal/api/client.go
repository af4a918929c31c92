package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/athena2/fleeteval/pkg/core"
)

// UploadPath is appended to the base URL for result uploads.
const UploadPath = "/v1/runs/add"

// Client handles communication with a results server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the results server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload sends an exported results file with its run metadata.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	// Write form fields and file in goroutine
	errCh := make(chan error, 1)
	go func() {
		err := writeForm(writer, file, filePath, c.apiKey, meta)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}

func writeForm(w *multipart.Writer, file io.Reader, filePath, secret string, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", secret},
		{"filename", filepath.Base(filePath)},
		{"runId", meta.RunID.String()},
		{"runName", meta.RunName},
		{"fleets", strconv.Itoa(meta.Fleets)},
		{"matchups", strconv.Itoa(meta.Matchups)},
		{"trials", strconv.Itoa(meta.Trials)},
		{"duration", fmt.Sprintf("%f", meta.Duration)},
		{"tag", meta.Tag},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}
