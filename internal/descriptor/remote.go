package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const defaultRemoteURL = "http://localhost:8000"

// RemoteExtractor computes descriptors by calling a face inference service
// over HTTP. The service detects the dominant face and returns its
// embedding together with the model version.
type RemoteExtractor struct {
	baseURL string
	dim     int
	version string
	client  *http.Client
}

// NewRemoteExtractor creates a client for the inference service. The
// timeout is the per-call budget; extraction past it surfaces as
// ErrServiceUnavailable.
func NewRemoteExtractor(baseURL string, dim int, timeout time.Duration) *RemoteExtractor {
	if baseURL == "" {
		baseURL = defaultRemoteURL
	}
	return &RemoteExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		version: "insight-v1",
		client:  &http.Client{Timeout: timeout},
	}
}

// extractResponse is the inference service's success payload.
type extractResponse struct {
	Dim        int       `json:"dim"`
	Descriptor []float32 `json:"descriptor"`
	Version    string    `json:"version"`
}

// extractError is the inference service's structured failure payload.
type extractError struct {
	Error string `json:"error"`
}

func (e *RemoteExtractor) Version() string { return e.version }
func (e *RemoteExtractor) Dim() int        { return e.dim }

// Extract posts the image as multipart form data and maps the service's
// structured errors onto the package sentinels.
func (e *RemoteExtractor) Extract(ctx context.Context, imageData []byte) (*Result, error) {
	if _, err := decodeConfig(imageData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		// Timeouts and connection failures are availability problems,
		// never a "no face" result.
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapServiceError(resp.StatusCode, body)
	}

	var extResp extractResponse
	if err := json.Unmarshal(body, &extResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(extResp.Descriptor) == 0 {
		return nil, errors.New("empty descriptor returned")
	}
	if extResp.Dim != 0 && extResp.Dim != len(extResp.Descriptor) {
		return nil, fmt.Errorf("descriptor length %d does not match reported dim %d", len(extResp.Descriptor), extResp.Dim)
	}

	version := extResp.Version
	if version == "" {
		version = e.version
	}
	return &Result{Vector: extResp.Descriptor, Version: version}, nil
}

// mapServiceError translates the service's error payload into sentinels.
func mapServiceError(status int, body []byte) error {
	var svcErr extractError
	_ = json.Unmarshal(body, &svcErr)

	switch svcErr.Error {
	case "no_face_detected":
		return ErrNoFaceDetected
	case "invalid_image":
		return ErrInvalidImage
	}

	if status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout {
		return fmt.Errorf("%w: status %d", ErrServiceUnavailable, status)
	}
	return fmt.Errorf("extractor API error (status %d): %s", status, string(body))
}

// detectMIMEType detects the MIME type from image data magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
