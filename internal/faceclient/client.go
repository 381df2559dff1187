package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"classattend/internal/face"
)

// detectResponse is the face service's /detect payload.
type detectResponse struct {
	Faces []struct {
		Box       face.Box  `json:"box"`
		Embedding []float64 `json:"embedding"`
	} `json:"faces"`
}

// Client calls the face detection microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // detection on CPU can take a while
		},
	}
}

// skipDetections is the canned single face returned when Skip is set.
func skipDetections() []face.Detection {
	return []face.Detection{{
		Box:       face.Box{X: 80, Y: 60, Width: 160, Height: 160},
		Embedding: face.Embedding{0.1, 0.2, 0.3},
	}}
}

// Detect uploads an image and returns every face found in it.
func (c *Client) Detect(ctx context.Context, image []byte) ([]face.Detection, error) {
	if c.Skip {
		return skipDetections(), nil
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

// DetectURL asks the service to fetch and analyse an image by URL.
func (c *Client) DetectURL(ctx context.Context, imageURL string) ([]face.Detection, error) {
	if c.Skip {
		return skipDetections(), nil
	}
	if imageURL == "" {
		return nil, fmt.Errorf("image url required")
	}

	body, _ := json.Marshal(map[string]string{"image_url": imageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]face.Detection, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	dets := make([]face.Detection, 0, len(out.Faces))
	for i, f := range out.Faces {
		emb := face.Embedding(f.Embedding)
		if err := emb.Validate(); err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		dets = append(dets, face.Detection{Box: f.Box, Embedding: emb})
	}
	return dets, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}
