// Package media uploads binary files to the hosted media service and returns
// their public URLs.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/liquidtasks/core/internal/infrastructure/config"
	"github.com/liquidtasks/core/internal/ports"
)

// CloudinaryUploader implements signed image uploads. The signature scheme is
// the service's: sha1 over "timestamp=<ts><api secret>".
type CloudinaryUploader struct {
	cfg     config.MediaConfig
	client  *http.Client
	baseURL string
}

var _ ports.MediaUploader = (*CloudinaryUploader)(nil)

// New creates an uploader with a bounded-timeout HTTP client.
func New(cfg config.MediaConfig) *CloudinaryUploader {
	return &CloudinaryUploader{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.cloudinary.com/v1_1",
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the file and returns the public URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	if u.cfg.CloudName == "" {
		return "", fmt.Errorf("media upload not configured")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := sign("timestamp=" + timestamp + u.cfg.APISecret)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy file content: %w", err)
	}
	writer.WriteField("api_key", u.cfg.APIKey)
	writer.WriteField("timestamp", timestamp)
	writer.WriteField("signature", signature)
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", u.baseURL, u.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := result.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("upload failed: %s", msg)
	}

	return result.SecureURL, nil
}

func sign(payload string) string {
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
