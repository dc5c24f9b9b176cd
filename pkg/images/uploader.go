// Package images talks to the image host and manages locally staged,
// not-yet-uploaded selections.
package images

import (
	"context"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// thumbSegment is the width-transform path segment the host resolves for
// thumbnail variants. The substitution must match the host convention
// exactly or thumbnails will not resolve.
const (
	uploadSegment = "/upload/"
	thumbSegment  = "/upload/w_300/"
)

// ThumbURL derives the thumbnail variant from a full image URL.
func ThumbURL(fullURL string) string {
	return strings.Replace(fullURL, uploadSegment, thumbSegment, 1)
}

// Uploaded is what the host returns for one accepted image.
type Uploaded struct {
	FullURL  string
	ThumbURL string
	PublicID string
}

// Uploader accepts one raw image file and returns its hosted identity.
type Uploader interface {
	Upload(ctx context.Context, path string) (Uploaded, error)
}

// UploadError wraps a failed upload with the file that caused it. The save
// workflow aborts remaining uploads on the first one of these.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("images: upload %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Config holds the host parameters. Cloud, Preset, and Folder follow the
// Cloudinary unsigned-upload contract.
type Config struct {
	BaseURL string // default https://api.cloudinary.com
	Cloud   string
	Preset  string
	Folder  string
}

// ConfigFromEnv reads PINMAP_CLOUD_NAME, PINMAP_UPLOAD_PRESET, and
// PINMAP_UPLOAD_FOLDER.
func ConfigFromEnv() Config {
	return Config{
		Cloud:  os.Getenv("PINMAP_CLOUD_NAME"),
		Preset: os.Getenv("PINMAP_UPLOAD_PRESET"),
		Folder: os.Getenv("PINMAP_UPLOAD_FOLDER"),
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithLogger sets the logger for upload attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// Client uploads images over HTTP using the unsigned-preset contract.
type Client struct {
	cfg Config
	hc  *http.Client
	log *slog.Logger
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Cloud == "" {
		return nil, fmt.Errorf("images: cloud name required")
	}
	if cfg.Preset == "" {
		return nil, fmt.Errorf("images: upload preset required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	c := &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: 60 * time.Second},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Upload posts one file with the fixed preset and folder parameters and
// returns the secure URL, derived thumbnail URL, and public id.
func (c *Client) Upload(ctx context.Context, path string) (Uploaded, error) {
	file, err := os.Open(path)
	if err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}
	defer file.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}
	if err := w.WriteField("upload_preset", c.cfg.Preset); err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}
	if c.cfg.Folder != "" {
		if err := w.WriteField("folder", c.cfg.Folder); err != nil {
			return Uploaded{}, &UploadError{Path: path, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.cfg.BaseURL, c.cfg.Cloud)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	c.log.Debug("uploading image", "file", filepath.Base(path))

	res, err := c.hc.Do(req)
	if err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return Uploaded{}, &UploadError{Path: path, Err: fmt.Errorf("host rejected upload: %s: %s", res.Status, strings.TrimSpace(string(text)))}
	}

	var parsed uploadResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Uploaded{}, &UploadError{Path: path, Err: err}
	}

	return Uploaded{
		FullURL:  parsed.SecureURL,
		ThumbURL: ThumbURL(parsed.SecureURL),
		PublicID: parsed.PublicID,
	}, nil
}
