// Package reports proxies medical report uploads to the external asset
// store. Report entities keep only the identifiers needed to derive a
// signed delivery URL later.
package reports

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gmsas95/vitalink/internal/config"
	apperrors "github.com/gmsas95/vitalink/internal/errors"
)

// UploadResult identifies a stored asset.
type UploadResult struct {
	AssetID      string `json:"assetId"`
	ResourceType string `json:"resourceType"`
	Version      int64  `json:"version"`
	Format       string `json:"format"`
}

// Client talks to the asset store's upload and delivery APIs.
type Client struct {
	cfg    config.ReportsConfig
	client *http.Client
	now    func() time.Time
}

// NewClient creates an asset-store client.
func NewClient(cfg config.ReportsConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		now:    time.Now,
	}
}

type uploadResponse struct {
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Version      int64  `json:"version"`
	Format       string `json:"format"`
}

// Upload sends file bytes as an authenticated upload and returns the asset
// identifiers.
func (c *Client) Upload(ctx context.Context, file []byte, filename string) (*UploadResult, error) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"timestamp": timestamp,
		"type":      "authenticated",
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "failed to build upload body")
	}
	if _, err := part.Write(file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "failed to build upload body")
	}
	for k, v := range params {
		w.WriteField(k, v)
	}
	w.WriteField("api_key", c.cfg.APIKey)
	w.WriteField("signature", c.sign(params))
	w.Close()

	url := fmt.Sprintf("%s/%s/auto/upload", c.cfg.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "failed to create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "upload request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrReportUpload.Code,
			fmt.Sprintf("upload failed (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "failed to decode upload response")
	}

	return &UploadResult{
		AssetID:      result.PublicID,
		ResourceType: result.ResourceType,
		Version:      result.Version,
		Format:       result.Format,
	}, nil
}

// SignedURL derives a time-independent signed delivery URL for a stored
// asset from its identifiers.
func (c *Client) SignedURL(assetID, resourceType string, version int64, format string) string {
	path := fmt.Sprintf("v%d/%s.%s", version, assetID, format)
	sig := c.signPath(path)
	return fmt.Sprintf("https://res.cloudinary.com/%s/%s/authenticated/s--%s--/%s",
		c.cfg.CloudName, resourceType, sig, path)
}

// sign computes the request signature over the sorted parameter string.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.cfg.APISecret))
	return fmt.Sprintf("%x", sum)
}

// signPath computes the short delivery-URL signature.
func (c *Client) signPath(path string) string {
	sum := sha1.Sum([]byte(path + c.cfg.APISecret))
	encoded := base64.RawURLEncoding.EncodeToString(sum[:])
	return encoded[:8]
}
