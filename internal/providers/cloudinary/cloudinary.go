// Package cloudinary загружает изображения в Cloudinary подписанным запросом.
package cloudinary

import (
	"context"
	"crypto/sha1" //nolint:gosec // алгоритм подписи задан API Cloudinary
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Config параметры клиента Cloudinary.
type Config struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client загружает изображения в Cloudinary.
type Client struct {
	http *resty.Client
	cfg  Config
	log  *slog.Logger
	now  func() time.Time
}

// NewClient создаёт клиент Cloudinary.
func NewClient(cfg Config, log *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(60 * time.Second)
	return &Client{http: http, cfg: cfg, log: log, now: time.Now}
}

// Upload загружает файл в папку subfolder и возвращает его https-адрес.
func (c *Client) Upload(ctx context.Context, subfolder, filename string, file io.Reader) (string, error) {
	const op = "cloudinary.Upload"
	params := map[string]string{
		"folder":    strings.Trim(c.cfg.Folder+"/"+subfolder, "/"),
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := map[string]string{
		"api_key":   c.cfg.APIKey,
		"signature": Signature(params, c.cfg.APISecret),
	}
	for k, v := range params {
		form[k] = v
	}

	var out uploadResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(form).
		SetFileReader("file", filename, file).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1_1/" + c.cfg.CloudName + "/image/upload")
	if err != nil {
		return "", models.ProviderError("cloudinary", fmt.Errorf("%s: %w", op, err))
	}
	if resp.IsError() {
		return "", models.ProviderError("cloudinary", fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), apiErr.Error.Message))
	}
	if out.SecureURL == "" {
		return "", models.ProviderError("cloudinary", fmt.Errorf("%s: empty secure_url", op))
	}

	c.log.Info("image uploaded", slog.String("public_id", out.PublicID))
	return out.SecureURL, nil
}

// Signature считает подпись запроса: sha1 от отсортированных
// параметров "k=v&k2=v2" с приписанным секретом.
func Signature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
