package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	json "github.com/goccy/go-json"
)

const (
	maxResponseBytes = 5 * 1024 * 1024
	maxErrorBody     = 512
)

// HTTPClient talks to the chat backend's REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logging.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(h *HTTPClient) { h.token = token }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) { h.log = l }
}

// NewHTTPClient creates a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("component", "backend")
	return h
}

// NewFromConfig builds a client from api_base_url and api_token.
func NewFromConfig() *HTTPClient {
	return NewHTTPClient(
		config.Get("api_base_url", "http://localhost:8000"),
		WithToken(config.Get("api_token", "")),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}),
	)
}

type unreadListResponse struct {
	Channels []domain.ChannelUnread `json:"channels"`
}

// GetUnreadCounts implements UnreadSource.
func (h *HTTPClient) GetUnreadCounts(ctx context.Context) ([]domain.ChannelUnread, error) {
	var out unreadListResponse
	if err := h.doJSON(ctx, http.MethodGet, "/api/unread", nil, &out); err != nil {
		return nil, fmt.Errorf("get unread counts: %w", err)
	}
	return out.Channels, nil
}

// GetUnreadCountForChannel implements UnreadSource.
func (h *HTTPClient) GetUnreadCountForChannel(ctx context.Context, channelID string) (domain.ChannelUnread, error) {
	if channelID == "" {
		return domain.ChannelUnread{}, fmt.Errorf("get unread count: channel %w", ErrEmptyID)
	}
	var out domain.ChannelUnread
	if err := h.doJSON(ctx, http.MethodGet, "/api/unread/"+url.PathEscape(channelID), nil, &out); err != nil {
		return domain.ChannelUnread{}, fmt.Errorf("get unread count for %s: %w", channelID, err)
	}
	if out.ChannelID == "" {
		out.ChannelID = channelID
	}
	return out, nil
}

// UploadFile implements FileService. The multipart body is streamed so
// progress follows the bytes actually handed to the transport.
func (h *HTTPClient) UploadFile(ctx context.Context, file domain.RawFile, dest domain.Destination, onProgress func(float64)) (domain.UploadedFile, error) {
	if file.Content == nil {
		return domain.UploadedFile{}, fmt.Errorf("upload %s: no content", file.Name)
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	written := make(chan struct{})
	go func() {
		defer close(written)
		err := writeMultipart(mw, file, dest, onProgress)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	// The server may answer before reading the whole body; closing the
	// reader unblocks the writer on every return path.
	defer func() {
		pr.Close()
		<-written
	}()

	req, err := h.newRequest(ctx, http.MethodPost, "/api/files", pr)
	if err != nil {
		return domain.UploadedFile{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out domain.UploadedFile
	if err := h.do(req, &out); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	if out.ServerFileID == "" {
		return domain.UploadedFile{}, fmt.Errorf("upload %s: response has no file id", file.Name)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return out, nil
}

func writeMultipart(mw *multipart.Writer, file domain.RawFile, dest domain.Destination, onProgress func(float64)) error {
	if err := mw.WriteField("channel_id", dest.ChannelID); err != nil {
		return err
	}
	if dest.Folder != "" {
		if err := mw.WriteField("folder", dest.Folder); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, newProgressReader(file.Content, file.Size, onProgress))
	return err
}

// DeleteFile implements FileService.
func (h *HTTPClient) DeleteFile(ctx context.Context, serverFileID string) error {
	if serverFileID == "" {
		return fmt.Errorf("delete file: %w", ErrEmptyID)
	}
	if err := h.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(serverFileID), nil, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", serverFileID, err)
	}
	return nil
}

// CreateMessage implements MessageService.
func (h *HTTPClient) CreateMessage(ctx context.Context, channelID string, payload domain.MessagePayload) (domain.MessageRecord, error) {
	if channelID == "" {
		return domain.MessageRecord{}, fmt.Errorf("create message: channel %w", ErrEmptyID)
	}
	var out domain.MessageRecord
	path := "/api/channels/" + url.PathEscape(channelID) + "/messages"
	if err := h.doJSON(ctx, http.MethodPost, path, payload, &out); err != nil {
		return domain.MessageRecord{}, fmt.Errorf("create message in %s: %w", channelID, err)
	}
	return out, nil
}

func (h *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	return req, nil
}

func (h *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := h.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.do(req, out)
}

func (h *HTTPClient) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.log.Debug("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return err
	}
	defer resp.Body.Close()
	h.log.Debug("request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
