package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photopost/pkg/errors"
	"photopost/pkg/logger"
)

// Options configure a Client
type Options struct {
	Token   string
	BaseURL string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Client talks to the Telegram Bot API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     logger.Logger
}

// NewClient creates a Bot API client. Zero timeouts default to 30 seconds.
func NewClient(opts Options, log logger.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: newHTTPClient(
			orDefault(opts.ConnectTimeout),
			orDefault(opts.ReadTimeout),
			orDefault(opts.WriteTimeout),
		),
		baseURL: baseURL,
		token:   opts.Token,
		logger:  log.WithField("component", "telegram"),
	}
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SendPhoto uploads a photo with a caption. It makes exactly one attempt.
func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) (*Message, error) {
	if req.Photo == nil {
		return nil, &errors.Error{Type: errors.ErrorTypeBadRequest, Message: "no photo to send"}
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "photo.jpg"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("chat_id", req.ChatID); err != nil {
		return nil, c.buildError(err)
	}
	if req.Caption != "" {
		if err := mw.WriteField("caption", req.Caption); err != nil {
			return nil, c.buildError(err)
		}
	}
	part, err := mw.CreateFormFile("photo", fileName)
	if err != nil {
		return nil, c.buildError(err)
	}
	size, err := io.Copy(part, req.Photo)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to read photo: %v", err),
			Err:     err,
		}
	}
	if err := mw.Close(); err != nil {
		return nil, c.buildError(err)
	}

	c.logger.DebugWithFields("uploading photo", map[string]interface{}{
		"chat_id":     req.ChatID,
		"file":        fileName,
		"bytes":       size,
		"has_caption": req.Caption != "",
	})

	var msg Message
	if err := c.call(ctx, methodSendPhoto, mw.FormDataContentType(), &body, &msg); err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("photo sent", map[string]interface{}{
		"chat_id":    req.ChatID,
		"message_id": msg.MessageID,
	})
	return &msg, nil
}

// GetMe returns the bot behind the configured token
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, methodGetMe, "", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) buildError(err error) error {
	return &errors.Error{
		Type:    errors.ErrorTypeUnknown,
		Message: fmt.Sprintf("failed to build request: %v", err),
		Err:     err,
	}
}

// call performs one Bot API request and decodes its result into target
func (c *Client) call(ctx context.Context, method, contentType string, body io.Reader, target interface{}) error {
	httpMethod := http.MethodGet
	if body != nil {
		httpMethod = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, c.methodURL(method), body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: c.redact(fmt.Sprintf("failed to create request: %v", err)),
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		apiErr := c.transportError(err)
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"type":     string(apiErr.Type),
			"error":    apiErr.Message,
			"duration": duration,
		})
		return apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := c.transportError(err)
		apiErr.Code = resp.StatusCode
		c.logger.ErrorWithFields("failed to read response body", map[string]interface{}{
			"method": method,
			"status": resp.StatusCode,
			"error":  apiErr.Message,
		})
		return apiErr
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return c.statusError(method, resp.StatusCode, http.StatusText(resp.StatusCode), nil)
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"method":       method,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(raw),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse response: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if resp.StatusCode != http.StatusOK || !envelope.OK {
		code := envelope.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return c.statusError(method, code, envelope.Description, envelope.Parameters)
	}

	if target != nil {
		if err := json.Unmarshal(envelope.Result, target); err != nil {
			return &errors.Error{
				Type:    errors.ErrorTypeParsing,
				Message: fmt.Sprintf("failed to parse %s result: %v", method, err),
				Code:    resp.StatusCode,
				Err:     err,
			}
		}
	}
	return nil
}

// statusError maps an unsuccessful API reply onto the error taxonomy
func (c *Client) statusError(method string, code int, description string, params *responseParameters) *errors.Error {
	apiErr := &errors.Error{Code: code, Message: description}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("unexpected status code: %d", code)
	}

	switch {
	case code == http.StatusBadRequest:
		apiErr.Type = errors.ErrorTypeBadRequest
	case code == http.StatusUnauthorized:
		apiErr.Type = errors.ErrorTypeAuth
	case code == http.StatusForbidden:
		apiErr.Type = errors.ErrorTypeAuth
	case code == http.StatusNotFound:
		apiErr.Type = errors.ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		apiErr.Type = errors.ErrorTypeRateLimit
		if params != nil && params.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(params.RetryAfter) * time.Second
		}
	case code >= 500:
		apiErr.Type = errors.ErrorTypeServerError
	default:
		apiErr.Type = errors.ErrorTypeUnknown
	}

	fields := map[string]interface{}{
		"method":      method,
		"status":      code,
		"type":        string(apiErr.Type),
		"description": apiErr.Message,
	}
	if apiErr.RetryAfter > 0 {
		fields["retry_after"] = apiErr.RetryAfter
	}
	if params != nil && params.MigrateToChatID != 0 {
		fields["migrate_to_chat_id"] = params.MigrateToChatID
	}
	if apiErr.Type == errors.ErrorTypeServerError || apiErr.Type == errors.ErrorTypeUnknown {
		c.logger.ErrorWithFields("Bot API error", fields)
	} else {
		c.logger.WarnWithFields("Bot API error", fields)
	}

	return apiErr
}

// transportError classifies a failure below HTTP
func (c *Client) transportError(err error) *errors.Error {
	var netErr net.Error
	timedOut := stderrors.Is(err, context.DeadlineExceeded) ||
		(stderrors.As(err, &netErr) && netErr.Timeout())

	// the url.Error wrapper carries the request URL, and with it the token
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		err = urlErr.Err
	}

	apiErr := &errors.Error{
		Type:    errors.ErrorTypeNetwork,
		Message: c.redact(fmt.Sprintf("network error: %v", err)),
		Err:     err,
	}
	if timedOut {
		apiErr.Type = errors.ErrorTypeTimeout
		apiErr.Message = c.redact(fmt.Sprintf("request timed out: %v", err))
	}
	return apiErr
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
