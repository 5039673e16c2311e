// Package apiclient 是测评后端 REST 接口的 Go 客户端
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const GenericErrorMessage = "Something went wrong. Please try again."

// APIError 非 2xx 响应。ErrorText 对应 data.error，Message 对应 data.message
type APIError struct {
	Status    int
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorText string `json:"error"`
}

func (e *APIError) Error() string {
	msg := e.ErrorText
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

// ErrorText 取 data.error，缺失时回退到通用提示
func ErrorText(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorText != "" {
		return apiErr.ErrorText
	}
	return GenericErrorMessage
}

// MessageText 取 data.message，缺失时回退到通用提示
func MessageText(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericErrorMessage
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource 每次请求时读取当前访问令牌
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   func() string { return "" },
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			apiErr.ErrorText = env.Error
		}
		c.log.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.ErrorText),
		)
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/aptitude/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/aptitude/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/aptitude/auth/refresh", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTestDetails(ctx context.Context, testID string) (*TestDetails, error) {
	var out TestDetails
	if err := c.do(ctx, http.MethodGet, "/api/aptitude/tests/"+url.PathEscape(testID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartTest(ctx context.Context, testID string) (*StartResponse, error) {
	var out StartResponse
	if err := c.do(ctx, http.MethodPost, "/api/aptitude/tests/"+url.PathEscape(testID)+"/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveAnswer(ctx context.Context, sessionID string, answer Answer) error {
	return c.do(ctx, http.MethodPut, "/api/aptitude/sessions/"+url.PathEscape(sessionID)+"/answers", answer, nil)
}

func (c *Client) Submit(ctx context.Context, sessionID string, answers []Answer) (*SubmitResult, error) {
	var out SubmitResult
	body := SubmitRequest{SessionID: sessionID, Answers: answers}
	if err := c.do(ctx, http.MethodPost, "/api/aptitude/sessions/"+url.PathEscape(sessionID)+"/submit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetResult(ctx context.Context, sessionID string) (*SubmitResult, error) {
	var out SubmitResult
	if err := c.do(ctx, http.MethodGet, "/api/aptitude/sessions/"+url.PathEscape(sessionID)+"/result", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
