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
	"strconv"
	"strings"
	"time"

	"catalogshell/client/internal/catalog"
	"catalogshell/client/internal/logging"
	"catalogshell/client/internal/session"
)

// Client инкапсулирует HTTP-взаимодействия с API каталога.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *logging.Logger
}

// Options позволяет переопределить зависимости клиента.
// Сроки запросов задаются через context вызывающей стороны.
type Options struct {
	HTTPClient *http.Client
	Logger     *logging.Logger
}

const maxErrorBody = 64 << 10

// New создаёт клиент API. baseURL включает префикс /api.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{baseURL: parsed, httpClient: client, logger: opts.Logger}, nil
}

// ErrorKind классифицирует ошибки запросов.
type ErrorKind string

const (
	KindNetworkUnavailable ErrorKind = "NetworkUnavailable"
	KindUnauthorized       ErrorKind = "Unauthorized"
	KindRejected           ErrorKind = "Rejected"
	KindInvalidResponse    ErrorKind = "InvalidResponse"
)

// Error описывает неудачный запрос к API.
// Message содержит текст из поля message ответа сервера, если он был.
type Error struct {
	Op      string
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "api client error"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ServerMessage возвращает сообщение сервера из ошибки, если оно есть.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(apiErr.Message)
	}
	return ""
}

// Register вызывает POST /auth/register.
func (c *Client) Register(ctx context.Context, creds session.Credentials) (AuthResult, error) {
	const op = "Register"
	payload := RegisterRequest{Username: creds.Username, Password: creds.Password, Role: string(creds.Role)}
	return c.authenticate(ctx, op, payload, "auth", "register")
}

// Login вызывает POST /auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	const op = "Login"
	payload := LoginRequest{Username: username, Password: password}
	return c.authenticate(ctx, op, payload, "auth", "login")
}

func (c *Client) authenticate(ctx context.Context, op string, payload any, path ...string) (AuthResult, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "", payload, path...)
	if err != nil {
		return AuthResult{}, wrapError(op, KindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(op, resp); err != nil {
		return AuthResult{}, err
	}
	var body AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return AuthResult{}, wrapError(op, KindInvalidResponse, err)
	}
	return body.Validate(op)
}

// ListProducts вызывает GET /products.
func (c *Client) ListProducts(ctx context.Context, token string) ([]catalog.Product, error) {
	const op = "ListProducts"
	resp, err := c.do(ctx, http.MethodGet, token, nil, "products")
	if err != nil {
		return nil, wrapError(op, KindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	var products []catalog.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, wrapError(op, KindInvalidResponse, err)
	}
	if products == nil {
		products = []catalog.Product{}
	}
	return products, nil
}

// CreateProduct вызывает POST /products. Тело ответа не используется.
func (c *Client) CreateProduct(ctx context.Context, token string, input catalog.Input) error {
	return c.mutate(ctx, "CreateProduct", http.MethodPost, token, input, "products")
}

// UpdateProduct вызывает PUT /products/{id}.
func (c *Client) UpdateProduct(ctx context.Context, token string, id int64, input catalog.Input) error {
	return c.mutate(ctx, "UpdateProduct", http.MethodPut, token, input, "products", strconv.FormatInt(id, 10))
}

// DeleteProduct вызывает DELETE /products/{id}.
func (c *Client) DeleteProduct(ctx context.Context, token string, id int64) error {
	return c.mutate(ctx, "DeleteProduct", http.MethodDelete, token, nil, "products", strconv.FormatInt(id, 10))
}

func (c *Client) mutate(ctx context.Context, op, method, token string, payload any, path ...string) error {
	resp, err := c.doJSON(ctx, method, token, payload, path...)
	if err != nil {
		return wrapError(op, KindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(op, resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, authToken string, body io.Reader, path ...string) (*http.Response, error) {
	full := c.baseURL.JoinPath(path...)
	req, err := http.NewRequestWithContext(ctx, method, full.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("%s %s -> %d (%s)", method, full.Path, resp.StatusCode, time.Since(started).Round(time.Millisecond))
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, authToken string, payload any, path ...string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}
	return c.do(ctx, method, authToken, body, path...)
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	kind := KindRejected
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = KindUnauthorized
	}
	return &Error{
		Op:      op,
		Kind:    kind,
		Status:  resp.StatusCode,
		Message: readMessage(resp.Body),
		Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload ErrorResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

func wrapError(op string, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
