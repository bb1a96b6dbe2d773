// Package transport is the client side of the chat server: a REST client and
// an event socket.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"quickchat/internal/models"
)

// APIError is a non-2xx answer or a success:false envelope from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the chat REST API
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates an API client for the server at baseURL (e.g. http://localhost:5000)
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken sets the session token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the server root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope interface {
	ok() (bool, string)
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env statusEnvelope
		_ = json.Unmarshal(data, &env)
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil {
		out = &statusEnvelope{}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env, ok := out.(envelope); ok {
		if success, msg := env.ok(); !success {
			return &APIError{Status: resp.StatusCode, Message: msg}
		}
	}
	return nil
}

func (e *statusEnvelope) ok() (bool, string) { return e.Success, e.Message }

type authEnvelope struct{ models.AuthResponse }

func (e *authEnvelope) ok() (bool, string) { return e.Success, e.Message }

type userEnvelope struct{ models.UserEnvelope }

func (e *userEnvelope) ok() (bool, string) { return e.Success, e.Message }

type usersEnvelope struct{ models.UsersResponse }

func (e *usersEnvelope) ok() (bool, string) { return e.Success, e.Message }

type messagesEnvelope struct{ models.MessagesResponse }

func (e *messagesEnvelope) ok() (bool, string) { return e.Success, e.Message }

type sendEnvelope struct{ models.SendMessageResponse }

func (e *sendEnvelope) ok() (bool, string) { return e.Success, e.Message }

// Signup registers an account and stores the returned token
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.UserResponse, error) {
	return c.authenticate(ctx, "/api/auth/signup", req)
}

// Login authenticates and stores the returned token
func (c *Client) Login(ctx context.Context, email, password string) (*models.UserResponse, error) {
	return c.authenticate(ctx, "/api/auth/login", models.LoginRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*models.UserResponse, error) {
	var out authEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if out.UserData == nil || out.Token == "" {
		return nil, fmt.Errorf("%s: response carries no session", path)
	}
	c.SetToken(out.Token)
	return out.UserData, nil
}

// Check returns the user the current token belongs to
func (c *Client) Check(ctx context.Context) (*models.UserResponse, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateProfile changes the caller's profile
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.UserResponse, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/auth/update-profile", req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ListUsers returns the sidebar contacts and unseen counts
func (c *Client) ListUsers(ctx context.Context) (*models.UsersResponse, error) {
	var out usersEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/messages/users", nil, &out); err != nil {
		return nil, err
	}
	if out.UnseenMessages == nil {
		out.UnseenMessages = map[string]int{}
	}
	return &out.UsersResponse, nil
}

// Messages returns the full history with userID
func (c *Client) Messages(ctx context.Context, userID string) ([]models.Message, error) {
	var out messagesEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Send posts a message to userID. The server echoes it over the socket.
func (c *Client) Send(ctx context.Context, userID string, req models.SendMessageRequest) (*models.Message, error) {
	var out sendEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/messages/send/"+url.PathEscape(userID), req, &out); err != nil {
		return nil, err
	}
	return out.NewMessage, nil
}

// MarkSeen acknowledges one received message
func (c *Client) MarkSeen(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPut, "/api/messages/mark/"+url.PathEscape(messageID), nil, nil)
}
