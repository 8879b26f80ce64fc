// Package client is a Go client for the redação API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/comments"
	essayentity "github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

// Client wraps HTTP calls to the API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a Client from a base URL (e.g. http://localhost:4000) and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is returned when the server sends a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d — %s", e.Status, e.Message)
}

// do sends body as JSON (when non-nil) and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *Client) Register(ctx context.Context, in identity.RegisterInput) (*userentity.User, error) {
	var u userentity.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*identity.Result, error) {
	var res identity.Result
	in := identity.LoginInput{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LoginGoogle(ctx context.Context, credential string) (*identity.Result, error) {
	var res identity.Result
	if err := c.do(ctx, http.MethodPost, "/auth/google", identity.GoogleInput{Credential: credential}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Session returns the server-side entry of the current token.
func (c *Client) Session(ctx context.Context) (*session.Entry, error) {
	var e session.Entry
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/auth/session", nil, nil)
}

func (c *Client) CreateUser(ctx context.Context, in user.CreateRequest) (*userentity.User, error) {
	var u userentity.User
	if err := c.do(ctx, http.MethodPost, "/user/new", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]userentity.User, error) {
	var out []userentity.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEssay(ctx context.Context, in essay.CreateRequest) (*essayentity.Essay, error) {
	var e essayentity.Essay
	if err := c.do(ctx, http.MethodPost, "/redacao/new", in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) GetEssay(ctx context.Context, id string) (*essayentity.Essay, error) {
	var e essayentity.Essay
	if err := c.do(ctx, http.MethodGet, "/redacao/"+url.PathEscape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEssay sends a partial update; nil fields are left unchanged by the server.
func (c *Client) UpdateEssay(ctx context.Context, id string, p essayentity.Patch) (*essayentity.Essay, error) {
	var e essayentity.Essay
	if err := c.do(ctx, http.MethodPut, "/redacao/"+url.PathEscape(id), p, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEssays lists all essays, or one student's when aluno is set.
func (c *Client) ListEssays(ctx context.Context, aluno string) ([]essayentity.Essay, error) {
	path := "/redacoes"
	if aluno != "" {
		path += "?" + url.Values{"aluno": {aluno}}.Encode()
	}
	var out []essayentity.Essay
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListComments returns the essay's comment threads in stored order.
func (c *Client) ListComments(ctx context.Context, essayID string) ([]comments.Thread, error) {
	var out []comments.Thread
	if err := c.do(ctx, http.MethodGet, "/redacao/"+url.PathEscape(essayID)+"/comentarios", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddComment(ctx context.Context, essayID string, in essay.AddCommentRequest) (*essay.CommentAdded, error) {
	var out essay.CommentAdded
	if err := c.do(ctx, http.MethodPost, "/redacao/"+url.PathEscape(essayID)+"/comentarios", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveResult mirrors the body of a comment removal.
type RemoveResult struct {
	Remaining    int  `json:"remaining"`
	GroupRemoved bool `json:"groupRemoved"`
}

func (c *Client) RemoveComment(ctx context.Context, essayID, blockID, groupID, commentID string) (*RemoveResult, error) {
	var out RemoveResult
	path := commentsPath(essayID, blockID, groupID) + "/" + url.PathEscape(commentID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearComments(ctx context.Context, essayID, blockID, groupID string) error {
	return c.do(ctx, http.MethodDelete, commentsPath(essayID, blockID, groupID), nil, nil)
}

func commentsPath(essayID, blockID, groupID string) string {
	return "/redacao/" + url.PathEscape(essayID) + "/comentarios/" + url.PathEscape(blockID) + "/" + url.PathEscape(groupID)
}
