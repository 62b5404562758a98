package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storyshare/internal/domain"
)

// TokenProvider supplies the stored credential. An empty token means
// guest mode.
type TokenProvider interface {
	Token() string
}

// Config holds story API client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a thin wrapper over the story API. It injects the bearer
// header, classifies failures into typed errors, and nothing else:
// retries and caching live in the layers above and below it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
	logger     *slog.Logger
}

// New creates a story API client. Pass a shared httpClient to route
// requests through the caching transport; nil gets a plain client.
func New(cfg Config, tokens TokenProvider, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		tokens:     tokens,
		logger:     logger.With("component", "api"),
	}
}

// authMode controls whether a request carries the stored credential.
type authMode int

const (
	// authOptional sends the bearer header whenever a token is stored.
	authOptional authMode = iota
	// authRequired demands a stored token before touching the network.
	authRequired
	// authNever keeps the credential off the wire entirely, even when
	// one is stored. Guest endpoints use this.
	authNever
)

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body, err := jsonBody(registerRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/register", "application/json", body, authNever)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out basicResponse
	return decodeEnvelope(resp.Body, &out.Error, &out.Message, &out)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Credentials, error) {
	body, err := jsonBody(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/login", "application/json", body, authNever)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out loginResponse
	if err := decodeEnvelope(resp.Body, &out.Error, &out.Message, &out); err != nil {
		return nil, err
	}
	if out.LoginResult == nil {
		return nil, &domain.ValidationError{Reason: "missing loginResult field"}
	}
	return out.LoginResult, nil
}

// ListStories fetches one page of stories. The bearer header rides
// along when a token is stored (optional-auth endpoint).
func (c *Client) ListStories(ctx context.Context, p domain.ListParams) ([]domain.Story, error) {
	return c.listStories(ctx, c.baseURL+"/stories", p, authOptional)
}

// ListStoriesGuest fetches one page from the guest endpoint, never
// sending credentials.
func (c *Client) ListStoriesGuest(ctx context.Context, p domain.ListParams) ([]domain.Story, error) {
	return c.listStories(ctx, c.baseURL+"/stories/guest", p, authNever)
}

func (c *Client) listStories(ctx context.Context, endpoint string, p domain.ListParams, auth authMode) ([]domain.Story, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("size", strconv.Itoa(p.Size))
	q.Set("location", strconv.Itoa(p.Location))

	resp, err := c.do(ctx, http.MethodGet, endpoint+"?"+q.Encode(), "", nil, auth)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.ValidationError{Reason: "malformed list payload"}
	}
	if out.Error {
		return nil, &domain.NetworkError{Status: resp.StatusCode, Message: out.Message}
	}
	// A nil slice means the field was absent entirely, which is a
	// broken response, not an empty feed.
	if out.ListStory == nil {
		return nil, &domain.ValidationError{Reason: "missing listStory field"}
	}
	return out.ListStory, nil
}

// StoryDetail fetches one story by id.
func (c *Client) StoryDetail(ctx context.Context, id string) (*domain.Story, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/stories/"+url.PathEscape(id), "", nil, authOptional)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out detailResponse
	if err := decodeEnvelope(resp.Body, &out.Error, &out.Message, &out); err != nil {
		return nil, err
	}
	if out.Story == nil {
		return nil, &domain.ValidationError{Reason: "missing story field"}
	}
	return out.Story, nil
}

// AddStory submits a story as the authenticated user.
func (c *Client) AddStory(ctx context.Context, in domain.NewStory) error {
	return c.addStory(ctx, c.baseURL+"/stories", in, authRequired)
}

// AddStoryGuest submits a story without credentials.
func (c *Client) AddStoryGuest(ctx context.Context, in domain.NewStory) error {
	return c.addStory(ctx, c.baseURL+"/stories/guest", in, authNever)
}

func (c *Client) addStory(ctx context.Context, endpoint string, in domain.NewStory, auth authMode) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("description", in.Description); err != nil {
		return fmt.Errorf("build form: %w", err)
	}
	photoName := in.PhotoName
	if photoName == "" {
		photoName = "photo.jpg"
	}
	fw, err := w.CreateFormFile("photo", photoName)
	if err != nil {
		return fmt.Errorf("build form: %w", err)
	}
	if _, err := fw.Write(in.Photo); err != nil {
		return fmt.Errorf("build form: %w", err)
	}
	if in.Lat != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*in.Lat, 'f', -1, 64)); err != nil {
			return fmt.Errorf("build form: %w", err)
		}
	}
	if in.Lon != nil {
		if err := w.WriteField("lon", strconv.FormatFloat(*in.Lon, 'f', -1, 64)); err != nil {
			return fmt.Errorf("build form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, w.FormDataContentType(), &buf, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out basicResponse
	return decodeEnvelope(resp.Body, &out.Error, &out.Message, &out)
}

// SubscribeNotification registers a push subscription with the server.
func (c *Client) SubscribeNotification(ctx context.Context, sub domain.PushSubscription) error {
	body, err := jsonBody(sub)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/notifications/subscribe", "application/json", body, authOptional)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out basicResponse
	return decodeEnvelope(resp.Body, &out.Error, &out.Message, &out)
}

// UnsubscribeNotification removes a push subscription.
func (c *Client) UnsubscribeNotification(ctx context.Context, endpoint string) error {
	body, err := jsonBody(unsubscribeRequest{Endpoint: endpoint})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, c.baseURL+"/notifications/subscribe", "application/json", body, authOptional)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out basicResponse
	return decodeEnvelope(resp.Body, &out.Error, &out.Message, &out)
}

// do executes one request. authRequired demands a stored token;
// without one the call fails before touching the network.
// Optional-auth endpoints get the header whenever a token exists;
// authNever requests go out bare even when one is stored.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body io.Reader, auth authMode) (*http.Response, error) {
	token := ""
	if auth != authNever && c.tokens != nil {
		token = c.tokens.Token()
	}
	if auth == authRequired && token == "" {
		return nil, &domain.AuthError{Reason: "no authentication token found"}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "storyshare/1.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg := serverMessage(resp.Body)
		return nil, &domain.NetworkError{Status: resp.StatusCode, Message: msg}
	}
	return resp, nil
}

// serverMessage pulls the server-supplied message out of an error
// body when it parses; otherwise the status-based default applies.
func serverMessage(r io.Reader) string {
	var out basicResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return ""
	}
	return out.Message
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// decodeEnvelope decodes a response envelope and converts an
// error-flagged body into a NetworkError.
func decodeEnvelope(r io.Reader, errFlag *bool, message *string, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return &domain.ValidationError{Reason: "malformed response payload"}
	}
	if *errFlag {
		return &domain.NetworkError{Message: *message}
	}
	return nil
}
