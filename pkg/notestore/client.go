package notestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notefetch/pkg/config"
	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
	"notefetch/pkg/retry"
)

// error_code values that mean the credentials or token were rejected
var authErrorCodes = map[string]bool{
	"INVALID_AUTH":      true,
	"AUTH_EXPIRED":      true,
	"PERMISSION_DENIED": true,
}

// Options configures a Client
type Options struct {
	Host           string
	ConsumerKey    string
	ConsumerSecret string
	ClientName     string
	UserAgent      string
	Timeout        time.Duration
	// Retry policy applied to every call; nil disables retrying
	Retry *retry.Config
	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

// Client talks to the user store and note store of the remote service.
// It holds only immutable transport configuration; per-account state
// travels in the Session passed to each call.
type Client struct {
	httpClient     *http.Client
	host           string
	consumerKey    string
	consumerSecret string
	clientName     string
	userAgent      string
	retry          *retry.Config
	logger         logger.Logger
}

// NewClient creates a new note service client
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent(opts.ClientName)
	}

	retryCfg := opts.Retry
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1, Logger: log}
	}

	return &Client{
		httpClient:     httpClient,
		host:           opts.Host,
		consumerKey:    opts.ConsumerKey,
		consumerSecret: opts.ConsumerSecret,
		clientName:     opts.ClientName,
		userAgent:      userAgent,
		retry:          retryCfg,
		logger:         log.WithField("component", "notestore"),
	}
}

// NewClientFromConfig creates a client from the service, download and retry sections
func NewClientFromConfig(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return NewClient(Options{
		Host:           cfg.Service.Host,
		ConsumerKey:    cfg.Service.ConsumerKey,
		ConsumerSecret: cfg.Service.ConsumerSecret,
		ClientName:     cfg.Service.ClientName,
		UserAgent:      cfg.Service.UserAgent,
		Timeout:        cfg.Download.Timeout,
		Retry:          retry.FromConfig(cfg.Retry, log),
	}, log)
}

// Host returns the configured service host
func (c *Client) Host() string {
	return c.host
}

// CheckVersion asks the user store whether this client's protocol version is supported
func (c *Client) CheckVersion(ctx context.Context) (bool, error) {
	req := versionRequest{
		ClientName:       c.clientName,
		EDAMVersionMajor: EDAMVersionMajor,
		EDAMVersionMinor: EDAMVersionMinor,
	}

	var resp versionResponse
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.postJSON(ctx, VersionURL(c.host), req, &resp)
	}, c.retry)
	if err != nil {
		return false, err
	}

	c.logger.DebugWithFields("protocol version checked", map[string]interface{}{
		"major":      EDAMVersionMajor,
		"minor":      EDAMVersionMinor,
		"compatible": resp.Compatible,
	})
	return resp.Compatible, nil
}

// Authenticate exchanges username and password for a Session
func (c *Client) Authenticate(ctx context.Context, username, password string) (Session, error) {
	req := authenticateRequest{
		Username:       username,
		Password:       password,
		ConsumerKey:    c.consumerKey,
		ConsumerSecret: c.consumerSecret,
	}

	var resp authenticateResponse
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.postJSON(ctx, AuthenticateURL(c.host), req, &resp)
	}, c.retry)
	if err != nil {
		return Session{}, err
	}

	if resp.AuthenticationToken == "" || resp.NoteStoreURL == "" {
		return Session{}, errs.New(errs.KindRemoteProtocol, http.StatusOK, "authentication response is missing token or note store URL")
	}

	session := Session{
		Token:        resp.AuthenticationToken,
		NoteStoreURL: resp.NoteStoreURL,
		Username:     resp.User.Username,
		UserID:       resp.User.ID,
	}
	if session.Username == "" {
		session.Username = username
	}
	if resp.Expiration > 0 {
		session.Expires = time.UnixMilli(resp.Expiration)
	}

	c.logger.DebugWithFields("authenticated", map[string]interface{}{
		"username": session.Username,
		"user_id":  session.UserID,
	})
	return session, nil
}

// ListNotebooks returns every notebook of the account in service order
func (c *Client) ListNotebooks(ctx context.Context, s Session) ([]Notebook, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) ([]Notebook, error) {
		var notebooks []Notebook
		if err := c.getJSON(ctx, s, NotebooksURL(s.NoteStoreURL), &notebooks); err != nil {
			return nil, err
		}
		return notebooks, nil
	}, c.retry)
}

// FindNotes returns one page of notes matching filter, starting at offset
func (c *Client) FindNotes(ctx context.Context, s Session, filter NoteFilter, offset, maxNotes int) (*NoteList, error) {
	u := NotesURL(s.NoteStoreURL, filter, offset, maxNotes)

	return retry.DoWithResult(ctx, func(ctx context.Context) (*NoteList, error) {
		var list NoteList
		if err := c.getJSON(ctx, s, u, &list); err != nil {
			return nil, err
		}
		return &list, nil
	}, c.retry)
}

// GetResourceData downloads the raw bytes of one resource
func (c *Client) GetResourceData(ctx context.Context, s Session, guid string) ([]byte, error) {
	u := ResourceDataURL(s.NoteStoreURL, guid)

	return retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
		req, err := c.newRequest(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.Token)
		req.Header.Set("Accept", "application/octet-stream")

		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp); err != nil {
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.KindRemoteProtocol, err, "failed to read resource data")
		}
		return data, nil
	}, c.retry)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errs.Wrap(errs.KindRemoteProtocol, err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// doRequest performs an HTTP request and logs the round trip
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.KindRemoteProtocol, err, "network error")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, s Session, url string, target interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")

	return c.decode(req, target)
}

func (c *Client) postJSON(ctx context.Context, url string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(errs.KindRemoteProtocol, err, "failed to encode request")
	}

	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.decode(req, target)
}

func (c *Client) decode(req *http.Request, target interface{}) error {
	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.KindRemoteProtocol, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		e := errs.Wrap(errs.KindRemoteProtocol, err, "failed to parse JSON")
		e.Code = resp.StatusCode
		return e
	}

	return nil
}

// checkResponseStatus turns a non-2xx response into a *errs.Error, using the
// service error body when there is one
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	kind := errs.KindForStatus(resp.StatusCode)
	if authErrorCodes[body.ErrorCode] {
		kind = errs.KindRemoteAuth
	}

	message := body.Message
	if message == "" {
		switch kind {
		case errs.KindRemoteAuth:
			message = "authentication failed"
		case errs.KindRemoteNotFound:
			message = "not found"
		case errs.KindRemoteService:
			message = "service unavailable"
		default:
			message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
	}

	c.logger.WarnWithFields("note service error", map[string]interface{}{
		"status":     resp.StatusCode,
		"url":        resp.Request.URL.String(),
		"kind":       string(kind),
		"error_code": body.ErrorCode,
		"parameter":  body.Parameter,
	})

	return &errs.Error{
		Kind:      kind,
		Message:   message,
		Code:      resp.StatusCode,
		ErrorCode: body.ErrorCode,
		Parameter: body.Parameter,
	}
}
