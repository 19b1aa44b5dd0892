package selenium

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jason-edstrom/silver-carnival/framework/logging"
)

// elementKey is the property that identifies an element reference in W3C WebDriver responses.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Error is a WebDriver error response.
type Error struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("webdriver error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client sends WebDriver commands to one server, either a local driver or a grid.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// NewClient creates a Client for serverURL. A nil httpClient means http.DefaultClient.
func NewClient(serverURL string, httpClient *http.Client, log logging.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logging.NullLogger()
	}
	return &Client{baseURL: strings.TrimSuffix(serverURL, "/"), http: httpClient, log: log}
}

// Ready asks the server's status endpoint whether it can create sessions.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	var status struct {
		Ready   bool   `json:"ready"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return false, err
	}
	return status.Ready, nil
}

// WaitUntilReady polls Ready until it reports true or timeout passes.
func (c *Client) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ready, err := c.Ready(ctx)
		if err == nil && ready {
			return nil
		}
		if !time.Now().Before(deadline) {
			if err == nil {
				err = errors.New("server reported not ready")
			}
			return fmt.Errorf("timed out waiting for WebDriver server at %s, result of last query was: %w", c.baseURL, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// NewSession starts a browser session with the given new-session request body.
func (c *Client) NewSession(ctx context.Context, capabilities map[string]interface{}) (*Session, error) {
	var created struct {
		SessionID    string                 `json:"sessionId"`
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := c.do(ctx, http.MethodPost, "/session", capabilities, &created); err != nil {
		return nil, err
	}
	if created.SessionID == "" {
		return nil, errors.New("WebDriver server did not return a session ID")
	}
	c.log.Verbose("Started WebDriver session %s", created.SessionID)
	return &Session{client: c, id: created.SessionID, capabilities: created.Capabilities}, nil
}

// do sends a command and decodes the "value" property of the response into out, if out is
// not nil.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	c.log.Verbose("WebDriver %s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("malformed WebDriver response for %s %s (status %d): %s",
				method, path, resp.StatusCode, string(respBody))
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		wdErr := &Error{StatusCode: resp.StatusCode}
		if len(envelope.Value) == 0 || json.Unmarshal(envelope.Value, wdErr) != nil || wdErr.Code == "" {
			wdErr.Code = "unknown error"
			wdErr.Message = fmt.Sprintf("%s %s returned %s", method, path, string(respBody))
		}
		return wdErr
	}
	if out == nil || len(envelope.Value) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Value, out)
}

// Session is a WebDriver session, which owns one browser instance.
type Session struct {
	client       *Client
	id           string
	capabilities map[string]interface{}
}

// ID is the WebDriver session ID.
func (s *Session) ID() string { return s.id }

// Capabilities are the capabilities the server reported when the session started.
func (s *Session) Capabilities() map[string]interface{} { return s.capabilities }

func (s *Session) path(suffix string) string {
	return "/session/" + s.id + suffix
}

// Get navigates to url.
func (s *Session) Get(ctx context.Context, url string) error {
	return s.client.do(ctx, http.MethodPost, s.path("/url"), map[string]string{"url": url}, nil)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.client.do(ctx, http.MethodGet, s.path("/url"), nil, &url)
	return url, err
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.client.do(ctx, http.MethodGet, s.path("/title"), nil, &title)
	return title, err
}

// PageSource returns the serialized DOM of the current page.
func (s *Session) PageSource(ctx context.Context) (string, error) {
	var source string
	err := s.client.do(ctx, http.MethodGet, s.path("/source"), nil, &source)
	return source, err
}

// Screenshot returns the current viewport as PNG data.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var encoded string
	if err := s.client.do(ctx, http.MethodGet, s.path("/screenshot"), nil, &encoded); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Timeouts are the session timeouts. Zero values are not sent.
type Timeouts struct {
	PageLoad time.Duration
	Script   time.Duration
	Implicit time.Duration
}

func (s *Session) SetTimeouts(ctx context.Context, t Timeouts) error {
	body := map[string]int64{}
	if t.PageLoad > 0 {
		body["pageLoad"] = t.PageLoad.Milliseconds()
	}
	if t.Script > 0 {
		body["script"] = t.Script.Milliseconds()
	}
	if t.Implicit > 0 {
		body["implicit"] = t.Implicit.Milliseconds()
	}
	return s.client.do(ctx, http.MethodPost, s.path("/timeouts"), body, nil)
}

// ExecuteScript runs script synchronously in the page and decodes its result into out.
func (s *Session) ExecuteScript(ctx context.Context, script string, args []interface{}, out interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	return s.client.do(ctx, http.MethodPost, s.path("/execute/sync"),
		map[string]interface{}{"script": script, "args": args}, out)
}

// FindElement returns the first element matching a CSS selector.
func (s *Session) FindElement(ctx context.Context, cssSelector string) (*Element, error) {
	var ref map[string]string
	err := s.client.do(ctx, http.MethodPost, s.path("/element"),
		map[string]string{"using": "css selector", "value": cssSelector}, &ref)
	if err != nil {
		return nil, err
	}
	id := ref[elementKey]
	if id == "" {
		return nil, fmt.Errorf("WebDriver server returned no element reference for %q", cssSelector)
	}
	return &Element{session: s, id: id}, nil
}

// Quit ends the session and closes the browser.
func (s *Session) Quit(ctx context.Context) error {
	err := s.client.do(ctx, http.MethodDelete, s.path(""), nil, nil)
	if err == nil {
		s.client.log.Verbose("Ended WebDriver session %s", s.id)
	}
	return err
}

// Element is a reference to an element in the current page.
type Element struct {
	session *Session
	id      string
}

func (e *Element) path(suffix string) string {
	return e.session.path("/element/" + e.id + suffix)
}

func (e *Element) Click(ctx context.Context) error {
	return e.session.client.do(ctx, http.MethodPost, e.path("/click"), map[string]string{}, nil)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.client.do(ctx, http.MethodGet, e.path("/text"), nil, &text)
	return text, err
}

// SendKeys types text into the element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.session.client.do(ctx, http.MethodPost, e.path("/value"), map[string]string{"text": text}, nil)
}
