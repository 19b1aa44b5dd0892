package devtools

import (
	"context"
	"encoding/json"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/mailru/easyjson"
	"github.com/pkg/errors"
)

// Browser is a CDP connection to a browser, plus the browser process if it was launched here.
type Browser struct {
	conn *conn
	proc *process
	log  logging.Logger
}

// Launch starts a local browser with a fresh user data directory and connects to it.
func Launch(ctx context.Context, c Config, log logging.Logger) (*Browser, error) {
	if log == nil {
		log = logging.NullLogger()
	}
	proc, err := startProcess(ctx, c, log)
	if err != nil {
		return nil, err
	}
	conn, err := dial(ctx, proc.wsURL, log)
	if err != nil {
		proc.stop()
		return nil, err
	}
	return &Browser{conn: conn, proc: proc, log: log}, nil
}

// Connect attaches to a browser that is already listening at wsURL. Closing the Browser
// closes that browser too.
func Connect(ctx context.Context, wsURL string, log logging.Logger) (*Browser, error) {
	if log == nil {
		log = logging.NullLogger()
	}
	conn, err := dial(ctx, wsURL, log)
	if err != nil {
		return nil, err
	}
	return &Browser{conn: conn, log: log}, nil
}

func (b *Browser) WebSocketURL() string { return b.conn.wsURL }

// Execute sends a raw CDP command to the browser target.
func (b *Browser) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	return b.conn.Execute(ctx, method, params, res)
}

// Version describes the connected browser.
type Version struct {
	Protocol  string
	Product   string
	Revision  string
	UserAgent string
	JSVersion string
}

func (b *Browser) Version(ctx context.Context) (Version, error) {
	protocol, product, revision, userAgent, jsVersion, err := cdpbrowser.GetVersion().Do(cdp.WithExecutor(ctx, b.conn))
	if err != nil {
		return Version{}, err
	}
	return Version{
		Protocol:  protocol,
		Product:   product,
		Revision:  revision,
		UserAgent: userAgent,
		JSVersion: jsVersion,
	}, nil
}

// NewPage opens a new tab at url and attaches to it.
func (b *Browser) NewPage(ctx context.Context, url string) (*Page, error) {
	if url == "" {
		url = "about:blank"
	}
	exec := cdp.WithExecutor(ctx, b.conn)
	targetID, err := target.CreateTarget(url).Do(exec)
	if err != nil {
		return nil, errors.Wrapf(err, "creating page for %s", url)
	}
	sessionID, err := target.AttachToTarget(targetID).WithFlatten(true).Do(exec)
	if err != nil {
		return nil, errors.Wrapf(err, "attaching to page %s", targetID)
	}
	b.log.Verbose("Opened page %s at %s", targetID, url)
	return &Page{browser: b, TargetID: targetID, SessionID: sessionID}, nil
}

// Close asks the browser to exit, then closes the connection and, for a launched browser,
// stops the process and removes its user data directory. Every step is attempted.
func (b *Browser) Close(ctx context.Context) error {
	closeErr := cdpbrowser.Close().Do(cdp.WithExecutor(ctx, b.conn))
	if closeErr != nil {
		b.log.Verbose("Browser.close: %s", closeErr)
	}
	connErr := b.conn.close()
	if b.proc != nil {
		// Browser.close errors are ignored here; stop kills the process regardless.
		b.proc.stop()
		return nil
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "closing browser")
	}
	return errors.Wrap(connErr, "closing CDP connection")
}

// Page is an attached browser tab. Its commands carry the page's session ID.
type Page struct {
	browser   *Browser
	TargetID  target.ID
	SessionID target.SessionID
}

func (p *Page) exec(ctx context.Context) context.Context {
	return cdp.WithExecutor(withSessionID(ctx, p.SessionID), p.browser.conn)
}

// Navigate loads url and fails if the browser reports a navigation error.
func (p *Page) Navigate(ctx context.Context, url string) error {
	_, _, errorText, err := cdppage.Navigate(url).Do(p.exec(ctx))
	if err != nil {
		return errors.Wrapf(err, "navigating to %s", url)
	}
	if errorText != "" {
		return errors.Errorf("navigating to %s: %s", url, errorText)
	}
	return nil
}

// Evaluate runs a JavaScript expression in the page, waiting for it if it is a promise, and
// decodes its JSON value into out unless out is nil.
func (p *Page) Evaluate(ctx context.Context, expression string, out interface{}) error {
	result, exception, err := runtime.Evaluate(expression).
		WithReturnByValue(true).
		WithAwaitPromise(true).
		Do(p.exec(ctx))
	if err != nil {
		return errors.Wrapf(err, "evaluating %q", expression)
	}
	if exception != nil {
		return errors.Errorf("evaluating %q: %s", expression, exception.Text)
	}
	if out == nil || result == nil || len(result.Value) == 0 {
		return nil
	}
	return json.Unmarshal(result.Value, out)
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.Evaluate(ctx, "document.title", &title)
	return title, err
}

// Screenshot captures the viewport as PNG data.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := cdppage.CaptureScreenshot().WithFormat(cdppage.CaptureScreenshotFormatPng).Do(p.exec(ctx))
	return data, errors.Wrap(err, "capturing screenshot")
}

// Close closes the tab.
func (p *Page) Close(ctx context.Context) error {
	return p.browser.Execute(ctx, target.CommandCloseTarget, target.CloseTarget(p.TargetID), nil)
}
