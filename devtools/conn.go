package devtools

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/gorilla/websocket"
	"github.com/jason-edstrom/silver-carnival/framework/logging"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jwriter"
	"github.com/pkg/errors"
)

var _ cdp.Executor = &conn{}

type ctxKey int

const ctxKeySessionID ctxKey = iota

// withSessionID routes commands sent with the returned context to an attached target.
func withSessionID(ctx context.Context, sessionID target.SessionID) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, sessionID)
}

func getSessionID(ctx context.Context) target.SessionID {
	if sid, ok := ctx.Value(ctxKeySessionID).(target.SessionID); ok {
		return sid
	}
	return ""
}

// conn is a CDP WebSocket connection. Commands are matched to replies by message ID;
// events are logged and otherwise ignored.
type conn struct {
	ws    *websocket.Conn
	wsURL string
	log   logging.Logger
	msgID int64

	writeLock sync.Mutex

	lock    sync.Mutex
	pending map[int64]chan *cdproto.Message
	readErr error
	done    chan struct{}
}

func dial(ctx context.Context, wsURL string, log logging.Logger) (*conn, error) {
	wd := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1 << 20,
		WriteBufferSize:  1 << 20,
		Proxy:            http.ProxyFromEnvironment,
	}
	ws, _, err := wd.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", wsURL)
	}
	c := &conn{
		ws:      ws,
		wsURL:   wsURL,
		log:     log,
		pending: make(map[int64]chan *cdproto.Message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	log.Verbose("Established CDP connection to %s", wsURL)
	return c, nil
}

func (c *conn) readLoop() {
	defer close(c.done)
	for {
		_, buf, err := c.ws.ReadMessage()
		if err != nil {
			c.lock.Lock()
			c.readErr = err
			c.lock.Unlock()
			return
		}
		var msg cdproto.Message
		if err := easyjson.Unmarshal(buf, &msg); err != nil {
			c.log.Warning("Ignoring malformed CDP message: %s", err)
			continue
		}
		if msg.ID == 0 {
			c.log.Verbose("CDP event %s", msg.Method)
			continue
		}
		c.lock.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.lock.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

// Execute sends a command and waits for its reply, decoding the result into res. It makes
// conn a cdp.Executor, so the generated cdproto commands can run on it.
func (c *conn) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return errors.Wrapf(err, "marshaling %s params", method)
		}
	}
	msg := &cdproto.Message{
		ID:        atomic.AddInt64(&c.msgID, 1),
		SessionID: getSessionID(ctx),
		Method:    cdproto.MethodType(method),
		Params:    buf,
	}
	var encoder jwriter.Writer
	msg.MarshalEasyJSON(&encoder)
	data, err := encoder.BuildBytes()
	if err != nil {
		return errors.Wrapf(err, "encoding %s", method)
	}

	reply := make(chan *cdproto.Message, 1)
	c.lock.Lock()
	c.pending[msg.ID] = reply
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		delete(c.pending, msg.ID)
		c.lock.Unlock()
	}()

	c.writeLock.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeLock.Unlock()
	if err != nil {
		return errors.Wrapf(err, "sending %s", method)
	}

	select {
	case m := <-reply:
		if m.Error != nil {
			return errors.Wrap(m.Error, method)
		}
		if res != nil && len(m.Result) > 0 {
			return errors.Wrapf(easyjson.Unmarshal(m.Result, res), "decoding %s result", method)
		}
		return nil
	case <-c.done:
		return errors.Wrapf(c.err(), "%s: connection to %s closed", method, c.wsURL)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *conn) err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.readErr == nil {
		return errors.New("connection closed")
	}
	return c.readErr
}

// close shuts the socket and waits for the read loop to finish.
func (c *conn) close() error {
	err := c.ws.Close()
	<-c.done
	return err
}
