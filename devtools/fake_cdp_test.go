package devtools

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

var fakePNG = []byte{0x89, 'P', 'N', 'G'} //nolint:gochecknoglobals

type cdpRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// fakeBrowser answers the CDP commands the package sends, over a WebSocket served by
// httptest.
type fakeBrowser struct {
	server *httptest.Server

	lock     sync.Mutex
	methods  []string
	sessions map[string]string
	closed   bool
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	f := &fakeBrowser{sessions: make(map[string]string)}
	upgrader := websocket.Upgrader{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close() //nolint:errcheck
		for {
			var req cdpRequest
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			f.lock.Lock()
			f.methods = append(f.methods, req.Method)
			f.sessions[req.Method] = req.SessionID
			f.lock.Unlock()

			// an unrelated event first, which the client has to skip
			_ = ws.WriteJSON(map[string]interface{}{
				"method": "Target.targetInfoChanged",
				"params": map[string]interface{}{},
			})
			reply := map[string]interface{}{"id": req.ID}
			result, cdpErr := f.handle(req)
			if cdpErr != "" {
				reply["error"] = map[string]interface{}{"code": -32000, "message": cdpErr}
			} else {
				reply["result"] = result
			}
			if req.SessionID != "" {
				reply["sessionId"] = req.SessionID
			}
			if err := ws.WriteJSON(reply); err != nil {
				return
			}
			if req.Method == "Browser.close" {
				f.lock.Lock()
				f.closed = true
				f.lock.Unlock()
				return
			}
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBrowser) wsURL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/devtools/browser/fake"
}

func (f *fakeBrowser) handle(req cdpRequest) (map[string]interface{}, string) {
	var params map[string]interface{}
	_ = json.Unmarshal(req.Params, &params)
	pageCommand := strings.HasPrefix(req.Method, "Page.") || strings.HasPrefix(req.Method, "Runtime.")
	if pageCommand && req.SessionID != "S1" {
		return nil, "'" + req.Method + "' wasn't found"
	}
	switch req.Method {
	case "Browser.getVersion":
		return map[string]interface{}{
			"protocolVersion": "1.3",
			"product":         "HeadlessChrome/120.0",
			"revision":        "@abc",
			"userAgent":       "FakeAgent",
			"jsVersion":       "12.0",
		}, ""
	case "Target.createTarget":
		return map[string]interface{}{"targetId": "T1"}, ""
	case "Target.attachToTarget":
		return map[string]interface{}{"sessionId": "S1"}, ""
	case "Target.closeTarget":
		return map[string]interface{}{"success": true}, ""
	case "Page.navigate":
		result := map[string]interface{}{"frameId": "F1", "loaderId": "L1"}
		if strings.Contains(params["url"].(string), "unreachable") {
			result["errorText"] = "net::ERR_NAME_NOT_RESOLVED"
		}
		return result, ""
	case "Page.captureScreenshot":
		return map[string]interface{}{"data": base64.StdEncoding.EncodeToString(fakePNG)}, ""
	case "Runtime.evaluate":
		expr := params["expression"].(string)
		if expr == "throw new Error('boom')" {
			return map[string]interface{}{
				"result":           map[string]interface{}{"type": "object"},
				"exceptionDetails": map[string]interface{}{"exceptionId": 1, "text": "Uncaught", "lineNumber": 0, "columnNumber": 0},
			}, ""
		}
		return map[string]interface{}{"result": map[string]interface{}{"type": "string", "value": "Fake Title"}}, ""
	case "Browser.close":
		return map[string]interface{}{}, ""
	default:
		return nil, "'" + req.Method + "' wasn't found"
	}
}

func (f *fakeBrowser) receivedMethods() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.methods...)
}

func (f *fakeBrowser) sessionFor(method string) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.sessions[method]
}

func (f *fakeBrowser) wasClosed() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.closed
}
