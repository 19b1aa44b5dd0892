package selenium

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// fakeWebDriver is just enough of a W3C WebDriver server for the client and backend tests.
type fakeWebDriver struct {
	server *httptest.Server

	lock         sync.Mutex
	sessions     map[string]bool
	nextID       int
	url          string
	lastNewBody  map[string]interface{}
	lastTimeouts map[string]interface{}
	quits        int
	failNew      bool
}

var fakePNG = []byte{0x89, 'P', 'N', 'G'} //nolint:gochecknoglobals

func newFakeWebDriver(t *testing.T) *fakeWebDriver {
	f := &fakeWebDriver{sessions: make(map[string]bool)}
	router := mux.NewRouter()
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, http.StatusOK, map[string]interface{}{"ready": true, "message": "ok"})
	}).Methods("GET")
	router.HandleFunc("/session", f.newSession).Methods("POST")
	router.HandleFunc("/session/{id}", f.withSession(func(w http.ResponseWriter, r *http.Request, id string) {
		f.lock.Lock()
		delete(f.sessions, id)
		f.quits++
		f.lock.Unlock()
		writeValue(w, http.StatusOK, nil)
	})).Methods("DELETE")
	router.HandleFunc("/session/{id}/url", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lock.Lock()
		f.url = body["url"]
		f.lock.Unlock()
		writeValue(w, http.StatusOK, nil)
	})).Methods("POST")
	router.HandleFunc("/session/{id}/url", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		f.lock.Lock()
		defer f.lock.Unlock()
		writeValue(w, http.StatusOK, f.url)
	})).Methods("GET")
	router.HandleFunc("/session/{id}/title", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		writeValue(w, http.StatusOK, "Fake Page")
	})).Methods("GET")
	router.HandleFunc("/session/{id}/source", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		writeValue(w, http.StatusOK, "<html></html>")
	})).Methods("GET")
	router.HandleFunc("/session/{id}/screenshot", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		writeValue(w, http.StatusOK, base64.StdEncoding.EncodeToString(fakePNG))
	})).Methods("GET")
	router.HandleFunc("/session/{id}/timeouts", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lock.Lock()
		f.lastTimeouts = body
		f.lock.Unlock()
		writeValue(w, http.StatusOK, nil)
	})).Methods("POST")
	router.HandleFunc("/session/{id}/execute/sync", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		var body struct {
			Script string        `json:"script"`
			Args   []interface{} `json:"args"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeValue(w, http.StatusOK, len(body.Args))
	})).Methods("POST")
	router.HandleFunc("/session/{id}/element", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["value"] != "#greeting" {
			writeValue(w, http.StatusNotFound, map[string]string{"error": "no such element", "message": "not found: " + body["value"]})
			return
		}
		writeValue(w, http.StatusOK, map[string]string{elementKey: "el-1"})
	})).Methods("POST")
	router.HandleFunc("/session/{id}/element/el-1/text", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		writeValue(w, http.StatusOK, "Hello")
	})).Methods("GET")
	router.HandleFunc("/session/{id}/element/el-1/click", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		writeValue(w, http.StatusOK, nil)
	})).Methods("POST")
	router.HandleFunc("/session/{id}/element/el-1/value", f.withSession(func(w http.ResponseWriter, r *http.Request, _ string) {
		writeValue(w, http.StatusOK, nil)
	})).Methods("POST")

	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeWebDriver) newSession(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.lock.Lock()
	defer f.lock.Unlock()
	f.lastNewBody = body
	if f.failNew {
		writeValue(w, http.StatusInternalServerError, map[string]string{"error": "session not created", "message": "no browser"})
		return
	}
	f.nextID++
	id := "session-" + string(rune('0'+f.nextID))
	f.sessions[id] = true
	writeValue(w, http.StatusOK, map[string]interface{}{"sessionId": id, "capabilities": map[string]string{"browserName": "chrome"}})
}

func (f *fakeWebDriver) withSession(handler func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		f.lock.Lock()
		ok := f.sessions[id]
		f.lock.Unlock()
		if !ok {
			writeValue(w, http.StatusNotFound, map[string]string{"error": "invalid session id", "message": "unknown session " + id})
			return
		}
		handler(w, r, id)
	}
}

func (f *fakeWebDriver) openSessions() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.sessions)
}

func writeValue(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	data, _ := json.Marshal(map[string]interface{}{"value": value})
	_, _ = w.Write(data)
}
