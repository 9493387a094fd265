// Package helpers provides a fake Jenkins instance for tests.
package helpers

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"
)

// InstallOutcome controls what the fake does when asked to install a plugin.
type InstallOutcome int

const (
	// InstallSucceeds marks the plugin installed and logs
	// "Installation successful: <name> Plugin".
	InstallSucceeds InstallOutcome = iota

	// InstallDynamically marks the plugin installed and logs
	// "Plugin <name> dynamically installed".
	InstallDynamically

	// InstallSilently marks the plugin installed without logging.
	InstallSilently

	// InstallLogsOnly logs success but never lists the plugin as installed.
	InstallLogsOnly
)

// RecordedRequest stores details of a received request.
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// FakePlugin is a plugin entry served by /pluginManager/api/json.
type FakePlugin struct {
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Version   string `json:"version"`
	Active    bool   `json:"active"`
	Enabled   bool   `json:"enabled"`
	Deleted   bool   `json:"deleted"`
}

// JenkinsServer fakes the parts of Jenkins the plugin steps talk to: the
// plugin manager API, the crumb issuer, a streamed system log and a few
// HTML pages.
type JenkinsServer struct {
	server *httptest.Server

	// InstallDelay is how long an install takes before it is logged.
	InstallDelay time.Duration

	mu           sync.RWMutex
	plugins      map[string]*FakePlugin
	outcomes     map[string]InstallOutcome
	pages        map[string]string
	requests     []*RecordedRequest
	installCalls []string
	logLines     []string
	subscribers  map[chan string]struct{}
	logFile      string
	crumb        string
	user         string
	token        string
}

// NewJenkinsServer starts a fake Jenkins with no plugins installed.
func NewJenkinsServer() *JenkinsServer {
	js := &JenkinsServer{
		InstallDelay: 10 * time.Millisecond,
		plugins:      make(map[string]*FakePlugin),
		outcomes:     make(map[string]InstallOutcome),
		pages:        make(map[string]string),
		subscribers:  make(map[chan string]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/pluginManager/api/json", js.handlePluginList)
	mux.HandleFunc("/pluginManager/installNecessaryPlugins", js.handleInstall)
	mux.HandleFunc("/crumbIssuer/api/json", js.handleCrumb)
	mux.HandleFunc("/logs/stream", js.handleLogStream)
	mux.HandleFunc("/", js.handlePage)

	js.server = httptest.NewServer(js.record(js.authenticate(mux)))
	return js
}

// URL returns the server URL.
func (js *JenkinsServer) URL() string {
	return js.server.URL
}

// LogStreamURL returns the SSE endpoint streaming the fake's log.
func (js *JenkinsServer) LogStreamURL() string {
	return js.server.URL + "/logs/stream"
}

// Close shuts down the server.
func (js *JenkinsServer) Close() {
	js.mu.Lock()
	for ch := range js.subscribers {
		close(ch)
		delete(js.subscribers, ch)
	}
	js.mu.Unlock()

	js.server.Close()
}

// AddPlugin lists a plugin as installed and active.
func (js *JenkinsServer) AddPlugin(name, version string) {
	js.mu.Lock()
	defer js.mu.Unlock()

	js.plugins[name] = &FakePlugin{
		ShortName: name,
		LongName:  name + " plugin",
		Version:   version,
		Active:    true,
		Enabled:   true,
	}
}

// SetInstallOutcome sets how installing name behaves.
func (js *JenkinsServer) SetInstallOutcome(name string, outcome InstallOutcome) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.outcomes[name] = outcome
}

// SetPage serves html at path.
func (js *JenkinsServer) SetPage(path, html string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.pages["/"+strings.TrimPrefix(path, "/")] = html
}

// RequireCrumb turns on CSRF protection with the given crumb value.
func (js *JenkinsServer) RequireCrumb(crumb string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.crumb = crumb
}

// RequireAuth rejects requests without matching basic credentials.
func (js *JenkinsServer) RequireAuth(user, token string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.user = user
	js.token = token
}

// WriteLogTo appends every log line to path as well.
func (js *JenkinsServer) WriteLogTo(path string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.logFile = path
}

// Log appends a line to the fake's system log.
func (js *JenkinsServer) Log(line string) {
	js.mu.Lock()
	defer js.mu.Unlock()

	js.logLines = append(js.logLines, line)

	if js.logFile != "" {
		if f, err := os.OpenFile(js.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
			_, _ = fmt.Fprintln(f, line)
			f.Close()
		}
	}

	for ch := range js.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

// InstallCalls returns the plugin targets passed to installNecessaryPlugins.
func (js *JenkinsServer) InstallCalls() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return append([]string(nil), js.installCalls...)
}

// GetRequests returns all recorded requests.
func (js *JenkinsServer) GetRequests() []*RecordedRequest {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return append([]*RecordedRequest{}, js.requests...)
}

// record stores request details before handing the request on.
func (js *JenkinsServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}

		js.mu.Lock()
		js.requests = append(js.requests, &RecordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
			Time:    time.Now(),
		})
		js.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// authenticate enforces basic auth when RequireAuth was called.
func (js *JenkinsServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		js.mu.RLock()
		wantUser, wantToken := js.user, js.token
		js.mu.RUnlock()

		if wantUser != "" || wantToken != "" {
			user, token, ok := r.BasicAuth()
			if !ok || user != wantUser || token != wantToken {
				w.Header().Set("WWW-Authenticate", `Basic realm="Jenkins"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (js *JenkinsServer) handlePluginList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	js.mu.RLock()
	list := make([]FakePlugin, 0, len(js.plugins))
	for _, p := range js.plugins {
		list = append(list, *p)
	}
	js.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"plugins": list})
}

func (js *JenkinsServer) handleCrumb(w http.ResponseWriter, r *http.Request) {
	js.mu.RLock()
	crumb := js.crumb
	js.mu.RUnlock()

	if crumb == "" {
		http.NotFound(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "session-" + crumb, Path: "/"})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"crumb":             crumb,
		"crumbRequestField": "Jenkins-Crumb",
	})
}

func (js *JenkinsServer) handleInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	js.mu.RLock()
	crumb := js.crumb
	js.mu.RUnlock()

	if crumb != "" {
		cookie, err := r.Cookie("JSESSIONID")
		if r.Header.Get("Jenkins-Crumb") != crumb || err != nil || cookie.Value != "session-"+crumb {
			http.Error(w, "No valid crumb was included in the request", http.StatusForbidden)
			return
		}
	}

	var doc struct {
		Install []struct {
			Plugin string `xml:"plugin,attr"`
		} `xml:"install"`
	}
	if err := xml.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	for _, install := range doc.Install {
		target := install.Plugin
		name, version, _ := strings.Cut(target, "@")
		if version == "" || version == "latest" {
			version = "1.0.0"
		}

		js.mu.Lock()
		js.installCalls = append(js.installCalls, target)
		outcome := js.outcomes[name]
		delay := js.InstallDelay
		js.mu.Unlock()

		go js.install(name, version, outcome, delay)
	}

	w.Header().Set("Location", js.server.URL+"/updateCenter/")
	w.WriteHeader(http.StatusFound)
}

// install completes an install request after delay.
func (js *JenkinsServer) install(name, version string, outcome InstallOutcome, delay time.Duration) {
	time.Sleep(delay)

	if outcome != InstallLogsOnly {
		js.AddPlugin(name, version)
	}

	stamp := time.Now().UTC().Format("2006-01-02 15:04:05.000-0700")
	switch outcome {
	case InstallSucceeds, InstallLogsOnly:
		js.Log(fmt.Sprintf("%s [id=42]\tINFO\th.model.UpdateCenter$DownloadJob#run: Installation successful: %s Plugin", stamp, name))
	case InstallDynamically:
		js.Log(fmt.Sprintf("%s [id=42]\tINFO\tjenkins.model.Jenkins#dynamicLoad: Plugin %s dynamically installed", stamp, name))
	}
}

// handleLogStream streams the log history and then live lines as SSE.
func (js *JenkinsServer) handleLogStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := make(chan string, 64)

	js.mu.Lock()
	history := append([]string(nil), js.logLines...)
	js.subscribers[ch] = struct{}{}
	js.mu.Unlock()

	defer func() {
		js.mu.Lock()
		if _, ok := js.subscribers[ch]; ok {
			delete(js.subscribers, ch)
			close(ch)
		}
		js.mu.Unlock()
	}()

	for i, line := range history {
		_, _ = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", i+1, line)
	}
	flusher.Flush()

	id := len(history)
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return
			}
			id++
			_, _ = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", id, line)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (js *JenkinsServer) handlePage(w http.ResponseWriter, r *http.Request) {
	js.mu.RLock()
	html, ok := js.pages[strings.TrimSuffix(r.URL.Path, "/")]
	if !ok {
		html, ok = js.pages[r.URL.Path]
	}
	js.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html;charset=utf-8")
	_, _ = io.WriteString(w, html)
}
