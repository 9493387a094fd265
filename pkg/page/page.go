// Package page loads server-rendered Jenkins pages and answers content
// questions about the currently loaded one.
package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/CliForge/jenkins-acceptance/pkg/logging"
	"github.com/pterm/pterm"
	"golang.org/x/net/html"
)

// maxPageSize bounds how much of a response body is parsed.
const maxPageSize = 8 << 20

// Page holds the currently loaded page.
type Page struct {
	baseURL    *url.URL
	httpClient *http.Client
	user       string
	token      string
	logger     *pterm.Logger

	mu      sync.RWMutex
	current string
	text    string
}

// Option configures a Page.
type Option func(*Page)

// WithCredentials authenticates page loads with a user and API token.
func WithCredentials(user, token string) Option {
	return func(p *Page) {
		p.user = user
		p.token = token
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Page) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *pterm.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// New creates a page rooted at baseURL. Relative paths passed to Visit
// resolve against it.
func New(baseURL string, opts ...Option) (*Page, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	p := &Page{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)

	return p, nil
}

// Visit loads the page at target, absolute or relative to the base URL.
func (p *Page) Visit(ctx context.Context, target string) error {
	ref, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid page URL %q: %w", target, err)
	}
	u := p.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if p.user != "" || p.token != "" {
		req.SetBasicAuth(p.user, p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to load %s: unexpected status code %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", u, err)
	}

	if err := p.load(u.String(), string(body)); err != nil {
		return err
	}

	p.logger.Debug("page loaded", p.logger.Args("url", u.String(), "bytes", len(body)))
	return nil
}

// SetContent loads an HTML document without fetching it.
func (p *Page) SetContent(document string) error {
	return p.load("", document)
}

func (p *Page) load(location, document string) error {
	text, err := VisibleText(document)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.current = location
	p.text = text
	p.mu.Unlock()

	return nil
}

// URL returns the location of the loaded page, empty when the content was
// set directly.
func (p *Page) URL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Content returns the visible text of the loaded page.
func (p *Page) Content() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// HasContent reports whether text appears in the visible page text.
// Whitespace runs are compared as single spaces.
func (p *Page) HasContent(text string) bool {
	return strings.Contains(p.Content(), collapseSpace(text))
}

// VisibleText extracts the text a browser would render from an HTML
// document: script, style, template and noscript content is dropped, text
// field values and button labels are kept, and whitespace is collapsed.
func VisibleText(document string) (string, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template", "noscript", "head":
				return
			case "input":
				if v := attr(n, "value"); v != "" && textInputTypes[attr(n, "type")] {
					parts = append(parts, v)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return collapseSpace(strings.Join(parts, " ")), nil
}

// textInputTypes are input types whose value is rendered as text.
var textInputTypes = map[string]bool{
	"":       true,
	"text":   true,
	"search": true,
	"email":  true,
	"url":    true,
	"submit": true,
	"button": true,
	"reset":  true,
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
