package servlet

import (
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Filter is a middleware registered against URL patterns.
type Filter struct {
	Name       string
	Patterns   []string
	Middleware func(http.Handler) http.Handler
}

// Matches reports whether the filter applies to the request path.
// Patterns follow servlet mapping rules: "/*" matches everything, "/x/*" matches
// "/x" and everything below it, "*.ext" matches by extension, anything else is exact.
func (f Filter) Matches(requestPath string) bool {
	for _, pattern := range f.Patterns {
		if matchPattern(pattern, requestPath) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, requestPath string) bool {
	switch {
	case pattern == "/*" || pattern == "/":
		return true
	case strings.HasSuffix(pattern, "/*"):
		prefix := strings.TrimSuffix(pattern, "/*")
		return requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/")
	case strings.HasPrefix(pattern, "*."):
		return path.Ext(requestPath) == pattern[1:]
	default:
		return requestPath == pattern
	}
}

// Context is the process-wide servlet context shared by every invocation of a warm
// execution environment. Registrations are only accepted until Freeze.
type Context struct {
	mu sync.RWMutex

	frozen     bool
	initParams map[string]string
	filters    []Filter
	servlets   map[string]http.Handler
	primary    string
	resources  fs.FS
	attributes *Attributes
}

// NewContext creates an empty, unfrozen context.
func NewContext() *Context {
	return &Context{
		initParams: make(map[string]string),
		servlets:   make(map[string]http.Handler),
		attributes: NewAttributes(),
	}
}

// SetInitParameter records an init parameter.
func (c *Context) SetInitParameter(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrContextFrozen
	}
	c.initParams[name] = value
	return nil
}

// InitParameter returns the named init parameter or "".
func (c *Context) InitParameter(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initParams[name]
}

// InitParameterNames returns the init parameter names in sorted order.
func (c *Context) InitParameterNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.initParams))
	for name := range c.initParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddFilter registers a middleware. Filters run in registration order.
// Without patterns the filter applies to "/*".
func (c *Context) AddFilter(name string, middleware func(http.Handler) http.Handler, patterns ...string) error {
	if middleware == nil {
		return fmt.Errorf("filter %q has no middleware", name)
	}
	if len(patterns) == 0 {
		patterns = []string{"/*"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrContextFrozen
	}
	for _, f := range c.filters {
		if f.Name == name {
			return fmt.Errorf("filter %q already registered", name)
		}
	}
	c.filters = append(c.filters, Filter{Name: name, Patterns: patterns, Middleware: middleware})
	return nil
}

// Filters returns the registered filters in order.
func (c *Context) Filters() []Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Filter(nil), c.filters...)
}

// AddServlet registers a named handler. The first servlet becomes the primary one.
func (c *Context) AddServlet(name string, handler http.Handler) error {
	if handler == nil {
		return fmt.Errorf("servlet %q has no handler", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrContextFrozen
	}
	if _, exists := c.servlets[name]; exists {
		return fmt.Errorf("servlet %q already registered", name)
	}
	c.servlets[name] = handler
	if c.primary == "" {
		c.primary = name
	}
	return nil
}

// SetPrimaryServlet selects which registered servlet receives dispatches.
func (c *Context) SetPrimaryServlet(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrContextFrozen
	}
	if _, ok := c.servlets[name]; !ok {
		return fmt.Errorf("servlet %q is not registered", name)
	}
	c.primary = name
	return nil
}

// Servlet returns the named handler or nil.
func (c *Context) Servlet(name string) http.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.servlets[name]
}

// SetResources installs the file system used for resource lookups.
func (c *Context) SetResources(fsys fs.FS) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrContextFrozen
	}
	c.resources = fsys
	return nil
}

// Resource reads a resource by slash-separated name.
func (c *Context) Resource(name string) ([]byte, error) {
	c.mu.RLock()
	fsys := c.resources
	c.mu.RUnlock()

	if fsys == nil {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(fsys, strings.TrimPrefix(path.Clean("/"+name), "/"))
}

// MimeType returns the media type registered for the file extension of name, or "".
func (c *Context) MimeType(name string) string {
	return mime.TypeByExtension(path.Ext(name))
}

// Attributes returns the context-wide attribute bag. It must not hold per-request values.
func (c *Context) Attributes() *Attributes {
	return c.attributes
}

// Freeze ends the registration phase.
func (c *Context) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Frozen reports whether Freeze has been called.
func (c *Context) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Handler builds the filter chain in front of the primary servlet.
func (c *Context) Handler() (http.Handler, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	primary, ok := c.servlets[c.primary]
	if !ok {
		return nil, ErrNoServlet
	}

	middlewares := make([]func(http.Handler) http.Handler, 0, len(c.filters))
	for _, f := range c.filters {
		middlewares = append(middlewares, scoped(f))
	}
	return chi.Chain(middlewares...).Handler(primary), nil
}

// scoped applies a filter only to requests matching its patterns.
func scoped(f Filter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		filtered := f.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.Matches(r.URL.Path) {
				filtered.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
