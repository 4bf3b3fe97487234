package servlet

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

// Request attribute names populated by the request reader.
const (
	AttrRawEvent        = "lambdahost.event"
	AttrRequestContext  = "lambdahost.requestContext"
	AttrLambdaContext   = "lambdahost.lambdaContext"
	AttrStageVariables  = "lambdahost.stageVariables"
	AttrPathParameters  = "lambdahost.pathParameters"
	AttrContextPath     = "lambdahost.contextPath"
	AttrSecurityContext = "lambdahost.securityContext"
)

// Attributes is a concurrency-safe key/value bag.
type Attributes struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewAttributes creates an empty bag.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]any)}
}

// Get returns the value stored under name, or nil.
func (a *Attributes) Get(name string) any {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.values[name]
}

// Set stores value under name. A nil value removes the entry.
func (a *Attributes) Set(name string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if value == nil {
		delete(a.values, name)
		return
	}
	a.values[name] = value
}

// Remove deletes the entry for name.
func (a *Attributes) Remove(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, name)
}

// Names returns the stored names in sorted order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.values))
	for name := range a.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type attributesContextKey struct{}

// WithAttributes returns a context carrying the request attribute bag.
func WithAttributes(ctx context.Context, attrs *Attributes) context.Context {
	return context.WithValue(ctx, attributesContextKey{}, attrs)
}

// AttributesFromContext returns the request attribute bag, or nil.
func AttributesFromContext(ctx context.Context) *Attributes {
	attrs, _ := ctx.Value(attributesContextKey{}).(*Attributes)
	return attrs
}

// AttributesFrom returns the attribute bag of a synthetic request, or nil.
func AttributesFrom(r *http.Request) *Attributes {
	return AttributesFromContext(r.Context())
}
