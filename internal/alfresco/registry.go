package alfresco

import (
	"context"
	"sort"
	"strings"
)

// methodFunc is one named operation of a namespaced API surface.
type methodFunc func(ctx context.Context, c *Client, args Args) (any, error)

// API is a namespaced group of remote operations with a closed, statically
// built method table. Unknown method names fail with METHOD_NOT_FOUND at
// dispatch time; the table itself is checked at compile time.
type API struct {
	namespace string
	methods   map[string]methodFunc
}

// Call invokes a named operation against the given client.
func (a *API) Call(ctx context.Context, c *Client, method string, args Args) (any, error) {
	fn, ok := a.methods[method]
	if !ok {
		return nil, NewError(CodeMethodNotFound, "method %q not found in namespace %q", method, a.namespace)
	}
	return fn(ctx, c, args)
}

// Methods lists the operation names the namespace supports, sorted.
func (a *API) Methods() []string {
	names := make([]string, 0, len(a.methods))
	for name := range a.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registry is the static namespace table. Adding a namespace means adding a
// constructor here; there is no runtime registration.
var registry = map[string]*API{
	"nodes":     nodesAPI(),
	"sites":     sitesAPI(),
	"people":    peopleAPI(),
	"groups":    groupsAPI(),
	"search":    searchAPI(),
	"comments":  commentsAPI(),
	"tags":      tagsAPI(),
	"webscript": webscriptAPI(),
}

// Namespaces returns every registered namespace, sorted.
func Namespaces() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a namespace token.
func Lookup(namespace string) (*API, bool) {
	api, ok := registry[namespace]
	return api, ok
}

// ParseMethod splits a dotted "namespace.method" string on the first dot.
// Both sides must be non-empty; the method part may itself contain dots.
func ParseMethod(dotted string) (namespace, method string, ok bool) {
	idx := strings.Index(dotted, ".")
	if idx <= 0 || idx == len(dotted)-1 {
		return "", "", false
	}
	return dotted[:idx], dotted[idx+1:], true
}
