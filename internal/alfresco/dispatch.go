package alfresco

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Dispatcher resolves dotted "namespace.method" strings against the static
// registry and invokes the named operation. Dispatch is stateless per call;
// the only persistent state it touches is the client cache.
type Dispatcher struct {
	cache *ClientCache
}

// NewDispatcher creates a dispatcher over the given client cache.
func NewDispatcher(cache *ClientCache) *Dispatcher {
	return &Dispatcher{cache: cache}
}

// Call parses and dispatches one method call. A pre-authenticated client
// takes priority; otherwise an unauthenticated client is fetched from the
// cache. Every failure is mapped through Normalize, so callers only ever
// observe the {code, message, details} shape.
func (d *Dispatcher) Call(ctx context.Context, baseURL, dotted string, rawArgs any, client *Client) (any, error) {
	namespace, method, ok := ParseMethod(dotted)
	if !ok {
		return nil, NewError(CodeInvalidMethodFormat, "method must be of the form \"namespace.method\", got %q", dotted)
	}

	args, err := ParseArgs(rawArgs)
	if err != nil {
		return nil, Normalize(err)
	}

	if namespace == "webscript" {
		args = rewriteWebScriptArgs(baseURL, args)
	}

	api, ok := Lookup(namespace)
	if !ok {
		return nil, NewError(CodeUnknownNamespace, "unknown namespace %q; known namespaces: %s",
			namespace, strings.Join(Namespaces(), ", "))
	}

	if client == nil {
		client = d.cache.Get(baseURL, nil)
	}

	result, err := api.Call(ctx, client, method, args)
	if err != nil {
		norm := Normalize(err)
		log.Debug().Str("method", dotted).Str("code", norm.Code).Msg("dispatch failed")
		return nil, norm
	}
	return result, nil
}

// rewriteWebScriptArgs normalizes the script-path argument of positional
// webscript calls. The underlying REST surface is inconsistent about
// implicit context prefixing depending on how the base URL was configured:
// a base URL already ending in the context segment gets no prefix, a bare
// host does. An explicit context-root argument suppresses the rewrite.
func rewriteWebScriptArgs(baseURL string, args Args) Args {
	if !args.IsPositional() || args.Len() < 2 {
		return args
	}
	if args.OptString(3, "contextRoot") != "" {
		return args
	}
	script, ok := args.Positional()[1].(string)
	if !ok {
		return args
	}

	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/"+contextSegment) {
		return args
	}
	if strings.HasPrefix(script, contextSegment+"/") {
		return args
	}
	return args.setPositional(1, contextSegment+"/"+script)
}
