package alfresco

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseMethod(t *testing.T) {
	ns, method, ok := ParseMethod("nodes.getNode")
	if !ok || ns != "nodes" || method != "getNode" {
		t.Errorf("ParseMethod(nodes.getNode) = (%q, %q, %v)", ns, method, ok)
	}

	if _, _, ok := ParseMethod("nodes"); ok {
		t.Error("single segment should not parse")
	}
	if _, _, ok := ParseMethod(".method"); ok {
		t.Error("empty namespace should not parse")
	}
	if _, _, ok := ParseMethod("nodes."); ok {
		t.Error("empty method should not parse")
	}

	ns, method, ok = ParseMethod("a.b.c")
	if !ok || ns != "a" || method != "b.c" {
		t.Errorf("ParseMethod(a.b.c) = (%q, %q, %v), want (a, b.c, true)", ns, method, ok)
	}
}

func dispatchErr(t *testing.T, err error) *Error {
	t.Helper()
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *alfresco.Error, got %T: %v", err, err)
	}
	return apiErr
}

func TestCallInvalidMethodFormat(t *testing.T) {
	d := NewDispatcher(NewClientCache())
	_, err := d.Call(context.Background(), "https://example.com", "getNode", nil, nil)
	if e := dispatchErr(t, err); e.Code != CodeInvalidMethodFormat {
		t.Errorf("expected INVALID_METHOD_FORMAT, got %s", e.Code)
	}
}

func TestCallUnknownNamespaceListsAll(t *testing.T) {
	d := NewDispatcher(NewClientCache())
	_, err := d.Call(context.Background(), "https://example.com", "bogus.foo", nil, nil)
	e := dispatchErr(t, err)
	if e.Code != CodeUnknownNamespace {
		t.Fatalf("expected UNKNOWN_NAMESPACE, got %s", e.Code)
	}
	for _, ns := range Namespaces() {
		if !strings.Contains(e.Message, ns) {
			t.Errorf("message should enumerate namespace %q: %s", ns, e.Message)
		}
	}
}

func TestCallMethodNotFound(t *testing.T) {
	d := NewDispatcher(NewClientCache())
	_, err := d.Call(context.Background(), "https://example.com", "nodes.frobnicate", nil, nil)
	if e := dispatchErr(t, err); e.Code != CodeMethodNotFound {
		t.Errorf("expected METHOD_NOT_FOUND, got %s", e.Code)
	}
}

func TestCallInvalidArgsShape(t *testing.T) {
	d := NewDispatcher(NewClientCache())
	_, err := d.Call(context.Background(), "https://example.com", "nodes.getNode", "not-args", nil)
	if e := dispatchErr(t, err); e.Code != CodeInvalidArgs {
		t.Errorf("expected INVALID_ARGS, got %s", e.Code)
	}
}

// fakeRepo spins up a repository stub and records the request paths it sees.
func fakeRepo(t *testing.T, status int, body any) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestCallGetNodePositionalArgs(t *testing.T) {
	srv, paths := fakeRepo(t, http.StatusOK, map[string]any{"entry": map[string]any{"id": "abc"}})
	d := NewDispatcher(NewClientCache())

	result, err := d.Call(context.Background(), srv.URL, "nodes.getNode", []any{"abc"}, nil)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	entry := result.(map[string]any)["entry"].(map[string]any)
	if entry["id"] != "abc" {
		t.Errorf("unexpected result: %v", result)
	}
	want := "/alfresco/api/-default-/public/alfresco/versions/1/nodes/abc"
	if (*paths)[0] != want {
		t.Errorf("request path = %q, want %q", (*paths)[0], want)
	}
}

func TestCallNamedArgs(t *testing.T) {
	srv, paths := fakeRepo(t, http.StatusOK, map[string]any{"list": map[string]any{}})
	d := NewDispatcher(NewClientCache())

	_, err := d.Call(context.Background(), srv.URL, "nodes.listNodeChildren",
		map[string]any{"nodeId": "-root-"}, nil)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if want := "/alfresco/api/-default-/public/alfresco/versions/1/nodes/-root-/children"; (*paths)[0] != want {
		t.Errorf("request path = %q, want %q", (*paths)[0], want)
	}
}

func TestCallNormalizesDownstreamStatus(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodePermissionDenied},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusInternalServerError, CodeServerError},
	}
	for _, tc := range cases {
		srv, _ := fakeRepo(t, tc.status, map[string]any{"error": "nope"})
		d := NewDispatcher(NewClientCache())
		_, err := d.Call(context.Background(), srv.URL, "nodes.getNode", []any{"abc"}, nil)
		if e := dispatchErr(t, err); e.Code != tc.code {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.code, e.Code)
		}
	}
}

func TestCallNetworkErrorNormalized(t *testing.T) {
	d := NewDispatcher(NewClientCache())
	// Unroutable port: connection refused.
	_, err := d.Call(context.Background(), "http://127.0.0.1:1", "nodes.getNode", []any{"abc"}, nil)
	if e := dispatchErr(t, err); e.Code != CodeNetworkError {
		t.Errorf("expected NETWORK_ERROR, got %s", e.Code)
	}
}

func TestCallPreAuthenticatedClientTakesPriority(t *testing.T) {
	seen := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"entry": map[string]any{}}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	authed := NewClient(srv.URL, BasicAuth("admin", "secret"))
	d := NewDispatcher(NewClientCache())
	if _, err := d.Call(context.Background(), srv.URL, "nodes.getNode", []any{"abc"}, authed); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !strings.HasPrefix(seen, "Basic ") {
		t.Errorf("expected basic auth header from supplied client, got %q", seen)
	}
}

func TestWebScriptRewrite(t *testing.T) {
	cases := []struct {
		name    string
		baseURL string
		args    []any
		want    string // script path the client should receive
	}{
		{
			name:    "base url already carries context",
			baseURL: "https://example.com/alfresco",
			args:    []any{"GET", "ootbee/admin/log4j-log-files", map[string]any{"format": "json"}},
			want:    "ootbee/admin/log4j-log-files",
		},
		{
			name:    "bare host gets context prefix",
			baseURL: "https://example.com",
			args:    []any{"GET", "ootbee/admin/log4j-log-files", map[string]any{"format": "json"}},
			want:    "alfresco/ootbee/admin/log4j-log-files",
		},
		{
			name:    "explicit context root suppresses rewrite",
			baseURL: "https://example.com",
			args:    []any{"GET", "ootbee/admin/log4j-log-files", nil, "share"},
			want:    "ootbee/admin/log4j-log-files",
		},
		{
			name:    "already prefixed path left alone",
			baseURL: "https://example.com",
			args:    []any{"GET", "alfresco/ootbee/admin/log4j-log-files"},
			want:    "alfresco/ootbee/admin/log4j-log-files",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := rewriteWebScriptArgs(tc.baseURL, PositionalArgs(tc.args...))
			got, _ := args.Positional()[1].(string)
			if got != tc.want {
				t.Errorf("script path = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWebScriptEndToEndURL(t *testing.T) {
	srv, paths := fakeRepo(t, http.StatusOK, map[string]any{"ok": true})
	d := NewDispatcher(NewClientCache())

	_, err := d.Call(context.Background(), srv.URL, "webscript.executeWebScript",
		[]any{"GET", "ootbee/admin/log4j-log-files", map[string]any{"format": "json"}}, nil)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if want := "/alfresco/s/ootbee/admin/log4j-log-files"; (*paths)[0] != want {
		t.Errorf("webscript URL path = %q, want %q", (*paths)[0], want)
	}
}
