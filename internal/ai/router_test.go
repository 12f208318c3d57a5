package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeCompleter struct {
	response string
	err      error

	gotSystem string
	gotPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.gotSystem = system
	f.gotPrompt = prompt
	return f.response, f.err
}

func TestRouteCleanJSON(t *testing.T) {
	fake := &fakeCompleter{response: `{"method":"nodes.getNode","args":["-root-"]}`}
	router := NewRouter(fake)

	call, err := router.Route(context.Background(), "show me the root node")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if call.Method != "nodes.getNode" {
		t.Errorf("method = %q", call.Method)
	}
	if string(call.Args) != `["-root-"]` {
		t.Errorf("args = %s", call.Args)
	}
	if !strings.Contains(fake.gotPrompt, "nodes.getNode") {
		t.Error("prompt does not include the method catalog")
	}
	if !strings.Contains(fake.gotPrompt, "show me the root node") {
		t.Error("prompt does not include the instruction")
	}
}

func TestRouteFencedJSON(t *testing.T) {
	fake := &fakeCompleter{response: "Here you go:\n```json\n{\"method\":\"sites.listSites\"}\n```"}
	call, err := NewRouter(fake).Route(context.Background(), "list the sites")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if call.Method != "sites.listSites" {
		t.Errorf("method = %q", call.Method)
	}
}

func TestRouteRejectsUnknownMethod(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"unknown namespace", `{"method":"bogus.doThing"}`},
		{"unknown method", `{"method":"nodes.frobnicate"}`},
		{"malformed method", `{"method":"justoneword"}`},
		{"no match", `{"method":""}`},
		{"no json", `I cannot help with that.`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeCompleter{response: tc.response}
			if _, err := NewRouter(fake).Route(context.Background(), "do something"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRouteCompleterError(t *testing.T) {
	wantErr := errors.New("api unreachable")
	fake := &fakeCompleter{err: wantErr}
	if _, err := NewRouter(fake).Route(context.Background(), "list sites"); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestRouteEmptyInstruction(t *testing.T) {
	if _, err := NewRouter(&fakeCompleter{}).Route(context.Background(), "  "); err == nil {
		t.Error("expected error for empty instruction")
	}
}

func TestMethodCatalogCoversAllNamespaces(t *testing.T) {
	catalog := methodCatalog()
	for _, want := range []string{"nodes.", "sites.", "people.", "groups.", "search.", "comments.", "tags.", "webscript."} {
		if !strings.Contains(catalog, want) {
			t.Errorf("catalog missing namespace %q", want)
		}
	}
}
