package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/org/noderef/internal/alfresco"
)

// ErrConfigMissing is returned when the user has no usable AI configuration
// (no API key, or the console is disabled for them).
var ErrConfigMissing = errors.New("ai configuration missing")

// RoutedCall is the model's choice of repository operation for a natural
// language instruction.
type RoutedCall struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Router translates natural language instructions into dispatcher calls
// using an LLM constrained to the registered method catalog.
type Router struct {
	completer Completer
}

// NewRouter builds a router over the given completer.
func NewRouter(completer Completer) *Router {
	return &Router{completer: completer}
}

const routerSystemPrompt = `You translate user instructions into repository API calls.
Respond with a single JSON object of the form {"method": "namespace.method", "args": [...]} and nothing else.
"args" is a JSON array of positional arguments or an object of named arguments; omit it when the method needs none.
Only use methods from the catalog. If no method fits, respond with {"method": ""}.`

// Route asks the model to pick a method and arguments for the instruction.
// The returned method is validated against the registry before it is handed
// back, so callers can dispatch it directly.
func (r *Router) Route(ctx context.Context, instruction string) (*RoutedCall, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("empty instruction")
	}

	prompt := fmt.Sprintf("Method catalog:\n%s\nInstruction: %s", methodCatalog(), instruction)
	raw, err := r.completer.Complete(ctx, routerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	call, err := extractRoutedCall(raw)
	if err != nil {
		return nil, err
	}
	if call.Method == "" {
		return nil, fmt.Errorf("no repository method matches the instruction")
	}
	ns, method, ok := alfresco.ParseMethod(call.Method)
	if !ok {
		return nil, fmt.Errorf("model returned malformed method %q", call.Method)
	}
	api, ok := alfresco.Lookup(ns)
	if !ok {
		return nil, fmt.Errorf("model returned unknown namespace %q", ns)
	}
	if !contains(api.Methods(), method) {
		return nil, fmt.Errorf("model returned unknown method %q", call.Method)
	}
	return call, nil
}

// methodCatalog renders the full registry as namespace.method lines for the
// prompt.
func methodCatalog() string {
	var sb strings.Builder
	for _, ns := range alfresco.Namespaces() {
		api, _ := alfresco.Lookup(ns)
		for _, m := range api.Methods() {
			sb.WriteString(ns)
			sb.WriteString(".")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// extractRoutedCall pulls the first JSON object out of the model response.
// Models occasionally wrap the object in prose or a code fence despite the
// system prompt.
func extractRoutedCall(raw string) (*RoutedCall, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("model response contains no JSON object")
	}
	var call RoutedCall
	if err := json.Unmarshal([]byte(raw[start:end+1]), &call); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}
	return &call, nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
