package alfresco

// Args carries call arguments in one of two shapes: an ordered positional
// sequence (spread across the operation's parameters) or a named options
// object (passed through as a single map).
type Args struct {
	pos   []any
	named map[string]any
}

// ParseArgs interprets a decoded JSON value as call arguments. nil means no
// arguments; an array is positional; an object is named. Anything else is an
// INVALID_ARGS error.
func ParseArgs(raw any) (Args, error) {
	switch v := raw.(type) {
	case nil:
		return Args{}, nil
	case []any:
		return Args{pos: v}, nil
	case map[string]any:
		return Args{named: v}, nil
	default:
		return Args{}, NewError(CodeInvalidArgs, "args must be an array or an object, got %T", raw)
	}
}

// PositionalArgs builds positional args directly.
func PositionalArgs(values ...any) Args {
	return Args{pos: values}
}

// IsPositional reports whether the args were supplied as an ordered sequence.
func (a Args) IsPositional() bool {
	return a.pos != nil
}

// Len returns the number of positional arguments.
func (a Args) Len() int {
	return len(a.pos)
}

// Positional returns the underlying positional slice.
func (a Args) Positional() []any {
	return a.pos
}

// String fetches a required string argument by position or name.
func (a Args) String(i int, key string) (string, error) {
	v, ok := a.at(i, key)
	if !ok {
		return "", NewError(CodeInvalidArgs, "missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", NewError(CodeInvalidArgs, "argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// OptString fetches an optional string argument, empty when absent.
func (a Args) OptString(i int, key string) string {
	v, ok := a.at(i, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// OptMap fetches an optional object argument, nil when absent.
func (a Args) OptMap(i int, key string) map[string]any {
	v, ok := a.at(i, key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// Map fetches a required object argument.
func (a Args) Map(i int, key string) (map[string]any, error) {
	v, ok := a.at(i, key)
	if !ok {
		return nil, NewError(CodeInvalidArgs, "missing required argument %q", key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, NewError(CodeInvalidArgs, "argument %q must be an object, got %T", key, v)
	}
	return m, nil
}

func (a Args) at(i int, key string) (any, bool) {
	if a.pos != nil {
		if i < len(a.pos) && a.pos[i] != nil {
			return a.pos[i], true
		}
		return nil, false
	}
	v, ok := a.named[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// setPositional replaces one positional slot, used by the webscript path
// rewrite. Out-of-range indexes are ignored.
func (a Args) setPositional(i int, v any) Args {
	if i >= len(a.pos) {
		return a
	}
	next := make([]any, len(a.pos))
	copy(next, a.pos)
	next[i] = v
	return Args{pos: next, named: a.named}
}
