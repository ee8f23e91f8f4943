// Package prompt renders LLM prompts from graph state.
//
// A Template holds text with ${name} placeholders. Names resolve against
// the JSON field names of a state struct, or the keys of a map:
//
//	tmpl := prompt.Must("Generate a joke on the topic ${topic}")
//	text, err := tmpl.Render(JokeState{Topic: "cats"})
//
// A placeholder with no value is an error, so a renamed state field fails
// the node instead of sending a broken prompt.
package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is a parsed prompt. It is safe for concurrent use.
type Template struct {
	text  string
	names []string
}

// New parses text. It fails on an unterminated placeholder.
func New(text string) (*Template, error) {
	stripped := placeholder.ReplaceAllString(text, "")
	if i := strings.Index(stripped, "${"); i >= 0 {
		return nil, fmt.Errorf("prompt: malformed placeholder near %q", clip(stripped[i:]))
	}

	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return &Template{text: text, names: names}, nil
}

// Must is New that panics on error. Use it for package-level templates.
func Must(text string) *Template {
	t, err := New(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the placeholder names in order of first use.
func (t *Template) Names() []string {
	return append([]string(nil), t.names...)
}

// Render substitutes every placeholder. data is a map[string]any or any
// value that encodes to a JSON object. Strings are inserted verbatim;
// other values are inserted as JSON.
func (t *Template) Render(data any) (string, error) {
	vars, err := variables(data)
	if err != nil {
		return "", err
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(t.text, func(match string) string {
		name := match[2 : len(match)-1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return format(v)
	})
	if len(missing) > 0 {
		return "", &MissingError{Names: missing}
	}
	return out, nil
}

// With returns data's variables merged with extra. Keys in extra win.
func With(data any, extra map[string]any) (map[string]any, error) {
	vars, err := variables(data)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(vars)+len(extra))
	for k, v := range vars {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged, nil
}

// MissingError reports placeholders that had no value.
type MissingError struct {
	Names []string
}

// Error implements the error interface.
func (e *MissingError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("prompt: no value for ${%s}", e.Names[0])
	}
	return fmt.Sprintf("prompt: no values for ${%s}", strings.Join(e.Names, "}, ${"))
}

func variables(data any) (map[string]any, error) {
	switch d := data.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return d, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("prompt: encode data: %w", err)
	}
	var vars map[string]any
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("prompt: data is not an object: %w", err)
	}
	return vars, nil
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func clip(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}
