package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// placeholderRe matches $name, ${name}, and the $$ escape. A lone $
// followed by anything else is left untouched.
var placeholderRe = regexp.MustCompile(`\$(\$|\{[A-Za-z_][A-Za-z0-9_]*\}|[A-Za-z_][A-Za-z0-9_]*)`)

// arrayIndexRe matches the ${name[k]} post-processing form resolved
// against list-valued context entries after substitution.
var arrayIndexRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\[(\d+)\]\}`)

// RenderTemplate renders a template body against a context.
//
// Substitution is safe: a placeholder whose name is absent from the
// context stays in the output verbatim instead of failing. "$$" escapes
// a literal dollar sign. After substitution, ${name[k]} expressions are
// resolved against list-valued context entries; out-of-range or
// non-list references also stay verbatim.
func RenderTemplate(template string, ctx map[string]any) string {
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		body := m[1:]
		if body == "$" {
			return "$"
		}
		name := strings.TrimSuffix(strings.TrimPrefix(body, "{"), "}")
		v, ok := ctx[name]
		if !ok {
			return m
		}
		return formatValue(v)
	})

	return arrayIndexRe.ReplaceAllStringFunc(rendered, func(m string) string {
		sub := arrayIndexRe.FindStringSubmatch(m)
		list, ok := ctx[sub[1]].([]any)
		if !ok {
			return m
		}
		idx, err := strconv.Atoi(sub[2])
		if err != nil || idx >= len(list) {
			return m
		}
		return formatValue(list[idx])
	})
}

// methodTemplate returns the template body for a method: the inline
// body when present, otherwise the contents of the declared template
// file resolved relative to the definition document.
func methodTemplate(def *registry.Definition, method registry.Method) (string, error) {
	if method.TemplateFile == "" {
		return method.InputTemplate, nil
	}

	path := method.TemplateFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(def.Source), path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", &RunError{
			Code:    ErrCodeTemplateMissing,
			Message: fmt.Sprintf("template file %s: %v", method.TemplateFile, err),
			Job:     def.Name,
			Method:  method.Name,
		}
	}
	return string(body), nil
}

// formatValue renders a context value into template text. Integral
// floats print as integers so JSON-decoded numbers read naturally.
func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'g', -1, 64)
	case []any:
		parts := make([]string, len(n))
		for i, e := range n {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
