package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// ResolveMethod picks the concrete method to execute for a definition
// and a bag of parameters.
//
// Resolution order, first match wins:
//  1. Explicit "method" parameter, validated against the definition's
//     methods. An unknown explicit method logs a warning and falls
//     through; explicit intent is honored only when it is satisfiable.
//  2. Ordered resolution rules (requires_any, requires_all, patterns),
//     evaluated in declaration order.
//  3. The keyword table: a phrase matches when any of its keywords
//     appears as a substring of the concatenated string form of all
//     parameter values.
//  4. The first method declared in the definition.
//
// A definition with zero methods fails with NO_METHODS; resolution
// never returns an empty name.
func ResolveMethod(def *registry.Definition, params map[string]any, logger *zap.Logger) (string, error) {
	if len(def.Methods) == 0 {
		return "", NewNoMethodsError(def.Name)
	}

	if raw, ok := params["method"]; ok {
		name := fmt.Sprintf("%v", raw)
		if _, ok := def.Method(name); ok {
			return name, nil
		}
		logger.Warn("explicit method not declared, falling back to resolution rules",
			zap.String("job", def.Name),
			zap.String("method", name),
			zap.Strings("known", def.MethodNames()))
	}

	for _, rule := range def.Resolution {
		if ruleMatches(rule, params) {
			return rule.Method, nil
		}
	}

	if phrase, ok := matchPhrase(def.Understands, params); ok {
		return phrase.Method, nil
	}

	return def.Methods[0].Name, nil
}

// ruleMatches evaluates one resolution rule. A matching requires_any
// name fires the rule. A requires_all clause, when present, decides
// the rule by itself: all names present fires it, any name missing
// fails it without consulting patterns.
func ruleMatches(rule registry.ResolutionRule, params map[string]any) bool {
	for _, name := range rule.RequiresAny {
		if _, ok := params[name]; ok {
			return true
		}
	}

	if len(rule.RequiresAll) > 0 {
		for _, name := range rule.RequiresAll {
			if _, ok := params[name]; !ok {
				return false
			}
		}
		return true
	}

	for _, pattern := range rule.Patterns {
		raw, ok := params[pattern.Param]
		if !ok {
			continue
		}
		if pattern.Regexp.MatchString(fmt.Sprintf("%v", raw)) {
			return true
		}
	}

	return false
}

// matchPhrase scans the keyword table in declaration order against the
// lowercased concatenation of all parameter values.
func matchPhrase(phrases []registry.Phrase, params map[string]any) (registry.Phrase, bool) {
	if len(phrases) == 0 {
		return registry.Phrase{}, false
	}

	var sb strings.Builder
	for _, v := range params {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	haystack := strings.ToLower(sb.String())

	for _, phrase := range phrases {
		for _, keyword := range phrase.Keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				return phrase, true
			}
		}
	}
	return registry.Phrase{}, false
}
