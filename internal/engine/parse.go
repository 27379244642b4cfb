package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// defaultGlobs discover outputs when a definition declares none.
var defaultGlobs = []string{"*.dat", "*.txt", "*.json", "*.out", "*.log"}

// ParseOutputs discovers and parses output files in dir.
//
// Discovery matches the declared glob patterns (or defaultGlobs) and
// ignores everything else. Each discovered file matching an output_files
// binding is parsed by its declared parser; later files merge over
// earlier results key-by-key. Per-file parse failures follow the
// definition's parse policy: "ignore" logs and skips the file, "fail"
// aborts with PARSE_FAILED.
//
// When nothing parsed, the definition's default_results are returned so
// a run that produced nothing recognizable still yields a Results asset.
func ParseOutputs(dir string, out registry.OutputConfig, logger *zap.Logger) (map[string]any, error) {
	globs := out.Globs
	if len(globs) == 0 {
		globs = defaultGlobs
	}

	var discovered []string
	seen := map[string]bool{}
	for _, glob := range globs {
		matches, err := filepath.Glob(filepath.Join(dir, glob))
		if err != nil {
			// Only malformed patterns error here; treat as no matches.
			logger.Warn("bad output glob", zap.String("pattern", glob), zap.Error(err))
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && !seen[m] {
				seen[m] = true
				discovered = append(discovered, m)
			}
		}
	}

	results := map[string]any{}
	for _, path := range discovered {
		name := filepath.Base(path)
		for _, binding := range out.Files {
			ok, err := filepath.Match(binding.Pattern, name)
			if err != nil || !ok {
				continue
			}
			parsed, err := parseFile(path, binding.Parser)
			if err != nil {
				if out.Policy == registry.PolicyFail {
					return nil, &RunError{
						Code:    ErrCodeParseFailed,
						Message: fmt.Sprintf("parse %s: %v", name, err),
					}
				}
				logger.Warn("skipping unparseable output", zap.String("file", name), zap.Error(err))
				continue
			}
			for k, v := range parsed {
				results[k] = v
			}
		}
	}

	if len(results) == 0 {
		for k, v := range out.DefaultResults {
			results[k] = v
		}
		if len(out.DefaultResults) > 0 {
			logger.Info("no output parsed, using declared defaults")
		}
	}
	return results, nil
}

// parseFile applies one parser to one file.
func parseFile(path string, spec registry.ParserSpec) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case registry.ParserJSON:
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return parsed, nil

	case registry.ParserRegex:
		results := map[string]any{}
		content := string(data)
		for _, pattern := range spec.Patterns {
			matches := pattern.Regexp.FindAllStringSubmatch(content, -1)
			if len(matches) == 0 {
				continue
			}
			collected := make([]any, 0, len(matches))
			for _, m := range matches {
				if len(m) > 1 {
					collected = append(collected, m[1])
				} else {
					collected = append(collected, m[0])
				}
			}
			results[pattern.Name] = collected
		}
		return results, nil

	case registry.ParserColumnar:
		lines := strings.Split(string(data), "\n")
		if spec.SkipLines >= len(lines) {
			return map[string]any{"data": []any{}}, nil
		}
		var rows []any
		for _, line := range lines[spec.SkipLines:] {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			fields := strings.Fields(line)
			row := make([]any, len(fields))
			for i, f := range fields {
				row[i] = f
			}
			rows = append(rows, row)
		}
		return map[string]any{"data": rows}, nil
	}
	return nil, fmt.Errorf("unhandled parser kind %d", spec.Kind)
}
