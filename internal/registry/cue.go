package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// loadCueFile evaluates a single CUE document and feeds the exported
// JSON through the same normalization path as YAML and JSON documents.
// CUE exports struct fields in declaration order, so method and rule
// ordering survives the round trip.
func loadCueFile(path, stem string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%s: compiling cue: %w", path, err)
	}
	if err := value.Validate(); err != nil {
		return nil, fmt.Errorf("%s: validating cue: %w", path, err)
	}

	exported, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%s: exporting cue: %w", path, err)
	}
	doc, err := decodeDocument(exported)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return normalizeDefinition(stem, path, doc)
}
