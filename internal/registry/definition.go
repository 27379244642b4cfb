package registry

import (
	"regexp"
	"time"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

// Definition is the normalized, immutable form of one job-definition
// document. It describes one external tool: the methods it supports,
// how a method is resolved from parameters, how templates are rendered,
// how the tool is executed, and how its outputs are parsed.
type Definition struct {
	Name   string // declared display name
	Stem   string // file stem the document was loaded from
	Source string // absolute path of the document

	Methods     []Method
	Resolution  []ResolutionRule
	Understands []Phrase
	Aliases     []Alias
	Builders    []ContextBuilder
	Execution   ExecutionConfig
	Output      OutputConfig
	ResultRules []ResultAssetRule
	Units       map[string]string // results field -> unit
	LogTemplate string
}

// Method returns the named method.
func (d *Definition) Method(name string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// MethodNames returns method names in declaration order.
func (d *Definition) MethodNames() []string {
	names := make([]string, len(d.Methods))
	for i, m := range d.Methods {
		names[i] = m.Name
	}
	return names
}

// Method is one named mode of operation within a definition.
type Method struct {
	Name          string
	InputTemplate string // inline template body; list form joined with newlines
	TemplateFile  string // template loaded from disk, relative to the document
	Defaults      map[string]any
	Outputs       []OutputSpec
	Timeout       time.Duration // 0 = inherit definition/engine timeout
}

// OutputSpec declares one expected output of a method.
type OutputSpec struct {
	Name string
	File string
	Type string
}

// ResolutionRule is one ordered method-resolution rule. Exactly the
// condition fields present in the document are set; at least one is.
type ResolutionRule struct {
	Name        string
	Method      string
	RequiresAny []string
	RequiresAll []string
	Patterns    []ParamPattern
}

// ParamPattern matches a regular expression against the string form of a
// named parameter.
type ParamPattern struct {
	Param  string
	Regexp *regexp.Regexp
}

// Phrase is one entry of the "understands" table: the phrase matches when
// any keyword appears as a substring of the concatenated parameter values.
type Phrase struct {
	Phrase   string
	Keywords []string
	Method   string
}

// Alias maps a canonical parameter name to accepted alternatives.
type Alias struct {
	Canonical string
	Names     []string
}

// BuilderKind discriminates context-builder variants.
type BuilderKind int

const (
	BuilderTransform BuilderKind = iota // derive a key via a Transform
	BuilderComputed                     // derive a key via a Formula
)

// ContextBuilder derives one context key during template-context
// construction. Builders apply in declaration order and never overwrite
// a key set by an earlier layer.
type ContextBuilder struct {
	Name       string
	Kind       BuilderKind
	Source     string    // transform input key (BuilderTransform)
	Transform  Transform // valid when Kind == BuilderTransform
	Formula    Formula   // valid when Kind == BuilderComputed
	Default    any
	HasDefault bool
}

// TransformKind discriminates parameter transforms.
type TransformKind int

const (
	TransformListToString TransformKind = iota
	TransformUnitConversion
	TransformSteps
)

// Transform is a named, parameterized derivation of one context value
// from another.
type Transform struct {
	Kind       TransformKind
	Separator  string  // list_to_string
	Factor     float64 // unit_conversion: multiplicative
	Multiplier float64 // steps_calculation: int(value * multiplier / timestep), truncating
	Timestep   float64 // steps_calculation
}

// FormulaKind discriminates computed-value formulas.
type FormulaKind int

const (
	// FormulaScaledSteps computes int(value_key * scale / timestep_key),
	// the picosecond-to-step conversion.
	FormulaScaledSteps FormulaKind = iota
	// FormulaComponent extracts one component of a vector-valued key.
	FormulaComponent
)

// Formula is one entry of the small computed-value library.
type Formula struct {
	Kind        FormulaKind
	ValueKey    string  // FormulaScaledSteps
	TimestepKey string  // FormulaScaledSteps
	Scale       float64 // FormulaScaledSteps
	SourceKey   string  // FormulaComponent
	Index       int     // FormulaComponent
}

// BackendKind names an execution backend.
type BackendKind string

const (
	BackendLocal  BackendKind = "local"
	BackendDocker BackendKind = "docker"
	BackendHPC    BackendKind = "hpc"
)

// ExecutionConfig declares how rendered inputs are turned into a
// subprocess invocation.
type ExecutionConfig struct {
	Mode    BackendKind   // default local
	Timeout time.Duration // definition-level; 0 = engine default
	Local   LocalBackend
	Docker  DockerBackend
	HPC     HPCBackend
}

// LocalBackend runs the tool directly on the host.
type LocalBackend struct {
	Executable      string
	CommandTemplate string // default "{executable} {input_file}"
	Environment     map[string]string
}

// DockerBackend runs the tool inside a container, with the per-run
// scratch directory mounted as the working directory.
type DockerBackend struct {
	Image       string
	Command     string // command inside the container; default executable form
	Environment map[string]string
}

// HPCBackend submits the command through a batch-queue wrapper.
type HPCBackend struct {
	SubmitTemplate string // e.g. "sbatch --wait {input_file}"
	Executable     string
	Environment    map[string]string
}

// ParsePolicy controls how per-file parse failures aggregate.
type ParsePolicy string

const (
	PolicyIgnore ParsePolicy = "ignore" // log and skip the file
	PolicyFail   ParsePolicy = "fail"   // fail the run
)

// OutputConfig declares output discovery and parsing.
type OutputConfig struct {
	Globs          []string // discovery patterns; engine applies defaults when empty
	Files          []FileParser
	DefaultResults map[string]any
	Policy         ParsePolicy // default ignore
}

// FileParser binds discovered files matching Pattern to a parser.
type FileParser struct {
	Pattern string
	Parser  ParserSpec
}

// ParserKind discriminates output parsers.
type ParserKind int

const (
	ParserJSON ParserKind = iota
	ParserRegex
	ParserColumnar
)

// ParserSpec is one declared output parser.
type ParserSpec struct {
	Kind      ParserKind
	Patterns  []NamedPattern // ParserRegex: all matches collected per pattern
	SkipLines int            // ParserColumnar: header lines to drop
}

// NamedPattern is a compiled regex with the results key its matches
// collect under.
type NamedPattern struct {
	Name   string
	Regexp *regexp.Regexp
}

// ResultAssetRule emits an auxiliary asset when every required field is
// present in the parsed results.
type ResultAssetRule struct {
	Name         string
	Kind         asset.Kind
	RequiresData []string
	Payload      []PayloadField
}

// PayloadField copies one field into the auxiliary asset's payload,
// sourced from parsed results first, then caller params.
type PayloadField struct {
	Key    string
	Source string
}
