package registry

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

// DefinitionError reports a malformed definition document with the file
// and the document path that failed.
type DefinitionError struct {
	File    string
	Path    string // dotted path inside the document, e.g. "context_builders.run_steps"
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func defErrf(file, path, format string, args ...any) *DefinitionError {
	return &DefinitionError{File: file, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Recognized computed-value formulas. The formula library is closed:
// anything else is a load error.
var (
	scaledStepsFormula = regexp.MustCompile(`^\s*(\w+)\s*\*\s*(\d+(?:\.\d+)?)\s*/\s*(\w+)\s*$`)
	componentFormula   = regexp.MustCompile(`^\s*(\w+)\[(\d+)\]\s*$`)
)

// normalizeDefinition compiles one decoded document into a Definition.
func normalizeDefinition(stem, source string, doc *omap) (*Definition, error) {
	def := &Definition{
		Name:   stem,
		Stem:   stem,
		Source: source,
		Units:  map[string]string{},
	}

	if raw, ok := doc.get("name"); ok {
		name, ok := asString(raw)
		if !ok {
			return nil, defErrf(source, "name", "must be a string")
		}
		def.Name = name
	}

	if raw, ok := doc.get("methods"); ok {
		methods, ok := asOmap(raw)
		if !ok {
			return nil, defErrf(source, "methods", "must be an object")
		}
		for _, name := range methods.Keys() {
			m, err := normalizeMethod(source, name, methods.vals[name])
			if err != nil {
				return nil, err
			}
			def.Methods = append(def.Methods, m)
		}
	}

	if raw, ok := doc.get("method_resolution"); ok {
		rules, ok := asOmap(raw)
		if !ok {
			return nil, defErrf(source, "method_resolution", "must be an object")
		}
		for _, name := range rules.Keys() {
			rule, err := normalizeRule(source, name, rules.vals[name])
			if err != nil {
				return nil, err
			}
			def.Resolution = append(def.Resolution, rule)
		}
	}

	if raw, ok := doc.get("understands"); ok {
		phrases, ok := asOmap(raw)
		if !ok {
			return nil, defErrf(source, "understands", "must be an object")
		}
		for _, phrase := range phrases.Keys() {
			p, err := normalizePhrase(source, phrase, phrases.vals[phrase])
			if err != nil {
				return nil, err
			}
			def.Understands = append(def.Understands, p)
		}
	}

	if raw, ok := doc.get("parameter_mapping"); ok {
		mapping, ok := asOmap(raw)
		if !ok {
			return nil, defErrf(source, "parameter_mapping", "must be an object")
		}
		for _, canonical := range mapping.Keys() {
			aliases, ok := asStringSlice(mapping.vals[canonical])
			if !ok {
				return nil, defErrf(source, "parameter_mapping."+canonical, "aliases must be a list of strings")
			}
			def.Aliases = append(def.Aliases, Alias{Canonical: canonical, Names: aliases})
		}
	}

	if raw, ok := doc.get("context_builders"); ok {
		builders, ok := asOmap(raw)
		if !ok {
			return nil, defErrf(source, "context_builders", "must be an object")
		}
		for _, name := range builders.Keys() {
			b, err := normalizeBuilder(source, name, builders.vals[name])
			if err != nil {
				return nil, err
			}
			def.Builders = append(def.Builders, b)
		}
	}

	exec, err := normalizeExecution(source, doc)
	if err != nil {
		return nil, err
	}
	def.Execution = exec

	out, err := normalizeOutput(source, doc)
	if err != nil {
		return nil, err
	}
	def.Output = out

	if raw, ok := doc.get("result_assets"); ok {
		rules, ok := asOmap(raw)
		if !ok {
			return nil, defErrf(source, "result_assets", "must be an object")
		}
		for _, name := range rules.Keys() {
			rule, err := normalizeResultRule(source, name, rules.vals[name])
			if err != nil {
				return nil, err
			}
			def.ResultRules = append(def.ResultRules, rule)
		}
	}

	if raw, ok := doc.get("results"); ok {
		if err := normalizeUnits(source, raw, def.Units); err != nil {
			return nil, err
		}
	}

	if raw, ok := doc.get("log_template"); ok {
		tpl, ok := asString(raw)
		if !ok {
			return nil, defErrf(source, "log_template", "must be a string")
		}
		def.LogTemplate = tpl
	}

	return def, nil
}

func normalizeMethod(source, name string, raw any) (Method, error) {
	path := "methods." + name
	doc, ok := asOmap(raw)
	if !ok {
		return Method{}, defErrf(source, path, "must be an object")
	}

	m := Method{Name: name}

	if v, ok := doc.get("input_template"); ok {
		switch tpl := v.(type) {
		case string:
			m.InputTemplate = tpl
		case []any:
			lines, ok := asStringSlice(tpl)
			if !ok {
				return Method{}, defErrf(source, path+".input_template", "list form must contain only strings")
			}
			m.InputTemplate = strings.Join(lines, "\n")
		default:
			return Method{}, defErrf(source, path+".input_template", "must be a string or list of strings")
		}
	}
	if v, ok := doc.get("template_file"); ok {
		file, ok := asString(v)
		if !ok {
			return Method{}, defErrf(source, path+".template_file", "must be a string")
		}
		m.TemplateFile = file
	}
	if v, ok := doc.get("parameter_defaults"); ok {
		defaults, ok := asPlainMap(v)
		if !ok {
			return Method{}, defErrf(source, path+".parameter_defaults", "must be an object")
		}
		m.Defaults = defaults
	}
	if v, ok := doc.get("outputs"); ok {
		list, ok := v.([]any)
		if !ok {
			return Method{}, defErrf(source, path+".outputs", "must be a list")
		}
		for i, entry := range list {
			spec, ok := asOmap(entry)
			if !ok {
				return Method{}, defErrf(source, fmt.Sprintf("%s.outputs[%d]", path, i), "must be an object")
			}
			out := OutputSpec{}
			if s, ok := spec.get("name"); ok {
				out.Name, _ = asString(s)
			}
			if s, ok := spec.get("file"); ok {
				out.File, _ = asString(s)
			}
			if s, ok := spec.get("type"); ok {
				out.Type, _ = asString(s)
			}
			m.Outputs = append(m.Outputs, out)
		}
	}
	if v, ok := doc.get("execution"); ok {
		exec, ok := asOmap(v)
		if !ok {
			return Method{}, defErrf(source, path+".execution", "must be an object")
		}
		if t, ok := exec.get("timeout"); ok {
			secs, ok := asFloat(t)
			if !ok || secs <= 0 {
				return Method{}, defErrf(source, path+".execution.timeout", "must be a positive number of seconds")
			}
			m.Timeout = time.Duration(secs * float64(time.Second))
		}
	}
	return m, nil
}

// conditionKinds is the closed set of resolution-rule condition keys.
var conditionKinds = map[string]bool{
	"requires_any": true,
	"requires_all": true,
	"patterns":     true,
}

func normalizeRule(source, name string, raw any) (ResolutionRule, error) {
	path := "method_resolution." + name
	doc, ok := asOmap(raw)
	if !ok {
		return ResolutionRule{}, defErrf(source, path, "must be an object")
	}

	rule := ResolutionRule{Name: name, Method: name}
	if v, ok := doc.get("method"); ok {
		m, ok := asString(v)
		if !ok {
			return ResolutionRule{}, defErrf(source, path+".method", "must be a string")
		}
		rule.Method = m
	}

	condRaw, ok := doc.get("condition")
	if !ok {
		return ResolutionRule{}, defErrf(source, path, "missing condition")
	}
	cond, ok := asOmap(condRaw)
	if !ok {
		return ResolutionRule{}, defErrf(source, path+".condition", "must be an object")
	}
	if cond.len() == 0 {
		return ResolutionRule{}, defErrf(source, path+".condition", "must declare at least one predicate")
	}

	for _, key := range cond.Keys() {
		if !conditionKinds[key] {
			return ResolutionRule{}, defErrf(source, path+".condition", "unknown predicate %q (known: requires_any, requires_all, patterns)", key)
		}
	}

	if v, ok := cond.get("requires_any"); ok {
		names, ok := asStringSlice(v)
		if !ok {
			return ResolutionRule{}, defErrf(source, path+".condition.requires_any", "must be a list of parameter names")
		}
		rule.RequiresAny = names
	}
	if v, ok := cond.get("requires_all"); ok {
		names, ok := asStringSlice(v)
		if !ok {
			return ResolutionRule{}, defErrf(source, path+".condition.requires_all", "must be a list of parameter names")
		}
		rule.RequiresAll = names
	}
	if v, ok := cond.get("patterns"); ok {
		patterns, ok := asOmap(v)
		if !ok {
			return ResolutionRule{}, defErrf(source, path+".condition.patterns", "must map parameter names to regular expressions")
		}
		for _, param := range patterns.Keys() {
			expr, ok := asString(patterns.vals[param])
			if !ok {
				return ResolutionRule{}, defErrf(source, path+".condition.patterns."+param, "must be a string")
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return ResolutionRule{}, defErrf(source, path+".condition.patterns."+param, "invalid regexp: %v", err)
			}
			rule.Patterns = append(rule.Patterns, ParamPattern{Param: param, Regexp: re})
		}
	}
	return rule, nil
}

func normalizePhrase(source, phrase string, raw any) (Phrase, error) {
	path := "understands." + phrase
	doc, ok := asOmap(raw)
	if !ok {
		return Phrase{}, defErrf(source, path, "must be an object")
	}

	p := Phrase{Phrase: phrase, Method: phrase}
	if v, ok := doc.get("method"); ok {
		m, ok := asString(v)
		if !ok {
			return Phrase{}, defErrf(source, path+".method", "must be a string")
		}
		p.Method = m
	}
	if v, ok := doc.get("keywords"); ok {
		keywords, ok := asStringSlice(v)
		if !ok {
			return Phrase{}, defErrf(source, path+".keywords", "must be a list of strings")
		}
		p.Keywords = keywords
	}
	if len(p.Keywords) == 0 {
		// The phrase itself is the keyword when none are declared.
		p.Keywords = []string{phrase}
	}
	return p, nil
}

func normalizeBuilder(source, name string, raw any) (ContextBuilder, error) {
	path := "context_builders." + name
	doc, ok := asOmap(raw)
	if !ok {
		return ContextBuilder{}, defErrf(source, path, "must be an object")
	}

	b := ContextBuilder{Name: name}
	if v, ok := doc.get("default"); ok {
		b.Default = plain(v)
		b.HasDefault = true
	}

	kindRaw, ok := doc.get("type")
	if !ok {
		return ContextBuilder{}, defErrf(source, path, "missing type")
	}
	kind, _ := asString(kindRaw)

	switch kind {
	case "parameter_transform":
		b.Kind = BuilderTransform
		srcRaw, ok := doc.get("source")
		if !ok {
			return ContextBuilder{}, defErrf(source, path, "parameter_transform requires source")
		}
		b.Source, ok = asString(srcRaw)
		if !ok {
			return ContextBuilder{}, defErrf(source, path+".source", "must be a string")
		}
		trRaw, ok := doc.get("transform")
		if !ok {
			return ContextBuilder{}, defErrf(source, path, "parameter_transform requires transform")
		}
		tr, err := normalizeTransform(source, path+".transform", trRaw)
		if err != nil {
			return ContextBuilder{}, err
		}
		b.Transform = tr

	case "computed_value":
		b.Kind = BuilderComputed
		compRaw, ok := doc.get("computation")
		if !ok {
			return ContextBuilder{}, defErrf(source, path, "computed_value requires computation")
		}
		comp, ok := asOmap(compRaw)
		if !ok {
			return ContextBuilder{}, defErrf(source, path+".computation", "must be an object")
		}
		if t, ok := comp.get("type"); ok {
			if kind, _ := asString(t); kind != "formula" {
				return ContextBuilder{}, defErrf(source, path+".computation.type", "unknown computation type %q (known: formula)", kind)
			}
		}
		exprRaw, ok := comp.get("formula")
		if !ok {
			return ContextBuilder{}, defErrf(source, path+".computation", "missing formula")
		}
		expr, ok := asString(exprRaw)
		if !ok {
			return ContextBuilder{}, defErrf(source, path+".computation.formula", "must be a string")
		}
		formula, err := parseFormula(expr)
		if err != nil {
			return ContextBuilder{}, defErrf(source, path+".computation.formula", "%v", err)
		}
		b.Formula = formula

	default:
		return ContextBuilder{}, defErrf(source, path+".type", "unknown builder type %q (known: parameter_transform, computed_value)", kind)
	}
	return b, nil
}

func normalizeTransform(source, path string, raw any) (Transform, error) {
	doc, ok := asOmap(raw)
	if !ok {
		return Transform{}, defErrf(source, path, "must be an object")
	}
	kindRaw, ok := doc.get("type")
	if !ok {
		return Transform{}, defErrf(source, path, "missing type")
	}
	kind, _ := asString(kindRaw)

	switch kind {
	case "list_to_string":
		tr := Transform{Kind: TransformListToString, Separator: " "}
		if v, ok := doc.get("separator"); ok {
			tr.Separator, _ = asString(v)
		}
		return tr, nil
	case "unit_conversion":
		tr := Transform{Kind: TransformUnitConversion, Factor: 1.0}
		if v, ok := doc.get("factor"); ok {
			f, ok := asFloat(v)
			if !ok {
				return Transform{}, defErrf(source, path+".factor", "must be a number")
			}
			tr.Factor = f
		}
		return tr, nil
	case "steps_calculation":
		tr := Transform{Kind: TransformSteps, Multiplier: 1000, Timestep: 1.0}
		if v, ok := doc.get("multiplier"); ok {
			f, ok := asFloat(v)
			if !ok {
				return Transform{}, defErrf(source, path+".multiplier", "must be a number")
			}
			tr.Multiplier = f
		}
		if v, ok := doc.get("timestep"); ok {
			f, ok := asFloat(v)
			if !ok || f == 0 {
				return Transform{}, defErrf(source, path+".timestep", "must be a non-zero number")
			}
			tr.Timestep = f
		}
		return tr, nil
	default:
		return Transform{}, defErrf(source, path+".type", "unknown transform %q (known: list_to_string, unit_conversion, steps_calculation)", kind)
	}
}

// parseFormula compiles a formula string into its tagged variant.
// Supported forms: "value_ps * 1000 / timestep_fs" and "vector[i]".
func parseFormula(expr string) (Formula, error) {
	if m := scaledStepsFormula.FindStringSubmatch(expr); m != nil {
		var scale float64
		fmt.Sscanf(m[2], "%g", &scale)
		return Formula{Kind: FormulaScaledSteps, ValueKey: m[1], Scale: scale, TimestepKey: m[3]}, nil
	}
	if m := componentFormula.FindStringSubmatch(expr); m != nil {
		var idx int
		fmt.Sscanf(m[2], "%d", &idx)
		return Formula{Kind: FormulaComponent, SourceKey: m[1], Index: idx}, nil
	}
	return Formula{}, fmt.Errorf("unrecognized formula %q", expr)
}

func normalizeExecution(source string, doc *omap) (ExecutionConfig, error) {
	exec := ExecutionConfig{Mode: BackendLocal}
	raw, ok := doc.get("execution")
	if !ok {
		return exec, nil
	}
	cfg, ok := asOmap(raw)
	if !ok {
		return exec, defErrf(source, "execution", "must be an object")
	}

	if v, ok := cfg.get("mode"); ok {
		mode, _ := asString(v)
		switch BackendKind(mode) {
		case BackendLocal, BackendDocker, BackendHPC:
			exec.Mode = BackendKind(mode)
		default:
			return exec, defErrf(source, "execution.mode", "unknown mode %q (known: local, docker, hpc)", mode)
		}
	}
	if v, ok := cfg.get("timeout"); ok {
		secs, ok := asFloat(v)
		if !ok || secs <= 0 {
			return exec, defErrf(source, "execution.timeout", "must be a positive number of seconds")
		}
		exec.Timeout = time.Duration(secs * float64(time.Second))
	}

	if v, ok := cfg.get("local"); ok {
		local, ok := asOmap(v)
		if !ok {
			return exec, defErrf(source, "execution.local", "must be an object")
		}
		if e, ok := local.get("executable"); ok {
			exec.Local.Executable, _ = asString(e)
		}
		if c, ok := local.get("command_template"); ok {
			exec.Local.CommandTemplate, _ = asString(c)
		}
		if env, ok := local.get("environment"); ok {
			m, ok := asStringMap(env)
			if !ok {
				return exec, defErrf(source, "execution.local.environment", "must be an object")
			}
			exec.Local.Environment = m
		}
		if t, ok := local.get("timeout"); ok && exec.Timeout == 0 {
			secs, ok := asFloat(t)
			if !ok || secs <= 0 {
				return exec, defErrf(source, "execution.local.timeout", "must be a positive number of seconds")
			}
			exec.Timeout = time.Duration(secs * float64(time.Second))
		}
	}
	if v, ok := cfg.get("docker"); ok {
		docker, ok := asOmap(v)
		if !ok {
			return exec, defErrf(source, "execution.docker", "must be an object")
		}
		if i, ok := docker.get("image"); ok {
			exec.Docker.Image, _ = asString(i)
		}
		if c, ok := docker.get("command"); ok {
			exec.Docker.Command, _ = asString(c)
		}
		if env, ok := docker.get("environment"); ok {
			m, ok := asStringMap(env)
			if !ok {
				return exec, defErrf(source, "execution.docker.environment", "must be an object")
			}
			exec.Docker.Environment = m
		}
	}
	if v, ok := cfg.get("hpc"); ok {
		hpc, ok := asOmap(v)
		if !ok {
			return exec, defErrf(source, "execution.hpc", "must be an object")
		}
		if s, ok := hpc.get("submit_template"); ok {
			exec.HPC.SubmitTemplate, _ = asString(s)
		}
		if e, ok := hpc.get("executable"); ok {
			exec.HPC.Executable, _ = asString(e)
		}
		if env, ok := hpc.get("environment"); ok {
			m, ok := asStringMap(env)
			if !ok {
				return exec, defErrf(source, "execution.hpc.environment", "must be an object")
			}
			exec.HPC.Environment = m
		}
	}
	return exec, nil
}

func normalizeOutput(source string, doc *omap) (OutputConfig, error) {
	out := OutputConfig{Policy: PolicyIgnore}

	if raw, ok := doc.get("expected_outputs"); ok {
		globs, ok := asStringSlice(raw)
		if !ok {
			return out, defErrf(source, "expected_outputs", "must be a list of glob patterns")
		}
		out.Globs = globs
	}
	if raw, ok := doc.get("default_results"); ok {
		defaults, ok := asPlainMap(raw)
		if !ok {
			return out, defErrf(source, "default_results", "must be an object")
		}
		out.DefaultResults = defaults
	}
	if raw, ok := doc.get("parse_policy"); ok {
		policy, _ := asString(raw)
		switch ParsePolicy(policy) {
		case PolicyIgnore, PolicyFail:
			out.Policy = ParsePolicy(policy)
		default:
			return out, defErrf(source, "parse_policy", "unknown policy %q (known: ignore, fail)", policy)
		}
	}

	// Named parsers, referenced by output_files entries.
	parsers := map[string]ParserSpec{}
	if raw, ok := doc.get("parsers"); ok {
		decl, ok := asOmap(raw)
		if !ok {
			return out, defErrf(source, "parsers", "must be an object")
		}
		for _, name := range decl.Keys() {
			spec, err := normalizeParser(source, "parsers."+name, decl.vals[name])
			if err != nil {
				return out, err
			}
			parsers[name] = spec
		}
	}

	if raw, ok := doc.get("output_files"); ok {
		list, ok := raw.([]any)
		if !ok {
			return out, defErrf(source, "output_files", "must be a list")
		}
		for i, entry := range list {
			path := fmt.Sprintf("output_files[%d]", i)
			file, ok := asOmap(entry)
			if !ok {
				return out, defErrf(source, path, "must be an object")
			}
			patRaw, ok := file.get("pattern")
			if !ok {
				patRaw, ok = file.get("name")
			}
			if !ok {
				return out, defErrf(source, path, "missing pattern")
			}
			pattern, ok := asString(patRaw)
			if !ok {
				return out, defErrf(source, path+".pattern", "must be a string")
			}
			parserRaw, ok := file.get("parser")
			if !ok {
				return out, defErrf(source, path, "missing parser")
			}
			parserName, ok := asString(parserRaw)
			if !ok {
				return out, defErrf(source, path+".parser", "must be a string")
			}
			spec, ok := parsers[parserName]
			if !ok {
				return out, defErrf(source, path+".parser", "undeclared parser %q", parserName)
			}
			out.Files = append(out.Files, FileParser{Pattern: pattern, Parser: spec})
		}
	}
	return out, nil
}

func normalizeParser(source, path string, raw any) (ParserSpec, error) {
	doc, ok := asOmap(raw)
	if !ok {
		return ParserSpec{}, defErrf(source, path, "must be an object")
	}
	kindRaw, ok := doc.get("type")
	if !ok {
		return ParserSpec{}, defErrf(source, path, "missing type")
	}
	kind, _ := asString(kindRaw)

	switch kind {
	case "json":
		return ParserSpec{Kind: ParserJSON}, nil

	case "regex":
		spec := ParserSpec{Kind: ParserRegex}
		patRaw, ok := doc.get("patterns")
		if !ok {
			return ParserSpec{}, defErrf(source, path, "regex parser requires patterns")
		}
		switch patterns := patRaw.(type) {
		case *omap:
			for _, name := range patterns.Keys() {
				expr, ok := asString(patterns.vals[name])
				if !ok {
					return ParserSpec{}, defErrf(source, path+".patterns."+name, "must be a string")
				}
				re, err := regexp.Compile(expr)
				if err != nil {
					return ParserSpec{}, defErrf(source, path+".patterns."+name, "invalid regexp: %v", err)
				}
				spec.Patterns = append(spec.Patterns, NamedPattern{Name: name, Regexp: re})
			}
		case []any:
			for i, raw := range patterns {
				expr, ok := asString(raw)
				if !ok {
					return ParserSpec{}, defErrf(source, fmt.Sprintf("%s.patterns[%d]", path, i), "must be a string")
				}
				re, err := regexp.Compile(expr)
				if err != nil {
					return ParserSpec{}, defErrf(source, fmt.Sprintf("%s.patterns[%d]", path, i), "invalid regexp: %v", err)
				}
				spec.Patterns = append(spec.Patterns, NamedPattern{Name: fmt.Sprintf("matches_%d", i), Regexp: re})
			}
		default:
			return ParserSpec{}, defErrf(source, path+".patterns", "must be an object or list")
		}
		return spec, nil

	case "columnar":
		spec := ParserSpec{Kind: ParserColumnar}
		if v, ok := doc.get("skip_lines"); ok {
			n, ok := asInt(v)
			if !ok || n < 0 {
				return ParserSpec{}, defErrf(source, path+".skip_lines", "must be a non-negative integer")
			}
			spec.SkipLines = n
		}
		return spec, nil

	default:
		return ParserSpec{}, defErrf(source, path+".type", "unknown parser %q (known: json, regex, columnar)", kind)
	}
}

func normalizeResultRule(source, name string, raw any) (ResultAssetRule, error) {
	path := "result_assets." + name
	doc, ok := asOmap(raw)
	if !ok {
		return ResultAssetRule{}, defErrf(source, path, "must be an object")
	}

	rule := ResultAssetRule{Name: name, Kind: asset.KindArtifact}
	if v, ok := doc.get("type"); ok {
		kind, _ := asString(v)
		if !asset.ValidKinds[asset.Kind(kind)] {
			return ResultAssetRule{}, defErrf(source, path+".type", "unknown asset kind %q", kind)
		}
		rule.Kind = asset.Kind(kind)
	}
	if v, ok := doc.get("conditions"); ok {
		conds, ok := asOmap(v)
		if !ok {
			return ResultAssetRule{}, defErrf(source, path+".conditions", "must be an object")
		}
		if r, ok := conds.get("requires_data"); ok {
			fields, ok := asStringSlice(r)
			if !ok {
				return ResultAssetRule{}, defErrf(source, path+".conditions.requires_data", "must be a list of field names")
			}
			rule.RequiresData = fields
		}
	}
	if v, ok := doc.get("payload"); ok {
		payload, ok := asOmap(v)
		if !ok {
			return ResultAssetRule{}, defErrf(source, path+".payload", "must be an object")
		}
		for _, key := range payload.Keys() {
			src, ok := asString(payload.vals[key])
			if !ok {
				return ResultAssetRule{}, defErrf(source, path+".payload."+key, "must be a field name")
			}
			rule.Payload = append(rule.Payload, PayloadField{Key: key, Source: src})
		}
	}
	return rule, nil
}

func normalizeUnits(source string, raw any, units map[string]string) error {
	results, ok := asOmap(raw)
	if !ok {
		return defErrf(source, "results", "must be an object")
	}
	formatRaw, ok := results.get("format")
	if !ok {
		return nil
	}
	format, ok := asOmap(formatRaw)
	if !ok {
		return defErrf(source, "results.format", "must be an object")
	}
	for _, field := range format.Keys() {
		spec, ok := asOmap(format.vals[field])
		if !ok {
			continue
		}
		if u, ok := spec.get("unit"); ok {
			if unit, ok := asString(u); ok {
				units[field] = unit
			}
		}
	}
	return nil
}
