package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var schemaPrinter = message.NewPrinter(language.English)

// JSONSchema validates values against a compiled JSON Schema document.
type JSONSchema struct {
	id     string
	schema *jsonschema.Schema
}

// CompileJSONSchema compiles a single JSON Schema document.
// id is used as the resource location and in error messages.
func CompileJSONSchema(id string, doc []byte) (*JSONSchema, error) {
	return CompileJSONSchemaDef(id, doc, "")
}

// CompileJSONSchemaDef compiles the definition named def of the document,
// looked up under "$defs" and then "definitions". An empty def compiles the
// document root.
func CompileJSONSchemaDef(id string, doc []byte, def string) (*JSONSchema, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid schema JSON %s: %w", id, err)
	}

	compiler := newCompiler()
	if err := compiler.AddResource(id, parsed); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", id, err)
	}

	location := id
	if def != "" {
		pointer, ok := DefinitionPointer(parsed, def)
		if !ok {
			return nil, fmt.Errorf("schema %s has no definition %q", id, def)
		}
		location = id + "#" + pointer
	}

	schema, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", location, err)
	}
	return &JSONSchema{id: location, schema: schema}, nil
}

// LoadJSONSchemaDir compiles every *.json file of dir with one compiler, so
// relative $ref between the files resolve. The schemas are keyed by file
// name without extension, the definitions of a file by "<name>#<definition>".
func LoadJSONSchemaDir(dir string) (map[string]*JSONSchema, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory %s: %w", abs, err)
	}

	compiler := newCompiler()
	docs := make(map[string]any)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		location := filepath.Join(abs, entry.Name())
		raw, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", location, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid schema JSON %s: %w", location, err)
		}
		if err := compiler.AddResource(location, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", location, err)
		}
		docs[entry.Name()] = doc
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	schemas := make(map[string]*JSONSchema, len(names))
	for _, name := range names {
		location := filepath.Join(abs, name)
		key := strings.TrimSuffix(name, ".json")

		targets := map[string]string{key: location}
		for _, def := range definitionNames(docs[name]) {
			pointer, _ := DefinitionPointer(docs[name], def)
			targets[key+"#"+def] = location + "#" + pointer
		}
		for k, loc := range targets {
			schema, err := compiler.Compile(loc)
			if err != nil {
				return nil, fmt.Errorf("failed to compile schema %s: %w", loc, err)
			}
			schemas[k] = &JSONSchema{id: loc, schema: schema}
		}
	}
	return schemas, nil
}

// definitionPointer returns the JSON pointer of the definition def.
func DefinitionPointer(doc any, def string) (string, bool) {
	m, _ := doc.(map[string]any)
	for _, section := range []string{"$defs", "definitions"} {
		defs, _ := m[section].(map[string]any)
		if _, ok := defs[def]; ok {
			return "/" + section + "/" + escapePointer(def), true
		}
	}
	return "", false
}

func definitionNames(doc any) []string {
	m, _ := doc.(map[string]any)
	var names []string
	for _, section := range []string{"$defs", "definitions"} {
		defs, _ := m[section].(map[string]any)
		for name := range defs {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func escapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}

func newCompiler() *jsonschema.Compiler {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	return compiler
}

// ID returns the location the schema was compiled from.
func (s *JSONSchema) ID() string {
	return s.id
}

// Validate checks value against the schema. The value is returned unchanged.
func (s *JSONSchema) Validate(value any) (any, error) {
	instance, err := toInstance(value)
	if err != nil {
		return nil, NewFailure(FieldIssue{Message: err.Error()})
	}

	if err := s.schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, NewFailure(collectSchemaIssues(verr, nil)...)
		}
		return nil, err
	}
	return value, nil
}

// toInstance round-trips value through JSON so that structs, typed maps and
// numbers reach the validator in the shape it expects.
func toInstance(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON encodable: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// collectSchemaIssues keeps the leaf causes, the ones that name the failing
// keyword rather than a wrapping subschema.
func collectSchemaIssues(verr *jsonschema.ValidationError, issues []FieldIssue) []FieldIssue {
	if len(verr.Causes) == 0 {
		return append(issues, FieldIssue{
			Field:   strings.Join(verr.InstanceLocation, "."),
			Message: verr.ErrorKind.LocalizedString(schemaPrinter),
		})
	}
	for _, cause := range verr.Causes {
		issues = collectSchemaIssues(cause, issues)
	}
	return issues
}
