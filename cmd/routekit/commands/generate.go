package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yshengliao/routekit/validation"
)

type crudOptions struct {
	entity     string
	schema     string
	export     string
	validation bool
}

type crudData struct {
	ModuleName    string
	Name          string
	Slug          string
	Path          string
	BodySchema    string
	DefaultSchema string
}

// generateCrud writes the handler, service and route file of one entity
// into the project at base.
func generateCrud(base string, opts crudOptions) error {
	name := pascalCase(opts.entity)
	slug := fileSlug(opts.entity)
	if name == "" || slug == "" {
		return fmt.Errorf("invalid entity name %q", opts.entity)
	}

	moduleName, err := getModuleName(base)
	if err != nil {
		return err
	}

	data := crudData{
		ModuleName: moduleName,
		Name:       name,
		Slug:       slug,
		Path:       "/" + strings.ReplaceAll(slug, "_", "-"),
	}

	if opts.validation {
		schemaName, err := crudBodySchema(base, slug, opts)
		if err != nil {
			return err
		}
		data.BodySchema = schemaName
		if opts.schema == "" {
			data.DefaultSchema = schemaName
		}
	} else if opts.schema != "" {
		fmt.Println("⚠️  --schema is only used with --validation (ignored)")
	}

	files := []struct {
		path string
		tmpl string
	}{
		{filepath.Join(base, "handlers", slug+".go"), crudHandlerTemplate},
		{filepath.Join(base, "services", slug+"_service.go"), crudServiceTemplate},
		{filepath.Join(base, "routes", slug+".yaml"), crudRouteTemplate},
	}
	for _, f := range files {
		if err := generateFile(f.path, f.tmpl, data); err != nil {
			return err
		}
	}

	fmt.Printf("\nDon't forget to register the handlers:\n")
	fmt.Printf("  handlers.Register%s(catalog, services.New%sService())\n", name, name)

	return nil
}

// crudBodySchema returns the catalog name validating the request body. A
// --schema file is checked and copied into schemas/, without one the handler
// registers "<entity>.body".
func crudBodySchema(base, slug string, opts crudOptions) (string, error) {
	if opts.schema == "" {
		return slug + ".body", nil
	}
	if filepath.Ext(opts.schema) != ".json" {
		return "", fmt.Errorf("schema %s: only JSON schema files are supported", opts.schema)
	}

	if _, err := loadSchemaFile(opts.schema, opts.export); err != nil {
		return "", err
	}

	file := filepath.Base(opts.schema)
	dst := filepath.Join(base, "schemas", file)
	if !samePath(opts.schema, dst) {
		if err := copyFile(opts.schema, dst); err != nil {
			return "", err
		}
	}

	name := strings.TrimSuffix(file, ".json")
	if opts.export != "" {
		name += "#" + opts.export
	}
	return name, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// loadSchemaFile compiles the schema file, or its definition export.
func loadSchemaFile(path, export string) (*validation.JSONSchema, error) {
	doc, err := readSchemaDocument(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return validation.CompileJSONSchemaDef(abs, doc, export)
}
