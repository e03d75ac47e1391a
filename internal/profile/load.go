package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/meshx/meshx-tools/embedded"
	"github.com/meshx/meshx-tools/internal/apperrors"
)

const schemaURL = "prod_profile.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(schemaURL, bytes.NewReader(embedded.ProfileSchema())); err != nil {
		return nil, fmt.Errorf("failed to add profile schema: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// Load reads and parses the profile at path.
// A missing file yields *apperrors.NotFoundError, a malformed one *apperrors.ParseError.
func Load(path string) (*Profile, error) {
	//nolint:gosec // G304: profile path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("profile", path, err)
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		var perr *apperrors.ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return p, nil
}

// LoadFromReader parses a profile from r.
func LoadFromReader(r io.Reader) (*Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON profile document, checks it against the
// profile schema and rejects duplicate product or element names.
func Parse(data []byte) (*Profile, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewParseError("", errors.New(yaml.FormatError(err, false, true)))
	}

	if err := validateSchema(raw); err != nil {
		return nil, apperrors.NewParseError("", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, apperrors.NewParseError("", errors.New(yaml.FormatError(err, false, true)))
	}

	if err := p.Validate(); err != nil {
		return nil, apperrors.NewParseError("", err)
	}
	return &p, nil
}

// Validate checks the invariants the schema cannot express.
func (p *Profile) Validate() error {
	var problems []string

	products := make(map[string]bool, len(p.Prod.Products))
	for _, prod := range p.Prod.Products {
		if products[prod.Name] {
			problems = append(problems, fmt.Sprintf("duplicate product name: %s", prod.Name))
		}
		products[prod.Name] = true
	}

	elements := make(map[string]bool, len(p.Elements))
	for _, el := range p.Elements {
		if elements[el.Name] {
			problems = append(problems, fmt.Sprintf("duplicate element name: %s", el.Name))
		}
		elements[el.Name] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("profile validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// validateSchema runs the embedded JSON Schema over a decoded document.
// The document is round-tripped through JSON so integers reach the
// validator as json.Number regardless of the source format.
func validateSchema(raw interface{}) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("profile is not representable as JSON: %w", err)
	}
	var instance interface{}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("failed to decode profile for validation: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return formatSchemaError(verr)
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func formatSchemaError(err *jsonschema.ValidationError) error {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)

	return fmt.Errorf("profile does not match schema:\n  - %s", strings.Join(messages, "\n  - "))
}
