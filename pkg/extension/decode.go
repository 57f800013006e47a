package extension

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
)

//go:embed extension.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Decode parses JSONC holding one descriptor object or an array of them,
// validates every descriptor against the schema and then checks the
// descriptor and sub-projection types and the template markers.
func Decode(data []byte) ([]ProjectionExtension, error) {
	stripped := jsonc.ToJSON(data)

	var document any
	if err := json.Unmarshal(stripped, &document); err != nil {
		return nil, fmt.Errorf("parsing extension descriptors: %w", err)
	}

	var items []any

	switch doc := document.(type) {
	case []any:
		items = doc
	case map[string]any:
		items = []any{doc}
	default:
		return nil, fmt.Errorf("%w: %w", ErrSchemaViolation, errUnsupportedDescriptorShape)
	}

	descriptors := make([]ProjectionExtension, 0, len(items))

	for idx, item := range items {
		if err := validateSchema(item); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", idx, err)
		}

		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", idx, err)
		}

		var d ProjectionExtension
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", idx, err)
		}

		if err := Check(idx, d); err != nil {
			return nil, err
		}

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

// Check runs the typed checks on one descriptor. Errors name d.Source, or
// idx when the descriptor has no source.
func Check(idx int, d ProjectionExtension) error {
	if d.Type != TypeProjectionExtension {
		return &UnknownExtensionTypeError{Index: idx, Source: d.Source, Type: d.Type}
	}

	for _, sub := range d.SubProjections {
		if sub.Type != TypeChainLink && sub.Type != TypeAggregationPart {
			return &UnknownSubProjectionTypeError{Index: idx, Source: d.Source, SubProjection: sub.Name, Type: sub.Type}
		}

		if err := checkMarkers(sub); err != nil {
			return fmt.Errorf("%s: sub-projection %q: %w", where(d.Source, idx), sub.Name, err)
		}
	}

	return nil
}

func checkMarkers(sub SubProjectionDefinition) error {
	var seen []string

	for _, arg := range sub.Arguments {
		if slices.Contains(seen, arg.Name) {
			return &pattern.TemplateCompilationError{Template: sub.Template, Placeholder: arg.Name, Reason: "argument defined more than once"}
		}

		seen = append(seen, arg.Name)
	}

	for _, text := range []string{sub.Template, sub.Projection} {
		tmpl, err := pattern.ParseTemplate(text, pattern.PercentAngles)
		if err != nil {
			return err
		}

		for _, name := range tmpl.Names() {
			if _, ok := sub.argument(name); !ok {
				return &pattern.TemplateCompilationError{Template: text, Placeholder: name, Reason: "marker has no argument definition"}
			}
		}
	}

	return nil
}

func validateSchema(document any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("validating extension descriptor: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		details = append(details, resultErr.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
}

// ReadFile reads and decodes one JSON or JSONC descriptor file.
func ReadFile(path string) ([]ProjectionExtension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	descriptors, err := Decode(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for idx := range descriptors {
		descriptors[idx].Source = fmt.Sprintf("%s#%d", path, idx)
	}

	return descriptors, nil
}

// ReadPaths decodes descriptor files and, for directories, every *.json and
// *.jsonc file in them in name order. Descriptors keep file order.
func ReadPaths(paths ...string) ([]ProjectionExtension, error) {
	var all []ProjectionExtension

	for _, path := range paths {
		files, err := expand(path)
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			descriptors, err := ReadFile(file)
			if err != nil {
				return nil, err
			}

			all = append(all, descriptors...)
		}
	}

	return all, nil
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var files []string

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".json" && ext != ".jsonc") {
			continue
		}

		files = append(files, filepath.Join(path, entry.Name()))
	}

	slices.Sort(files)

	return files, nil
}
