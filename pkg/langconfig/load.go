package langconfig

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed languages/*.yaml
var builtinFS embed.FS

//go:embed language-config.schema.json
var schemaJSON []byte

const builtinDir = "languages"

// ErrSchemaViolation reports a config document that does not match the schema.
var ErrSchemaViolation = errors.New("language config does not match schema")

// Builtin returns the names of the embedded language configurations.
func Builtin() []string {
	entries, err := fs.ReadDir(builtinFS, builtinDir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}

	slices.Sort(names)

	return names
}

// Load returns a fresh copy of the embedded configuration for a language.
func Load(name string) (*LanguageConfig, error) {
	content, err := builtinFS.ReadFile(path.Join(builtinDir, name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguageConfig, name)
	}

	return Parse(bytes.NewReader(content))
}

// LoadFile reads a language configuration from disk.
func LoadFile(filename string) (*LanguageConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open language config: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return cfg, nil
}

// Parse decodes a YAML language configuration, validates it against the
// embedded schema and then checks the semantic constraints.
func Parse(reader io.Reader) (*LanguageConfig, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading language config: %w", err)
	}

	var document any

	if err := yaml.Unmarshal(content, &document); err != nil {
		return nil, fmt.Errorf("decoding language config: %w", err)
	}

	if err := validateSchema(document); err != nil {
		return nil, err
	}

	var cfg LanguageConfig

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("decoding language config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateSchema(document any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("validating language config: %w", err)
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
