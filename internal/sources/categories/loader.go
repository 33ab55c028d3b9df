package categories

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Loader reads a categories.yaml file.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

var templateVarRe = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Load reads and parses the file. Template placeholders such as
// {{STASH_VAR_X}} are replaced with empty strings before parsing.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read categories file: %w", err)
	}
	data = templateVarRe.ReplaceAll(data, []byte(`""`))

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse categories yaml: %w", err)
	}
	return f, nil
}
