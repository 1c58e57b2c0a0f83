package targets

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

// Names end up in generated shell commands, so keep them to a safe charset.
var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Loader reads the targets file.
type Loader struct {
	filePath string
	lookup   func(string) (string, bool)
}

// NewLoader creates a loader that expands ${VAR} from the process environment.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		lookup:   os.LookupEnv,
	}
}

// Load reads, expands, parses and validates the targets file.
func (l *Loader) Load() ([]domain.Target, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	return Parse(data, l.lookup)
}

// Parse is Load without the file read. Unset variables expand to "".
func Parse(data []byte, lookup func(string) (string, bool)) ([]domain.Target, error) {
	expanded := os.Expand(string(data), func(key string) string {
		v, _ := lookup(key)
		return v
	})

	var file File
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("failed to parse targets yaml: %w", err)
	}

	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined")
	}

	seen := make(map[string]bool, len(file.Targets))
	out := make([]domain.Target, 0, len(file.Targets))
	for i, t := range file.Targets {
		if t.InstanceID == "" {
			t.InstanceID = file.Defaults.InstanceID
		}
		if t.Port == 0 {
			t.Port = file.Defaults.Port
		}
		t = t.WithDefaults(file.Defaults.HealthPath)

		if err := Validate(t); err != nil {
			return nil, fmt.Errorf("target #%d: %w", i+1, err)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("target #%d: duplicate name %q", i+1, t.Name)
		}
		seen[t.Name] = true
		out = append(out, t)
	}

	return out, nil
}

// Validate checks the fields the verifier cannot do without.
func Validate(t domain.Target) error {
	if !validName.MatchString(t.Name) {
		return fmt.Errorf("invalid name %q", t.Name)
	}
	if t.InstanceID == "" {
		return fmt.Errorf("%s: instance_id is required", t.Name)
	}
	if !validName.MatchString(t.Container) {
		return fmt.Errorf("%s: invalid container %q", t.Name, t.Container)
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("%s: port out of range: %d", t.Name, t.Port)
	}
	return nil
}
