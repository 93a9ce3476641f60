package env

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	EnvFileName        = "http-client.env.json"
	PrivateEnvFileName = "http-client.private.env.json"
	// SharedEnvironment holds variables merged into every environment.
	SharedEnvironment = "$shared"
)

const envFileSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "additionalProperties": {
      "type": ["string", "number", "boolean", "null", "object", "array"]
    }
  }
}`

var envSchema = gojsonschema.NewStringLoader(envFileSchema)

// Environments maps environment names to their variables.
type Environments map[string]map[string]string

type Environment struct {
	Name      string
	Variables map[string]string
	// Defined is false when Name is not declared in any environment file.
	Defined bool
}

// FindEnvironmentFile searches for name starting in the directory of
// httpFile and walking up to the filesystem root.
func FindEnvironmentFile(httpFile, name string) (string, bool) {
	dir, err := filepath.Abs(filepath.Dir(httpFile))
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadEnvironmentFile reads and validates an environment file. Non-string
// values are converted to their text form.
func LoadEnvironmentFile(path string) (Environments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment file: %w", err)
	}

	result, err := gojsonschema.Validate(envSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing environment file %s: %w", path, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("invalid environment file %s: %s", path, strings.Join(problems, "; "))
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing environment file %s: %w", path, err)
	}

	envs := make(Environments, len(raw))
	for name, vars := range raw {
		converted := make(map[string]string, len(vars))
		for k, v := range vars {
			converted[k] = stringify(v)
		}
		envs[name] = converted
	}
	return envs, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// ListEnvironments returns the sorted environment names visible to httpFile.
// A missing environment file yields an empty list.
func ListEnvironments(httpFile string) ([]string, error) {
	envs, err := loadMerged(httpFile)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(envs))
	for name := range envs {
		if name != SharedEnvironment {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadEnvironment returns the variables of the named environment for
// httpFile, with $shared values underneath and private values on top.
// An empty name, a missing environment file or an undeclared name yields
// only the shared variables.
func LoadEnvironment(httpFile, name string) (*Environment, error) {
	envs, err := loadMerged(httpFile)
	if err != nil {
		return nil, err
	}

	env := &Environment{Name: name, Variables: make(map[string]string)}
	for k, v := range envs[SharedEnvironment] {
		env.Variables[k] = v
	}
	if name == "" {
		return env, nil
	}
	vars, ok := envs[name]
	if !ok {
		return env, nil
	}
	env.Defined = true
	for k, v := range vars {
		env.Variables[k] = v
	}
	return env, nil
}

func loadMerged(httpFile string) (Environments, error) {
	merged := make(Environments)
	for _, fileName := range []string{EnvFileName, PrivateEnvFileName} {
		path, ok := FindEnvironmentFile(httpFile, fileName)
		if !ok {
			continue
		}
		envs, err := LoadEnvironmentFile(path)
		if err != nil {
			return nil, err
		}
		for name, vars := range envs {
			if merged[name] == nil {
				merged[name] = make(map[string]string)
			}
			for k, v := range vars {
				merged[name][k] = v
			}
		}
	}
	return merged, nil
}
