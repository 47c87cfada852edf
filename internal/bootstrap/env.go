package bootstrap

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads a dotenv-style file into a key-value map. A missing file
// is not an error: the variables may already be present in the shell
// environment, so the loader simply returns an empty map. Comment lines
// (leading '#') and blank lines are skipped by the parser; empty keys are
// dropped.
func LoadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	delete(vals, "")
	return vals, nil
}

// Merge overlays each override map onto base, in order. Later maps win on
// key conflicts; none of the inputs are mutated.
func Merge(base map[string]string, overrides ...map[string]string) map[string]string {
	merged := make(map[string]string, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for _, override := range overrides {
		for k, v := range override {
			merged[k] = v
		}
	}
	return merged
}

// ToEnviron flattens an environment map into the KEY=VALUE slice form
// expected by exec. Keys are sorted so the output is deterministic.
func ToEnviron(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+env[k])
	}
	return environ
}
