package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a credential may come from. Lookup order is File,
// Value, the Env variable, then the file named by Env + "_FILE".
type Source struct {
	// Name is used in error messages.
	Name  string
	Value string
	File  string
	// Env is consulted only when neither File nor Value is configured.
	Env string
}

var lookupEnv = os.LookupEnv

// Load returns the trimmed secret or an error naming the missing credential.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		return readFile(name, file)
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	env := strings.TrimSpace(src.Env)
	if env != "" {
		if v, ok := lookupEnv(env); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
		if file, ok := lookupEnv(env + "_FILE"); ok && strings.TrimSpace(file) != "" {
			return readFile(name, strings.TrimSpace(file))
		}
		return "", fmt.Errorf("%s is not configured (set %s or %s_FILE)", name, env, env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}

func readFile(name, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%s file %q is empty", name, file)
	}
	return secret, nil
}
