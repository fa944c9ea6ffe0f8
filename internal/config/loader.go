package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envExpr matches ${VAR} and ${VAR:-default} expressions. Secrets like the
// bot token are expected to arrive this way rather than living in the file.
var envExpr = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the promowatch YAML configuration from path, expanding
// environment variable references before parsing.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// expandEnv substitutes ${VAR} and ${VAR:-default} references. A reference
// with neither an environment value nor a default is an error; all missing
// names are reported together so the user fixes them in one pass.
func expandEnv(raw []byte) ([]byte, error) {
	var out bytes.Buffer
	var missing []string

	last := 0
	for _, loc := range envExpr.FindAllSubmatchIndex(raw, -1) {
		out.Write(raw[last:loc[0]])
		last = loc[1]

		name := string(raw[loc[2]:loc[3]])
		if value, ok := os.LookupEnv(name); ok {
			out.WriteString(value)
			continue
		}
		if loc[4] >= 0 {
			out.Write(raw[loc[4]:loc[5]])
			continue
		}

		missing = append(missing, name)
		out.Write(raw[loc[0]:loc[1]])
	}
	out.Write(raw[last:])

	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved variables: %s", strings.Join(missing, ", "))
	}
	return out.Bytes(), nil
}
