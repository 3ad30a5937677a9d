package singer

import (
	"encoding/json"
	"fmt"
	"os"
)

// renderConfig writes a config map as JSON with environment references in
// string values expanded (envsubst semantics: $VAR and ${VAR}).
func renderConfig(path string, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}
	raw, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, []byte(expandEnv(string(raw))), 0o600)
}

// renderFile copies a file, expanding environment references on the way.
func renderFile(src, dst string) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return os.WriteFile(dst, []byte(expandEnv(string(raw))), 0o600)
}

// expandEnv substitutes $VAR and ${VAR}. Unset variables expand to the
// empty string, matching envsubst.
func expandEnv(s string) string {
	return os.Expand(s, os.Getenv)
}
