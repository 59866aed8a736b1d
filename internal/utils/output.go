package utils

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// OutputJSON prints data to stdout as indented JSON. Used by commands
// that offer a machine-readable view of ledger entries.
func OutputJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// OutputYAML prints data to stdout as YAML, matching the format of the
// configuration file it usually echoes.
func OutputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
