package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validate validates a configuration file against the JSON schema
func Validate(configFile string) error {
	schemaLoader := gojsonschema.NewStringLoader(Schema)
	documentLoader := gojsonschema.NewReferenceLoader("file://" + configFile)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		var b strings.Builder
		b.WriteString("configuration file is not valid:")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "\n  - %s", desc)
		}
		return fmt.Errorf("%s", b.String())
	}

	return nil
}
