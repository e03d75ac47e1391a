package embedded

import (
	_ "embed"
)

//go:embed profile.schema.json
var profileSchema []byte

// ProfileSchema returns the JSON Schema for product profile documents.
func ProfileSchema() []byte {
	return profileSchema
}
