package repository

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed statsdb.schema.json
var statsSchema []byte

// validateDocument checks raw JSON against the embedded stats schema.
func validateDocument(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(statsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}
