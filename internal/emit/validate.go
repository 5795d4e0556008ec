package emit

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/ir"
)

// Validate loads an encoded document (JSON or YAML) through kin-openapi and
// runs its structural validation
func Validate(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return errors.WrapEmitError("load", fmt.Errorf("failed to load OpenAPI document: %w", err))
	}
	if err := doc.Validate(loader.Context); err != nil {
		return errors.WrapEmitError("validate", fmt.Errorf("OpenAPI validation error: %w", err))
	}
	return nil
}

// ValidateDocument renders the document as JSON and validates it
func ValidateDocument(ctx context.Context, doc *ir.Document) error {
	data, err := Render(doc, FormatJSON)
	if err != nil {
		return err
	}
	return Validate(ctx, data)
}
