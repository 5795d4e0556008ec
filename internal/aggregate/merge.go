package aggregate

import (
	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/facts"
	"github.com/toyz/spectra/internal/normalize"
)

// Merge normalizes the facts of one fully analyzed file and adds them to the
// run. Security schemes go first so requirements of the same file resolve,
// then schemas, then routes in source order. The returned diagnostics come
// from normalization; the error is only ever ErrSealed.
func (r *Run) Merge(ff *facts.FileFacts) ([]errors.SpectraError, error) {
	if ff == nil {
		return nil, nil
	}

	var diags []errors.SpectraError
	for _, f := range ff.SecuritySchemes {
		scheme, err := normalize.SecurityScheme(f)
		if err != nil {
			diags = append(diags, err)
			continue
		}
		if err := r.AddSecurityScheme(scheme); err != nil {
			return diags, err
		}
	}

	for _, sf := range ff.Schemas {
		if err := r.AddSchema(normalize.Schema(sf)); err != nil {
			return diags, err
		}
	}

	for _, rf := range ff.Routes {
		endpoints, notes := normalize.Endpoints(rf)
		diags = append(diags, notes...)
		for _, ep := range endpoints {
			if err := r.Add(ep); err != nil {
				return diags, err
			}
		}
	}
	return diags, nil
}
