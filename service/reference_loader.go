package service

import (
	"errors"
	"fmt"
	"os"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/reference"
)

// ReferenceLoader turns a ground-truth file into a reference model over a
// fragment store.
type ReferenceLoader struct{}

// NewReferenceLoader creates a new reference loader
func NewReferenceLoader() *ReferenceLoader {
	return &ReferenceLoader{}
}

// Load decodes the file at path (format inferred from its extension) and
// builds the model. A missing file is a FileNotFound error; anything wrong
// with the content is a MalformedReferenceError.
func (l *ReferenceLoader) Load(store domain.FragmentStore, path string) (*reference.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, domain.NewMalformedReferenceError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	decls, err := reference.Decode(f, reference.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	model, err := reference.Build(store, decls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}
