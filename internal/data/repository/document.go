package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/store"
	"cinema-core/pkg/utils"

	"github.com/google/uuid"
)

// validateEntity applies the collection schema carried by the entity's
// validate tags.
func validateEntity(v any) error {
	if errs := utils.ValidateStruct(v); errs != nil {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, utils.FormatValidationErrors(errs))
	}
	return nil
}

// storeError keeps no-match outcomes recognizable and turns everything
// else, a reused ID included, into a store fault.
func storeError(op string, err error) error {
	if errors.Is(err, store.ErrNoMatch) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperr.Fault(op, err)
}

func encode(op string, v any) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Fault(op, fmt.Errorf("encode document: %w", err))
	}
	return doc, nil
}

func idStrings(ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id.String())
	}
	return out
}
