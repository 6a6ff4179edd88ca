package recovery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/jsonx"
)

// ParseResult extracts and validates the strict-schema recovery result from
// raw adapter output. Extra keys and unknown status values are rejected.
func ParseResult(output string) (*domain.RecoveryResult, error) {
	raw, err := jsonx.ExtractJSONObject(output)
	if err != nil {
		return nil, fmt.Errorf("%w: no JSON object in adapter output", ixerrors.ErrRecoveryContract)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var result domain.RecoveryResult
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %s", ixerrors.ErrRecoveryContract, err)
	}

	if !result.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q is not fixed or unfixable", ixerrors.ErrRecoveryContract, result.Status)
	}

	return &result, nil
}
