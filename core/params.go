// Package core provides parameter sets and validation for the
// mceliece-cascade cryptosystem.
package core

import (
	"fmt"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

// HammingParams is the base triple of the Hamming(15,11) variant: 11
// message bits and 1 correctable error per 15-bit block.
var HammingParams = mcecascade.CodeParams{
	Variant: mcecascade.Hamming,
	NBlock:  15,
	KBlock:  11,
	TBlock:  1,
}

// BCHParams is the base triple of the BCH(15,7) variant: 7 message bits
// and 2 correctable errors per 15-bit block.
var BCHParams = mcecascade.CodeParams{
	Variant: mcecascade.BCH,
	NBlock:  15,
	KBlock:  7,
	TBlock:  2,
}

// GetParams returns the base-code parameters for the given variant.
func GetParams(variant mcecascade.Variant) (mcecascade.CodeParams, error) {
	switch variant {
	case mcecascade.Hamming:
		return HammingParams, nil
	case mcecascade.BCH:
		return BCHParams, nil
	default:
		return mcecascade.CodeParams{}, fmt.Errorf("%w: unknown variant %q", mcecascade.ErrInvalidParameter, variant)
	}
}

// Expand derives the cascade dimensions for L copies of the base code
// and validates the result.
func Expand(code mcecascade.CodeParams, L int) (mcecascade.CascadeParams, error) {
	if L < 1 {
		return mcecascade.CascadeParams{}, fmt.Errorf("%w: L must be at least 1, got %d", mcecascade.ErrInvalidParameter, L)
	}
	if L > utils.MaxBlocks {
		return mcecascade.CascadeParams{}, fmt.Errorf("%w: L %d exceeds limit %d", mcecascade.ErrInvalidParameter, L, utils.MaxBlocks)
	}
	params := mcecascade.CascadeParams{
		CodeParams: code,
		L:          L,
		N:          L * code.NBlock,
		K:          L * code.KBlock,
		T:          L * code.TBlock,
	}
	if err := ValidateParams(params); err != nil {
		return mcecascade.CascadeParams{}, err
	}
	return params, nil
}

// ValidateParams validates a cascade parameter set for consistency.
func ValidateParams(p mcecascade.CascadeParams) error {
	if _, err := GetParams(p.Variant); err != nil {
		return err
	}
	if p.NBlock < 1 || p.NBlock > 16 {
		return fmt.Errorf("%w: block length %d does not fit a 16-bit word", mcecascade.ErrInvalidParameter, p.NBlock)
	}
	if p.KBlock < 1 || p.KBlock >= p.NBlock {
		return fmt.Errorf("%w: message bits per block must be in [1, %d), got %d", mcecascade.ErrInvalidParameter, p.NBlock, p.KBlock)
	}
	if p.TBlock < 1 {
		return fmt.Errorf("%w: correction capacity must be positive, got %d", mcecascade.ErrInvalidParameter, p.TBlock)
	}
	if p.L < 1 {
		return fmt.Errorf("%w: L must be at least 1, got %d", mcecascade.ErrInvalidParameter, p.L)
	}
	if p.L > utils.MaxBlocks {
		return fmt.Errorf("%w: L %d exceeds limit %d", mcecascade.ErrInvalidParameter, p.L, utils.MaxBlocks)
	}
	if p.N != p.L*p.NBlock || p.K != p.L*p.KBlock || p.T != p.L*p.TBlock {
		return fmt.Errorf("%w: cascade dimensions do not match L copies of the base triple", mcecascade.ErrInvalidParameter)
	}
	return nil
}
