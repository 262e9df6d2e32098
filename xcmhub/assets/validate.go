package assets

import (
	"github.com/shopspring/decimal"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
)

// ValidateCurrencySpec checks that exactly one selector is set and that it is well formed
func ValidateCurrencySpec(c models.CurrencySpec) error {
	switch c.SetCount() {
	case 0:
		return models.NewInvalidCurrencyError("", "no currency specified")
	case 1:
	default:
		return models.NewInvalidCurrencyError("", "currency must be given by exactly one of symbol, id, location or multi-assets")
	}
	if c.Symbol != nil && c.Symbol.Value == "" {
		return models.NewInvalidCurrencyError("", "empty currency symbol")
	}
	if c.Symbol != nil {
		switch c.Symbol.Kind {
		case models.SymbolAny, models.SymbolNative, models.SymbolForeign, models.SymbolForeignAbstract:
		default:
			return models.NewInvalidCurrencyError("", "unknown symbol kind %q", c.Symbol.Kind)
		}
	}
	if c.Location != nil {
		if err := c.Location.Validate(); err != nil {
			return models.NewInvalidCurrencyError("", "invalid currency location").WithCause(err)
		}
	}
	return nil
}

// ValidateAmount requires a positive integer amount for single-asset
// transfers and no amount for multi-asset ones
func ValidateAmount(amount string, multiAsset bool) error {
	if multiAsset {
		if amount != "" {
			return models.NewInvalidParameterError("amount must be omitted for multi-asset transfers, each asset carries its own")
		}
		return nil
	}
	if amount == "" {
		return models.NewInvalidParameterError("amount is required")
	}
	return checkPositive("amount", amount)
}

func checkPositive(name, amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return models.NewInvalidParameterError("%s %q is not a number", name, amount)
	}
	// rejects exponents, fractions and leading zeros
	if !d.IsInteger() || d.String() != amount {
		return models.NewInvalidParameterError("%s %q must be an integer in the smallest unit", name, amount)
	}
	if !d.IsPositive() {
		return models.NewInvalidParameterError("%s must be positive", name)
	}
	return nil
}

// ValidateMultiAssets checks the multi-asset array and returns the fee asset index.
// An entry flagged as fee asset selects the index when none is given.
func ValidateMultiAssets(entries []models.MultiAssetEntry, feeAsset *int) (int, error) {
	if len(entries) == 0 {
		return 0, models.NewInvalidCurrencyError("", "multi-asset list is empty")
	}

	flagged := -1
	for i, e := range entries {
		if err := e.Location.Validate(); err != nil {
			return 0, models.NewInvalidCurrencyError("", "multi-asset %d has an invalid location", i).WithCause(err)
		}
		if err := checkPositive("multi-asset amount", e.Amount); err != nil {
			return 0, err
		}
		if e.IsFeeAsset {
			if flagged >= 0 {
				return 0, models.NewInvalidCurrencyError("", "only one multi-asset can be the fee asset")
			}
			flagged = i
		}
	}

	if len(entries) == 1 {
		if feeAsset != nil {
			return 0, models.NewInvalidCurrencyError("", "fee asset index is not allowed for a single multi-asset")
		}
		return 0, nil
	}

	switch {
	case feeAsset == nil && flagged < 0:
		return 0, models.NewInvalidCurrencyError("", "fee asset index is required when transferring %d assets", len(entries))
	case feeAsset == nil:
		return flagged, nil
	case *feeAsset < 0 || *feeAsset >= len(entries):
		return 0, models.NewInvalidCurrencyError("", "fee asset index %d is out of range [0, %d)", *feeAsset, len(entries))
	case flagged >= 0 && flagged != *feeAsset:
		return 0, models.NewInvalidCurrencyError("", "fee asset index %d does not match the flagged asset %d", *feeAsset, flagged)
	default:
		return *feeAsset, nil
	}
}

// ValidateWrapperAllowed rejects native/foreign symbol tags on chains that
// cannot look them up
func ValidateWrapperAllowed(chain *registry.Chain, c models.CurrencySpec) error {
	if chain.AssetCheckEnabled || c.Symbol == nil || c.Symbol.Kind == models.SymbolAny {
		return nil
	}
	return models.NewInvalidCurrencyError(chain.ID,
		"%s symbols need an asset table lookup, which the chain disables", c.Symbol.Kind).
		WithHint("pass the plain symbol")
}
