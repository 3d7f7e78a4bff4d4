package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/payops/payment-workflow/internal/errs"
)

// ValidateTitle validates a batch title
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must be non-empty", errs.ErrValidation)
	}
	return nil
}

// ValidateAmount validates a payment amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive, got %s", errs.ErrValidation, amount)
	}
	return nil
}

// ValidateCurrency validates an ISO 4217 three-letter currency code
func ValidateCurrency(currency string) error {
	code := strings.TrimSpace(currency)
	if len(code) != 3 {
		return fmt.Errorf("%w: currency must be a three-letter code, got %q", errs.ErrValidation, currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: currency must be uppercase letters, got %q", errs.ErrValidation, currency)
		}
	}
	return nil
}

// ValidateNonEmpty validates a required free-text field
func ValidateNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must be non-empty", errs.ErrValidation, field)
	}
	return nil
}

// NormalizeCurrency uppercases and trims a currency code
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
