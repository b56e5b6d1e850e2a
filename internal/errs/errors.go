package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrInvalid  = errors.New("invalid")
	// ErrInvalidSource indicates a source row lacks fields required to build a gasto.
	ErrInvalidSource = errors.New("invalid_source")
	// ErrMissingForeignKey indicates a source references a catalog row that does not exist.
	ErrMissingForeignKey = errors.New("missing_foreign_key")
	// ErrInvalidRate indicates an exchange rate violates its invariants (venta >= compra > 0).
	ErrInvalidRate = errors.New("invalid_rate")
	// ErrNoRateConfigured indicates no active exchange rate exists in the system.
	ErrNoRateConfigured = errors.New("no_rate_configured")
	// ErrInvalidCurrency indicates a currency tag other than the two supported ones.
	ErrInvalidCurrency = errors.New("invalid_currency")
)
