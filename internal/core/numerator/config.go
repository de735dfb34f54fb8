// Package numerator provides the contract for sequential human-readable numbers.
package numerator

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "ORD")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns yearly-reset numbering with 5-digit padding.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// OrderConfig numbers orders as ORD-YYYY-NNNNN.
func OrderConfig() Config {
	return DefaultConfig("ORD")
}
