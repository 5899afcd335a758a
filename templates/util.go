package templates

import (
	"strconv"
)

// FormatAmount formats an amount with 2 decimal places
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
