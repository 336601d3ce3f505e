package receivable

import "strings"

// RefNbrWidth is the fixed width Acumatica uses for numeric reference numbers.
const RefNbrWidth = 6

// NormalizeRefNbr returns the canonical form of an Acumatica reference number.
// Numeric-only references shorter than RefNbrWidth are left-zero-padded to
// exactly RefNbrWidth digits; everything else is returned trimmed but
// otherwise unchanged. This function is the single normalization point for
// reference numbers: it must be applied before every lookup and every write,
// or the same upstream document ends up stored under multiple keys.
func NormalizeRefNbr(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if len(ref) >= RefNbrWidth || !isDigits(ref) {
		return ref
	}
	return strings.Repeat("0", RefNbrWidth-len(ref)) + ref
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
