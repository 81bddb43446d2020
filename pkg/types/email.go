package types

import "strings"

// NormalizeEmail lower-cases and trims an address. Both the account record
// and the directory compare emails in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
