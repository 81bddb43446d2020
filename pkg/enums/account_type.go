package enums

import "fmt"

// AccountType is the privilege tier of an account.
type AccountType string

const (
	AccountTypeUser  AccountType = "user"
	AccountTypeAdmin AccountType = "admin"
	AccountTypeRoot  AccountType = "root"
)

var validAccountTypes = []AccountType{
	AccountTypeUser,
	AccountTypeAdmin,
	AccountTypeRoot,
}

// String implements fmt.Stringer.
func (a AccountType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountType.
func (a AccountType) IsValid() bool {
	for _, candidate := range validAccountTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the type may use admin endpoints.
func (a AccountType) IsPrivileged() bool {
	return a == AccountTypeAdmin || a == AccountTypeRoot
}

// ParseAccountType converts raw input into an AccountType.
func ParseAccountType(value string) (AccountType, error) {
	for _, candidate := range validAccountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account type %q", value)
}
