package directory

import "github.com/openbiocard/openbiocard-backend/pkg/enums"

// Entry is the directory's projection of one account.
type Entry struct {
	Username      string            `json:"username"`
	Type          enums.AccountType `json:"type"`
	Email         string            `json:"email,omitempty"`
	EmailVerified bool              `json:"emailVerified"`
	Avatar        string            `json:"avatar,omitempty"`
	Bio           string            `json:"bio,omitempty"`
}

// UpsertInput describes an AddUser call. Nil pointers and empty avatar/bio
// keep whatever the directory already holds for the username.
type UpsertInput struct {
	Username      string
	Type          enums.AccountType
	Email         *string
	EmailVerified *bool
	Avatar        string
	Bio           string
}

// Settings are the site-wide display settings.
type Settings struct {
	Title string `json:"title"`
	Logo  string `json:"logo"`
}

// DefaultSettings is returned until an admin saves settings.
func DefaultSettings() Settings {
	return Settings{Title: "OpenBioCard", Logo: ""}
}

// bootstrapEntry is seeded when the directory is empty.
var bootstrapEntry = Entry{
	Username:      "admin",
	Type:          enums.AccountTypeAdmin,
	EmailVerified: true,
}
