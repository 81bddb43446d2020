package identity

import (
	"github.com/openbiocard/openbiocard-backend/internal/accounts"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
)

// SignupInput is a self-service registration. The account type is always user.
type SignupInput struct {
	Username string
	Password string
	Email    string
}

type SignupResult struct {
	Token             string `json:"token"`
	NeedsVerification bool   `json:"needsVerification"`
}

type SigninResult struct {
	Token         string            `json:"token"`
	Username      string            `json:"username"`
	Type          enums.AccountType `json:"type"`
	EmailVerified bool              `json:"emailVerified"`
}

// Principal is the authenticated caller.
type Principal struct {
	Username      string            `json:"username"`
	Type          enums.AccountType `json:"type"`
	Email         string            `json:"email,omitempty"`
	EmailVerified bool              `json:"emailVerified"`
}

// CreateUserInput is an admin-initiated account creation.
type CreateUserInput struct {
	Username string
	Password string
	Type     enums.AccountType
	Email    string
}

type CreateUserResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// ProfileView is the owner's view of their card.
type ProfileView struct {
	Username      string            `json:"username"`
	Type          enums.AccountType `json:"type"`
	Email         string            `json:"email,omitempty"`
	EmailVerified bool              `json:"emailVerified"`
	accounts.Profile
}

// PublicProfile is what anonymous visitors see; it never carries the email.
type PublicProfile struct {
	Username string            `json:"username"`
	Type     enums.AccountType `json:"type"`
	accounts.Profile
}
