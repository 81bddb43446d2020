package accounts

import (
	"encoding/json"
	"time"

	"github.com/openbiocard/openbiocard-backend/pkg/enums"
)

// Record is the authoritative account state kept in the account's shard.
type Record struct {
	Username         string            `json:"username"`
	PasswordHash     string            `json:"passwordHash"`
	Type             enums.AccountType `json:"type"`
	Token            string            `json:"token"`
	Email            string            `json:"email,omitempty"`
	EmailVerified    bool              `json:"emailVerified"`
	VerificationCode string            `json:"verificationCode,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Profile is the public card content. List items are free-form JSON objects
// owned by the frontend.
type Profile struct {
	Name               string            `json:"name"`
	Avatar             string            `json:"avatar"`
	Bio                string            `json:"bio"`
	Location           string            `json:"location"`
	Website            string            `json:"website"`
	Contacts           []json.RawMessage `json:"contacts"`
	SocialLinks        []json.RawMessage `json:"socialLinks"`
	Projects           []json.RawMessage `json:"projects"`
	Gallery            []json.RawMessage `json:"gallery"`
	CurrentCompany     string            `json:"currentCompany"`
	CurrentCompanyLink string            `json:"currentCompanyLink"`
	CurrentSchool      string            `json:"currentSchool"`
	CurrentSchoolLink  string            `json:"currentSchoolLink"`
	WorkExperiences    []json.RawMessage `json:"workExperiences"`
	SchoolExperiences  []json.RawMessage `json:"schoolExperiences"`
}

// WithDefaults returns p with every list materialized so it encodes as [].
func (p Profile) WithDefaults() Profile {
	for _, list := range []*[]json.RawMessage{
		&p.Contacts, &p.SocialLinks, &p.Projects, &p.Gallery,
		&p.WorkExperiences, &p.SchoolExperiences,
	} {
		if *list == nil {
			*list = []json.RawMessage{}
		}
	}
	return p
}

// TokenCheck is the result of VerifyToken. Invalid checks carry no other data.
type TokenCheck struct {
	Valid         bool              `json:"valid"`
	Type          enums.AccountType `json:"type,omitempty"`
	Username      string            `json:"username,omitempty"`
	Email         string            `json:"email,omitempty"`
	EmailVerified bool              `json:"emailVerified"`
}
