package session

import (
	"slices"
	"strings"

	"github.com/alfredo-dkl/golden-review-frontend/internal/apiclient"
	"github.com/alfredo-dkl/golden-review-frontend/internal/emailutil"
)

// CompanyName labels every mapped user; the dashboard serves a single
// organization.
const CompanyName = "Golden Trust"

// AdminRole marks administrators in the backend's role list.
const AdminRole = "admin"

// User is the normalized identity record the presentation layer consumes.
type User struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	EmailVerified  bool     `json:"email_verified"`
	Fullname       string   `json:"fullname"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Username       string   `json:"username"`
	CompanyName    string   `json:"company_name"`
	Occupation     string   `json:"occupation"`
	Phone          string   `json:"phone"`
	Roles          []string `json:"roles"`
	Pic            string   `json:"pic"`
	Language       string   `json:"language"`
	IsAdmin        bool     `json:"is_admin"`
	MicrosoftLogin bool     `json:"is_microsoft_login"`
}

// MapBackendUser maps the backend's user shape into the normalized User.
// Total over its input: a missing name splits to empty first/last name, the
// username falls back to the backend id when the email has no local part,
// and a nil role list maps to an empty one.
func MapBackendUser(backend apiclient.BackendUser) User {
	first, last := splitName(backend.Name)

	username := emailutil.LocalPart(backend.Email)
	if username == "" {
		username = backend.ID
	}

	roles := backend.Roles
	if roles == nil {
		roles = []string{}
	}

	return User{
		ID:             backend.ID,
		Email:          backend.Email,
		EmailVerified:  true,
		Fullname:       backend.Name,
		FirstName:      first,
		LastName:       last,
		Username:       username,
		CompanyName:    CompanyName,
		Occupation:     backend.Position,
		Roles:          roles,
		Language:       "en",
		IsAdmin:        slices.Contains(roles, AdminRole),
		MicrosoftLogin: true,
	}
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
