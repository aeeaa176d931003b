package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alfredo-dkl/golden-review-frontend/internal/apiclient"
)

func TestMapBackendUser(t *testing.T) {
	tests := []struct {
		name    string
		backend apiclient.BackendUser
		want    User
	}{
		{
			name: "full record",
			backend: apiclient.BackendUser{
				ID:       "u-1",
				Email:    "jdoe@goldentrust.com",
				Name:     "John Doe",
				Position: "Senior Auditor",
				Roles:    []string{"auditor"},
			},
			want: User{
				ID:             "u-1",
				Email:          "jdoe@goldentrust.com",
				EmailVerified:  true,
				Fullname:       "John Doe",
				FirstName:      "John",
				LastName:       "Doe",
				Username:       "jdoe",
				CompanyName:    CompanyName,
				Occupation:     "Senior Auditor",
				Roles:          []string{"auditor"},
				Language:       "en",
				MicrosoftLogin: true,
			},
		},
		{
			name: "multi-part last name",
			backend: apiclient.BackendUser{
				ID:    "u-2",
				Email: "mgarcia@goldentrust.com",
				Name:  "Maria Garcia Lopez",
			},
			want: User{
				ID:             "u-2",
				Email:          "mgarcia@goldentrust.com",
				EmailVerified:  true,
				Fullname:       "Maria Garcia Lopez",
				FirstName:      "Maria",
				LastName:       "Garcia Lopez",
				Username:       "mgarcia",
				CompanyName:    CompanyName,
				Roles:          []string{},
				Language:       "en",
				MicrosoftLogin: true,
			},
		},
		{
			name: "single-word name",
			backend: apiclient.BackendUser{
				ID:    "u-3",
				Email: "cher@goldentrust.com",
				Name:  "Cher",
			},
			want: User{
				ID:             "u-3",
				Email:          "cher@goldentrust.com",
				EmailVerified:  true,
				Fullname:       "Cher",
				FirstName:      "Cher",
				LastName:       "",
				Username:       "cher",
				CompanyName:    CompanyName,
				Roles:          []string{},
				Language:       "en",
				MicrosoftLogin: true,
			},
		},
		{
			name:    "empty record falls back to id",
			backend: apiclient.BackendUser{ID: "u-4"},
			want: User{
				ID:             "u-4",
				EmailVerified:  true,
				Username:       "u-4",
				CompanyName:    CompanyName,
				Roles:          []string{},
				Language:       "en",
				MicrosoftLogin: true,
			},
		},
		{
			name: "admin role",
			backend: apiclient.BackendUser{
				ID:    "u-5",
				Email: "admin@goldentrust.com",
				Name:  "Ada Admin",
				Roles: []string{"auditor", AdminRole},
			},
			want: User{
				ID:             "u-5",
				Email:          "admin@goldentrust.com",
				EmailVerified:  true,
				Fullname:       "Ada Admin",
				FirstName:      "Ada",
				LastName:       "Admin",
				Username:       "admin",
				CompanyName:    CompanyName,
				Roles:          []string{"auditor", AdminRole},
				Language:       "en",
				IsAdmin:        true,
				MicrosoftLogin: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapBackendUser(tt.backend)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapBackendUserNilRoles(t *testing.T) {
	got := MapBackendUser(apiclient.BackendUser{ID: "u-6", Email: "x@goldentrust.com"})
	assert.NotNil(t, got.Roles)
	assert.Empty(t, got.Roles)
}
