package apiclient

import (
	"fmt"
	"strconv"
	"time"
)

// BackendUser is the user record as the backend stores it.
type BackendUser struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Position   string   `json:"position"`
	Roles      []string `json:"roles,omitempty"`
}

// SessionUser is the verified external identity posted to /auth/session.
type SessionUser struct {
	Email       string   `json:"email"`
	MicrosoftID string   `json:"microsoftId"`
	Name        string   `json:"name,omitempty"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Position    string   `json:"position,omitempty"`
	Department  string   `json:"department,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// SessionResponse is returned by POST /auth/session and POST /auth/logout.
type SessionResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    BackendUser `json:"user"`
}

// ValidateResponse is returned by GET /auth/validate.
type ValidateResponse struct {
	Success bool        `json:"success"`
	Valid   bool        `json:"valid"`
	User    BackendUser `json:"user"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	Success bool        `json:"success"`
	User    BackendUser `json:"user"`
}

// Policy is one insurance policy row.
type Policy struct {
	PolicyNumber  string    `json:"policy_number"`
	InsuredName   string    `json:"insured_name"`
	EffectiveDate time.Time `json:"effective_date"`
	ExpDate       time.Time `json:"exp_date"`
	Carrier       string    `json:"carrier"`
	Premium       *float64  `json:"premium"`
	CSR           string    `json:"csr"`
}

// PolicyPage is a paginated policy listing.
type PolicyPage struct {
	Success    bool     `json:"success"`
	Count      int      `json:"count"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
	Data       []Policy `json:"data"`
}

// Carrier is an insurance carrier available for assignment.
type Carrier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CarriersResponse is returned by GET /carriers/available.
type CarriersResponse struct {
	Success  bool      `json:"success"`
	Carriers []Carrier `json:"carriers"`
}

// UserCarrierLink associates a user with a carrier.
type UserCarrierLink struct {
	CarrierID   string  `json:"carrierId"`
	CarrierName *string `json:"carrierName"`
}

// UserCarrierRow is one user with their assigned carriers.
type UserCarrierRow struct {
	UserID     string            `json:"userId"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Department *string           `json:"department,omitempty"`
	Position   *string           `json:"position,omitempty"`
	Carriers   []UserCarrierLink `json:"carriers"`
}

// UserCarrierPage is a paginated user-to-carrier listing.
type UserCarrierPage struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
	Data       []UserCarrierRow `json:"data"`
}

// UpdateUserCarriersResponse is returned by PUT /user/{id}/carriers.
type UpdateUserCarriersResponse struct {
	Success    bool     `json:"success"`
	UserID     string   `json:"userId"`
	CarrierIDs []string `json:"carrierIds"`
}

// SortOrder for paginated listings.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PageParams control pagination, search, and sorting of listing endpoints.
// Zero values are omitted from the query string.
type PageParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder SortOrder
}

func (p PageParams) query() map[string]string {
	params := map[string]string{}
	if p.Page > 0 {
		params["page"] = strconv.Itoa(p.Page)
	}
	if p.Limit > 0 {
		params["limit"] = strconv.Itoa(p.Limit)
	}
	if p.Search != "" {
		params["search"] = p.Search
	}
	if p.SortBy != "" {
		params["sortBy"] = p.SortBy
	}
	if p.SortOrder != "" {
		params["sortOrder"] = string(p.SortOrder)
	}
	return params
}

// APIError carries the backend's error payload for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}
