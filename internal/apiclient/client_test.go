package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL, 5*time.Second)
	require.NoError(t, err)
	return client
}

func respond(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCreateSession(t *testing.T) {
	var (
		gotBody      map[string]SessionUser
		gotRequestID string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(t, w, http.StatusOK, SessionResponse{
			Success: true,
			User:    BackendUser{ID: "u-1", Email: "jdoe@goldentrust.com", Name: "John Doe"},
		})
	})

	client := newTestClient(t, mux)
	resp, err := client.CreateSession(context.Background(), SessionUser{
		Email:       "jdoe@goldentrust.com",
		MicrosoftID: "ms-oid-1",
		Name:        "John Doe",
		FirstName:   "John",
		LastName:    "Doe",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "u-1", resp.User.ID)

	require.Contains(t, gotBody, "user")
	assert.Equal(t, "jdoe@goldentrust.com", gotBody["user"].Email)
	assert.Equal(t, "ms-oid-1", gotBody["user"].MicrosoftID)
	assert.NotEmpty(t, gotRequestID)
}

func TestSessionCookiePersistsAcrossRequests(t *testing.T) {
	var validateCookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/session", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "gt_session", Value: "cookie-1", HttpOnly: true, Path: "/"})
		respond(t, w, http.StatusOK, SessionResponse{Success: true})
	})
	mux.HandleFunc("/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("gt_session"); err == nil {
			validateCookie = cookie.Value
		}
		respond(t, w, http.StatusOK, ValidateResponse{Success: true, Valid: true})
	})

	client := newTestClient(t, mux)
	_, err := client.CreateSession(context.Background(), SessionUser{Email: "jdoe@goldentrust.com"})
	require.NoError(t, err)

	resp, err := client.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "cookie-1", validateCookie)
}

func TestErrorEnvelopeMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        any
		wantMessage string
	}{
		{
			name:        "error field",
			status:      http.StatusUnauthorized,
			body:        map[string]string{"error": "session expired"},
			wantMessage: "session expired",
		},
		{
			name:        "message field",
			status:      http.StatusForbidden,
			body:        map[string]string{"message": "admin role required"},
			wantMessage: "admin role required",
		},
		{
			name:        "empty body",
			status:      http.StatusBadGateway,
			body:        map[string]string{},
			wantMessage: "request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, tt.status, tt.body)
			})
			client := newTestClient(t, mux)

			_, err := client.CurrentUser(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestPageParamsQuery(t *testing.T) {
	assert.Empty(t, PageParams{}.query())

	full := PageParams{Page: 2, Limit: 50, Search: "acme", SortBy: "effective_date", SortOrder: SortDesc}
	assert.Equal(t, map[string]string{
		"page":      "2",
		"limit":     "50",
		"search":    "acme",
		"sortBy":    "effective_date",
		"sortOrder": "desc",
	}, full.query())
}

func TestNewBusinessSendsPagination(t *testing.T) {
	var gotQuery map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/policies/new-business", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		premium := 1250.50
		respond(t, w, http.StatusOK, PolicyPage{
			Success:    true,
			Count:      1,
			Page:       2,
			Limit:      25,
			TotalPages: 1,
			Data: []Policy{{
				PolicyNumber: "GT-001",
				InsuredName:  "Acme LLC",
				Carrier:      "Citizens",
				Premium:      &premium,
			}},
		})
	})

	client := newTestClient(t, mux)
	page, err := client.NewBusiness(context.Background(), PageParams{Page: 2, Limit: 25, Search: "acme"})
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"25"}, gotQuery["limit"])
	assert.Equal(t, []string{"acme"}, gotQuery["search"])

	require.Len(t, page.Data, 1)
	assert.Equal(t, "GT-001", page.Data[0].PolicyNumber)
	require.NotNil(t, page.Data[0].Premium)
	assert.Equal(t, 1250.50, *page.Data[0].Premium)
}

func TestRenewals(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/policies/renewals", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, PolicyPage{Success: true, Data: []Policy{{PolicyNumber: "GT-R-001"}}})
	})

	client := newTestClient(t, mux)
	page, err := client.Renewals(context.Background(), PageParams{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "GT-R-001", page.Data[0].PolicyNumber)
}

func TestUserCarriers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/carriers", func(w http.ResponseWriter, r *http.Request) {
		name := "Citizens"
		respond(t, w, http.StatusOK, UserCarrierPage{
			Success: true,
			Data: []UserCarrierRow{{
				UserID:   "u-1",
				Name:     "John Doe",
				Email:    "jdoe@goldentrust.com",
				Carriers: []UserCarrierLink{{CarrierID: "c-1", CarrierName: &name}},
			}},
		})
	})

	client := newTestClient(t, mux)
	page, err := client.UserCarriers(context.Background(), PageParams{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Len(t, page.Data[0].Carriers, 1)
	assert.Equal(t, "c-1", page.Data[0].Carriers[0].CarrierID)
}

func TestUpdateUserCarriers(t *testing.T) {
	var gotBody map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/user/u-1/carriers", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(t, w, http.StatusOK, UpdateUserCarriersResponse{
			Success:    true,
			UserID:     "u-1",
			CarrierIDs: gotBody["carrierIds"],
		})
	})

	client := newTestClient(t, mux)
	resp, err := client.UpdateUserCarriers(context.Background(), "u-1", []string{"c-1", "c-2"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"c-1", "c-2"}, gotBody["carrierIds"])
	assert.Equal(t, []string{"c-1", "c-2"}, resp.CarrierIDs)
}

func TestAvailableCarriers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/carriers/available", func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, CarriersResponse{
			Success:  true,
			Carriers: []Carrier{{ID: "c-1", Name: "Citizens"}, {ID: "c-2", Name: "Progressive"}},
		})
	})

	client := newTestClient(t, mux)
	resp, err := client.AvailableCarriers(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Carriers, 2)
	assert.Equal(t, "Progressive", resp.Carriers[1].Name)
}

func TestUnreachableBackend(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client, err := New(server.URL, time.Second)
	require.NoError(t, err)

	_, err = client.ValidateSession(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
