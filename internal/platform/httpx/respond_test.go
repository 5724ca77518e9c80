package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/bizhub/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.NotFoundf("role %s", "x"), http.StatusNotFound},
		{shared.Conflictf("dup"), http.StatusConflict},
		{shared.Validationf("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", shared.ErrForbidden), http.StatusForbidden},
		{shared.ErrUnauthorized, http.StatusUnauthorized},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
}

func TestUnauthorizedIsUniform(t *testing.T) {
	a := httptest.NewRecorder()
	RespondError(a, fmt.Errorf("token expired: %w", shared.ErrUnauthorized))
	b := httptest.NewRecorder()
	RespondError(b, shared.ErrInvalidCredentials)
	require.Equal(t, a.Body.String(), b.Body.String())

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(a.Body.Bytes(), &body))
	require.Equal(t, UnauthorizedDetail, body.Detail)
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("pq: connection refused"))
	require.NotContains(t, rr.Body.String(), "connection refused")
}

type bindTarget struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func TestBindValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","name":""}`))
	var dst bindTarget
	err := Bind(req, &dst)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "email (email)")
	require.Contains(t, err.Error(), "name (required)")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.io","name":"A"}`))
	require.NoError(t, Bind(req, &dst))
	require.Equal(t, "a@b.io", dst.Email)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.io","name":"A","extra":1}`))
	require.ErrorIs(t, Bind(req, &dst), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, Bind(req, &dst), shared.ErrValidation)
}
