package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			"not found",
			clinicerr.NewNotFound("visit", "abc"),
			http.StatusNotFound, "not_found",
		},
		{
			"conflict",
			clinicerr.NewConflict("visit", "updated by another user, refresh and retry"),
			http.StatusConflict, "conflict",
		},
		{
			"state transition",
			&clinicerr.StateTransitionError{Action: "release", Current: "Pending", Required: []string{"Result Ready"}},
			http.StatusConflict, "invalid_status_transition",
		},
		{
			"validation",
			clinicerr.NewValidation("patient_name", "is required"),
			http.StatusUnprocessableEntity, "validation_failed",
		},
		{
			"capacity",
			clinicerr.NewCapacity("schedule full for this window"),
			http.StatusUnprocessableEntity, "capacity_exceeded",
		},
		{
			"wrapped validation",
			errors.Join(errors.New("outer"), clinicerr.NewValidation("sku", "is required")),
			http.StatusUnprocessableEntity, "validation_failed",
		},
		{
			"unknown",
			errors.New("connection reset"),
			http.StatusInternalServerError, "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Error)
			assert.NotEmpty(t, body.Details)
		})
	}
}

func TestStateTransitionErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, &clinicerr.StateTransitionError{
		Action:   "release",
		Current:  "Completed",
		Required: []string{"Result Ready"},
	})

	body := decodeError(t, rec)
	assert.Equal(t, `action "release" is not allowed from status "Completed", requires Result Ready`, body.Details)
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2026-09-07")
	require.True(t, ok)
	assert.Equal(t, 2026, d.Year())

	_, ok = parseDate("07/09/2026")
	assert.False(t, ok)
}
