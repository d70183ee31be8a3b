package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gmsas95/vitalink/internal/assistant"
	"github.com/gmsas95/vitalink/internal/config"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gmsas95/vitalink/internal/identity"
	"github.com/gmsas95/vitalink/internal/reminder"
	"github.com/gmsas95/vitalink/internal/reports"
	"github.com/gmsas95/vitalink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func setupTestServer(t *testing.T) (*Server, *identity.Resolver) {
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	db, err := gorm.Open(sqlite.Dialector{Conn: conn}, &gorm.Config{})
	require.NoError(t, err)
	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	cfg := &config.Config{
		Server: config.ServerConfig{Address: "127.0.0.1", Port: 0, ReadTimeout: 5, WriteTimeout: 5},
		Security: config.SecurityConfig{
			JWTSecret:      testSecret,
			AllowOrigins:   []string{"*"},
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
		},
	}

	healthSvc := health.NewService(st.Patients(), logger)
	reminderSvc := reminder.NewService(st.Reminders(), healthSvc, logger)
	extractor := assistant.NewExtractor(assistant.NewClient(cfg.Assistant), logger)
	reportsClient := reports.NewClient(cfg.Reports)

	srv := New(cfg, logger, healthSvc, reminderSvc, extractor, reportsClient)
	return srv, identity.NewResolver(testSecret)
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func patientToken(t *testing.T, r *identity.Resolver, userID, patientID string) string {
	token, err := r.Issue(identity.Identity{SubjectID: userID, Role: identity.RolePatient, PatientDataID: patientID})
	require.NoError(t, err)
	return token
}

func doctorToken(t *testing.T, r *identity.Resolver) string {
	token, err := r.Issue(identity.Identity{SubjectID: "doc-1", Role: identity.RoleDoctor})
	require.NoError(t, err)
	return token
}

func TestAPI_HealthCheckIsPublic(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doJSON(t, srv, "GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_MetricsIsPublic(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doJSON(t, srv, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_AuthRequired(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doJSON(t, srv, "GET", "/api/reminders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, srv, "GET", "/api/reminders", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_PatientCannotReadOtherRecord(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := patientToken(t, resolver, "u1", "p1")

	resp := doJSON(t, srv, "GET", "/api/patients/p2/record", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, srv, "GET", "/api/patients/p1/record", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_DoctorCanReadAnyRecord(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := doctorToken(t, resolver)

	resp := doJSON(t, srv, "GET", "/api/patients/p1/record", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_MedicationMutationsAreDoctorOnly(t *testing.T) {
	srv, resolver := setupTestServer(t)

	med := map[string]interface{}{"name": "Aspirin", "dosage": "100mg", "isActive": true}

	patient := patientToken(t, resolver, "u1", "p1")
	resp := doJSON(t, srv, "POST", "/api/patients/p1/medications", patient, med)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	doctor := doctorToken(t, resolver)
	resp = doJSON(t, srv, "POST", "/api/patients/p1/medications", doctor, med)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_VitalFlow(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := patientToken(t, resolver, "u1", "p1")

	resp := doJSON(t, srv, "POST", "/api/patients/p1/vitals", token, map[string]interface{}{
		"type": "heartRate", "value": 72, "unit": "bpm",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, srv, "GET", "/api/patients/p1/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary health.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 100, summary.Score.Score)
}

func TestAPI_DuplicateDoseIsConflict(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := patientToken(t, resolver, "u1", "p1")

	body := map[string]interface{}{"medicineName": "Aspirin", "status": "taken"}

	resp := doJSON(t, srv, "POST", "/api/patients/p1/doses", token, body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, srv, "POST", "/api/patients/p1/doses", token, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_ReminderLifecycle(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := patientToken(t, resolver, "u1", "p1")

	resp := doJSON(t, srv, "POST", "/api/reminders", token, map[string]interface{}{
		"medicineName": "Aspirin",
		"times":        []string{"08:00"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created reminder.Reminder
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.EveryDay)

	resp = doJSON(t, srv, "POST", fmt.Sprintf("/api/reminders/%s/complete", created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Completing twice is an invalid transition.
	resp = doJSON(t, srv, "POST", fmt.Sprintf("/api/reminders/%s/complete", created.ID), token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, srv, "POST", fmt.Sprintf("/api/reminders/%s/reopen", created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, srv, "DELETE", "/api/reminders/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_ReminderOwnership(t *testing.T) {
	srv, resolver := setupTestServer(t)
	owner := patientToken(t, resolver, "u1", "p1")
	other := patientToken(t, resolver, "u2", "p2")

	resp := doJSON(t, srv, "POST", "/api/reminders", owner, map[string]interface{}{
		"medicineName": "Aspirin",
		"times":        []string{"08:00"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created reminder.Reminder
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = doJSON(t, srv, "POST", fmt.Sprintf("/api/reminders/%s/complete", created.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_InvalidReminderIsBadRequest(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := patientToken(t, resolver, "u1", "p1")

	resp := doJSON(t, srv, "POST", "/api/reminders", token, map[string]interface{}{
		"medicineName": "Aspirin",
		"times":        []string{"25:99"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ConfirmExtractionCreatesReminders(t *testing.T) {
	srv, resolver := setupTestServer(t)
	token := patientToken(t, resolver, "u1", "p1")

	resp := doJSON(t, srv, "POST", "/api/reminders/confirm", token, map[string]interface{}{
		"medications": []map[string]interface{}{
			{"name": "Amoxicillin", "dosage": "250mg", "times": []string{"09:00"}},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, srv, "GET", "/api/reminders", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Reminders []reminder.Reminder `json:"reminders"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Reminders, 1)
	assert.Equal(t, "Amoxicillin", list.Reminders[0].MedicineName)

	// The extracted medication was reconciled into the medical record.
	resp = doJSON(t, srv, "GET", "/api/patients/p1/record", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record health.PatientHealthData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	require.Len(t, record.Medications, 1)
	assert.Equal(t, "Amoxicillin", record.Medications[0].Name)
}
