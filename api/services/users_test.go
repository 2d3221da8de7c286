package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/EO-DataHub/eodhp-directory-services/internal/metrics"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const jsmithBody = `{"userid":"jsmith","first_name":"Joe","last_name":"Smith","groups":["admins","users"]}`

var jsmith = models.User{
	UserID:    "jsmith",
	FirstName: "Joe",
	LastName:  "Smith",
	Groups:    []string{"admins", "users"},
}

func newTestService() (*Service, *MockStore, *MockNotifier) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	return &Service{Store: store, Events: notifier, Metrics: metrics.New()}, store, notifier
}

func newRequest(method, target, body string, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return mux.SetURLVars(req, vars)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

func TestGetUserService(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("GetUser", mock.Anything, "jsmith").Return(&jsmith, nil)

	w := httptest.NewRecorder()
	GetUserService(svc, w, newRequest(http.MethodGet, "/users/jsmith", "", map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=0", w.Header().Get("Cache-Control"))

	var got models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, jsmith, got)
	store.AssertExpectations(t)
}

func TestGetUserService_NotFound(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("GetUser", mock.Anything, "nobody").Return(nil, directory.UserNotFound("nobody"))

	w := httptest.NewRecorder()
	GetUserService(svc, w, newRequest(http.MethodGet, "/users/nobody", "", map[string]string{"userid": "nobody"}))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User 'nobody' not found.", decodeError(t, w))
}

func TestCreateUserService(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("CreateUser", mock.Anything, jsmith).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.DirectoryEvent) bool {
		return e.Type == events.UserCreated && e.Subject == "jsmith" &&
			assert.ObjectsAreEqual([]string{"admins", "users"}, e.Memberships)
	})).Return(nil)

	w := httptest.NewRecorder()
	CreateUserService(svc, w, newRequest(http.MethodPost, "/users/jsmith", jsmithBody, map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/users/jsmith", w.Header().Get("Location"))
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.OperationCounter("create_user", "ok")))
}

func TestCreateUserService_IdentityMismatch(t *testing.T) {
	svc, store, notifier := newTestService()

	w := httptest.NewRecorder()
	CreateUserService(svc, w, newRequest(http.MethodPost, "/users/other", jsmithBody, map[string]string{"userid": "other"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Userid 'jsmith' does not match uri's userid 'other'.", decodeError(t, w))
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestCreateUserService_InvalidPayload(t *testing.T) {
	svc, store, _ := newTestService()

	w := httptest.NewRecorder()
	CreateUserService(svc, w, newRequest(http.MethodPost, "/users/jsmith", `{"userid":"jsmith"}`, map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid user: User record missing expected key 'first_name'.", decodeError(t, w))
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestCreateUserService_StoreErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"already exists", directory.UserAlreadyExists("jsmith"), http.StatusForbidden, "User 'jsmith' already exists."},
		{"unknown group", directory.UnknownGroup("admins"), http.StatusBadRequest, "Group 'admins' does not exist."},
		{"backend failure", errors.New("connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, notifier := newTestService()
			store.On("CreateUser", mock.Anything, jsmith).Return(tt.err)

			w := httptest.NewRecorder()
			CreateUserService(svc, w, newRequest(http.MethodPost, "/users/jsmith", jsmithBody, map[string]string{"userid": "jsmith"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, w))
			notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateUserService_PublishFailureStillSucceeds(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("CreateUser", mock.Anything, jsmith).Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	w := httptest.NewRecorder()
	CreateUserService(svc, w, newRequest(http.MethodPost, "/users/jsmith", jsmithBody, map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	notifier.AssertExpectations(t)
}

func TestUpdateUserService(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("UpdateUser", mock.Anything, "jsmith", jsmith).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.DirectoryEvent) bool {
		return e.Type == events.UserUpdated && e.Subject == "jsmith"
	})).Return(nil)

	w := httptest.NewRecorder()
	UpdateUserService(svc, w, newRequest(http.MethodPut, "/users/jsmith", jsmithBody, map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestUpdateUserService_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", directory.UserNotFound("jsmith"), http.StatusNotFound},
		{"identity mismatch", directory.IdentityMismatch("jsmith", "other"), http.StatusBadRequest},
		{"unknown group", directory.UnknownGroup("admins"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService()
			store.On("UpdateUser", mock.Anything, "jsmith", jsmith).Return(tt.err)

			w := httptest.NewRecorder()
			UpdateUserService(svc, w, newRequest(http.MethodPut, "/users/jsmith", jsmithBody, map[string]string{"userid": "jsmith"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.err.Error(), decodeError(t, w))
		})
	}
}

func TestDeleteUserService(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("DeleteUser", mock.Anything, "jsmith").Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.DirectoryEvent) bool {
		return e.Type == events.UserDeleted && len(e.Memberships) == 0
	})).Return(nil)

	w := httptest.NewRecorder()
	DeleteUserService(svc, w, newRequest(http.MethodDelete, "/users/jsmith", "", map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusNoContent, w.Code)
	notifier.AssertExpectations(t)
}

func TestDeleteUserService_NotFound(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("DeleteUser", mock.Anything, "jsmith").Return(directory.UserNotFound("jsmith"))

	w := httptest.NewRecorder()
	DeleteUserService(svc, w, newRequest(http.MethodDelete, "/users/jsmith", "", map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.OperationCounter("delete_user", "not_found")))
}

func TestServiceWithoutNotifier(t *testing.T) {
	store := new(MockStore)
	svc := &Service{Store: store}
	store.On("DeleteUser", mock.Anything, "jsmith").Return(nil)

	w := httptest.NewRecorder()
	DeleteUserService(svc, w, newRequest(http.MethodDelete, "/users/jsmith", "", map[string]string{"userid": "jsmith"}))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(directory.GroupNotFound("g")))
	assert.Equal(t, http.StatusForbidden, statusFor(directory.GroupAlreadyExists("g")))
	assert.Equal(t, http.StatusBadRequest, statusFor(directory.UnknownUser("u")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
