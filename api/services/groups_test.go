package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetGroupUsersService(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("GetUsersForGroup", mock.Anything, "admins").Return([]models.User{jsmith}, nil)

	w := httptest.NewRecorder()
	GetGroupUsersService(svc, w, newRequest(http.MethodGet, "/groups/admins", "", map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusOK, w.Code)
	var got []models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, []models.User{jsmith}, got)
}

func TestGetGroupUsersService_EmptyGroup(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("GetUsersForGroup", mock.Anything, "empty").Return([]models.User{}, nil)

	w := httptest.NewRecorder()
	GetGroupUsersService(svc, w, newRequest(http.MethodGet, "/groups/empty", "", map[string]string{"groupid": "empty"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetGroupUsersService_NotFound(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("GetUsersForGroup", mock.Anything, "missing").Return(nil, directory.GroupNotFound("missing"))

	w := httptest.NewRecorder()
	GetGroupUsersService(svc, w, newRequest(http.MethodGet, "/groups/missing", "", map[string]string{"groupid": "missing"}))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Group 'missing' does not exist.", decodeError(t, w))
}

func TestCreateGroupService_EmptyBody(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("CreateGroup", mock.Anything, "admins", []string{}).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.DirectoryEvent) bool {
		return e.Type == events.GroupCreated && e.Subject == "admins"
	})).Return(nil)

	w := httptest.NewRecorder()
	CreateGroupService(svc, w, newRequest(http.MethodPost, "/groups/admins", "", map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/groups/admins", w.Header().Get("Location"))
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCreateGroupService_WithMembers(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("CreateGroup", mock.Anything, "admins", []string{"jsmith", "adoe"}).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.DirectoryEvent) bool {
		return assert.ObjectsAreEqual([]string{"adoe", "jsmith"}, e.Memberships)
	})).Return(nil)

	w := httptest.NewRecorder()
	CreateGroupService(svc, w, newRequest(http.MethodPost, "/groups/admins", `["jsmith","adoe"]`, map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	notifier.AssertExpectations(t)
}

func TestCreateGroupService_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"already exists", "", directory.GroupAlreadyExists("admins"), http.StatusForbidden, "Group 'admins' already exists."},
		{"unknown member", `["ghost"]`, directory.UnknownUser("ghost"), http.StatusBadRequest, "User 'ghost' does not exist."},
		{"backend failure", "", errors.New("disk full"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, notifier := newTestService()
			store.On("CreateGroup", mock.Anything, "admins", mock.Anything).Return(tt.err)

			w := httptest.NewRecorder()
			CreateGroupService(svc, w, newRequest(http.MethodPost, "/groups/admins", tt.body, map[string]string{"groupid": "admins"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, w))
			notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateGroupService_InvalidPayload(t *testing.T) {
	svc, store, _ := newTestService()

	w := httptest.NewRecorder()
	CreateGroupService(svc, w, newRequest(http.MethodPost, "/groups/admins", `{"members":[]}`, map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Users entry is not a json array.", decodeError(t, w))
	store.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateGroupService(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("UpdateGroup", mock.Anything, "admins", []string{"jsmith"}).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.DirectoryEvent) bool {
		return e.Type == events.GroupUpdated
	})).Return(nil)

	w := httptest.NewRecorder()
	UpdateGroupService(svc, w, newRequest(http.MethodPut, "/groups/admins", `["jsmith"]`, map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusNoContent, w.Code)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestUpdateGroupService_RequiresBody(t *testing.T) {
	svc, store, _ := newTestService()

	w := httptest.NewRecorder()
	UpdateGroupService(svc, w, newRequest(http.MethodPut, "/groups/admins", "", map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "UpdateGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateGroupService_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", directory.GroupNotFound("admins"), http.StatusNotFound},
		{"unknown member", directory.UnknownUser("ghost"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService()
			store.On("UpdateGroup", mock.Anything, "admins", []string{"ghost"}).Return(tt.err)

			w := httptest.NewRecorder()
			UpdateGroupService(svc, w, newRequest(http.MethodPut, "/groups/admins", `["ghost"]`, map[string]string{"groupid": "admins"}))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestDeleteGroupService(t *testing.T) {
	svc, store, notifier := newTestService()
	store.On("DeleteGroup", mock.Anything, "admins").Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	DeleteGroupService(svc, w, newRequest(http.MethodDelete, "/groups/admins", "", map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusNoContent, w.Code)
	store.AssertExpectations(t)
}

func TestDeleteGroupService_NotFound(t *testing.T) {
	svc, store, _ := newTestService()
	store.On("DeleteGroup", mock.Anything, "admins").Return(directory.GroupNotFound("admins"))

	w := httptest.NewRecorder()
	DeleteGroupService(svc, w, newRequest(http.MethodDelete, "/groups/admins", "", map[string]string{"groupid": "admins"}))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
