package services

import (
	"net/http"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// GetUserService returns a single user record.
func GetUserService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	userID := mux.Vars(r)["userid"]

	user, err := svc.Store.GetUser(r.Context(), userID)
	svc.observe("get_user", err)
	if err != nil {
		handleStoreError(w, r, "get_user", err)
		return
	}

	logger.Info().Str("userid", userID).Msg("User retrieved")
	WriteResponse(w, http.StatusOK, user)
}

// CreateUserService creates the user named in the path. The body userid must
// match the path.
func CreateUserService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	userID := mux.Vars(r)["userid"]

	body, err := readBody(r)
	if err != nil {
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	user, err := decodeUser(body)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	if user.UserID != userID {
		err := directory.IdentityMismatch(user.UserID, userID)
		logger.Warn().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	err = svc.Store.CreateUser(r.Context(), user)
	svc.observe("create_user", err)
	if err != nil {
		handleStoreError(w, r, "create_user", err)
		return
	}

	logger.Info().Str("userid", userID).Msg("User created")
	svc.publish(r.Context(), events.NewEvent(events.UserCreated, userID, directory.Normalize(user.Groups)))

	WriteResponse(w, http.StatusCreated, nil, r.URL.Path)
}

// UpdateUserService replaces a user record and reconciles its memberships.
func UpdateUserService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	userID := mux.Vars(r)["userid"]

	body, err := readBody(r)
	if err != nil {
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	user, err := decodeUser(body)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	err = svc.Store.UpdateUser(r.Context(), userID, user)
	svc.observe("update_user", err)
	if err != nil {
		handleStoreError(w, r, "update_user", err)
		return
	}

	logger.Info().Str("userid", userID).Msg("User updated")
	svc.publish(r.Context(), events.NewEvent(events.UserUpdated, userID, directory.Normalize(user.Groups)))

	WriteResponse(w, http.StatusNoContent, nil)
}

// DeleteUserService removes a user from the directory and from all its groups.
func DeleteUserService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	userID := mux.Vars(r)["userid"]

	err := svc.Store.DeleteUser(r.Context(), userID)
	svc.observe("delete_user", err)
	if err != nil {
		handleStoreError(w, r, "delete_user", err)
		return
	}

	logger.Info().Str("userid", userID).Msg("User deleted")
	svc.publish(r.Context(), events.NewEvent(events.UserDeleted, userID, nil))

	WriteResponse(w, http.StatusNoContent, nil)
}
