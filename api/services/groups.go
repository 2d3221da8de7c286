package services

import (
	"net/http"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// GetGroupUsersService returns the full records of every member of a group.
func GetGroupUsersService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	groupID := mux.Vars(r)["groupid"]

	users, err := svc.Store.GetUsersForGroup(r.Context(), groupID)
	svc.observe("get_users_for_group", err)
	if err != nil {
		handleStoreError(w, r, "get_users_for_group", err)
		return
	}

	// An existing group with no members is an empty array, not an error
	if users == nil {
		users = []models.User{}
	}

	logger.Info().Str("groupid", groupID).Int("member_count", len(users)).Msg("Group members retrieved")
	WriteResponse(w, http.StatusOK, users)
}

// CreateGroupService creates a group, optionally with an initial member list.
func CreateGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	groupID := mux.Vars(r)["groupid"]

	body, err := readBody(r)
	if err != nil {
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	members, err := decodeMembers(body, true)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	err = svc.Store.CreateGroup(r.Context(), groupID, members)
	svc.observe("create_group", err)
	if err != nil {
		handleStoreError(w, r, "create_group", err)
		return
	}

	logger.Info().Str("groupid", groupID).Int("member_count", len(members)).Msg("Group created")
	svc.publish(r.Context(), events.NewEvent(events.GroupCreated, groupID, directory.Normalize(members)))

	WriteResponse(w, http.StatusCreated, nil, r.URL.Path)
}

// UpdateGroupService sets the full member list of a group.
func UpdateGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	groupID := mux.Vars(r)["groupid"]

	body, err := readBody(r)
	if err != nil {
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	members, err := decodeMembers(body, false)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}

	err = svc.Store.UpdateGroup(r.Context(), groupID, members)
	svc.observe("update_group", err)
	if err != nil {
		handleStoreError(w, r, "update_group", err)
		return
	}

	logger.Info().Str("groupid", groupID).Int("member_count", len(members)).Msg("Group updated")
	svc.publish(r.Context(), events.NewEvent(events.GroupUpdated, groupID, directory.Normalize(members)))

	WriteResponse(w, http.StatusNoContent, nil)
}

// DeleteGroupService removes a group and retracts it from every member.
func DeleteGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {

	logger := zerolog.Ctx(r.Context())
	groupID := mux.Vars(r)["groupid"]

	err := svc.Store.DeleteGroup(r.Context(), groupID)
	svc.observe("delete_group", err)
	if err != nil {
		handleStoreError(w, r, "delete_group", err)
		return
	}

	logger.Info().Str("groupid", groupID).Msg("Group deleted")
	svc.publish(r.Context(), events.NewEvent(events.GroupDeleted, groupID, nil))

	WriteResponse(w, http.StatusNoContent, nil)
}
