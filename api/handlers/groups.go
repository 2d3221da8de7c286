package handlers

import (
	"net/http"

	services "github.com/EO-DataHub/eodhp-directory-services/api/services"
)

// @Summary List the members of a group
// @Description Returns the full user record of every member. An empty group returns an empty array.
// @Tags groups
// @Produce json
// @Param groupid path string true "Group ID" example(admins)
// @Success 200 {array} models.User
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /groups/{groupid} [get]
func GetGroupUsers(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetGroupUsersService(svc, w, r)
	}
}

// @Summary Create a group
// @Description Creates a group. The optional body is the initial list of member userids.
// @Tags groups
// @Accept json
// @Param groupid path string true "Group ID" example(admins)
// @Param members body []string false "Member userids"
// @Success 201
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /groups/{groupid} [post]
func CreateGroup(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateGroupService(svc, w, r)
	}
}

// @Summary Set the members of a group
// @Tags groups
// @Accept json
// @Param groupid path string true "Group ID" example(admins)
// @Param members body []string true "Member userids"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /groups/{groupid} [put]
func UpdateGroup(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateGroupService(svc, w, r)
	}
}

// @Summary Delete a group
// @Tags groups
// @Param groupid path string true "Group ID" example(admins)
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /groups/{groupid} [delete]
func DeleteGroup(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteGroupService(svc, w, r)
	}
}
