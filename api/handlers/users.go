package handlers

import (
	"net/http"

	services "github.com/EO-DataHub/eodhp-directory-services/api/services"
)

// @Summary Get a user
// @Description Returns the user record, including the groups it belongs to.
// @Tags users
// @Produce json
// @Param userid path string true "User ID" example(jsmith)
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{userid} [get]
func GetUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetUserService(svc, w, r)
	}
}

// @Summary Create a user
// @Description Creates a user and adds it to every listed group. The body userid must match the path.
// @Tags users
// @Accept json
// @Param userid path string true "User ID" example(jsmith)
// @Param user body models.User true "User record"
// @Success 201
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{userid} [post]
func CreateUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateUserService(svc, w, r)
	}
}

// @Summary Update a user
// @Description Replaces the user record and moves it in or out of groups to match.
// @Tags users
// @Accept json
// @Param userid path string true "User ID" example(jsmith)
// @Param user body models.User true "User record"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{userid} [put]
func UpdateUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateUserService(svc, w, r)
	}
}

// @Summary Delete a user
// @Tags users
// @Param userid path string true "User ID" example(jsmith)
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{userid} [delete]
func DeleteUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteUserService(svc, w, r)
	}
}
