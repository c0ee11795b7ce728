package handlers

import (
	"net/http"

	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/go-chi/chi/v5"
)

func (h *V1Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter := models.ListUsersFilter{
		Department: r.URL.Query().Get("department"),
		Role:       models.Role(r.URL.Query().Get("role")),
	}
	profiles, err := h.userService.ListUsers(r.Context(), user, filter)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.NewCollection(profiles))
}

func (h *V1Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.userService.GetUser(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *V1Handler) createUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	profile, err := h.userService.CreateUser(r.Context(), user, &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, profile)
}

func (h *V1Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	profile, err := h.userService.UpdateUser(r.Context(), user, chi.URLParam(r, "id"), &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *V1Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.userService.DeleteUser(r.Context(), user, id); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	respondDeleted(w, id)
}

func (h *V1Handler) getSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.userService.GetSelf(r.Context(), user)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *V1Handler) updateSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch models.SelfPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	profile, err := h.userService.UpdateSelf(r.Context(), user, patch)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *V1Handler) listTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.userService.ListTeam(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.NewCollection(team))
}

func (h *V1Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, models.NewCollection(h.userService.ListDepartments()))
}
