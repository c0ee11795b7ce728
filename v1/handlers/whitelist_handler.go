package handlers

import (
	"net/http"

	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/go-chi/chi/v5"
)

func (h *V1Handler) listWhitelist(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	entries, err := h.whitelistService.ListEntries(r.Context(), user)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.NewCollection(entries))
}

func (h *V1Handler) createWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateWhitelistRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	entry, err := h.whitelistService.CreateEntry(r.Context(), user, &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, entry)
}

func (h *V1Handler) removeWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.whitelistService.RemoveEntry(r.Context(), user, key); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	respondDeleted(w, key)
}

func (h *V1Handler) checkWhitelist(w http.ResponseWriter, r *http.Request) {
	check, err := h.whitelistService.LookupByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, check)
}
