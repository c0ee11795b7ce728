package handlers

import (
	"net/http"

	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/go-chi/chi/v5"
)

func (h *V1Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	contact, err := h.contactService.SubmitContact(r.Context(), &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, models.SuccessResponse{Success: true, ID: contact.ID})
}

func (h *V1Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactService.ListContacts(r.Context())
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.NewCollection(contacts))
}

func (h *V1Handler) updateContactStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.UpdateContactStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	contact, err := h.contactService.UpdateStatus(r.Context(), user, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, contact)
}

func (h *V1Handler) deleteContact(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.contactService.DeleteContact(r.Context(), user, id); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	respondDeleted(w, id)
}
