package handlers

import (
	"net/http"

	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/go-chi/chi/v5"
)

func (h *V1Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.fileService.ListFiles(r.Context(), models.ListFilesFilter{
		Folder:     r.URL.Query().Get("folder"),
		Department: r.URL.Query().Get("department"),
	})
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, files)
}

func (h *V1Handler) createFile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateFileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	file, err := h.fileService.CreateFile(r.Context(), user, &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, file)
}

func (h *V1Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.fileService.DeleteFile(r.Context(), user, id); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	respondDeleted(w, id)
}

func (h *V1Handler) upload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.UploadRequest
	if err := utils.DecodeJSONWithLimit(r, &req, h.uploadService.MaxRequestBytes()); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	resp, err := h.uploadService.Upload(r.Context(), user, &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
