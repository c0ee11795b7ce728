package handlers

import (
	"net/http"

	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/go-chi/chi/v5"
)

func (h *V1Handler) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reports, err := h.reportService.ListReports(r.Context(), models.ListReportsQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sortBy"),
		Order:    q.Get("order"),
	})
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, reports)
}

func (h *V1Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}

func (h *V1Handler) createReport(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateReportRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	report, err := h.reportService.CreateReport(r.Context(), user, &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, report)
}

func (h *V1Handler) updateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch models.ReportPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	report, err := h.reportService.UpdateReport(r.Context(), user, chi.URLParam(r, "id"), patch)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}

func (h *V1Handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.reportService.DeleteReport(r.Context(), user, id); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	respondDeleted(w, id)
}

func (h *V1Handler) listPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.galleryService.ListPhotos(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, photos)
}

func (h *V1Handler) getPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := h.galleryService.GetPhoto(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, photo)
}

func (h *V1Handler) createPhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateGalleryPhotoRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	photo, err := h.galleryService.CreatePhoto(r.Context(), user, &req)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, photo)
}

func (h *V1Handler) updatePhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch models.GalleryPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	photo, err := h.galleryService.UpdatePhoto(r.Context(), user, chi.URLParam(r, "id"), patch)
	if err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, photo)
}

func (h *V1Handler) deletePhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.galleryService.DeletePhoto(r.Context(), user, id); err != nil {
		utils.RespondWithAPIError(w, r, err)
		return
	}
	respondDeleted(w, id)
}
