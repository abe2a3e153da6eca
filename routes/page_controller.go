package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/ordering"
	"github.com/mbolis/survey-builder/repository"
)

// pagePlacement is the body of page copy/move requests: the target page and
// the side of it the page should land on.
type pagePlacement struct {
	PageID   int               `json:"pageId"`
	Position ordering.Position `json:"position"`
}

func pageIdParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "pageId"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.pageId")
		return 0, false
	}
	return id, true
}

func CreatePage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}

		page, err := repository.CreatePage(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.RenderError(w, r, "db.insert_page", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, page)
	}
}

func DeletePage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		pageId, ok := pageIdParam(w, r)
		if !ok {
			return
		}

		page, err := repository.DeletePage(r.Context(), app.DB, surveyId, pageId)
		if err != nil {
			httpx.RenderError(w, r, "db.delete_page", err)
			return
		}

		render.JSON(w, r, page)
	}
}

func MovePage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		pageId, ok := pageIdParam(w, r)
		if !ok {
			return
		}

		placement := pagePlacement{}
		err := render.DecodeJSON(r.Body, &placement)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		page, err := repository.MovePage(r.Context(), app.DB, surveyId, pageId, placement.PageID, placement.Position)
		if err != nil {
			httpx.RenderError(w, r, "db.move_page", err)
			return
		}

		render.JSON(w, r, page)
	}
}

func CopyPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		pageId, ok := pageIdParam(w, r)
		if !ok {
			return
		}

		placement := pagePlacement{}
		err := render.DecodeJSON(r.Body, &placement)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		page, err := repository.CopyPage(r.Context(), app.DB, surveyId, pageId, placement.PageID, placement.Position)
		if err != nil {
			httpx.RenderError(w, r, "db.copy_page", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, page)
	}
}
