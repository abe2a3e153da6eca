package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/repository"
)

func collectorIdParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "collectorId"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.collectorId")
		return 0, false
	}
	return id, true
}

func CreateCollector(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}

		collector, err := repository.CreateCollector(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.RenderError(w, r, "db.insert_collector", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, collector)
	}
}

func ListCollectors(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}

		collectors, err := repository.ListCollectors(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.RenderError(w, r, "db.get_collectors", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"collectors": collectors,
		})
	}
}

func UpdateCollector(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		collectorId, ok := collectorIdParam(w, r)
		if !ok {
			return
		}

		body := struct {
			Status string `json:"status"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		collector, err := repository.UpdateCollectorStatus(r.Context(), app.DB, surveyId, collectorId, body.Status)
		if err != nil {
			httpx.RenderError(w, r, "db.update_collector", err)
			return
		}

		render.JSON(w, r, collector)
	}
}

func DeleteCollector(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		collectorId, ok := collectorIdParam(w, r)
		if !ok {
			return
		}

		err := repository.DeleteCollector(r.Context(), app.DB, surveyId, collectorId)
		if err != nil {
			httpx.RenderError(w, r, "db.delete_collector", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
