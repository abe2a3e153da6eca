package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/ordering"
	"github.com/mbolis/survey-builder/repository"
)

type questionBody struct {
	PageID int            `json:"pageId"`
	Data   model.Question `json:"data"`
}

// questionPlacement is the body of question copy/move requests: the target
// question, the page it lives on, and the side to land on.
type questionPlacement struct {
	QuestionID int               `json:"questionId"`
	PageID     int               `json:"pageId"`
	Position   ordering.Position `json:"position"`
}

func questionIdParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "questionId"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.questionId")
		return 0, false
	}
	return id, true
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}

		body := questionBody{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question, err := repository.AddQuestion(r.Context(), app.DB, surveyId, body.PageID, body.Data)
		if err != nil {
			httpx.RenderError(w, r, "db.insert_question", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, question)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}

		body := questionBody{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question, err := repository.UpdateQuestion(r.Context(), app.DB, surveyId, body.Data)
		if err != nil {
			httpx.RenderError(w, r, "db.update_question", err)
			return
		}

		render.JSON(w, r, question)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		questionId, ok := questionIdParam(w, r)
		if !ok {
			return
		}

		question, err := repository.DeleteQuestion(r.Context(), app.DB, surveyId, questionId)
		if err != nil {
			httpx.RenderError(w, r, "db.delete_question", err)
			return
		}

		render.JSON(w, r, question)
	}
}

func MoveQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		questionId, ok := questionIdParam(w, r)
		if !ok {
			return
		}

		placement := questionPlacement{}
		err := render.DecodeJSON(r.Body, &placement)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question, err := repository.MoveQuestion(r.Context(), app.DB,
			surveyId, questionId, placement.QuestionID, placement.PageID, placement.Position)
		if err != nil {
			httpx.RenderError(w, r, "db.move_question", err)
			return
		}

		render.JSON(w, r, question)
	}
}

func CopyQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := surveyIdParam(w, r)
		if !ok {
			return
		}
		questionId, ok := questionIdParam(w, r)
		if !ok {
			return
		}

		placement := questionPlacement{}
		err := render.DecodeJSON(r.Body, &placement)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		question, err := repository.CopyQuestion(r.Context(), app.DB,
			surveyId, questionId, placement.QuestionID, placement.PageID, placement.Position)
		if err != nil {
			httpx.RenderError(w, r, "db.copy_question", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, question)
	}
}
