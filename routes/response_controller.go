package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/repository"
)

func PublicGetCollectorSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		survey, err := repository.CollectorSurvey(r.Context(), app.DB, slug)
		if err != nil {
			httpx.RenderError(w, r, "db.get_collector_survey", err)
			return
		}

		render.JSON(w, r, survey)
	}
}

type responderCheck struct {
	op     bool
	key    string
	result chan<- bool
}

func PublicSubmitResponse(app app.App) http.HandlerFunc {
	// Serializes responders per collector: a second submission for the same
	// collector and address waits out the first before the committed-response
	// check runs.
	checkStart := make(chan responderCheck)
	go func() {
		inFlight := make(map[string]bool)

		for {
			req := <-checkStart
			if req.op {
				req.result <- inFlight[req.key]
				inFlight[req.key] = true
			} else {
				delete(inFlight, req.key)
			}
		}
	}()

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		submission := repository.Submission{}
		err := render.DecodeJSON(r.Body, &submission)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		ip := strings.Split(r.RemoteAddr, ":")[0]
		key := slug + "|" + ip
		checkDone := make(chan bool)
		checkStart <- responderCheck{true, key, checkDone}
		if <-checkDone {
			httpx.RenderError(w, r, "responder.in_flight",
				fault.New(fault.Unauthorized, "collector already completed"))
			return
		}
		defer func() { checkStart <- responderCheck{false, key, nil} }()

		response, err := repository.SubmitResponse(r.Context(), app.DB, slug, ip, submission)
		if err != nil {
			httpx.RenderError(w, r, "db.insert_response", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, response)
	}
}
