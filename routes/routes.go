package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	// responder surface, keyed by collector slug
	api.Get("/collector/{slug}", PublicGetCollectorSurvey(app))
	api.Post("/collector/{slug}/response", PublicSubmitResponse(app))

	api.Route("/survey", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app))

		r.Post("/", CreateSurvey(app))
		r.Get("/", ListSurveys(app))

		r.Route(`/{surveyId:^\d+$}`, func(r chi.Router) {
			r.Use(middlewares.SurveyOwner(app))

			r.Get("/", GetSurveyById(app))
			r.Put("/", UpdateSurvey(app))
			r.Delete("/", DeleteSurvey(app))

			r.Post("/page", CreatePage(app))
			r.Delete(`/page/{pageId:^\d+$}`, DeletePage(app))
			r.Post(`/page/{pageId:^\d+$}/copy`, CopyPage(app))
			r.Put(`/page/{pageId:^\d+$}/move`, MovePage(app))

			r.Post("/question", CreateQuestion(app))
			r.Put("/question", UpdateQuestion(app))
			r.Delete(`/question/{questionId:^\d+$}`, DeleteQuestion(app))
			r.Post(`/question/{questionId:^\d+$}/copy`, CopyQuestion(app))
			r.Put(`/question/{questionId:^\d+$}/move`, MoveQuestion(app))

			r.Post("/collector", CreateCollector(app))
			r.Get("/collector", ListCollectors(app))
			r.Put(`/collector/{collectorId:^\d+$}`, UpdateCollector(app))
			r.Delete(`/collector/{collectorId:^\d+$}`, DeleteCollector(app))
		})
	})

	return api
}
