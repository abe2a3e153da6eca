package middlewares

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/repository"
)

// Authenticated validates the bearer token and populates the oauth claims.
func Authenticated(app app.App) func(http.Handler) http.Handler {
	return oauth.Authorize(app.TokenSecret, nil)
}

// UserID resolves the authenticated caller from the token claims.
func UserID(r *http.Request) (int, bool) {
	claims, ok := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(claims["user_id"])
	if err != nil {
		return 0, false
	}
	return id, true
}

// SurveyOwner rejects callers that do not own the survey addressed by the
// surveyId route parameter.
func SurveyOwner(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			surveyID, err := strconv.Atoi(chi.URLParam(r, "surveyId"))
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.surveyId")
				return
			}

			userID, ok := UserID(r)
			if !ok {
				httpx.RenderError(w, r, "auth.claims", fault.New(fault.Unauthorized, "caller is not authenticated"))
				return
			}

			owner, err := repository.SurveyOwner(r.Context(), app.DB, surveyID)
			if err != nil {
				httpx.RenderError(w, r, "auth.survey_owner", err)
				return
			}
			if owner != userID {
				httpx.RenderError(w, r, "auth.survey_owner", fault.New(fault.Unauthorized, "caller does not own this survey"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
