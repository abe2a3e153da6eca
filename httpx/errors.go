package httpx

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/survey-builder/fault"
	"github.com/mbolis/survey-builder/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// RenderError translates an error into the client-facing JSON shape
// {"error":{"message":...,"code":...}}. Operational faults map to their 4xx
// status; anything else is an internal error and keeps its details out of
// the response body.
func RenderError(w http.ResponseWriter, r *http.Request, code string, err error) {
	f, ok := fault.As(err)
	if !ok {
		LogInternalError(w, code, err)
		return
	}

	log.Debugf("%s: %s", code, f)
	w.WriteHeader(f.Status())
	render.JSON(w, r, map[string]any{
		"error": map[string]any{
			"message": f.Message,
			"code":    string(f.Code),
		},
	})
}
