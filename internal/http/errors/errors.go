// Package errors define el formato de error JSON de la API:
// {"error": message, "code": code, "detail": detail}.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// WriteError escribe err como AppError.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	WriteJSON(w, appErr.HTTPStatus, errorResponse{
		Error:  appErr.Message,
		Code:   appErr.Code,
		Detail: appErr.Detail,
	})
}

// WriteErrorCtx es WriteError con logging del error original en 5xx.
func WriteErrorCtx(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus >= 500 {
		logger.From(r.Context()).Error("request failed",
			logger.String("code", appErr.Code),
			logger.Err(appErr.Err),
		)
	}
	WriteError(w, appErr)
}

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
