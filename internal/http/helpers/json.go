// Package helpers tiene utilidades compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/laneeditor/internal/http/errors"
)

// MaxBodyBytes limita el body JSON de cualquier request.
const MaxBodyBytes = 1 << 20

// ReadJSON decodifica el body en v (tolerante a campos desconocidos).
// Devuelve un *AppError listo para WriteError.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return httperrors.ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return httperrors.ErrInvalidJSON.WithDetail("empty body")
		}
		return httperrors.ErrInvalidJSON.WithCause(err)
	}
	return nil
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	httperrors.WriteJSON(w, status, v)
}

// PathInt64 lee un parámetro de ruta chi como entero positivo.
func PathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, httperrors.ErrInvalidParameter.WithDetail(name + " must be a positive integer")
	}
	return v, nil
}
