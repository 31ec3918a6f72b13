package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrInvalidBBox.WithDetail("south must be lower than north"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "INVALID_BBOX", body["code"])
	require.Equal(t, "Invalid bounding box", body["error"])
	require.Equal(t, "south must be lower than north", body["detail"])
}

func TestWriteError_GenericIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, stderrors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestWithDetailDoesNotMutateBase(t *testing.T) {
	_ = ErrNotFound.WithDetail("x")
	require.Empty(t, ErrNotFound.Detail)

	cause := stderrors.New("db down")
	e := ErrInternal.WithCause(cause)
	require.ErrorIs(t, e, cause)
	require.Nil(t, ErrInternal.Err)
}
