package osm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que la entidad no existe (404/410).
	ErrNotFound = errors.New("osm: entity not found")

	// ErrRemote indica cualquier otro fallo del API remoto: status no-2xx,
	// body malformado, timeout o error de transporte.
	ErrRemote = errors.New("osm: remote error")

	// ErrMalformed indica un documento XML que no se pudo interpretar.
	ErrMalformed = errors.New("osm: malformed document")
)

// RemoteError describe un fallo de una operación contra el API.
// Hace match con errors.Is contra su Kind (ErrNotFound | ErrRemote) y su causa.
type RemoteError struct {
	Op     string
	Status int
	Body   string
	Kind   error
	Err    error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("osm %s", e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
