package dto

// ValidateLanesRequest es el body de POST /api/validate/lanes.
type ValidateLanesRequest struct {
	Tags map[string]string `json:"tags"`
}

type UserInfo struct {
	OSMID       int64  `json:"osm_id"`
	DisplayName string `json:"display_name"`
}

// IndexResponse describe el estado de la sesión en GET /.
type IndexResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *UserInfo `json:"user,omitempty"`
}

// LoginResponse lleva el mensaje flash de GET /login.
type LoginResponse struct {
	Message  string `json:"message,omitempty"`
	LoginURL string `json:"login_url"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
