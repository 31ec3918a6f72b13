// Package dto define los cuerpos JSON de la API.
package dto

// ChangeItemRequest es un way a modificar.
type ChangeItemRequest struct {
	WayID   int64             `json:"way_id"`
	NewTags map[string]string `json:"new_tags"`
}

// CreateChangesetRequest es el body de POST /api/changeset/create.
type CreateChangesetRequest struct {
	Comment string              `json:"comment"`
	Changes []ChangeItemRequest `json:"changes"`
}

// UpdatedWay es un way aplicado.
type UpdatedWay struct {
	WayID      int64             `json:"way_id"`
	OldVersion int64             `json:"old_version"`
	NewVersion int64             `json:"new_version"`
	OldTags    map[string]string `json:"old_tags"`
	NewTags    map[string]string `json:"new_tags"`
}

// ItemOutcome es el resultado de cada item pedido.
type ItemOutcome struct {
	WayID  int64  `json:"way_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// CreateChangesetResponse es la respuesta del envío. Error y Code sólo se
// llenan cuando el changeset llegó al API pero falló el ledger local.
type CreateChangesetResponse struct {
	Success          bool          `json:"success"`
	ChangesetID      int64         `json:"changeset_id"`
	UpdatedWays      []UpdatedWay  `json:"updated_ways"`
	TotalUpdated     int           `json:"total_updated"`
	Outcomes         []ItemOutcome `json:"outcomes"`
	LocalChangesetID int64         `json:"local_changeset_id,omitempty"`
	Error            string        `json:"error,omitempty"`
	Code             string        `json:"code,omitempty"`
}
