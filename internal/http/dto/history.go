package dto

import "time"

// ChangesetItem es una fila de GET /api/history.
type ChangesetItem struct {
	ID             int64      `json:"id"`
	OSMChangesetID *int64     `json:"osm_changeset_id"`
	Comment        string     `json:"comment"`
	Status         string     `json:"status"`
	ChangesCount   int        `json:"changes_count"`
	CreatedAt      time.Time  `json:"created_at"`
	SentAt         *time.Time `json:"sent_at"`
}

type HistoryResponse struct {
	Changesets []ChangesetItem `json:"changesets"`
}

// RoadChangeItem es un item de un changeset local.
type RoadChangeItem struct {
	ID         int64             `json:"id"`
	WayID      int64             `json:"way_id"`
	OldTags    map[string]string `json:"old_tags"`
	NewTags    map[string]string `json:"new_tags"`
	ChangeType string            `json:"change_type"`
}

type HistoryDetailResponse struct {
	Changeset ChangesetItem    `json:"changeset"`
	Changes   []RoadChangeItem `json:"changes"`
}
