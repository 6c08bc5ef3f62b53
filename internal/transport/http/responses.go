package httptransport

import (
	"metafed/internal/metadata/service"
)

// EntityResponse is one entry of the attribute index.
type EntityResponse struct {
	EntityID   string              `json:"entity_id"`
	Attributes map[string][]string `json:"attributes"`
}

// EntitiesResponse is the body of GET /md/{name}/entities.
type EntitiesResponse struct {
	Name     string           `json:"name"`
	RunID    string           `json:"run_id"`
	Entities []EntityResponse `json:"entities"`
}

// SourceResponse summarizes one source of a refresh.
type SourceResponse struct {
	Name     string `json:"name"`
	Entities int    `json:"entities"`
	Invalid  int    `json:"invalid"`
}

// RefreshResponse is the body of POST /refresh.
type RefreshResponse struct {
	RunID              string           `json:"run_id"`
	Published          bool             `json:"published"`
	Entities           int              `json:"entities"`
	NextRefreshSeconds int64            `json:"next_refresh_seconds"`
	Sources            []SourceResponse `json:"sources"`
}

// FromReport maps a refresh report to its response.
func FromReport(r service.Report) RefreshResponse {
	resp := RefreshResponse{
		RunID:              r.RunID,
		Published:          r.Published != nil,
		NextRefreshSeconds: int64(r.NextRefresh.Seconds()),
		Sources:            make([]SourceResponse, 0, len(r.Sources)),
	}
	if r.Published != nil {
		resp.Entities = len(r.Published.Entities)
	}
	for _, s := range r.Sources {
		resp.Sources = append(resp.Sources, SourceResponse{Name: s.Name, Entities: s.Entities, Invalid: s.Invalid})
	}
	return resp
}
