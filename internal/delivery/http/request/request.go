package request

type OpenPageRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"` // rendered in a browser when empty
}

type RecordVisitRequest struct {
	URL       string `json:"url"`
	Timestamp *int64 `json:"timestamp,omitempty"` // epoch ms; now when absent
}

type ExcludeSiteRequest struct {
	Domain string `json:"domain"`
	PageID string `json:"page_id,omitempty"`
}
