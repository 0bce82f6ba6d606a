package response

import "github.com/user/linkmark-service/internal/delivery/message"

type RecordVisitResponse struct {
	URL      string `json:"url"`
	Recorded bool   `json:"recorded"` // false for non-http(s) URLs
}

// ExcludeSiteResponse reports the stored domain and, when a page was
// named, that page's acknowledgement.
type ExcludeSiteResponse struct {
	Domain string            `json:"domain"`
	Added  bool              `json:"added"`
	Page   *message.Response `json:"page,omitempty"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
