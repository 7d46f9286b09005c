package domain

// Notification is an entry in a team's staff feed.
type Notification struct {
	ID         int32             `json:"id"`
	TeamID     int32             `json:"team_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedOn  string            `json:"created_on"`
}
