package models

// Stats is the dashboard summary served by GET /api/stats.
type Stats struct {
	Tasks      TaskCounts     `json:"tasks"`
	Priority   PriorityCounts `json:"priority"`
	Categories int64          `json:"categories"`
	Notes      int64          `json:"notes"`
}

type TaskCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
}

type PriorityCounts struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
}
