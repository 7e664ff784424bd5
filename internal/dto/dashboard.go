package dto

// DashboardSummary is the admin landing page payload.
type DashboardSummary struct {
	TotalAdmins     int                 `json:"total_admins"`
	Students        StudentStats        `json:"students"`
	UpcomingClasses []LiveClassResponse `json:"upcoming_classes"`
}

// StudentStats counts students overall and per stack.
type StudentStats struct {
	Total   int            `json:"total"`
	ByStack map[string]int `json:"by_stack"`
}
