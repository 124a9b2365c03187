package api

import (
	"net/http"
)

// dashboardHandler serves the live leaderboard page.
type dashboardHandler struct{}

func newdashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard. The page follows /leaderboard/stream.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}
