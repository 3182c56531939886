package models

// ErrorResponse is the JSON body for failed HTTP requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health check endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"` // "ok", "down" or "disabled"
}

// JoinRequest is posted by the join page with the web app launch data
type JoinRequest struct {
	Token    string `form:"token" binding:"required"`
	InitData string `form:"init_data" binding:"required"` // Telegram.WebApp.initData, signed by Telegram
}

// JoinResponse carries the destination once the caller is verified
type JoinResponse struct {
	Destination string `json:"destination"`
}
