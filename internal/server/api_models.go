package server

// CreateRecordRequest is the payload accepted by POST /records.
type CreateRecordRequest struct {
	Name string `json:"name" example:"Sam"`
	Val  int    `json:"val" example:"1"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	OK     bool `json:"ok" example:"true"`
	Status int  `json:"status" example:"200"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error  string `json:"error" example:"record not found"`
	Status int    `json:"status" example:"404"`
}
