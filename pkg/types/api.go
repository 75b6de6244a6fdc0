package types

// POST /api/register
type RegisterRequest struct {
	Name string `json:"name"`
}

type RegisterResponse struct {
	Hero            string `json:"hero"`
	AlreadyAssigned bool   `json:"already_assigned"`
	Name            string `json:"name"` // trimmed, case preserved
}

// GET /api/status
type StatusResponse struct {
	Total       int               `json:"total"`
	Assigned    int               `json:"assigned"`
	Remaining   int               `json:"remaining"`
	Assignments map[string]string `json:"assignments"` // normalized name -> hero
}

// POST /api/reset
type ResetResponse struct {
	Message  string   `json:"message"`
	NewOrder []string `json:"new_order"`
}

// Every non-2xx response carries a human-readable detail.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
