package types

import pub "github.com/DoyleJ11/hero-assign-backend/pkg/types"

const (
	MsgRefresh        = "Refresh"
	MsgStatusSnapshot = "StatusSnapshot"
	MsgError          = "Error"
)

type ClientMessage struct {
	Type string `json:"type"` // "Refresh"
}

type ServerMessage struct {
	Type    string              `json:"type"` // "StatusSnapshot" | "Error"
	Version int                 `json:"version"`
	Status  *pub.StatusResponse `json:"status,omitempty"`
	Error   string              `json:"error,omitempty"`
}
