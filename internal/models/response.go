package models

import "time"

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Targets   int    `json:"targets"`
	Available int    `json:"available"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// TargetState is what the reporting API returns for one address
type TargetState struct {
	Addr                string                 `json:"addr"`
	Role                Role                   `json:"role"`
	Available           bool                   `json:"available"`
	LastSuccess         *time.Time             `json:"last_success,omitempty"`
	ConsecutiveFailures int64                  `json:"consecutive_failures"`
	Stats               map[string]interface{} `json:"stats,omitempty"`
	Node                *NodeStatus            `json:"node,omitempty"`
	Proxy               *ProxyStatus           `json:"proxy,omitempty"`
}

// TargetListResponse represents a list of target states
type TargetListResponse struct {
	Targets []TargetState `json:"targets"`
	Total   int           `json:"total"`
}
