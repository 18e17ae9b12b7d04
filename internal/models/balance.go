package models

import (
	"encoding/json"
	"time"
)

// Plan is a balance plan as stored by the external planner. Its content is
// opaque here and is forwarded untouched.
type Plan struct {
	Key  string          `json:"key"`
	Body json.RawMessage `json:"body"`
}

// BalanceRequest asks the provisioner to relieve capacity pressure on a node
type BalanceRequest struct {
	ID          string      `json:"id"`
	Host        string      `json:"host"`
	Port        int         `json:"port"`
	OwnedSlots  []SlotRange `json:"owned_slots"`
	Plan        *Plan       `json:"plan"`
	UsedMemory  int64       `json:"used_memory,omitempty"`
	MaxMemory   int64       `json:"max_memory,omitempty"`
	RequestedAt time.Time   `json:"requested_at"`
}
