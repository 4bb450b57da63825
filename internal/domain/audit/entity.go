package audit

import "time"

// Action enum
type Action string

const (
	ActionGenerate   Action = "GENERATE"
	ActionRegenerate Action = "REGENERATE"
	ActionDelete     Action = "DELETE"
	ActionConfirm    Action = "CONFIRM"
	ActionPayment    Action = "PAYMENT"
)

const EntityPayrollRun = "PAYROLL_RUN"

// Entry - one audit log row
type Entry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     Action    `json:"action"`
	ActorID    string    `json:"actor_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
