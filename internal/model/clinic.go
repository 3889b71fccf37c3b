package model

// Clinic is collaborator data: the target of please-call-me resolution.
type Clinic struct {
	ID   int64  `json:"id"`
	TeID string `json:"te_id"`
	Name string `json:"name"`
}
