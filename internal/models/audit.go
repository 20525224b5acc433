package models

type AuditEvent struct {
	ID         string `db:"id" json:"id"`
	ActorID    string `db:"actor_id" json:"actorId"`
	Action     string `db:"action" json:"action"`
	Resource   string `db:"resource" json:"resource"`
	ResourceID string `db:"resource_id" json:"resourceId"`
	Detail     string `db:"detail" json:"detail"`
	CreatedAt  int64  `db:"created_at" json:"createdAt"`
}
