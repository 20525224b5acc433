package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

// PendingDefense is one unsubmitted evaluation joined with its defense
// schedule, used by the reminder job.
type PendingDefense struct {
	EvaluationID string `db:"evaluation_id"`
	EvaluatorID  string `db:"evaluator_id"`
	ScheduleID   string `db:"schedule_id"`
	StartsAt     int64  `db:"starts_at"`
	Room         string `db:"room"`
	GroupTitle   string `db:"group_title"`
}
