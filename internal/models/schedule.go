package models

type ThesisGroup struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}

type GroupMember struct {
	GroupID   string `db:"group_id" json:"groupId"`
	StudentID string `db:"student_id" json:"studentId"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
}

type DefenseSchedule struct {
	ID       string `db:"id" json:"id"`
	GroupID  string `db:"group_id" json:"groupId"`
	StartsAt int64  `db:"starts_at" json:"startsAt"`
	Room     string `db:"room" json:"room"`
}
