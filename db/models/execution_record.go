package models

// ExecutionRecord is one agent turn: the proposed command, the decision and,
// when the command ran, what came back.
type ExecutionRecord struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID  string `gorm:"column:session_id;type:text;not null;index:idx_exec_session_created,priority:1"`
	TurnID     string `gorm:"column:turn_id;type:text;not null;uniqueIndex"`
	Command    string `gorm:"column:command;type:text;not null"`
	Canonical  string `gorm:"column:canonical;type:text"`
	Status     string `gorm:"column:status;type:text;not null;index"`
	ReasonCode string `gorm:"column:reason_code;type:text"`
	Detail     string `gorm:"column:detail;type:text"`

	ExitCode             *int   `gorm:"column:exit_code"`
	TimedOut             bool   `gorm:"column:timed_out;not null;default:false"`
	ConfinementViolation bool   `gorm:"column:confinement_violation;not null;default:false"`
	Truncated            bool   `gorm:"column:truncated;not null;default:false"`
	Stdout               string `gorm:"column:stdout;type:text"`
	Stderr               string `gorm:"column:stderr;type:text"`
	CwdBefore            string `gorm:"column:cwd_before;type:text"`
	CwdAfter             string `gorm:"column:cwd_after;type:text"`
	DurationMs           int64  `gorm:"column:duration_ms;not null;default:0"`

	CreatedAt int64 `gorm:"column:created_at;not null;index:idx_exec_session_created,priority:2"`
}

func (ExecutionRecord) TableName() string { return "execution_records" }
