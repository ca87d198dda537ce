package models

// SessionSnapshot is the last known working directory of a session, so a
// restarted agent can resume where it stopped.
type SessionSnapshot struct {
	SessionID string `gorm:"column:session_id;type:text;primaryKey"`
	Root      string `gorm:"column:root;type:text;not null"`
	Current   string `gorm:"column:current_dir;type:text;not null"`
	UpdatedAt int64  `gorm:"column:updated_at;not null"`
}

func (SessionSnapshot) TableName() string { return "session_snapshots" }
