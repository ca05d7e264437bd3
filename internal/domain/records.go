// GORM persistence records.
//
// DraftRecord backs the client-side draft store; the remaining records back
// the development mock server's SQLite database. Records are deliberately
// separate from the wire types in session.go/admin.go: the wire shapes are a
// contract, the records are storage detail and free to evolve.
package domain

import "time"

// DraftRecord is one persisted in-progress message, keyed by a namespaced
// invitation token so concurrent sessions in different tabs never collide.
type DraftRecord struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Content   string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (DraftRecord) TableName() string { return "drafts" }

// SessionRecord is a mock-server interview session.
type SessionRecord struct {
	ID          string        `gorm:"type:TEXT NOT NULL;primaryKey"`
	EmployeeID  string        `gorm:"type:TEXT NOT NULL;index"`
	Status      SessionStatus `gorm:"type:TEXT NOT NULL"`
	Summary     string        `gorm:"type:TEXT NOT NULL;default:''"`
	StartedAt   *time.Time    `gorm:"type:DATETIME"`
	CompletedAt *time.Time    `gorm:"type:DATETIME"`
	FinalizedAt *time.Time    `gorm:"type:DATETIME"`
	CreatedAt   time.Time     `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (SessionRecord) TableName() string { return "sessions" }

// MessageRecord is one stored conversation turn. Sequence is unique within a
// session and assigned under the send transaction.
type MessageRecord struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SessionID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_seq,priority:1"`
	Role      string    `gorm:"type:TEXT NOT NULL;check:role IN ('user','assistant')"`
	Content   string    `gorm:"type:TEXT NOT NULL"`
	Sequence  int       `gorm:"type:INTEGER NOT NULL;uniqueIndex:ux_session_seq,priority:2"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (MessageRecord) TableName() string { return "messages" }

// Wire converts a stored message to its wire shape.
func (m MessageRecord) Wire() Message {
	return Message{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Sequence:  m.Sequence,
		CreatedAt: m.CreatedAt,
	}
}

// EmployeeRecord is a mock-server employee row.
type EmployeeRecord struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Name       string    `gorm:"type:TEXT NOT NULL"`
	Email      string    `gorm:"type:TEXT NOT NULL;uniqueIndex"`
	Position   string    `gorm:"type:TEXT NOT NULL;default:''"`
	Department string    `gorm:"type:TEXT NOT NULL;default:''"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (EmployeeRecord) TableName() string { return "employees" }

// InviteRecord maps an invitation token to a session. At most one non-revoked
// invite exists per employee; revoking detaches the widget's access while the
// session row survives for the admin views.
type InviteRecord struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	EmployeeID string    `gorm:"type:TEXT NOT NULL;index"`
	Token      string    `gorm:"type:TEXT NOT NULL;uniqueIndex"`
	SessionID  string    `gorm:"type:TEXT NOT NULL"`
	Revoked    bool      `gorm:"type:BOOLEAN NOT NULL;default:false"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (InviteRecord) TableName() string { return "invites" }

// QuestionRecord is one questionnaire item.
type QuestionRecord struct {
	ID                   string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	QuestionKey          string    `gorm:"type:TEXT NOT NULL;uniqueIndex"`
	Title                string    `gorm:"type:TEXT NOT NULL;default:''"`
	Text                 string    `gorm:"type:TEXT NOT NULL"`
	AnswerGuidance       string    `gorm:"type:TEXT NOT NULL;default:''"`
	SortOrder            int       `gorm:"type:INTEGER NOT NULL;index"`
	IsActive             bool      `gorm:"type:BOOLEAN NOT NULL;default:true"`
	QuestionnaireVersion int       `gorm:"type:INTEGER NOT NULL;default:1"`
	CreatedAt            time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (QuestionRecord) TableName() string { return "questions" }

// Wire converts a stored question to its wire shape.
func (q QuestionRecord) Wire() Question {
	return Question{
		ID:                   q.ID,
		QuestionKey:          q.QuestionKey,
		Title:                q.Title,
		Text:                 q.Text,
		AnswerGuidance:       q.AnswerGuidance,
		SortOrder:            q.SortOrder,
		IsActive:             q.IsActive,
		QuestionnaireVersion: q.QuestionnaireVersion,
	}
}

// PromptRecord is one immutable prompt version.
type PromptRecord struct {
	ID                 string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Type               string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_prompt_type_version,priority:1;check:type IN ('chat','extractor','summary')"`
	Version            int       `gorm:"type:INTEGER NOT NULL;uniqueIndex:ux_prompt_type_version,priority:2"`
	Content            string    `gorm:"type:TEXT NOT NULL"`
	IsActive           bool      `gorm:"type:BOOLEAN NOT NULL;default:false"`
	SupportedVariables string    `gorm:"type:TEXT NOT NULL;default:''"` // comma-separated
	CreatedAt          time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (PromptRecord) TableName() string { return "prompts" }

// SettingRecord is one database-layer setting override.
type SettingRecord struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"` // JSON-encoded
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (SettingRecord) TableName() string { return "settings" }

// IdempotencyRecord remembers the outcome of a processed send, keyed by
// (session_id, key). A duplicate delivery of the same key replays the stored
// message pair instead of appending a second one.
type IdempotencyRecord struct {
	ID                 string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SessionID          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_key,priority:1"`
	Key                string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_key,priority:2"`
	UserMessageID      string    `gorm:"type:TEXT NOT NULL"`
	AssistantMessageID string    `gorm:"type:TEXT NOT NULL"`
	IsComplete         bool      `gorm:"type:BOOLEAN NOT NULL;default:false"`
	CreatedAt          time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt          time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency" }
