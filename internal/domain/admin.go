// Admin console wire types.
//
// These mirror the administrative API consumed by the console: employee and
// invitation management, questionnaire editing, prompt versioning, budget
// tracking, and runtime settings. The chat widget itself never touches these.
package domain

import "time"

// Invite links an invitation token to a session. The token is the only
// identifier the unauthenticated widget ever sees.
type Invite struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// Employee is the detail view of an employee, including the currently active
// invite when one exists.
type Employee struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Position     string    `json:"position,omitempty"`
	Department   string    `json:"department,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ActiveInvite *Invite   `json:"active_invite"`
}

// EmployeeListItem is the flattened row shown on the employees list page.
type EmployeeListItem struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Email               string         `json:"email"`
	Position            string         `json:"position,omitempty"`
	Department          string         `json:"department,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	LatestSessionStatus *SessionStatus `json:"latest_session_status"`
	LastActivityAt      *time.Time     `json:"last_activity_at"`
	HasActiveInvite     bool           `json:"has_active_invite"`
}

// EmployeeCreate is the payload for creating an employee.
type EmployeeCreate struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Position   string `json:"position,omitempty"`
	Department string `json:"department,omitempty"`
}

// EmployeeUpdate is the payload for a partial employee update. Nil fields
// are left unchanged.
type EmployeeUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Position   *string `json:"position,omitempty"`
	Department *string `json:"department,omitempty"`
}

// Question is one questionnaire item. Questions are versioned as a set: any
// structural edit bumps QuestionnaireVersion on the backend.
type Question struct {
	ID                   string `json:"id"`
	QuestionKey          string `json:"question_key"`
	Title                string `json:"title,omitempty"`
	Text                 string `json:"text"`
	AnswerGuidance       string `json:"answer_guidance,omitempty"`
	SortOrder            int    `json:"sort_order"`
	IsActive             bool   `json:"is_active"`
	QuestionnaireVersion int    `json:"questionnaire_version"`
}

// QuestionCreate is the payload for creating a question.
type QuestionCreate struct {
	QuestionKey    string `json:"question_key"`
	Title          string `json:"title,omitempty"`
	Text           string `json:"text"`
	AnswerGuidance string `json:"answer_guidance,omitempty"`
	SortOrder      int    `json:"sort_order"`
}

// QuestionUpdate is the payload for a partial question update.
type QuestionUpdate struct {
	Title          *string `json:"title,omitempty"`
	Text           *string `json:"text,omitempty"`
	AnswerGuidance *string `json:"answer_guidance,omitempty"`
	SortOrder      *int    `json:"sort_order,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// Prompt kinds. Each kind has an independent version sequence and at most
// one active version.
const (
	PromptChat      = "chat"
	PromptExtractor = "extractor"
	PromptSummary   = "summary"
)

// Prompt is one immutable version of an LLM prompt template.
type Prompt struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	Version            int       `json:"version"`
	Content            string    `json:"content"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	SupportedVariables []string  `json:"supported_variables"`
}

// PromptCreate is the payload for creating a new prompt version. The version
// number is assigned server-side; new versions start inactive.
type PromptCreate struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// BudgetStatus is the daily LLM spend snapshot shown on the dashboard.
type BudgetStatus struct {
	Date         string  `json:"date"`
	SpentUSD     float64 `json:"spent_usd"`
	ReservedUSD  float64 `json:"reserved_usd"`
	LimitUSD     float64 `json:"limit_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
	IsExceeded   bool    `json:"is_exceeded"`
}

// Setting value sources, in precedence order as reported by the backend.
const (
	SettingSourceDatabase = "database"
	SettingSourceEnv      = "env"
	SettingSourceDefault  = "default"
)

// SettingValue is one runtime setting plus where its effective value came from.
type SettingValue struct {
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// SettingsResponse is the full settings map keyed by setting name.
type SettingsResponse struct {
	Settings map[string]SettingValue `json:"settings"`
}

// SettingsUpdateRequest overrides a subset of settings in the database layer.
type SettingsUpdateRequest struct {
	Settings map[string]any `json:"settings"`
}

// InviteResponse is returned when an invite is issued for an employee.
type InviteResponse struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

// ExtractedAnswer is one structured answer pulled from the transcript by the
// extraction stage.
type ExtractedAnswer struct {
	QuestionKey string   `json:"question_key"`
	AnswerText  string   `json:"answer_text"`
	Confidence  *float64 `json:"confidence"`
	Flags       []string `json:"flags"`
}

// AdminSessionDetail is the full administrative view of a session, including
// processing timestamps, snapshots taken at session start, and extraction
// output.
type AdminSessionDetail struct {
	ID                     string            `json:"id"`
	EmployeeID             string            `json:"employee_id"`
	Status                 SessionStatus     `json:"status"`
	Version                int               `json:"version"`
	StartedAt              *time.Time        `json:"started_at"`
	CompletedAt            *time.Time        `json:"completed_at"`
	FinalizedAt            *time.Time        `json:"finalized_at"`
	ErrorStage             string            `json:"error_stage,omitempty"`
	ErrorMessage           string            `json:"error_message,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	QuestionsSnapshot      map[string]any    `json:"questions_snapshot"`
	PromptVersionsSnapshot map[string]any    `json:"prompt_versions_snapshot"`
	Messages               []Message         `json:"messages"`
	ExtractedAnswers       []ExtractedAnswer `json:"extracted_answers"`
	SummaryText            string            `json:"summary_text,omitempty"`
}
