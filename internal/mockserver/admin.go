// Admin-facing store operations: employee and invite management, the
// questionnaire, prompt versioning, budget, and settings.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

// ListEmployees returns one page of employees, newest first, with per-row
// session rollups (latest status, last activity, invite flag).
func (s *Store) ListEmployees(ctx context.Context, offset, limit int) ([]domain.EmployeeListItem, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.EmployeeRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []domain.EmployeeRecord
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, 0, err
	}

	items := make([]domain.EmployeeListItem, 0, len(recs))
	for _, e := range recs {
		item := domain.EmployeeListItem{
			ID:         e.ID,
			Name:       e.Name,
			Email:      e.Email,
			Position:   e.Position,
			Department: e.Department,
			CreatedAt:  e.CreatedAt,
		}

		var latest domain.SessionRecord
		err := s.db.WithContext(ctx).
			Where("employee_id = ?", e.ID).
			Order("created_at DESC").
			First(&latest).Error
		if err == nil {
			status := latest.Status
			item.LatestSessionStatus = &status
			at := latest.UpdatedAt
			item.LastActivityAt = &at
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, err
		}

		var active int64
		if err := s.db.WithContext(ctx).Model(&domain.InviteRecord{}).
			Where("employee_id = ? AND revoked = ?", e.ID, false).
			Count(&active).Error; err != nil {
			return nil, 0, err
		}
		item.HasActiveInvite = active > 0

		items = append(items, item)
	}
	return items, total, nil
}

// CreateEmployee inserts a new employee row.
func (s *Store) CreateEmployee(ctx context.Context, req domain.EmployeeCreate) (*domain.Employee, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, ErrValidation
	}
	rec := domain.EmployeeRecord{
		ID:         s.newID(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Position:   strings.TrimSpace(req.Position),
		Department: strings.TrimSpace(req.Department),
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return s.Employee(ctx, rec.ID)
}

// Employee loads one employee with their active invite, if any.
func (s *Store) Employee(ctx context.Context, id string) (*domain.Employee, error) {
	var rec domain.EmployeeRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	emp := &domain.Employee{
		ID:         rec.ID,
		Name:       rec.Name,
		Email:      rec.Email,
		Position:   rec.Position,
		Department: rec.Department,
		CreatedAt:  rec.CreatedAt,
	}

	var inv domain.InviteRecord
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND revoked = ?", id, false).
		Order("created_at DESC").
		First(&inv).Error
	if err == nil {
		emp.ActiveInvite = &domain.Invite{
			ID:        inv.ID,
			Token:     inv.Token,
			SessionID: inv.SessionID,
			IsRevoked: inv.Revoked,
			CreatedAt: inv.CreatedAt,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return emp, nil
}

// UpdateEmployee applies a partial update; nil fields are untouched.
func (s *Store) UpdateEmployee(ctx context.Context, id string, req domain.EmployeeUpdate) (*domain.Employee, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Position != nil {
		updates["position"] = strings.TrimSpace(*req.Position)
	}
	if req.Department != nil {
		updates["department"] = strings.TrimSpace(*req.Department)
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&domain.EmployeeRecord{}).
			Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.Employee(ctx, id)
}

// DeleteEmployee removes the employee and everything hanging off them:
// invites, sessions, messages, idempotency records.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.EmployeeRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var sessionIDs []string
		if err := tx.Model(&domain.SessionRecord{}).
			Where("employee_id = ?", id).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := tx.Delete(&domain.MessageRecord{}, "session_id IN ?", sessionIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&domain.IdempotencyRecord{}, "session_id IN ?", sessionIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&domain.SessionRecord{}, "id IN ?", sessionIDs).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.InviteRecord{}, "employee_id = ?", id).Error
	})
}

// CreateInvite issues a fresh invitation for an employee: any previous invite
// is revoked, and a NOT_STARTED session is created whose welcome message asks
// the first active questionnaire item.
func (s *Store) CreateInvite(ctx context.Context, employeeID string) (*domain.InviteResponse, error) {
	var out domain.InviteResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var emp domain.EmployeeRecord
		if err := tx.First(&emp, "id = ?", employeeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&domain.InviteRecord{}).
			Where("employee_id = ? AND revoked = ?", employeeID, false).
			Update("revoked", true).Error; err != nil {
			return err
		}

		now := s.now()
		sess := domain.SessionRecord{
			ID:         s.newID(),
			EmployeeID: employeeID,
			Status:     domain.StatusNotStarted,
			CreatedAt:  now,
		}
		if err := tx.Create(&sess).Error; err != nil {
			return err
		}

		welcome := s.welcomeMessage(tx)
		msg := domain.MessageRecord{
			ID:        s.newID(),
			SessionID: sess.ID,
			Role:      domain.RoleAssistant,
			Content:   welcome,
			Sequence:  1,
			CreatedAt: now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		inv := domain.InviteRecord{
			ID:         s.newID(),
			EmployeeID: employeeID,
			Token:      s.newID(),
			SessionID:  sess.ID,
			CreatedAt:  now,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}

		out = domain.InviteResponse{ID: inv.ID, Token: inv.Token, SessionID: sess.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("employee_id", employeeID).Str("session_id", out.SessionID).Msg("invite issued")
	return &out, nil
}

// welcomeMessage combines the configured greeting with the first active
// question so the transcript opens with something to answer.
func (s *Store) welcomeMessage(tx *gorm.DB) string {
	greeting := "Hello! Let's fill in your questionnaire."
	if v, ok := s.effectiveSettingValue(tx, "welcome_message"); ok {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			greeting = str
		}
	}
	var q domain.QuestionRecord
	if err := tx.Where("is_active = ?", true).Order("sort_order ASC").First(&q).Error; err == nil {
		return greeting + " " + q.Text
	}
	return greeting
}

// RevokeInvite invalidates one invitation. The session row survives for the
// admin views; only the widget's access dies.
func (s *Store) RevokeInvite(ctx context.Context, inviteID string) error {
	res := s.db.WithContext(ctx).Model(&domain.InviteRecord{}).
		Where("id = ?", inviteID).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EmployeeSessions lists the administrative view of all sessions for one
// employee, newest first.
func (s *Store) EmployeeSessions(ctx context.Context, employeeID string) ([]domain.AdminSessionDetail, error) {
	var recs []domain.SessionRecord
	if err := s.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AdminSessionDetail, 0, len(recs))
	for _, rec := range recs {
		detail, err := s.adminDetail(ctx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *detail)
	}
	return out, nil
}

// AdminSession returns the full administrative view of one session.
func (s *Store) AdminSession(ctx context.Context, id string) (*domain.AdminSessionDetail, error) {
	var rec domain.SessionRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.adminDetail(ctx, rec)
}

func (s *Store) adminDetail(ctx context.Context, rec domain.SessionRecord) (*domain.AdminSessionDetail, error) {
	msgs, err := s.messages(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	detail := &domain.AdminSessionDetail{
		ID:                     rec.ID,
		EmployeeID:             rec.EmployeeID,
		Status:                 rec.Status,
		Version:                1,
		StartedAt:              rec.StartedAt,
		CompletedAt:            rec.CompletedAt,
		FinalizedAt:            rec.FinalizedAt,
		CreatedAt:              rec.CreatedAt,
		QuestionsSnapshot:      map[string]any{},
		PromptVersionsSnapshot: map[string]any{},
		Messages:               msgs,
		SummaryText:            rec.Summary,
	}
	if rec.Status == domain.StatusFinalized {
		answers, err := s.extractedAnswers(ctx, rec.ID, msgs)
		if err != nil {
			return nil, err
		}
		detail.ExtractedAnswers = answers
	}
	return detail, nil
}

// extractedAnswers pairs the user's replies with question keys in order,
// standing in for the extraction stage's structured output.
func (s *Store) extractedAnswers(ctx context.Context, sessionID string, msgs []domain.Message) ([]domain.ExtractedAnswer, error) {
	var questions []domain.QuestionRecord
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ExtractedAnswer, 0, len(questions))
	i := 0
	for _, m := range msgs {
		if m.Role != domain.RoleUser {
			continue
		}
		if i >= len(questions) {
			break
		}
		conf := 0.9
		out = append(out, domain.ExtractedAnswer{
			QuestionKey: questions[i].QuestionKey,
			AnswerText:  m.Content,
			Confidence:  &conf,
			Flags:       []string{},
		})
		i++
	}
	return out, nil
}

// ---- questionnaire ----

// Questions lists all questionnaire items in sort order.
func (s *Store) Questions(ctx context.Context) ([]domain.Question, error) {
	var recs []domain.QuestionRecord
	if err := s.db.WithContext(ctx).Order("sort_order ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Wire())
	}
	return out, nil
}

// CreateQuestion appends a questionnaire item and bumps the set version.
func (s *Store) CreateQuestion(ctx context.Context, req domain.QuestionCreate) (*domain.Question, error) {
	if strings.TrimSpace(req.QuestionKey) == "" || strings.TrimSpace(req.Text) == "" {
		return nil, ErrValidation
	}
	var out domain.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := bumpQuestionnaireVersion(tx)
		if err != nil {
			return err
		}
		rec := domain.QuestionRecord{
			ID:                   s.newID(),
			QuestionKey:          strings.TrimSpace(req.QuestionKey),
			Title:                strings.TrimSpace(req.Title),
			Text:                 strings.TrimSpace(req.Text),
			AnswerGuidance:       strings.TrimSpace(req.AnswerGuidance),
			SortOrder:            req.SortOrder,
			IsActive:             true,
			QuestionnaireVersion: next,
			CreatedAt:            s.now(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		out = rec.Wire()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQuestion applies a partial update. Structural changes (sort order,
// active flag) bump the set version; pure copy edits do not.
func (s *Store) UpdateQuestion(ctx context.Context, id string, req domain.QuestionUpdate) (*domain.Question, error) {
	var out domain.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.QuestionRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]any{}
		structural := false
		if req.Title != nil {
			updates["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Text != nil {
			updates["text"] = strings.TrimSpace(*req.Text)
		}
		if req.AnswerGuidance != nil {
			updates["answer_guidance"] = strings.TrimSpace(*req.AnswerGuidance)
		}
		if req.SortOrder != nil {
			updates["sort_order"] = *req.SortOrder
			structural = true
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
			structural = true
		}
		if structural {
			next, err := bumpQuestionnaireVersion(tx)
			if err != nil {
				return err
			}
			updates["questionnaire_version"] = next
		}
		if len(updates) > 0 {
			if err := tx.Model(&domain.QuestionRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		out = rec.Wire()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteQuestion removes a questionnaire item and bumps the set version.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.QuestionRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		_, err := bumpQuestionnaireVersion(tx)
		return err
	})
}

// bumpQuestionnaireVersion advances the shared questionnaire version and
// stamps it onto every remaining row, so clients see one consistent number.
func bumpQuestionnaireVersion(tx *gorm.DB) (int, error) {
	var current int
	if err := tx.Model(&domain.QuestionRecord{}).
		Select("COALESCE(MAX(questionnaire_version), 0)").
		Scan(&current).Error; err != nil {
		return 0, err
	}
	next := current + 1
	if err := tx.Model(&domain.QuestionRecord{}).
		Where("1 = 1").
		Update("questionnaire_version", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// ---- prompts ----

// Prompts lists prompt versions, optionally filtered by kind.
func (s *Store) Prompts(ctx context.Context, kind string) ([]domain.Prompt, error) {
	q := s.db.WithContext(ctx).Order("type ASC, version ASC")
	if kind != "" {
		q = q.Where("type = ?", kind)
	}
	var recs []domain.PromptRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Prompt, 0, len(recs))
	for _, r := range recs {
		out = append(out, promptWire(r))
	}
	return out, nil
}

// CreatePrompt stores a new inactive version of a prompt kind. The version
// number continues that kind's sequence; supported variables are inherited
// from the latest existing version.
func (s *Store) CreatePrompt(ctx context.Context, req domain.PromptCreate) (*domain.Prompt, error) {
	switch req.Type {
	case domain.PromptChat, domain.PromptExtractor, domain.PromptSummary:
	default:
		return nil, ErrValidation
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrValidation
	}

	var out domain.Prompt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest domain.PromptRecord
		vars := ""
		maxVersion := 0
		err := tx.Where("type = ?", req.Type).Order("version DESC").First(&latest).Error
		if err == nil {
			maxVersion = latest.Version
			vars = latest.SupportedVariables
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		rec := domain.PromptRecord{
			ID:                 s.newID(),
			Type:               req.Type,
			Version:            maxVersion + 1,
			Content:            req.Content,
			IsActive:           false,
			SupportedVariables: vars,
			CreatedAt:          s.now(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		out = promptWire(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivatePrompt makes one version active and deactivates its siblings of the
// same kind in the same transaction.
func (s *Store) ActivatePrompt(ctx context.Context, id string) (*domain.Prompt, error) {
	var out domain.Prompt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.PromptRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&domain.PromptRecord{}).
			Where("type = ?", rec.Type).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.PromptRecord{}).
			Where("id = ?", id).
			Update("is_active", true).Error; err != nil {
			return err
		}
		rec.IsActive = true
		out = promptWire(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func promptWire(r domain.PromptRecord) domain.Prompt {
	vars := []string{}
	if r.SupportedVariables != "" {
		vars = strings.Split(r.SupportedVariables, ",")
	}
	return domain.Prompt{
		ID:                 r.ID,
		Type:               r.Type,
		Version:            r.Version,
		Content:            r.Content,
		IsActive:           r.IsActive,
		CreatedAt:          r.CreatedAt,
		SupportedVariables: vars,
	}
}

// ---- budget & settings ----

// Budget reports today's simulated LLM spend against the configured daily
// limit (the daily_budget_usd setting).
func (s *Store) Budget(ctx context.Context) (*domain.BudgetStatus, error) {
	limit := 100.0
	if v, ok := s.effectiveSettingValue(s.db.WithContext(ctx), "daily_budget_usd"); ok {
		switch n := v.(type) {
		case float64:
			limit = n
		case int:
			limit = float64(n)
		}
	}

	// Spend scales with today's traffic: a flat rate per stored message.
	var msgs int64
	if err := s.db.WithContext(ctx).Model(&domain.MessageRecord{}).Count(&msgs).Error; err != nil {
		return nil, err
	}
	spent := float64(msgs) * 0.05
	reserved := 0.0
	remaining := limit - spent - reserved
	if remaining < 0 {
		remaining = 0
	}
	return &domain.BudgetStatus{
		Date:         s.now().Format("2006-01-02"),
		SpentUSD:     spent,
		ReservedUSD:  reserved,
		LimitUSD:     limit,
		RemainingUSD: remaining,
		IsExceeded:   spent+reserved >= limit,
	}, nil
}

// Settings returns the effective settings map: seeded defaults overlaid with
// database overrides, each value tagged with its source.
func (s *Store) Settings(ctx context.Context) (*domain.SettingsResponse, error) {
	out := make(map[string]domain.SettingValue, len(s.settingDefaults))
	for k, v := range s.settingDefaults {
		out[k] = v
	}

	var recs []domain.SettingRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	for _, r := range recs {
		var v any
		if err := json.Unmarshal([]byte(r.Value), &v); err != nil {
			s.log.Warn().Err(err).Str("key", r.Key).Msg("unreadable setting override")
			continue
		}
		out[r.Key] = domain.SettingValue{Value: v, Source: domain.SettingSourceDatabase}
	}
	return &domain.SettingsResponse{Settings: out}, nil
}

// UpdateSettings writes database-layer overrides and returns the resulting
// effective map.
func (s *Store) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (*domain.SettingsResponse, error) {
	if len(req.Settings) == 0 {
		return nil, ErrValidation
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range req.Settings {
			buf, err := json.Marshal(v)
			if err != nil {
				return ErrValidation
			}
			rec := domain.SettingRecord{Key: k, Value: string(buf), UpdatedAt: s.now()}
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Settings(ctx)
}

// ResetSetting drops one database override; the env/default value applies
// again. Resetting a key that has no override is a no-op.
func (s *Store) ResetSetting(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&domain.SettingRecord{}, "key = ?", key).Error
}

// effectiveSettingValue resolves one setting against overrides and defaults.
func (s *Store) effectiveSettingValue(tx *gorm.DB, key string) (any, bool) {
	var rec domain.SettingRecord
	if err := tx.First(&rec, "key = ?", key).Error; err == nil {
		var v any
		if json.Unmarshal([]byte(rec.Value), &v) == nil {
			return v, true
		}
	}
	if v, ok := s.settingDefaults[key]; ok {
		return v.Value, true
	}
	return nil, false
}
