package mockserver

import (
	"context"
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Questions []struct {
		QuestionKey    string `yaml:"question_key"`
		Title          string `yaml:"title"`
		Text           string `yaml:"text"`
		AnswerGuidance string `yaml:"answer_guidance"`
		SortOrder      int    `yaml:"sort_order"`
	} `yaml:"questions"`
	Prompts []struct {
		Type               string   `yaml:"type"`
		Version            int      `yaml:"version"`
		Content            string   `yaml:"content"`
		IsActive           bool     `yaml:"is_active"`
		SupportedVariables []string `yaml:"supported_variables"`
	} `yaml:"prompts"`
	Settings map[string]struct {
		Value  any    `yaml:"value"`
		Source string `yaml:"source"`
	} `yaml:"settings"`
	Employees []struct {
		Name        string `yaml:"name"`
		Email       string `yaml:"email"`
		Position    string `yaml:"position"`
		Department  string `yaml:"department"`
		InviteToken string `yaml:"invite_token"`
	} `yaml:"employees"`
}

// seed parses the embedded fixtures, loads the settings catalog, and inserts
// reference rows into empty tables. Seeding is idempotent: a table that
// already holds data is left alone.
func (s *Store) seed(ctx context.Context) error {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return err
	}

	s.settingDefaults = make(map[string]domain.SettingValue, len(f.Settings))
	for k, v := range f.Settings {
		s.settingDefaults[k] = domain.SettingValue{Value: v.Value, Source: v.Source}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.seedQuestions(tx, f); err != nil {
			return err
		}
		if err := s.seedPrompts(tx, f); err != nil {
			return err
		}
		return s.seedEmployees(tx, f)
	})
}

func (s *Store) seedQuestions(tx *gorm.DB, f seedFile) error {
	var n int64
	if err := tx.Model(&domain.QuestionRecord{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, q := range f.Questions {
		rec := domain.QuestionRecord{
			ID:                   s.newID(),
			QuestionKey:          q.QuestionKey,
			Title:                q.Title,
			Text:                 q.Text,
			AnswerGuidance:       q.AnswerGuidance,
			SortOrder:            q.SortOrder,
			IsActive:             true,
			QuestionnaireVersion: 1,
			CreatedAt:            s.now(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
	}
	s.log.Info().Int("count", len(f.Questions)).Msg("seeded questions")
	return nil
}

func (s *Store) seedPrompts(tx *gorm.DB, f seedFile) error {
	var n int64
	if err := tx.Model(&domain.PromptRecord{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, p := range f.Prompts {
		rec := domain.PromptRecord{
			ID:                 s.newID(),
			Type:               p.Type,
			Version:            p.Version,
			Content:            p.Content,
			IsActive:           p.IsActive,
			SupportedVariables: strings.Join(p.SupportedVariables, ","),
			CreatedAt:          s.now(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
	}
	s.log.Info().Int("count", len(f.Prompts)).Msg("seeded prompts")
	return nil
}

// seedEmployees inserts the demo employees; any employee carrying an
// invite_token also gets a ready-to-open session so the widget can be pointed
// at a stable token out of the box.
func (s *Store) seedEmployees(tx *gorm.DB, f seedFile) error {
	var n int64
	if err := tx.Model(&domain.EmployeeRecord{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, e := range f.Employees {
		emp := domain.EmployeeRecord{
			ID:         s.newID(),
			Name:       e.Name,
			Email:      e.Email,
			Position:   e.Position,
			Department: e.Department,
			CreatedAt:  s.now(),
		}
		if err := tx.Create(&emp).Error; err != nil {
			return err
		}
		if e.InviteToken == "" {
			continue
		}

		now := s.now()
		sess := domain.SessionRecord{
			ID:         s.newID(),
			EmployeeID: emp.ID,
			Status:     domain.StatusNotStarted,
			CreatedAt:  now,
		}
		if err := tx.Create(&sess).Error; err != nil {
			return err
		}
		msg := domain.MessageRecord{
			ID:        s.newID(),
			SessionID: sess.ID,
			Role:      domain.RoleAssistant,
			Content:   s.welcomeMessage(tx),
			Sequence:  1,
			CreatedAt: now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		inv := domain.InviteRecord{
			ID:         s.newID(),
			EmployeeID: emp.ID,
			Token:      e.InviteToken,
			SessionID:  sess.ID,
			CreatedAt:  now,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		s.log.Info().Str("token", e.InviteToken).Str("session_id", sess.ID).Msg("seeded demo invite")
	}
	return nil
}
