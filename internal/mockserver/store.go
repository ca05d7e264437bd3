// Package mockserver is the development backend for the interview widget: a
// gin + SQLite stand-in for the production interview service. It implements
// the public widget contract (invitation lookup, session fetch, idempotent
// message submission with simulated staged post-processing) and the admin
// API (employees, invites, questions, prompts, budget, settings).
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
	"github.com/nmikhaylov/go-interview-widget/internal/repo"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	// ErrNotFound: the token, session, or resource does not exist.
	ErrNotFound = errors.New("mockserver: not found")
	// ErrInviteRevoked: the invitation exists but was revoked (410 on the wire).
	ErrInviteRevoked = errors.New("mockserver: invite revoked")
	// ErrSessionClosed: the session reached FINALIZED or ERROR; no more sends.
	ErrSessionClosed = errors.New("mockserver: session is closed")
	// ErrSessionBusy: post-processing is running; sends conflict until it ends.
	ErrSessionBusy = errors.New("mockserver: session is processing")
	// ErrValidation: the request payload is malformed.
	ErrValidation = errors.New("mockserver: invalid request")
)

const closingLine = "Thank you! That was the last question. Your answers are being processed now."

// Options tunes the store's simulation behavior and test seams.
type Options struct {
	// IdempotencyTTL bounds how long a processed send can be replayed.
	IdempotencyTTL time.Duration
	// StageDelay is the duration of each simulated post-processing stage.
	// Zero advances stages immediately (useful in tests).
	StageDelay time.Duration
	Now        func() time.Time
	NewID      func() string
	Logger     zerolog.Logger
}

// Store is the mock backend's state, persisted in SQLite through GORM.
type Store struct {
	db         *gorm.DB
	idemTTL    time.Duration
	stageDelay time.Duration
	now        func() time.Time
	newID      func() string
	log        zerolog.Logger

	// appendMu serializes message appends: SQLite allows a single writer,
	// and two overlapping append transactions would surface SQLITE_BUSY.
	appendMu sync.Mutex

	titleCaser cases.Caser

	// settingDefaults is the seeded settings catalog (value + source) that DB
	// overrides are layered on top of.
	settingDefaults map[string]domain.SettingValue
}

// Open opens (or creates) the SQLite database at path, migrates the schema,
// and seeds reference data into empty tables.
func Open(path string, opts Options) (*Store, error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(db,
		&domain.SessionRecord{},
		&domain.MessageRecord{},
		&domain.EmployeeRecord{},
		&domain.InviteRecord{},
		&domain.QuestionRecord{},
		&domain.PromptRecord{},
		&domain.SettingRecord{},
		&domain.IdempotencyRecord{},
	); err != nil {
		return nil, err
	}
	s, err := newStore(db, opts)
	if err != nil {
		return nil, err
	}
	if err := s.seed(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(db *gorm.DB, opts Options) (*Store, error) {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{
		db:         db,
		idemTTL:    opts.IdempotencyTTL,
		stageDelay: opts.StageDelay,
		now:        opts.Now,
		newID:      opts.NewID,
		log:        opts.Logger,
		titleCaser: cases.Title(language.English),
	}, nil
}

// SessionByToken resolves an invitation token to its session transcript.
// Unknown tokens are ErrNotFound; revoked ones are ErrInviteRevoked.
func (s *Store) SessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	var inv domain.InviteRecord
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if inv.Revoked {
		return nil, ErrInviteRevoked
	}
	return s.SessionByID(ctx, inv.SessionID)
}

// SessionByID loads a session with its full ordered transcript.
func (s *Store) SessionByID(ctx context.Context, id string) (*domain.Session, error) {
	var rec domain.SessionRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:       rec.ID,
		Status:   rec.Status,
		Messages: msgs,
		Summary:  rec.Summary,
	}, nil
}

func (s *Store) messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var recs []domain.MessageRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Wire())
	}
	return out, nil
}

// AppendMessage processes one user send. Semantics:
//   - a replayed idempotency key returns the originally persisted pair and
//     appends nothing;
//   - finalized/errored sessions conflict (ErrSessionClosed), as do sessions
//     mid post-processing (ErrSessionBusy);
//   - otherwise the user message and a scripted assistant reply are appended
//     in one transaction. The reply is the next unanswered questionnaire item,
//     or the closing line once the list is exhausted — which also marks the
//     session COMPLETED and kicks off the staged processing simulation.
func (s *Store) AppendMessage(ctx context.Context, sessionID, content, key string) (*domain.SendMessageResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" || key == "" {
		return nil, ErrValidation
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	var (
		resp     domain.SendMessageResponse
		complete bool
		replayed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The replay check lives inside the transaction so a duplicate
		// delivery cannot slip between the check and the append.
		if prev, ok, err := s.replay(tx, sessionID, key); err != nil {
			return err
		} else if ok {
			resp, replayed = *prev, true
			return nil
		}

		var sess domain.SessionRecord
		if err := tx.First(&sess, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sess.Status.IsTerminal() {
			return ErrSessionClosed
		}
		if sess.Status.IsProcessing() {
			return ErrSessionBusy
		}

		var maxSeq int
		if err := tx.Model(&domain.MessageRecord{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		now := s.now()
		user := domain.MessageRecord{
			ID:        s.newID(),
			SessionID: sessionID,
			Role:      domain.RoleUser,
			Content:   content,
			Sequence:  maxSeq + 1,
			CreatedAt: now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		var answered int64
		if err := tx.Model(&domain.MessageRecord{}).
			Where("session_id = ? AND role = ?", sessionID, domain.RoleUser).
			Count(&answered).Error; err != nil {
			return err
		}

		var questions []domain.QuestionRecord
		if err := tx.Where("is_active = ?", true).
			Order("sort_order ASC").
			Find(&questions).Error; err != nil {
			return err
		}

		// The welcome message already asked the first question, so the n-th
		// answer is followed by question n (0-based into the active list).
		var reply string
		if int(answered) < len(questions) {
			reply = questions[answered].Text
		} else {
			reply = closingLine
			complete = true
		}

		assistant := domain.MessageRecord{
			ID:        s.newID(),
			SessionID: sessionID,
			Role:      domain.RoleAssistant,
			Content:   reply,
			Sequence:  maxSeq + 2,
			CreatedAt: now,
		}
		if err := tx.Create(&assistant).Error; err != nil {
			return err
		}

		updates := map[string]any{}
		if sess.Status == domain.StatusNotStarted {
			updates["status"] = domain.StatusInProgress
			updates["started_at"] = now
		}
		if complete {
			updates["status"] = domain.StatusCompleted
			updates["completed_at"] = now
		}
		if len(updates) > 0 {
			if err := tx.Model(&domain.SessionRecord{}).
				Where("id = ?", sessionID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		idem := domain.IdempotencyRecord{
			ID:                 s.newID(),
			SessionID:          sessionID,
			Key:                key,
			UserMessageID:      user.ID,
			AssistantMessageID: assistant.ID,
			IsComplete:         complete,
			CreatedAt:          now,
			ExpiresAt:          now.Add(s.idemTTL),
		}
		if err := tx.Create(&idem).Error; err != nil {
			return err
		}

		resp = domain.SendMessageResponse{
			UserMessage:      user.Wire(),
			AssistantMessage: assistant.Wire(),
			IsComplete:       complete,
		}
		return nil
	})
	if err != nil {
		// A duplicate delivery from another process can still lose the race
		// and hit the unique (session_id, key) index; serve the stored pair.
		if isUniqueViolation(err) {
			if prev, ok, rerr := s.replay(s.db.WithContext(ctx), sessionID, key); rerr == nil && ok {
				s.log.Info().Str("session_id", sessionID).Str("key", key).Msg("idempotent replay")
				return prev, nil
			}
		}
		return nil, err
	}
	if replayed {
		s.log.Info().Str("session_id", sessionID).Str("key", key).Msg("idempotent replay")
		return &resp, nil
	}

	if complete {
		s.log.Info().Str("session_id", sessionID).Msg("questionnaire complete; starting staged processing")
		go s.advanceStages(sessionID)
	}
	return &resp, nil
}

// replay looks for an unexpired idempotency record and, when present, rebuilds
// the original response from the stored message pair.
func (s *Store) replay(db *gorm.DB, sessionID, key string) (*domain.SendMessageResponse, bool, error) {
	var rec domain.IdempotencyRecord
	err := db.
		Where("session_id = ? AND key = ? AND expires_at > ?", sessionID, key, s.now()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var user, assistant domain.MessageRecord
	if err := db.First(&user, "id = ?", rec.UserMessageID).Error; err != nil {
		return nil, false, err
	}
	if err := db.First(&assistant, "id = ?", rec.AssistantMessageID).Error; err != nil {
		return nil, false, err
	}
	return &domain.SendMessageResponse{
		UserMessage:      user.Wire(),
		AssistantMessage: assistant.Wire(),
		IsComplete:       rec.IsComplete,
	}, true, nil
}

// isUniqueViolation matches the SQLite unique-index error whether or not
// GORM translated it.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint"))
}

// advanceStages walks a completed session through EXTRACTING, SUMMARIZING,
// and FINALIZED, pausing stageDelay between moves. Each move is guarded by
// the expected predecessor status, so a concurrent admin reset or delete
// simply stops the progression.
func (s *Store) advanceStages(sessionID string) {
	steps := []struct {
		from, to domain.SessionStatus
	}{
		{domain.StatusCompleted, domain.StatusExtracting},
		{domain.StatusExtracting, domain.StatusSummarizing},
		{domain.StatusSummarizing, domain.StatusFinalized},
	}
	for _, step := range steps {
		if s.stageDelay > 0 {
			time.Sleep(s.stageDelay)
		}
		updates := map[string]any{"status": step.to}
		if step.to == domain.StatusFinalized {
			updates["summary"] = s.buildSummary(sessionID)
			updates["finalized_at"] = s.now()
		}
		res := s.db.Model(&domain.SessionRecord{}).
			Where("id = ? AND status = ?", sessionID, step.from).
			Updates(updates)
		if res.Error != nil || res.RowsAffected == 0 {
			s.log.Warn().Err(res.Error).
				Str("session_id", sessionID).
				Str("stage", string(step.to)).
				Msg("stage advance stopped")
			return
		}
		s.log.Debug().Str("session_id", sessionID).Str("stage", string(step.to)).Msg("stage advanced")
	}
}

// buildSummary fabricates the finalized profile summary from the employee
// name and the questionnaire coverage.
func (s *Store) buildSummary(sessionID string) string {
	name := "the employee"
	var inv domain.InviteRecord
	if err := s.db.First(&inv, "session_id = ?", sessionID).Error; err == nil {
		var emp domain.EmployeeRecord
		if err := s.db.First(&emp, "id = ?", inv.EmployeeID).Error; err == nil {
			name = s.titleCaser.String(emp.Name)
		}
	}
	var answered int64
	s.db.Model(&domain.MessageRecord{}).
		Where("session_id = ? AND role = ?", sessionID, domain.RoleUser).
		Count(&answered)
	return fmt.Sprintf("Profile summary for %s: %d questionnaire answers were collected and reviewed.", name, answered)
}
