package mockserver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nmikhaylov/go-interview-widget/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mock.db"), Options{
		Logger: zerolog.Nop(),
		// Stages advance without pausing so tests can wait briefly.
		StageDelay: 0,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSeed_DemoInviteResolvable(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.SessionByToken(context.Background(), "demo-token")
	if err != nil {
		t.Fatalf("SessionByToken: %v", err)
	}
	if sess.Status != domain.StatusNotStarted {
		t.Fatalf("status = %s", sess.Status)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Role != domain.RoleAssistant {
		t.Fatalf("welcome transcript = %+v", sess.Messages)
	}
}

func TestSessionByToken_UnknownAndRevoked(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SessionByToken(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token err = %v", err)
	}

	emp, err := s.CreateEmployee(context.Background(), domain.EmployeeCreate{Name: "Ada Lovelace", Email: "ada@corp.test"})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	inv, err := s.CreateInvite(context.Background(), emp.ID)
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	if err := s.RevokeInvite(context.Background(), inv.ID); err != nil {
		t.Fatalf("RevokeInvite: %v", err)
	}
	if _, err := s.SessionByToken(context.Background(), inv.Token); !errors.Is(err, ErrInviteRevoked) {
		t.Fatalf("revoked token err = %v", err)
	}
	// The session itself survives revocation for the admin views.
	if _, err := s.SessionByID(context.Background(), inv.SessionID); err != nil {
		t.Fatalf("SessionByID after revoke: %v", err)
	}
}

func TestAppendMessage_QuestionProgressionAndCompletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.SessionByToken(ctx, "demo-token")
	if err != nil {
		t.Fatalf("SessionByToken: %v", err)
	}

	questions, err := s.Questions(ctx)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("seeded questions = %d", len(questions))
	}

	// Answers 1..2 are met with the next question.
	for i := 1; i <= 2; i++ {
		resp, err := s.AppendMessage(ctx, sess.ID, "answer", s.newID())
		if err != nil {
			t.Fatalf("AppendMessage #%d: %v", i, err)
		}
		if resp.IsComplete {
			t.Fatalf("completed early at answer %d", i)
		}
		if resp.AssistantMessage.Content != questions[i].Text {
			t.Fatalf("reply #%d = %q; want %q", i, resp.AssistantMessage.Content, questions[i].Text)
		}
	}

	// The last answer exhausts the list.
	resp, err := s.AppendMessage(ctx, sess.ID, "final answer", s.newID())
	if err != nil {
		t.Fatalf("final AppendMessage: %v", err)
	}
	if !resp.IsComplete {
		t.Fatal("expected is_complete on final answer")
	}

	// Staged post-processing ends in FINALIZED with a summary.
	waitFor(t, 2*time.Second, func() bool {
		got, err := s.SessionByID(ctx, sess.ID)
		return err == nil && got.Status == domain.StatusFinalized
	})
	final, err := s.SessionByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionByID: %v", err)
	}
	if final.Summary == "" {
		t.Fatal("finalized session has no summary")
	}

	// Finalized sessions refuse further sends.
	if _, err := s.AppendMessage(ctx, sess.ID, "more", s.newID()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("send after finalize err = %v", err)
	}
}

func TestAppendMessage_SequenceOrderAndStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _ := s.SessionByToken(ctx, "demo-token")

	resp, err := s.AppendMessage(ctx, sess.ID, "first answer", s.newID())
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	// Welcome is sequence 1; the pair continues the sequence.
	if resp.UserMessage.Sequence != 2 || resp.AssistantMessage.Sequence != 3 {
		t.Fatalf("sequences = %d, %d", resp.UserMessage.Sequence, resp.AssistantMessage.Sequence)
	}

	got, err := s.SessionByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionByID: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s; want IN_PROGRESS after first send", got.Status)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("transcript length = %d", len(got.Messages))
	}
}

func TestAppendMessage_IdempotentReplay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _ := s.SessionByToken(ctx, "demo-token")
	key := s.newID()

	first, err := s.AppendMessage(ctx, sess.ID, "hello", key)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	replay, err := s.AppendMessage(ctx, sess.ID, "hello", key)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.UserMessage.ID != first.UserMessage.ID || replay.AssistantMessage.ID != first.AssistantMessage.ID {
		t.Fatalf("replay returned a different pair: %+v vs %+v", replay, first)
	}

	got, _ := s.SessionByID(ctx, sess.ID)
	if len(got.Messages) != 3 {
		t.Fatalf("replay appended: transcript length = %d", len(got.Messages))
	}
}

func TestAppendMessage_ConcurrentDuplicateDelivery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _ := s.SessionByToken(ctx, "demo-token")
	key := s.newID()

	type result struct {
		resp *domain.SendMessageResponse
		err  error
	}
	results := make(chan result, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			resp, err := s.AppendMessage(ctx, sess.ID, "same answer", key)
			results <- result{resp, err}
		}()
	}
	close(start)

	var got [2]result
	for i := range got {
		got[i] = <-results
	}
	// Both deliveries succeed and see the same persisted pair.
	for i, r := range got {
		if r.err != nil {
			t.Fatalf("delivery %d: %v", i, r.err)
		}
	}
	if got[0].resp.UserMessage.ID != got[1].resp.UserMessage.ID ||
		got[0].resp.AssistantMessage.ID != got[1].resp.AssistantMessage.ID {
		t.Fatalf("deliveries returned different pairs: %+v vs %+v", got[0].resp, got[1].resp)
	}

	final, _ := s.SessionByID(ctx, sess.ID)
	if len(final.Messages) != 3 {
		t.Fatalf("transcript length = %d", len(final.Messages))
	}
}

func TestAppendMessage_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess, _ := s.SessionByToken(ctx, "demo-token")

	if _, err := s.AppendMessage(ctx, sess.ID, "   ", s.newID()); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank content err = %v", err)
	}
	if _, err := s.AppendMessage(ctx, sess.ID, "text", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing key err = %v", err)
	}
	if _, err := s.AppendMessage(ctx, "missing-session", "text", s.newID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session err = %v", err)
	}
}

func TestEmployees_CRUDAndRollups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	emp, err := s.CreateEmployee(ctx, domain.EmployeeCreate{Name: "Grace Hopper", Email: "Grace@Corp.Test", Position: "Admiral"})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	if emp.Email != "grace@corp.test" {
		t.Fatalf("email not normalized: %q", emp.Email)
	}

	newName := "Grace B. Hopper"
	updated, err := s.UpdateEmployee(ctx, emp.ID, domain.EmployeeUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}
	if updated.Name != newName || updated.Position != "Admiral" {
		t.Fatalf("partial update result = %+v", updated)
	}

	if _, err := s.CreateInvite(ctx, emp.ID); err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	items, total, err := s.ListEmployees(ctx, 0, 50)
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if total != 3 { // two seeded + one created
		t.Fatalf("total = %d", total)
	}
	var found bool
	for _, it := range items {
		if it.ID == emp.ID {
			found = true
			if !it.HasActiveInvite {
				t.Fatal("rollup missing active invite")
			}
			if it.LatestSessionStatus == nil || *it.LatestSessionStatus != domain.StatusNotStarted {
				t.Fatalf("latest status rollup = %v", it.LatestSessionStatus)
			}
		}
	}
	if !found {
		t.Fatal("created employee not listed")
	}

	if err := s.DeleteEmployee(ctx, emp.ID); err != nil {
		t.Fatalf("DeleteEmployee: %v", err)
	}
	if _, err := s.Employee(ctx, emp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted employee err = %v", err)
	}
}

func TestCreateInvite_RevokesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	emp, _ := s.CreateEmployee(ctx, domain.EmployeeCreate{Name: "Alan Turing", Email: "alan@corp.test"})
	first, err := s.CreateInvite(ctx, emp.ID)
	if err != nil {
		t.Fatalf("first invite: %v", err)
	}
	second, err := s.CreateInvite(ctx, emp.ID)
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}

	if _, err := s.SessionByToken(ctx, first.Token); !errors.Is(err, ErrInviteRevoked) {
		t.Fatalf("old token err = %v", err)
	}
	if _, err := s.SessionByToken(ctx, second.Token); err != nil {
		t.Fatalf("new token: %v", err)
	}
}

func TestQuestions_VersionBumpsOnStructuralChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateQuestion(ctx, domain.QuestionCreate{QuestionKey: "growth", Text: "Where do you want to grow?", SortOrder: 4})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	if created.QuestionnaireVersion != 2 {
		t.Fatalf("version after create = %d", created.QuestionnaireVersion)
	}

	// Copy edit: no bump.
	text := "Where would you like to grow?"
	edited, err := s.UpdateQuestion(ctx, created.ID, domain.QuestionUpdate{Text: &text})
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if edited.QuestionnaireVersion != 2 {
		t.Fatalf("version after copy edit = %d", edited.QuestionnaireVersion)
	}

	// Structural edit: bump.
	inactive := false
	edited, err = s.UpdateQuestion(ctx, created.ID, domain.QuestionUpdate{IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateQuestion structural: %v", err)
	}
	if edited.QuestionnaireVersion != 3 {
		t.Fatalf("version after structural edit = %d", edited.QuestionnaireVersion)
	}

	if err := s.DeleteQuestion(ctx, created.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	qs, _ := s.Questions(ctx)
	for _, q := range qs {
		if q.QuestionnaireVersion != 4 {
			t.Fatalf("version after delete = %d", q.QuestionnaireVersion)
		}
	}
}

func TestPrompts_VersioningAndActivation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreatePrompt(ctx, domain.PromptCreate{Type: domain.PromptChat, Content: "v3 prompt"})
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	if created.Version != 3 || created.IsActive {
		t.Fatalf("created prompt = %+v", created)
	}
	if len(created.SupportedVariables) == 0 {
		t.Fatal("supported variables not inherited")
	}

	activated, err := s.ActivatePrompt(ctx, created.ID)
	if err != nil {
		t.Fatalf("ActivatePrompt: %v", err)
	}
	if !activated.IsActive {
		t.Fatal("activation did not stick")
	}

	chats, _ := s.Prompts(ctx, domain.PromptChat)
	activeCount := 0
	for _, p := range chats {
		if p.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("active chat prompts = %d; want exactly 1", activeCount)
	}

	if _, err := s.CreatePrompt(ctx, domain.PromptCreate{Type: "bogus", Content: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bogus type err = %v", err)
	}
}

func TestSettings_OverrideAndReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base, err := s.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if base.Settings["chat_model"].Source != domain.SettingSourceDefault {
		t.Fatalf("seed source = %q", base.Settings["chat_model"].Source)
	}

	updated, err := s.UpdateSettings(ctx, domain.SettingsUpdateRequest{Settings: map[string]any{"chat_model": "gpt-5"}})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	got := updated.Settings["chat_model"]
	if got.Value != "gpt-5" || got.Source != domain.SettingSourceDatabase {
		t.Fatalf("override = %+v", got)
	}

	if err := s.ResetSetting(ctx, "chat_model"); err != nil {
		t.Fatalf("ResetSetting: %v", err)
	}
	after, _ := s.Settings(ctx)
	if after.Settings["chat_model"].Source != domain.SettingSourceDefault {
		t.Fatalf("source after reset = %q", after.Settings["chat_model"].Source)
	}
}

func TestBudget_TracksLimitSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b, err := s.Budget(ctx)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if b.LimitUSD != 100 {
		t.Fatalf("default limit = %v", b.LimitUSD)
	}

	if _, err := s.UpdateSettings(ctx, domain.SettingsUpdateRequest{Settings: map[string]any{"daily_budget_usd": 7.5}}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	b, err = s.Budget(ctx)
	if err != nil {
		t.Fatalf("Budget after override: %v", err)
	}
	if b.LimitUSD != 7.5 {
		t.Fatalf("limit after override = %v", b.LimitUSD)
	}
}

func TestAdminSession_FinalizedIncludesExtractedAnswers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, _ := s.SessionByToken(ctx, "demo-token")
	for i := 0; i < 3; i++ {
		if _, err := s.AppendMessage(ctx, sess.ID, "an answer", s.newID()); err != nil {
			t.Fatalf("AppendMessage #%d: %v", i, err)
		}
	}
	waitFor(t, 2*time.Second, func() bool {
		got, err := s.SessionByID(ctx, sess.ID)
		return err == nil && got.Status == domain.StatusFinalized
	})

	detail, err := s.AdminSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("AdminSession: %v", err)
	}
	if detail.Status != domain.StatusFinalized || detail.FinalizedAt == nil {
		t.Fatalf("detail = %+v", detail)
	}
	if len(detail.ExtractedAnswers) != 3 {
		t.Fatalf("extracted answers = %d", len(detail.ExtractedAnswers))
	}
	if detail.ExtractedAnswers[0].QuestionKey != "role" {
		t.Fatalf("first answer key = %q", detail.ExtractedAnswers[0].QuestionKey)
	}
}
