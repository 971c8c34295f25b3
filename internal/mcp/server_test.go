package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/chatty/internal/curriculum"
	"github.com/felixgeelhaar/chatty/internal/domain"
	"github.com/felixgeelhaar/chatty/internal/learner"
	"github.com/felixgeelhaar/chatty/internal/progression"
	"github.com/felixgeelhaar/chatty/internal/session"
	"github.com/felixgeelhaar/chatty/internal/validator"
)

// setupTestServer creates an MCP server over the bundled curriculum and an
// in-memory learner store
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	registry, err := curriculum.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	engine := progression.NewEngine(registry, validator.NewKeywordValidator())
	service := session.NewService(engine, learner.NewMemoryStore())

	return NewServer(Config{Commands: service})
}

// failingCommands fails every command with a persistence fault
type failingCommands struct {
	session.Commands
}

func (failingCommands) StartLesson(context.Context, string) (*session.Result, error) {
	return nil, domain.ErrPersistence
}

func (failingCommands) Levels() ([]progression.LevelSummary, error) {
	return nil, domain.ErrContentIntegrity
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t)
	if server.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.commands == nil {
		t.Fatal("expected non-nil commands")
	}
	if server.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
}

func TestServerConfig(t *testing.T) {
	server := NewServer(Config{})
	if server == nil {
		t.Fatal("expected non-nil server even with nil config")
	}
}

func TestHandleLevels(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleLevels(context.Background(), LevelsInput{})
	if err != nil {
		t.Fatalf("handleLevels() error = %v", err)
	}
	if len(out.Levels) != 6 {
		t.Fatalf("len(Levels) = %d, want 6", len(out.Levels))
	}
	if out.Levels[0].Level != domain.LevelBeginner || out.Levels[0].Number != 1 {
		t.Errorf("Levels[0] = %+v, want Beginner #1", out.Levels[0])
	}
}

func TestLessonFlow(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	id := LearnerInput{LearnerID: "learner-1"}

	res, err := server.handleStart(ctx, id)
	if err != nil {
		t.Fatalf("handleStart() error = %v", err)
	}
	if res.Kind != progression.KindRejected || res.Reason != progression.ReasonNoLevel {
		t.Errorf("start before level = %v/%s, want rejected no_level", res.Kind, res.Reason)
	}

	res, err = server.handleSetLevel(ctx, SetLevelInput{LearnerID: "learner-1", Level: "beginner"})
	if err != nil {
		t.Fatalf("handleSetLevel() error = %v", err)
	}
	if res.Level != domain.LevelBeginner {
		t.Errorf("Level = %q, want Beginner", res.Level)
	}

	res, err = server.handleStart(ctx, id)
	if err != nil {
		t.Fatalf("handleStart() error = %v", err)
	}
	if res.Kind != progression.KindPresented || res.Lesson == nil || res.Lesson.Number != 1 {
		t.Fatalf("handleStart() = %+v, want lesson 1 presented", res)
	}

	res, err = server.handleAnswer(ctx, AnswerInput{LearnerID: "learner-1", Answer: "banana"})
	if err != nil {
		t.Fatalf("handleAnswer() error = %v", err)
	}
	if res.Reason != progression.ReasonWrongAnswer {
		t.Errorf("wrong answer reason = %s, want wrong_answer", res.Reason)
	}

	res, err = server.handleAnswer(ctx, AnswerInput{LearnerID: "learner-1", Answer: "Hi, I'm Anna, I am 20 years old and I live in Riga"})
	if err != nil {
		t.Fatalf("handleAnswer() error = %v", err)
	}
	if res.Kind != progression.KindAdvanced || res.Event != progression.EventNextLesson {
		t.Errorf("handleAnswer() = %v/%s, want advanced next_lesson", res.Kind, res.Event)
	}

	res, err = server.handleReviewPrev(ctx, id)
	if err != nil {
		t.Fatalf("handleReviewPrev() error = %v", err)
	}
	if !res.Review || res.Lesson == nil || res.Lesson.Number != 1 {
		t.Errorf("handleReviewPrev() = %+v, want review of lesson 1", res)
	}

	res, err = server.handleRepeat(ctx, id)
	if err != nil {
		t.Fatalf("handleRepeat() error = %v", err)
	}
	if res.Review || res.Lesson == nil || res.Lesson.Number != 2 {
		t.Errorf("handleRepeat() = %+v, want lesson 2", res)
	}

	res, err = server.handleReviewNext(ctx, id)
	if err != nil {
		t.Fatalf("handleReviewNext() error = %v", err)
	}
	if res.Reason != progression.ReasonTaskPending {
		t.Errorf("review while pending reason = %s, want task_pending", res.Reason)
	}

	res, err = server.handleAnswer(ctx, AnswerInput{LearnerID: "learner-1", Answer: "She is my sister"})
	if err != nil {
		t.Fatalf("handleAnswer() error = %v", err)
	}
	if res.Kind != progression.KindAdvanced {
		t.Errorf("handleAnswer() kind = %v, want advanced", res.Kind)
	}

	res, err = server.handleJump(ctx, JumpInput{LearnerID: "learner-1", Lesson: 99})
	if err != nil {
		t.Fatalf("handleJump() error = %v", err)
	}
	if res.Reason != progression.ReasonOutOfRange || res.ValidRange == nil {
		t.Errorf("handleJump() = %+v, want out_of_range with range", res)
	}

	res, err = server.handleGoals(ctx, GoalsInput{LearnerID: "learner-1", Goals: []string{"travel"}})
	if err != nil {
		t.Fatalf("handleGoals() error = %v", err)
	}
	if res.Event != progression.EventGoalsSet {
		t.Errorf("handleGoals() event = %s, want goals_set", res.Event)
	}

	res, err = server.handleProgress(ctx, id)
	if err != nil {
		t.Fatalf("handleProgress() error = %v", err)
	}
	if res.Progress == nil || res.Progress.LessonNumber != 3 || res.Progress.Accepted != 2 {
		t.Fatalf("Progress = %+v, want lesson 3 with 2 accepted", res.Progress)
	}
	if len(res.Progress.Goals) != 1 || res.Progress.Goals[0] != "travel" {
		t.Errorf("Goals = %v, want [travel]", res.Progress.Goals)
	}

	res, err = server.handleReset(ctx, id)
	if err != nil {
		t.Fatalf("handleReset() error = %v", err)
	}
	if res.Event != progression.EventReset {
		t.Errorf("handleReset() event = %s, want reset", res.Event)
	}
}

func TestHandlers_Faults(t *testing.T) {
	server := NewServer(Config{Commands: failingCommands{}})
	ctx := context.Background()

	_, err := server.handleStart(ctx, LearnerInput{LearnerID: "learner-1"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("handleStart() error = %v, want ErrPersistence", err)
	}
	if err != nil && !strings.HasPrefix(err.Error(), "failed to start lesson") {
		t.Errorf("handleStart() error = %q, want action prefix", err)
	}

	if _, err := server.handleLevels(ctx, LevelsInput{}); !errors.Is(err, domain.ErrContentIntegrity) {
		t.Errorf("handleLevels() error = %v, want ErrContentIntegrity", err)
	}
}

func TestHandlers_EmptyLearnerID(t *testing.T) {
	server := setupTestServer(t)

	_, err := server.handleProgress(context.Background(), LearnerInput{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("handleProgress() error = %v, want ErrInvalidInput", err)
	}
}
