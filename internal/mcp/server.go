package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/chatty/internal/progression"
	"github.com/felixgeelhaar/chatty/internal/session"
)

// Version is reported to MCP clients
const Version = "0.1.0"

// Server exposes the lesson commands as MCP tools
type Server struct {
	mcpServer *server.Server
	commands  session.Commands
}

// Config contains configuration for the MCP server
type Config struct {
	Commands session.Commands
}

// NewServer creates a new MCP server for chatty
func NewServer(cfg Config) *Server {
	s := &Server{
		commands: cfg.Commands,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "chatty",
		Version: Version,
	}, server.WithInstructions(`
Chatty walks a learner through an English curriculum, one short lesson at a time.
Every tool takes a learner_id; each learner's progress is kept separately.

Typical flow:
- lesson_levels: list the levels
- lesson_set_level: choose a level
- lesson_start: show the current lesson and its task
- lesson_answer: submit an answer to the task
- lesson_progress: show the learner's position

A rejected command is not an error: the result has kind "rejected", a reason and a
message to show the learner.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("lesson_levels").
		Description("List the curriculum levels in order with their lesson counts.").
		Handler(s.handleLevels)

	s.mcpServer.Tool("lesson_set_level").
		Description("Choose the learner's level. Moves the learner to lesson 1 of that level.").
		Handler(s.handleSetLevel)

	s.mcpServer.Tool("lesson_start").
		Description("Show the lesson at the learner's position and wait for an answer.").
		Handler(s.handleStart)

	s.mcpServer.Tool("lesson_repeat").
		Description("Show the current lesson again.").
		Handler(s.handleRepeat)

	s.mcpServer.Tool("lesson_review_prev").
		Description("Review the lesson before the current one without moving.").
		Handler(s.handleReviewPrev)

	s.mcpServer.Tool("lesson_review_next").
		Description("Review the lesson after the current one without moving.").
		Handler(s.handleReviewNext)

	s.mcpServer.Tool("lesson_jump").
		Description("Move to a lesson number within the current level.").
		Handler(s.handleJump)

	s.mcpServer.Tool("lesson_answer").
		Description("Submit the learner's answer to the pending task.").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("lesson_progress").
		Description("Show level, lesson position, pending task and goals.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("lesson_goals").
		Description("Replace the learner's learning goals.").
		Handler(s.handleGoals)

	s.mcpServer.Tool("lesson_reset").
		Description("Clear the learner's progress and level.").
		Handler(s.handleReset)
}

// Input/Output types for tools

type LearnerInput struct {
	LearnerID string `json:"learner_id" jsonschema:"description=Stable identifier of the learner"`
}

type SetLevelInput struct {
	LearnerID string `json:"learner_id" jsonschema:"description=Stable identifier of the learner"`
	Level     string `json:"level" jsonschema:"description=Level name from lesson_levels (case-insensitive)"`
}

type JumpInput struct {
	LearnerID string `json:"learner_id" jsonschema:"description=Stable identifier of the learner"`
	Lesson    int    `json:"lesson" jsonschema:"description=1-based lesson number within the current level"`
}

type AnswerInput struct {
	LearnerID string `json:"learner_id" jsonschema:"description=Stable identifier of the learner"`
	Answer    string `json:"answer" jsonschema:"description=The learner's answer text"`
}

type GoalsInput struct {
	LearnerID string   `json:"learner_id" jsonschema:"description=Stable identifier of the learner"`
	Goals     []string `json:"goals" jsonschema:"description=Free-text learning goals; an empty list clears them"`
}

type LevelsInput struct{}

type LevelsOutput struct {
	Levels []progression.LevelSummary `json:"levels"`
}

// Tool handlers

func (s *Server) handleLevels(ctx context.Context, input LevelsInput) (LevelsOutput, error) {
	levels, err := s.commands.Levels()
	if err != nil {
		return LevelsOutput{}, fmt.Errorf("failed to list levels: %w", err)
	}
	return LevelsOutput{Levels: levels}, nil
}

func (s *Server) handleSetLevel(ctx context.Context, input SetLevelInput) (session.Result, error) {
	return output("set level")(s.commands.SetLevel(ctx, input.LearnerID, input.Level))
}

func (s *Server) handleStart(ctx context.Context, input LearnerInput) (session.Result, error) {
	return output("start lesson")(s.commands.StartLesson(ctx, input.LearnerID))
}

func (s *Server) handleRepeat(ctx context.Context, input LearnerInput) (session.Result, error) {
	return output("repeat lesson")(s.commands.RepeatLesson(ctx, input.LearnerID))
}

func (s *Server) handleReviewPrev(ctx context.Context, input LearnerInput) (session.Result, error) {
	return output("review previous lesson")(s.commands.ReviewPrev(ctx, input.LearnerID))
}

func (s *Server) handleReviewNext(ctx context.Context, input LearnerInput) (session.Result, error) {
	return output("review next lesson")(s.commands.ReviewNext(ctx, input.LearnerID))
}

func (s *Server) handleJump(ctx context.Context, input JumpInput) (session.Result, error) {
	return output("jump")(s.commands.JumpTo(ctx, input.LearnerID, input.Lesson))
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (session.Result, error) {
	return output("check answer")(s.commands.SubmitAnswer(ctx, input.LearnerID, input.Answer))
}

func (s *Server) handleProgress(ctx context.Context, input LearnerInput) (session.Result, error) {
	return output("get progress")(s.commands.ProgressSnapshot(ctx, input.LearnerID))
}

func (s *Server) handleGoals(ctx context.Context, input GoalsInput) (session.Result, error) {
	return output("set goals")(s.commands.SetGoals(ctx, input.LearnerID, input.Goals))
}

func (s *Server) handleReset(ctx context.Context, input LearnerInput) (session.Result, error) {
	return output("reset")(s.commands.Reset(ctx, input.LearnerID))
}

// output turns a command result into a tool result. Rejections are returned
// as results; only faults become tool errors.
func output(action string) func(*session.Result, error) (session.Result, error) {
	return func(res *session.Result, err error) (session.Result, error) {
		if err != nil {
			return session.Result{}, fmt.Errorf("failed to %s: %w", action, err)
		}
		return *res, nil
	}
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
