package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chatty/internal/app"
	"github.com/felixgeelhaar/chatty/internal/config"
	mcpserver "github.com/felixgeelhaar/chatty/internal/mcp"
	"github.com/felixgeelhaar/chatty/internal/session"
)

// cli holds flag values shared by every subcommand
type cli struct {
	dir     string
	learner string
	json    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "chatty",
		Short:         "Step-by-step English lessons",
		Long:          "Chatty walks a learner through an English curriculum one lesson at a time and checks each answer before moving on.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.dir, "dir", "", "Config and data directory (default ~/.chatty)")
	root.PersistentFlags().StringVarP(&c.learner, "learner", "l", defaultLearner(), "Learner ID (overrides CHATTY_LEARNER env var)")
	root.PersistentFlags().BoolVar(&c.json, "json", false, "Print results as JSON")

	root.AddCommand(
		c.levelsCmd(),
		c.command("level <name>", "Choose your level", cobra.ExactArgs(1),
			func(ctx context.Context, s *session.Service, args []string) (*session.Result, error) {
				return s.SetLevel(ctx, c.learner, args[0])
			}),
		c.command("lesson", "Show the current lesson and its task", cobra.NoArgs,
			func(ctx context.Context, s *session.Service, _ []string) (*session.Result, error) {
				return s.StartLesson(ctx, c.learner)
			}),
		c.command("repeat", "Show the current lesson again", cobra.NoArgs,
			func(ctx context.Context, s *session.Service, _ []string) (*session.Result, error) {
				return s.RepeatLesson(ctx, c.learner)
			}),
		c.command("prev", "Review the previous lesson", cobra.NoArgs,
			func(ctx context.Context, s *session.Service, _ []string) (*session.Result, error) {
				return s.ReviewPrev(ctx, c.learner)
			}),
		c.command("next", "Review the next lesson", cobra.NoArgs,
			func(ctx context.Context, s *session.Service, _ []string) (*session.Result, error) {
				return s.ReviewNext(ctx, c.learner)
			}),
		c.command("jump <number>", "Move to a lesson number in your level", cobra.ExactArgs(1),
			func(ctx context.Context, s *session.Service, args []string) (*session.Result, error) {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return nil, fmt.Errorf("lesson number %q is not a number", args[0])
				}
				return s.JumpTo(ctx, c.learner, n)
			}),
		c.command("answer <text>...", "Answer the current task", cobra.MinimumNArgs(1),
			func(ctx context.Context, s *session.Service, args []string) (*session.Result, error) {
				return s.SubmitAnswer(ctx, c.learner, strings.Join(args, " "))
			}),
		c.command("progress", "Show your level and position", cobra.NoArgs,
			func(ctx context.Context, s *session.Service, _ []string) (*session.Result, error) {
				return s.ProgressSnapshot(ctx, c.learner)
			}),
		c.command("goals [goal]...", "Set your learning goals (none clears them)", cobra.ArbitraryArgs,
			func(ctx context.Context, s *session.Service, args []string) (*session.Result, error) {
				return s.SetGoals(ctx, c.learner, args)
			}),
		c.command("reset", "Clear your progress and level", cobra.NoArgs,
			func(ctx context.Context, s *session.Service, _ []string) (*session.Result, error) {
				return s.Reset(ctx, c.learner)
			}),
		c.mcpCmd(),
	)

	return root
}

func defaultLearner() string {
	if id := os.Getenv("CHATTY_LEARNER"); id != "" {
		return id
	}
	return "local"
}

// withApp loads config, sets up logging and runs fn with a wired app
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	dir := c.dir
	if dir == "" {
		var err error
		if dir, err = config.EnsureChattyDir(); err != nil {
			return fmt.Errorf("ensure chatty dir: %w", err)
		}
	}

	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := setupLogging(dir, parseLogLevel(cfg.LogLevel), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to close resources", "error", err)
		}
	}()

	return fn(ctx, a)
}

type commandFunc func(ctx context.Context, s *session.Service, args []string) (*session.Result, error)

// command builds a subcommand that runs one learner command and prints
// its result
func (c *cli) command(use, short string, args cobra.PositionalArgs, run commandFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := run(ctx, a.Service, argv)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res)
			})
		},
	}
}

func (c *cli) levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				levels, err := a.Service.Levels()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.json {
					return writeJSON(out, levels)
				}
				for _, l := range levels {
					fmt.Fprintf(out, "%d. %s (%d lessons)\n", l.Number, l.Level, l.Lessons)
				}
				return nil
			})
		},
	}
}

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				slog.Info("starting MCP server", "version", mcpserver.Version)
				return mcpserver.NewServer(mcpserver.Config{Commands: a.Service}).ServeStdio(ctx)
			})
		},
	}
}

func (c *cli) print(w io.Writer, res *session.Result) error {
	if c.json {
		return writeJSON(w, res)
	}
	_, err := io.WriteString(w, render(res))
	return err
}

// render formats a result for the terminal
func render(res *session.Result) string {
	var b strings.Builder
	b.WriteString(res.Message)
	b.WriteString("\n")

	if l := res.Lesson; l != nil {
		b.WriteString("\n")
		if l.Explanation != "" {
			b.WriteString(strings.TrimSpace(l.Explanation))
			b.WriteString("\n")
		}
		if len(l.Examples) > 0 {
			b.WriteString("\nExamples:\n")
			for _, ex := range l.Examples {
				fmt.Fprintf(&b, "  - %s\n", ex)
			}
		}
		fmt.Fprintf(&b, "\nTask: %s\n", strings.TrimSpace(l.Task))
	}

	if p := res.Progress; p != nil && p.Onboarded {
		fmt.Fprintf(&b, "Answers accepted: %d\n", p.Accepted)
		if p.ReviewNumber > 0 {
			fmt.Fprintf(&b, "Reviewing lesson %d\n", p.ReviewNumber)
		}
		if len(p.Goals) > 0 {
			fmt.Fprintf(&b, "Goals: %s\n", strings.Join(p.Goals, ", "))
		}
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
