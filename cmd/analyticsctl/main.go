package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/language-gems/analytics-service/internal/config"
	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories/postgres"
	"github.com/language-gems/analytics-service/internal/services"
	"github.com/language-gems/analytics-service/internal/validator"
	"github.com/language-gems/analytics-service/pkg"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fatalf("Failed to load configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cmd, err := parseCommand(os.Args[1], os.Args[2:])
	if err != nil {
		printUsage()
		fatalf("%v", err)
	}

	location, err := cfg.Location()
	if err != nil {
		fatalf("%v", err)
	}
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		fatalf("Failed to initialize database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	manager := services.NewServiceManager(postgres.NewRepository(db), logger, validator.New(), services.Options{Location: location})

	if err := cmd.run(context.Background(), manager, os.Stdout); err != nil {
		fatalf("%s failed: %v", os.Args[1], err)
	}
}

// command is one parsed subcommand.
type command struct {
	name         string
	teacherID    string
	assignmentID string
	from, to     string
	limit        int
	board        services.LeaderboardQuery
	out          string
}

func parseCommand(name string, args []string) (*command, error) {
	cmd := &command{name: name}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cmd.teacherID, "teacher", "", "Teacher ID (required)")

	switch name {
	case "coverage":
		fs.StringVar(&cmd.assignmentID, "assignment", "", "Assignment ID (required)")
		fs.StringVar(&cmd.from, "from", "", "First day, 2006-01-02")
		fs.StringVar(&cmd.to, "to", "", "Last day, 2006-01-02")
	case "words":
		fs.StringVar(&cmd.assignmentID, "assignment", "", "Assignment ID (required)")
		fs.IntVar(&cmd.limit, "limit", 20, "Number of words to print")
	case "leaderboard":
		fs.StringVar(&cmd.board.ClassID, "class", "", "Class ID")
		fs.StringVar(&cmd.board.Scope, "scope", "", "my-classes or school")
		fs.StringVar(&cmd.board.Period, "period", "", "daily, weekly, monthly or all_time")
		fs.StringVar(&cmd.board.Metric, "metric", "", "points, xp, gems, score or accuracy")
		fs.IntVar(&cmd.board.Limit, "limit", services.DefaultLimit, "Maximum students")
	case "export":
		fs.StringVar(&cmd.assignmentID, "assignment", "", "Assignment ID (required)")
		fs.StringVar(&cmd.out, "out", "", "Output file (default: generated name in the current directory)")
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cmd.teacherID == "" {
		return nil, fmt.Errorf("-teacher is required")
	}
	if name != "leaderboard" && cmd.assignmentID == "" {
		return nil, fmt.Errorf("-assignment is required")
	}
	cmd.board.TeacherID = cmd.teacherID
	return cmd, nil
}

func (c *command) assignmentQuery() services.AssignmentQuery {
	return services.AssignmentQuery{
		TeacherID:    c.teacherID,
		AssignmentID: c.assignmentID,
		From:         c.from,
		To:           c.to,
	}
}

func (c *command) run(ctx context.Context, manager *services.ServiceManager, out io.Writer) error {
	switch c.name {
	case "coverage":
		resp, err := manager.Assignments().GetAnalytics(ctx, c.assignmentQuery())
		if err != nil {
			return err
		}
		printCoverage(out, resp)
		return nil

	case "words":
		resp, err := manager.Assignments().GetAnalytics(ctx, c.assignmentQuery())
		if err != nil {
			return err
		}
		printWords(out, resp.Words, c.limit)
		return nil

	case "leaderboard":
		board, err := manager.Leaderboards().GetLeaderboard(ctx, c.board)
		if err != nil {
			return err
		}
		printLeaderboard(out, board)
		return nil

	default:
		file, err := manager.Assignments().Export(ctx, c.assignmentQuery())
		if err != nil {
			return err
		}
		path := c.out
		if path == "" {
			path = file.Filename
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(path, file.Content, 0644); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s (%.1f KB)\n", path, float64(len(file.Content))/1024)
		return nil
	}
}

func printCoverage(out io.Writer, resp *services.AssignmentAnalyticsResponse) {
	o := resp.Overview
	fmt.Fprintf(out, "%s (%s)\n\n", o.AssignmentTitle, o.ClassName)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Enrolled\t%d\n", o.TotalStudents)
	fmt.Fprintf(w, "With a session\t%d\n", o.StudentsWithSession)
	fmt.Fprintf(w, "Completed\t%d\n", o.StudentsCompleted)
	fmt.Fprintf(w, "In progress\t%d\n", o.StudentsInProgress)
	fmt.Fprintf(w, "Abandoned\t%d\n", o.StudentsAbandoned)
	fmt.Fprintf(w, "Not started\t%d\n", o.StudentsNotStarted)
	w.Flush()

	fmt.Fprintln(out, "\nNot started:")
	for _, s := range resp.Students {
		if s.Status == string(models.StatusNotStarted) {
			fmt.Fprintf(out, "  %s\t%s\n", s.StudentID, s.Name)
		}
	}
}

func printWords(out io.Writer, words []services.WordDifficultyResponse, limit int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tWORD\tATTEMPTS\tFAILURE %\tSTUDENTS\tLEVEL")
	for i, word := range words {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.0f\t%d\t%s\n",
			word.Rank, word.Word, word.TotalAttempts, word.FailureRate, word.StudentsAttempted, word.InsightLevel)
	}
	w.Flush()
}

func printLeaderboard(out io.Writer, board *services.LeaderboardPayload) {
	fmt.Fprintf(out, "%s / %s / %s", board.Scope, board.TimePeriod, board.Metric)
	if board.ScopeFallback {
		fmt.Fprint(out, " (no school found, showing own classes)")
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTUDENT\tCLASS\tSCORE\tGAMES")
	for _, s := range board.Students {
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%d\n", s.Rank, s.Name, s.ClassName, s.Score, s.GamesPlayed)
	}
	w.Flush()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Language Gems analytics tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  analyticsctl coverage -teacher <id> -assignment <id> [-from 2006-01-02] [-to 2006-01-02]")
	fmt.Println("  analyticsctl words -teacher <id> -assignment <id> [-limit 20]")
	fmt.Println("  analyticsctl leaderboard -teacher <id> [-class <id>] [-scope my-classes|school] [-period weekly] [-metric points] [-limit 100]")
	fmt.Println("  analyticsctl export -teacher <id> -assignment <id> [-out file.xlsx]")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_URL          PostgreSQL connection URL")
	fmt.Println("  LEADERBOARD_TIMEZONE  IANA zone for leaderboard periods (default: UTC)")
}
