package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/quocan1101-cloud/acp-hackathon/config"
	"github.com/quocan1101-cloud/acp-hackathon/internal/bootstrap"
	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/data"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/migrate"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const defaultMigrationTimeout = 5 * time.Minute

var errUsage = errors.New("usage")

func main() {
	logger := bootstrap.InitLogger(os.Getenv("LOG_LEVEL"))

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadEnv()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply journal migrations",
			run:         runMigrations,
		},
		"migrate-status": {
			name:        "migrate-status",
			description: "List applied and pending journal migrations",
			run:         runMigrateStatus,
		},
		"tx-recent": {
			name:        "tx-recent",
			description: "Show the newest transaction attempts",
			run:         runTxRecent,
		},
		"tx-show": {
			name:        "tx-show",
			description: "Show every attempt of one call id",
			run:         runTxShow,
		},
		"job": {
			name:        "job",
			description: "Fetch a job and its memos from the ACP API",
			run:         runJob,
		},
		"agent": {
			name:        "agent",
			description: "Fetch an agent profile by wallet address",
			run:         runAgent,
		},
		"forget-agent": {
			name:        "forget-agent",
			description: "Drop a cached agent profile from Redis",
			run:         runForgetAgent,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: acp-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("migrate")
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "Maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(ctx, cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db.Close)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runMigrateStatus(cmdCtx *commandContext, args []string) error {
	if err := newFlagSet("migrate-status").Parse(args); err != nil {
		return err
	}
	db, err := connectDB(cmdCtx.Ctx, cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db.Close)

	applied, err := migrate.Status(cmdCtx.Ctx, db)
	if err != nil {
		return err
	}
	files, err := migrate.Pending()
	if err != nil {
		return err
	}
	return printMigrationStatus(cmdCtx.Out, files, applied)
}

func printMigrationStatus(out io.Writer, files []string, applied []migrate.Applied) error {
	done := make(map[string]time.Time, len(applied))
	for _, a := range applied {
		done[a.Version] = a.AppliedAt
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writef(w, "Version\tApplied\n"); err != nil {
		return err
	}
	for _, f := range files {
		version := f[:len(f)-len(".sql")]
		when := "pending"
		if at, ok := done[version]; ok {
			when = at.UTC().Format(time.RFC3339)
		}
		if err := writef(w, "%s\t%s\n", version, when); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runTxRecent(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("tx-recent")
	limit := fs.Int("limit", 20, "Number of attempts to show")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	db, err := connectDB(cmdCtx.Ctx, cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db.Close)

	attempts, err := data.NewTxJournalRepo(db).Recent(cmdCtx.Ctx, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(cmdCtx.Out, attempts)
	}
	return printAttempts(cmdCtx.Out, attempts)
}

func runTxShow(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("tx-show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: acp-admin tx-show <call-id>", errUsage)
	}
	db, err := connectDB(cmdCtx.Ctx, cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db.Close)

	attempts, err := data.NewTxJournalRepo(db).ListByCall(cmdCtx.Ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printAttempts(cmdCtx.Out, attempts)
}

func printAttempts(out io.Writer, attempts []*model.TxAttempt) error {
	if len(attempts) == 0 {
		return writef(out, "no attempts recorded\n")
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writef(w, "Time\tCall\tMethod\tAttempt\tResult\tStatus\tHandle\tError\n"); err != nil {
		return err
	}
	for _, a := range attempts {
		if err := writef(w, "%s\t%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			a.CreatedAt.UTC().Format(time.RFC3339), a.CallID, a.Method, a.Attempt,
			a.Result, a.Status, a.Handle, a.Error,
		); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runJob(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("job")
	asJSON := fs.Bool("json", false, "Print JSON instead of a summary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: acp-admin job <job-id>", errUsage)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid job id %q", fs.Arg(0))
	}
	api, err := newAPI(cmdCtx)
	if err != nil {
		return err
	}
	job, err := api.GetJob(cmdCtx.Ctx, id)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(cmdCtx.Out, job)
	}
	return printJob(cmdCtx.Out, job)
}

func printJob(out io.Writer, job *model.Job) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Job", strconv.FormatInt(job.ID, 10)},
		{"Phase", job.Phase.String()},
		{"Price", strconv.FormatFloat(job.Price, 'f', -1, 64)},
		{"Client", job.ClientAddress},
		{"Provider", job.ProviderAddress},
		{"Evaluator", job.EvaluatorAddress},
		{"Service", job.ServiceName()},
	}
	for _, r := range rows {
		if err := writef(w, "%s\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	if err := writef(w, "\nMemo\tType\tNext\tStatus\tContent\n"); err != nil {
		return err
	}
	for _, m := range job.Memos {
		if err := writef(w, "%d\t%s\t%s\t%s\t%s\n", m.ID, m.Type, m.NextPhase, m.Status, truncate(m.Content, 60)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runAgent(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("agent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || !config.IsAddress(fs.Arg(0)) {
		return fmt.Errorf("%w: acp-admin agent <wallet-address>", errUsage)
	}
	api, err := newAPI(cmdCtx)
	if err != nil {
		return err
	}
	agent, err := api.GetAgent(cmdCtx.Ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return writeJSON(cmdCtx.Out, agent)
}

func runForgetAgent(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("forget-agent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: acp-admin forget-agent <wallet-address>", errUsage)
	}
	if !cmdCtx.Config.Redis.Enabled() {
		return errors.New("REDIS_URI is not set")
	}
	client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "redis", client.Close)

	cache := core.NewAgentCacheService(
		data.NewRedisCache(client, cmdCtx.Config.Redis.Namespace),
		core.AgentCacheConfig{TTL: cmdCtx.Config.Redis.AgentTTL},
	)
	if err := cache.Invalidate(cmdCtx.Ctx, fs.Arg(0)); err != nil {
		return err
	}
	return writef(cmdCtx.Out, "forgot %s\n", fs.Arg(0))
}
