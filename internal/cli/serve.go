package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/server"
	"taskboard/internal/store"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task API (SQLite, optional Redis cache)",
		Long: strings.TrimSpace(`
Serves the task API the board talks to.

Tasks live in a SQLite file (--db). With --redis-url the task list is cached in
Redis for --cache-ttl. --fail-rate and --latency inject failures and delay into
status updates, which is handy for watching the board roll moves back.
`),
		Example: strings.TrimSpace(`
taskboard serve --seed
taskboard serve --addr :9090 --redis-url redis://localhost:6379/0
taskboard serve --fail-rate 0.3 --latency 800ms
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runServe(cmd, app); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "Listen address (default :8080)")
	f.String("db", "", "SQLite database path")
	f.String("redis-url", "", "Redis URL for the task list cache (empty disables it)")
	f.Duration("cache-ttl", 0, "Task list cache TTL")
	f.String("jwt-secret", "", "Require HS256 bearer tokens signed with this secret")
	f.Float64("fail-rate", 0, "Probability (0..1) that a status update fails with 503")
	f.Duration("latency", 0, "Delay added to every status update")
	f.Bool("seed", false, "Insert demo tasks when the database is empty")
	return cmd
}

func runServe(cmd *cobra.Command, app *App) error {
	ctx := commandContext(cmd)
	sc := app.Config.Server
	log := app.Log

	tasks, err := store.OpenTasks(ctx, sc.DBPath)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer tasks.Close()

	if sc.Seed {
		n, err := tasks.SeedIfEmpty(ctx, store.DemoTasks(time.Now()))
		if err != nil {
			return fmt.Errorf("seed tasks: %w", err)
		}
		if n > 0 {
			log.WithField("count", n).Info("seeded demo tasks")
		}
	}

	var repo store.Repository = tasks
	if strings.TrimSpace(sc.RedisURL) != "" {
		opt, err := redis.ParseURL(sc.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable; list cache will miss until it recovers")
		}
		repo = store.NewCache(tasks, rdb, sc.CacheTTL)
	}

	log.WithFields(logrus.Fields{
		"db":        sc.DBPath,
		"cache":     sc.RedisURL != "",
		"auth":      sc.JWTSecret != "",
		"fail_rate": sc.FailRate,
		"latency":   sc.Latency.String(),
	}).Info("starting task api")

	e := server.New(repo, server.Options{
		JWTSecret: sc.JWTSecret,
		FailRate:  sc.FailRate,
		Latency:   sc.Latency,
	}, log)
	return server.Run(ctx, e, sc.Addr, log)
}
