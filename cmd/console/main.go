package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/medix-console/access"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/internal/config"
	"github.com/jrsteele09/medix-console/server"
	"github.com/jrsteele09/medix-console/sessions"
)

const version = "0.1.0"

var errPanicRecovered = errors.New("panic recovered")

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "medix-console",
		Short: "Pharmacy management console",
		Long: `Serves the pharmacy management console. Browser sessions are kept on the
server; access and refresh tokens for the remote API never reach the browser.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(envFile); err != nil {
				return err
			}
			if err := setupLogging(logLevel); err != nil {
				return err
			}
			for {
				err := run()
				if errors.Is(err, errPanicRecovered) {
					log.Error().Err(err).Msg("Restarting console")
					time.Sleep(1 * time.Second)
					continue
				}
				if err == nil {
					log.Info().Msg("Console stopped")
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading configuration")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("medix-console version %s\n", version)
		},
	})

	return cmd
}

// loadEnv reads the dotenv file when present; variables already set win
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setupLogging(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)
	if config.New().GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errPanicRecovered
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	repo, healthCheck, closeRepo, err := openRepo(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	policy, err := access.LoadPolicy(c.GetPolicyFile())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client := gateway.New(c.GetAPIBaseURL(),
		gateway.WithTimeout(c.GetAPITimeout()),
		gateway.WithMetrics(gateway.NewMetrics(reg)),
	)
	manager := auth.New(repo, client,
		auth.WithCheckTimeout(c.GetCheckTimeout()),
		auth.WithIdleTimeout(c.GetSessionIdleTimeout()),
	)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "console_sessions",
		Help: "Browser sessions currently held in memory.",
	}, func() float64 {
		return float64(manager.Len())
	}))

	handler, err := server.New(c, manager, policy, server.WithMetrics(reg), server.WithHealthCheck(healthCheck))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// openRepo builds the credential store selected by STORE_DRIVER
func openRepo(c config.Config) (sessions.Repo, func(context.Context) error, func(), error) {
	switch driver := c.GetStoreDriver(); driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using the in-memory credential store; sessions are lost on restart")
		return sessions.NewInMemoryRepo(), nil, func() {}, nil

	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Username: c.GetRedisUsername(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		repo := sessions.NewRedisRepo(client, c.GetSessionTTL())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Using the redis credential store")
		return repo, repo.Ping, func() { _ = client.Close() }, nil

	case config.StoreDriverSQLite:
		repo, err := sessions.OpenSQLiteRepo(c.GetSQLitePath())
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("path", c.GetSQLitePath()).Msg("Using the sqlite credential store")
		return repo, repo.Ping, func() { _ = repo.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Console listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
