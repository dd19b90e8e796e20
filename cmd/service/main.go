package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sheetfit/sheetfit/internal"
	"github.com/sheetfit/sheetfit/internal/config"
	"github.com/sheetfit/sheetfit/internal/logging"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "sheetfit-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	credentialsPath := os.Getenv("SHEETFIT_GOOGLE_CREDENTIALS_JSON")
	if credentialsPath == "" {
		log.Errorf("google credentials not set, use SHEETFIT_GOOGLE_CREDENTIALS_JSON env var to set it")
	}
	var credentialsJSON []byte
	if credentialsPath != "" {
		credentialsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			log.Fatalf("read google credentials file: %s", err)
		}
	}

	aiAPIKey := os.Getenv("SHEETFIT_AI_API_KEY")
	if aiAPIKey == "" {
		log.Errorf("AI API key not set, use SHEETFIT_AI_API_KEY env var to set it; photo analysis will be disabled")
	}

	redisPassword := os.Getenv("SHEETFIT_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use SHEETFIT_REDIS_PASS")
	}

	if cfg.HoneycombTracingEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                cfg,
			GoogleCredentialsJSON: credentialsJSON,
			AIAPIKey:              aiAPIKey,
			RedisPassword:         redisPassword,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}
