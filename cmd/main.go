package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"sheet-qa/handler"
	"sheet-qa/internal/integrations/objectstore"
	"sheet-qa/internal/integrations/paramstore"
	"sheet-qa/internal/repository"
	"sheet-qa/internal/usecase"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	storeKind := envString("SESSION_STORE", "dynamodb")
	if err := checkStoreKind(storeKind); err != nil {
		slog.Error("invalid SESSION_STORE", "err", err)
		os.Exit(1)
	}
	sessionTTL := envDuration("SESSION_TTL", repository.DefaultSessionTTL)
	maxQuestionLen := envInt("MAX_QUESTION_LENGTH", 300)

	logPolicy, err := usecase.ParseLogPolicy(os.Getenv("LOG_POLICY"))
	if err != nil {
		slog.Error("invalid LOG_POLICY", "err", err)
		os.Exit(1)
	}
	archivePolicy, err := usecase.ParseArchivePolicy(os.Getenv("ARCHIVE_POLICY"))
	if err != nil {
		slog.Error("invalid ARCHIVE_POLICY", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	s3Client := awss3.NewFromConfig(cfg)
	archiver, err := objectstore.NewS3Archiver(s3Client, awss3.NewPresignClient(s3Client),
		objectstore.WithParams(ssmClient, paramPrefix))
	if err != nil {
		slog.Error("failed to create archiver", "err", err)
		os.Exit(1)
	}

	var store usecase.SessionStore
	var ingestOpts []usecase.IngesterOption
	switch storeKind {
	case "dynamodb":
		ingestOpts = append(ingestOpts, usecase.WithMaxTableBytes(repository.MaxTableBytes))
		store, err = repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), mustEnv("STATE_TABLE"), sessionTTL)
	case "redis":
		rdb, rerr := repository.NewRedisClient(mustEnv("REDIS_URL"))
		if rerr != nil {
			slog.Error("failed to create redis client", "err", rerr)
			os.Exit(1)
		}
		store, err = repository.NewRedisStore(rdb, sessionTTL)
	default:
		slog.Error("unknown SESSION_STORE", "value", storeKind)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("failed to create session store", "kind", storeKind, "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	ingestOpts = append(ingestOpts, usecase.WithLogPolicy(logPolicy), usecase.WithArchivePolicy(archivePolicy))
	ingester, err := usecase.NewIngester(archiver, ingestOpts...)
	if err != nil {
		slog.Error("failed to create ingester", "err", err)
		os.Exit(1)
	}
	dispatcher := usecase.NewDispatcher(usecase.NewKeywordClassifier(usecase.DefaultKeywordRules...), slog.Default())

	svc, err := usecase.NewSessionService(store, ingester, dispatcher, maxQuestionLen)
	if err != nil {
		slog.Error("failed to create session service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(svc, handler.WithMaxQuestionLength(maxQuestionLen))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	slog.Info("starting", "session_store", storeKind, "log_policy", logPolicy, "archive_policy", archivePolicy)
	lambda.Start(h.Handle)
}

// checkStoreKind accepts the shared session stores only. Each Lambda
// instance has its own memory, so an in-process store would lose sessions.
func checkStoreKind(kind string) error {
	switch kind {
	case "dynamodb", "redis":
		return nil
	case "memory":
		return errors.New("memory sessions are not shared between Lambda instances; use dynamodb or redis")
	default:
		return fmt.Errorf("unknown session store %q", kind)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
