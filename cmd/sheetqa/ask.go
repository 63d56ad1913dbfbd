package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sheet-qa/internal/integrations/objectstore"
	"sheet-qa/internal/repository"
	"sheet-qa/internal/usecase"
)

type askOptions struct {
	file          string
	question      string
	archiver      usecase.Archiver
	archivePolicy string
	logPolicy     string
}

var askCmd = &cobra.Command{
	Use:   "ask <file.xlsx> <question...>",
	Short: "Upload a sheet and answer one question about it",
	Example: `  sheetqa ask sales.xlsx total sales
  sheetqa ask sales.xlsx "top products" --archive-dir ./archive`,
	Args:         cobra.MinimumNArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := GetLogger()

		archiver, err := buildArchiver(cmd.Context())
		if err != nil {
			logger.Error("failed to create archiver", "error", err)
			return err
		}
		return runAsk(cmd.Context(), cmd.OutOrStdout(), askOptions{
			file:          args[0],
			question:      strings.Join(args[1:], " "),
			archiver:      archiver,
			archivePolicy: viper.GetString("archive-policy"),
			logPolicy:     viper.GetString("log-policy"),
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().String("archive-dir", filepath.Join(os.TempDir(), "sheetqa-archive"), "directory uploads are copied to when no bucket is set")
	askCmd.Flags().String("bucket", "", "S3 bucket to archive uploads to (uses the default AWS credential chain)")
	askCmd.Flags().String("key-prefix", "uploads", "S3 key prefix for archived uploads")
	askCmd.Flags().String("archive-policy", string(usecase.ArchiveWarn), "what an archive failure does: warn or strict")
	askCmd.Flags().String("log-policy", string(usecase.LogReset), "message log on upload: reset or append")
	for _, name := range []string{"archive-dir", "bucket", "key-prefix", "archive-policy", "log-policy"} {
		_ = viper.BindPFlag(name, askCmd.Flags().Lookup(name))
	}
}

func buildArchiver(ctx context.Context) (usecase.Archiver, error) {
	bucket := viper.GetString("bucket")
	if bucket == "" {
		return objectstore.NewDirArchiver(viper.GetString("archive-dir"))
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := awss3.NewFromConfig(cfg)
	return objectstore.NewS3Archiver(client, awss3.NewPresignClient(client),
		objectstore.WithBucket(bucket, viper.GetString("key-prefix")))
}

// runAsk drives one in-memory session: upload, ask, then print the log.
func runAsk(ctx context.Context, out io.Writer, opts askOptions) error {
	archivePolicy, err := usecase.ParseArchivePolicy(opts.archivePolicy)
	if err != nil {
		return err
	}
	logPolicy, err := usecase.ParseLogPolicy(opts.logPolicy)
	if err != nil {
		return err
	}
	ingester, err := usecase.NewIngester(opts.archiver,
		usecase.WithArchivePolicy(archivePolicy),
		usecase.WithLogPolicy(logPolicy))
	if err != nil {
		return err
	}
	svc, err := usecase.NewSessionService(repository.NewMemoryStore(0), ingester,
		usecase.NewDispatcher(usecase.NewKeywordClassifier(), GetLogger()), 0)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}
	defer f.Close()

	up, err := svc.Upload(ctx, usecase.UploadInput{Filename: filepath.Base(opts.file), Body: f})
	var uerr *usecase.Error
	if err != nil && !errors.As(err, &uerr) {
		return err
	}
	if err != nil {
		GetLogger().Warn("upload failed", "code", uerr.Code, "reason", uerr.Reason, "error", uerr.Err)
		printLog(out, up)
		return err
	}

	res, err := svc.Ask(ctx, usecase.AskInput{SessionID: up.State.ID, Question: opts.question})
	if err != nil {
		return err
	}
	printLog(out, res)
	return nil
}

func printLog(out io.Writer, o usecase.Outcome) {
	if o.State == nil {
		return
	}
	for _, m := range o.State.Messages {
		fmt.Fprintf(out, "[%s] %s\n", m.Sender, m.Text)
	}
}
