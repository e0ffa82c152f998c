// Command poster publishes random content rows to X/Twitter and ingests
// existing posts back into the row store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mikequentel/sheetposter/internal/app"
	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/logging"
	"github.com/mikequentel/sheetposter/internal/paramstore"
	"github.com/mikequentel/sheetposter/internal/usecase"
)

var (
	portFlag    string
	urlFlag     string
	captionFlag string
	dryRunFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "poster",
	Short: "Post random spreadsheet rows to X/Twitter",
	Long: `Poster picks a random row (image URLs and a caption) from the content
sheet, downloads its images, uploads them and publishes one post.

Examples:
  poster publish
  poster publish --dry-run
  poster ingest --url https://x.com/someone/status/123 --caption "new caption"
  poster serve --port 9000
  poster verify`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /api/tweet and /api/add-to-sheet over HTTP",
	RunE:  runServe,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish one random row and exit",
	RunE:  runPublish,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Append an existing post to the row store",
	RunE:  runIngest,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the platform credentials and print the account name",
	RunE:  runVerify,
}

func init() {
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Listen port (default: $PORT or 8080)")
	publishCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Fetch media but do not upload or post")
	ingestCmd.Flags().StringVar(&urlFlag, "url", "", "Source post URL")
	ingestCmd.Flags().StringVar(&captionFlag, "caption", "", "Caption override")
	cobra.CheckErr(ingestCmd.MarkFlagRequired("url"))

	rootCmd.AddCommand(serveCmd, publishCmd, ingestCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, initializes logging and resolves secrets from
// SSM when a prefix is configured.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	if dryRunFlag {
		cfg.DryRun = true
	}

	if cfg.SSMParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("AWS config unavailable; secrets not loaded from SSM")
		} else {
			ps, err := paramstore.New(ssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, err
			}
			cfg.ResolveSecrets(ctx, ps)
		}
	}

	log.Info().Str("version", cfg.Version).Str("backend", cfg.Credentials.StoreBackend).Msg("Configuration loaded")
	return app.New(ctx, cfg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	port := portFlag
	if port == "" {
		port = a.Config.Port
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Publish.Publish(ctx)
	if err != nil {
		return report(err)
	}
	fmt.Printf("Posted %s (row %d, %d image(s), %d skipped)\n", res.PostID, res.Row.Row, len(res.Uploaded), len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Printf("  skipped %s: %s\n", s.URL, s.Reason)
	}
	return nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Ingest.Ingest(ctx, usecase.IngestInput{SourceURL: urlFlag, Caption: captionFlag})
	if err != nil {
		return report(err)
	}
	fmt.Printf("Added %s: %q [%s]\n", res.ID, res.Caption, res.ImageField)
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if missing := a.Config.Credentials.MissingPlatform(); len(missing) > 0 {
		return &config.MissingError{Vars: missing}
	}
	name, err := a.Twitter.VerifyCredentials()
	if err != nil {
		return err
	}
	fmt.Printf("Credentials OK: @%s\n", name)
	return nil
}

// report logs a workflow failure with its code and returns the
// caller-facing message for cobra to print.
func report(err error) error {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		log.Error().Err(ucErr.Err).Str("code", string(ucErr.Code)).Str("reason", ucErr.Reason).Msg("Workflow failed")
		return errors.New(ucErr.Message())
	}
	return err
}
