// Command lambda serves the HTTP routes from AWS Lambda behind an API
// Gateway HTTP API. Secrets missing from the environment are read from SSM
// under SSM_PARAM_PREFIX at cold start.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/app"
	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/logging"
	"github.com/mikequentel/sheetposter/internal/paramstore"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	// CloudWatch wants one JSON object per line.
	logging.Init(cfg.LogLevel, "json")

	if cfg.SSMParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		ps, err := paramstore.New(ssm.NewFromConfig(awsCfg))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create SSM client")
		}
		cfg.ResolveSecrets(ctx, ps)
	}

	// /tmp is the only writable path in Lambda.
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	log.Info().
		Str("version", cfg.Version).
		Str("backend", cfg.Credentials.StoreBackend).
		Bool("dryRun", cfg.DryRun).
		Msg("Lambda initialized")

	adapter := httpadapter.NewV2(a.Handler())
	lambda.Start(adapter.ProxyWithContext)
}
