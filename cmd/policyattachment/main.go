package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/hatsunemiku3939/policyattachment"
	"github.com/hatsunemiku3939/policyattachment/config"
	"github.com/hatsunemiku3939/policyattachment/logging"
	"github.com/hatsunemiku3939/policyattachment/orgs"
	failure "github.com/hatsunemiku3939/policyattachment/policy/failure"
	"github.com/hatsunemiku3939/policyattachment/policy/routing"
	"github.com/hatsunemiku3939/policyattachment/resource"
	"github.com/hatsunemiku3939/policyattachment/retry"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (default: ./config.yaml or ./config/config.yaml if present)")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// --- 1. Setup Context for Graceful Shutdown ---
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 2. Load Configuration ---
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(appCtx, loadOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	orgClient := orgs.NewClient(awsCfg, orgs.WithEndpoint(cfg.AWS.Endpoint))
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = &cfg.AWS.Endpoint
		}
	})

	// --- 3. Setup Handlers and Router ---
	handler := resource.NewHandler(orgClient,
		resource.WithLogger(logger.Named("resource")),
		resource.WithRetryPolicy(retry.Constant(cfg.Retry.Interval, cfg.Retry.Jitter, cfg.Retry.MaxElapsed)),
	)

	failurePolicy, err := failure.ByName(cfg.Failure.Policy)
	if err != nil {
		return err
	}
	router, err := policyattachment.NewRouter(policyattachment.EnvelopeSchema,
		policyattachment.WithFailurePolicy(failurePolicy),
		policyattachment.WithRoutingPolicy(routing.NormalizedActionPolicy{}),
		policyattachment.WithRouterLogger(logger.Named("router")),
	)
	if err != nil {
		return fmt.Errorf("could not initialize router: %w", err)
	}
	router.Use(policyattachment.LoggingMiddleware(logger.Named("router")))
	if err := policyattachment.RegisterLifecycleHandlers(router, handler); err != nil {
		return fmt.Errorf("could not register handlers: %w", err)
	}

	var reporter policyattachment.Reporter = policyattachment.NopReporter{}
	if cfg.SQS.ResponseQueueURL != "" {
		reporter = policyattachment.NewSQSReporter(sqsClient, cfg.SQS.ResponseQueueURL)
	} else {
		logger.Warn("no response queue configured, results are only logged")
	}

	// --- 4. Start the Consumer Loop ---
	consumer := policyattachment.NewConsumer(sqsClient, cfg.SQS.QueueURL, router,
		policyattachment.WithReporter(reporter),
		policyattachment.WithConsumerLogger(logger.Named("consumer")),
		policyattachment.WithPolling(cfg.SQS.MaxMessages, cfg.SQS.WaitTimeSeconds),
		policyattachment.WithProcessingTimeout(cfg.SQS.ProcessingTimeout),
	)

	logger.Info("starting policy attachment handler",
		zap.String("typeName", resource.TypeName),
		zap.String("failurePolicy", cfg.Failure.Policy),
		zap.Duration("retryMaxElapsed", cfg.Retry.MaxElapsed),
	)
	consumer.Start(appCtx)
	return nil
}
