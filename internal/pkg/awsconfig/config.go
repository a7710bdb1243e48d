// Package awsconfig builds the AWS SDK configuration for the recompute worker.
package awsconfig

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cmlabs-hris/payslip-engine/internal/config"
)

// New loads the AWS configuration. When an endpoint is configured every call
// goes to it with static test credentials (LocalStack); otherwise the default
// credential chain is used.
func New(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if cfg.IsLocalDev() {
		slog.Info("routing AWS calls to local endpoint", "endpoint", cfg.Worker.AWSEndpoint)
		return awsConfig.LoadDefaultConfig(ctx,
			awsConfig.WithRegion(cfg.Worker.AWSRegion),
			awsConfig.WithBaseEndpoint(cfg.Worker.AWSEndpoint),
			awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
	}

	return awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Worker.AWSRegion))
}
