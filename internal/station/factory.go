package station

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/config"
	"github.com/bbernstein/stationmap/pkg/http/client"
)

// SourceFactory builds the configured station source
type SourceFactory interface {
	NewSource(ctx context.Context, cfg *config.Config) (Source, error)
}

type DefaultSourceFactory struct{}

func (DefaultSourceFactory) NewSource(ctx context.Context, cfg *config.Config) (Source, error) {
	return NewSource(ctx, cfg)
}

// NewSource picks the station source named by cfg.StationsSource
func NewSource(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.StationsSource {
	case config.SourceS3:
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.AWSEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
				o.UsePathStyle = true
			}
		})
		log.Info().Str("bucket", cfg.S3Bucket).Str("key", cfg.S3Key).Msg("Using S3 station source")
		return NewS3Source(s3Client, cfg.S3Bucket, cfg.S3Key), nil

	case config.SourceDynamoDB:
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.AWSEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
			}
		})
		log.Info().Str("table", cfg.DynamoTable).Msg("Using DynamoDB station source")
		return NewDynamoSource(dynamoClient, cfg.DynamoTable), nil

	default:
		httpClient := client.New(client.Options{
			Timeout: cfg.HTTPTimeout,
		})
		log.Info().Str("url", cfg.StationsURL).Msg("Using HTTP station source")
		return NewHTTPSource(httpClient, cfg.StationsURL), nil
	}
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if cfg.AWSEndpoint == "" {
		return awsconfig.LoadDefaultConfig(ctx)
	}

	// Local development configuration
	log.Debug().Str("endpoint", cfg.AWSEndpoint).Msg("Using local AWS endpoint")
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("local"),
		awsconfig.WithClientLogMode(aws.LogRetries),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
}
