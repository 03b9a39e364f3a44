package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/models"
	"github.com/bbernstein/stationmap/pkg/http/client"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the station list from a JSON object in S3. The object has
// the same shape as the HTTP payload.
type S3Source struct {
	client     S3Client
	bucketName string
	key        string
}

func NewS3Source(client S3Client, bucketName, key string) *S3Source {
	return &S3Source{
		client:     client,
		bucketName: bucketName,
		key:        key,
	}
}

func (s *S3Source) Fetch(ctx context.Context) ([]models.Station, error) {
	if s.bucketName == "" {
		return nil, NewTransportError(fmt.Errorf("empty bucket name"))
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var statusErr interface{ HTTPStatusCode() int }
		if errors.As(err, &statusErr) && statusErr.HTTPStatusCode() != 0 {
			code := statusErr.HTTPStatusCode()
			return nil, NewResponseError(code, http.StatusText(code))
		}
		return nil, NewTransportError(fmt.Errorf("getting s3://%s/%s: %w", s.bucketName, s.key, err))
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	body, err := io.ReadAll(io.LimitReader(result.Body, client.DefaultMaxBodyBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, NewTransportError(fmt.Errorf("reading s3 object: %w", err))
	}
	if len(body) > client.DefaultMaxBodyBytes {
		return nil, NewTransportError(fmt.Errorf("s3 object exceeds %d bytes", client.DefaultMaxBodyBytes))
	}

	stations, err := DecodeStations(body)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("bucket", s.bucketName).
		Str("key", s.key).
		Int("station_count", len(stations)).
		Msg("Fetched station list from S3")
	return stations, nil
}
