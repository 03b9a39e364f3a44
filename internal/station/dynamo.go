package station

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/models"
)

// DynamoDBClient defines the interface for DynamoDB operations we need
type DynamoDBClient interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// stationItem is the table layout: one item per station
type stationItem struct {
	ID   float64 `dynamodbav:"id"`
	Name string  `dynamodbav:"name"`
	City string  `dynamodbav:"city"`
	Lat  float64 `dynamodbav:"lat"`
	Lng  float64 `dynamodbav:"lng"`
}

// DynamoSource reads the station list from a DynamoDB table. Items come
// back in scan order, so the list is sorted by id to keep it stable across
// fetches.
type DynamoSource struct {
	client    DynamoDBClient
	tableName string
}

func NewDynamoSource(client DynamoDBClient, tableName string) *DynamoSource {
	return &DynamoSource{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoSource) Fetch(ctx context.Context) ([]models.Station, error) {
	if s.tableName == "" {
		return nil, NewTransportError(fmt.Errorf("empty table name"))
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	})

	var stations []models.Station
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var statusErr interface{ HTTPStatusCode() int }
			if errors.As(err, &statusErr) && statusErr.HTTPStatusCode() != 0 {
				code := statusErr.HTTPStatusCode()
				return nil, NewResponseError(code, http.StatusText(code))
			}
			return nil, NewTransportError(fmt.Errorf("scanning %s: %w", s.tableName, err))
		}

		for _, item := range page.Items {
			station, err := stationFromItem(item)
			if err != nil {
				log.Debug().Err(err).Str("table", s.tableName).Msg("Rejecting station table")
				return nil, NewValidationError(ReasonInvalidEntries)
			}
			stations = append(stations, station)
		}
	}

	if stations == nil {
		stations = []models.Station{}
	}
	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].ID < stations[j].ID
	})

	log.Debug().
		Str("table", s.tableName).
		Int("station_count", len(stations)).
		Msg("Fetched station list from DynamoDB")
	return stations, nil
}

func stationFromItem(item map[string]types.AttributeValue) (models.Station, error) {
	for _, key := range []string{"id", "lat", "lng"} {
		if _, ok := item[key].(*types.AttributeValueMemberN); !ok {
			return models.Station{}, fmt.Errorf("attribute %q is not a number", key)
		}
	}
	for _, key := range []string{"name", "city"} {
		if _, ok := item[key].(*types.AttributeValueMemberS); !ok {
			return models.Station{}, fmt.Errorf("attribute %q is not a string", key)
		}
	}

	var record stationItem
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return models.Station{}, fmt.Errorf("unmarshaling station item: %w", err)
	}

	id, ok := integral(record.ID)
	if !ok {
		return models.Station{}, fmt.Errorf("id %v is not an integer", record.ID)
	}

	return models.Station{
		ID:   id,
		Name: record.Name,
		City: record.City,
		Lat:  record.Lat,
		Lng:  record.Lng,
	}, nil
}
