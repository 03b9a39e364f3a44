package main

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/config"
	"github.com/bbernstein/stationmap/internal/handler"
	"github.com/bbernstein/stationmap/internal/station"
	"github.com/bbernstein/stationmap/internal/store"
	"github.com/bbernstein/stationmap/internal/view"
)

var (
	lambdaStart     = lambda.Start // Allow mocking of lambda.Start in tests
	stationsHandler *handler.StationsHandler
	setupOnce       sync.Once
)

var sourceFactory station.SourceFactory = station.DefaultSourceFactory{}

// setup builds the store once per warm container and starts its first
// fetch, so later invocations reuse the loaded list.
func setup() {
	setupOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		source, err := sourceFactory.NewSource(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Str("source", cfg.StationsSource).Msg("Failed to create station source")
		}

		var opts []store.Option
		memo, err := view.NewMemo(config.GetViewportConfig().FilterMemoSize)
		if err != nil {
			log.Warn().Err(err).Msg("Filter memo disabled")
		} else {
			opts = append(opts, store.WithMemo(memo))
		}

		s := store.New(source, opts...)
		s.Start()
		stationsHandler = handler.NewStationsHandler(s)
	})
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	setup()
	return stationsHandler.HandleRequest(ctx, request)
}

func main() {
	lambdaStart(handleRequest)
}
