package main

import (
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"quotestash/internal/finnhub"
	"quotestash/internal/handler"
	"quotestash/internal/httpx"
	"quotestash/internal/storage"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().
		Str("svc", "quotestash-handler").Logger()

	cfg, err := handler.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load runtime config")
	}

	client, err := finnhub.NewClient(cfg.APIKey,
		finnhub.WithHTTPClient(httpx.New(10*time.Second)))
	if err != nil {
		log.Fatal().Err(err).Msg("finnhub client init")
	}

	store, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Endpoint,
		Region:   cfg.Region,
		Bucket:   cfg.Bucket,
		UseSSL:   true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("storage client init")
	}

	h := handler.New(cfg, client, store, log)
	lambda.Start(h.Handle)
}
