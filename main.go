package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chanscribe/catalog"
	"chanscribe/config"
	"chanscribe/ledger"
	"chanscribe/pipeline"
	"chanscribe/publish"
	"chanscribe/segmenter"
	"chanscribe/stager"
	"chanscribe/storage"
	"chanscribe/transcriber"
	"chanscribe/transcript"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// Cancellation still runs multipart aborts and temp cleanup for
	// in-flight videos before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, shutdown, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatalf("initialization error: %v", err)
	}
	defer shutdown()

	summary, err := pipeline.New(deps).Run(ctx)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// buildDeps constructs every collaborator from configuration and injects
// them into the pipeline; nothing here is a package-level singleton.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, func(), error) {
	var cleanups []func()
	shutdown := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var source catalog.Source
	if cfg.YouTubeAPIKey != "" {
		s, err := catalog.NewYouTubeSource(ctx, cfg.YouTubeAPIKey, cfg.ChannelID)
		if err != nil {
			return pipeline.Deps{}, shutdown, err
		}
		source = s
	} else {
		log.Println("No YouTube API key configured; using the channel RSS feed")
		source = catalog.NewFeedSource(cfg.ChannelID)
	}

	led, err := ledger.NewMongoLedger(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		return pipeline.Deps{}, shutdown, err
	}
	cleanups = append(cleanups, func() {
		if err := led.Close(context.Background()); err != nil {
			log.Printf("failed to close ledger: %v", err)
		}
	})

	s3, err := storage.NewS3(ctx, storage.S3Config{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		Profile:      cfg.S3Profile,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		return pipeline.Deps{}, shutdown, err
	}

	var store transcript.Store
	if cfg.TranscriptDir != "" {
		store, err = transcript.NewDirStore(cfg.TranscriptDir)
		if err != nil {
			return pipeline.Deps{}, shutdown, err
		}
	} else {
		store = transcript.NewS3Store(s3, cfg.TranscriptPrefix)
	}

	var publisher pipeline.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		p, err := publish.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return pipeline.Deps{}, shutdown, err
		}
		cleanups = append(cleanups, func() {
			if err := p.Close(); err != nil {
				log.Printf("failed to close publisher: %v", err)
			}
		})
		publisher = p
	} else {
		log.Println("Kafka not configured; transcript events disabled")
	}

	return pipeline.Deps{
		Catalog:     source,
		Ledger:      led,
		Stager:      stager.NewStager(stager.NewYouTubeResolver(), s3, cfg.AudioPrefix, config.MinPartSize),
		Audio:       s3,
		Segmenter:   segmenter.NewSegmenter(config.ChunkDuration),
		Transcriber: transcriber.NewClient(cfg.OpenAIAPIKey, cfg.WhisperURL),
		Store:       store,
		Publisher:   publisher,
		MaxVideos:   cfg.MaxVideos,
		Workers:     config.MaxConcurrentVideos,
	}, shutdown, nil
}
