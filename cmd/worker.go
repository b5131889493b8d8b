package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/naamaleah/CookSmart/domain"
	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/models"
	"github.com/naamaleah/CookSmart/projection"
	"github.com/naamaleah/CookSmart/relay"
	"github.com/naamaleah/CookSmart/snapshot"
	"github.com/naamaleah/CookSmart/snapshotter"
	"github.com/naamaleah/CookSmart/store"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that relays recorded events downstream and keeps aggregate snapshots fresh`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}

	if cfg.DB.EnableMigrations {
		if err := db.AutoMigrate(&models.Event{}, &models.Snapshot{}); err != nil {
			return errors.Wrap(err, "failed to migrate database")
		}
	}

	eventLog := eventstore.NewGormEventLog(db)

	registry := projection.NewRegistry()
	domain.RegisterProjectors(registry)

	cache := buildSnapshotCache(db)

	eventStore := store.New(eventLog, cache, registry, cfg.Store.SnapshotThreshold)

	// Dispatch relay, when a downstream queue is configured
	if cfg.Azure.Enabled {
		publisher, err := relay.NewServiceBusPublisher(cfg.Azure)
		if err != nil {
			return err
		}
		eventRelay := relay.New(eventLog, publisher, cfg.Worker.RelayBatchSize, cfg.Worker.RelayInterval)

		g.Go(func() error {
			log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting event relay")
			err := eventRelay.Run(ctx)
			if closeErr := publisher.Close(context.Background()); closeErr != nil {
				log.Warn().Err(closeErr).Msg("Failed to close Service Bus publisher")
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Snapshot maintenance on a schedule, unless snapshots are disabled
	if cfg.Store.SnapshotThreshold > 0 {
		g.Go(func() error {
			log.Info().Msg("Starting snapshot maintenance schedule")

			scheduler, err := gocron.NewScheduler()
			if err != nil {
				return err
			}

			maintenance := snapshotter.New(db, eventStore, cfg.Store.SnapshotThreshold, cfg.Worker.SnapshotConcurrency)
			_, err = scheduler.NewJob(
				gocron.DurationJob(cfg.Worker.SnapshotInterval),
				gocron.NewTask(func() {
					if err := maintenance.Run(ctx); err != nil {
						log.Error().Err(err).Msg("Snapshot maintenance pass failed")
					}
				}),
			)
			if err != nil {
				return err
			}

			scheduler.Start()

			<-ctx.Done()

			return scheduler.Shutdown()
		})
	} else {
		log.Info().Msg("Snapshots disabled, skipping snapshot maintenance schedule")
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

func buildSnapshotCache(db *gorm.DB) snapshot.Cache {
	durable := snapshot.NewGormCache(db)

	if !cfg.Redis.Enabled {
		return durable
	}

	redisCache, err := snapshot.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis snapshot tier, using durable snapshots only")
		return durable
	}

	return snapshot.NewLayered(redisCache, durable)
}
