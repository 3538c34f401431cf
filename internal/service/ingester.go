package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telereader/internal/constants"
	"telereader/internal/filter"
	"telereader/internal/models"
	"telereader/internal/storage"
	"telereader/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// Ingester fans channel acquisition out across the configured channel
// set and owns its lifecycle. Each channel runs in its own goroutine;
// a per-channel failure abandons that channel's current cycle and never
// aborts siblings. A connection-level failure in realtime mode is fatal.
type Ingester struct {
	cfg     *models.Config
	client  types.Client
	store   storage.Store
	filters *filter.Engine
	logger  *logrus.Logger
}

// NewIngester builds the engine. The filter rules are compiled once
// here; a bad rule fails construction.
func NewIngester(cfg *models.Config, client types.Client, store storage.Store, logger *logrus.Logger) (*Ingester, error) {
	filters, err := filter.NewEngine(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter engine: %w", err)
	}

	return &Ingester{
		cfg:     cfg,
		client:  client,
		store:   store,
		filters: filters,
		logger:  logger,
	}, nil
}

// activeChannels returns the channels to ingest.
func (in *Ingester) activeChannels() []models.Channel {
	channels := make([]models.Channel, 0, len(in.cfg.Channels))
	for _, ch := range in.cfg.Channels {
		if ch.Active {
			channels = append(channels, ch)
		}
	}
	return channels
}

func (in *Ingester) newRunner(ch models.Channel) *channelRunner {
	batchSize := in.cfg.Throttle.BatchSize
	if batchSize <= 0 {
		batchSize = constants.DefaultBatchSize
	}
	delay := time.Duration(in.cfg.Throttle.BatchDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = time.Duration(constants.DefaultBatchDelayMs) * time.Millisecond
	}

	return &channelRunner{
		channel:     ch,
		client:      in.client,
		store:       in.store,
		filters:     in.filters,
		fetcher:     NewBatchFetcher(in.client, batchSize, delay),
		checkpoints: NewCheckpointCoordinator(in.store),
		log:         in.logger.WithField("channel", ch.ID),
	}
}

// RunBackfill resumes every channel's checkpoint walk and returns when
// all channels have finished or abandoned their cycle.
func (in *Ingester) RunBackfill(ctx context.Context) error {
	return in.runForEachChannel(ctx, "backfill", func(ctx context.Context, r *channelRunner) error {
		return r.backfill(ctx)
	})
}

// RunInterval ingests the [from, to] window on every channel. Nothing
// is checkpointed.
func (in *Ingester) RunInterval(ctx context.Context, from, to time.Time) error {
	return in.runForEachChannel(ctx, "interval", func(ctx context.Context, r *channelRunner) error {
		return r.interval(ctx, from, to)
	})
}

// runForEachChannel executes op concurrently, one goroutine per active
// channel. Per-channel errors are logged, not propagated: sibling
// channels must make progress regardless.
func (in *Ingester) runForEachChannel(ctx context.Context, mode string, op func(context.Context, *channelRunner) error) error {
	channels := in.activeChannels()
	if len(channels) == 0 {
		return fmt.Errorf("no active channels configured")
	}

	in.logger.WithFields(logrus.Fields{
		"mode":     mode,
		"channels": len(channels),
	}).Info("Starting ingestion")

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch models.Channel) {
			defer wg.Done()
			runner := in.newRunner(ch)
			switch err := op(ctx, runner); {
			case err == nil:
			case errors.Is(err, context.Canceled):
				// Shutdown signal, not a failure. In-flight batches have
				// already been persisted by the runner.
				runner.log.Info("Channel cycle stopped by shutdown")
			default:
				runner.log.WithError(err).Error("Channel cycle abandoned")
			}
		}(ch)
	}
	wg.Wait()

	in.logger.WithField("mode", mode).Info("Ingestion finished")
	return nil
}

// RunRealtime subscribes to the live event stream and dispatches events
// to per-channel queues, optionally closing the downtime gap first.
// It blocks until ctx is cancelled (graceful shutdown, returns nil) or
// the connection fails (fatal, returns the cause). In-flight events are
// drained before return; no event is abandoned mid-write.
func (in *Ingester) RunRealtime(ctx context.Context, catchUp bool) error {
	channels := in.activeChannels()
	if len(channels) == 0 {
		return fmt.Errorf("no active channels configured")
	}

	if catchUp {
		in.logger.Info("Starting catch-up phase")
		if err := in.runForEachChannel(ctx, "catch-up", func(ctx context.Context, r *channelRunner) error {
			return r.catchUp(ctx)
		}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			// The process was told to stop during catch-up; exit cleanly
			// instead of opening a doomed subscription.
			return nil
		}
		in.logger.Info("Catch-up phase completed")
	}

	channelIDs := make([]string, 0, len(channels))
	for _, ch := range channels {
		channelIDs = append(channelIDs, ch.ID)
	}

	events, errs, err := in.client.Subscribe(ctx, channelIDs)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	// One buffered queue and one consumer goroutine per channel keeps
	// in-channel ordering while channels progress independently.
	queues := make(map[string]chan types.Event, len(channels))
	var wg sync.WaitGroup
	for _, ch := range channels {
		queue := make(chan types.Event, constants.DefaultEventQueueSize)
		queues[ch.ID] = queue

		runner := in.newRunner(ch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Shutdown must drain queued events, not abort their
			// writes, so consumers outlive ctx cancellation.
			runner.consume(context.WithoutCancel(ctx), queue)
		}()
	}

	in.logger.WithField("channels", len(channels)).Info("Listening for realtime events")

	var streamErr error
	for ev := range events {
		queue, ok := queues[ev.ChannelID]
		if !ok {
			// Known platform gap: delete events may arrive without a
			// resolvable channel. Log and skip.
			in.logger.WithFields(logrus.Fields{
				"type":       ev.Type,
				"channel":    ev.ChannelID,
				"deletedIds": ev.DeletedIDs,
			}).Warn("Event for unknown channel, skipping")
			continue
		}
		queue <- ev
	}

	// The stream closed: either cancellation or a dead connection.
	if err, ok := <-errs; ok && err != nil {
		streamErr = err
	}

	for _, queue := range queues {
		close(queue)
	}
	wg.Wait()

	if streamErr != nil && ctx.Err() == nil {
		return fmt.Errorf("source connection lost: %w", streamErr)
	}

	in.logger.Info("Realtime ingestion stopped")
	return nil
}
