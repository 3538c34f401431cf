package service

import (
	"context"
	"fmt"
	"time"

	"telereader/internal/filter"
	"telereader/internal/metrics"
	"telereader/internal/models"
	"telereader/internal/storage"
	"telereader/internal/tracing"
	"telereader/pkg/telegram/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// channelRunner holds all per-channel state for one acquisition task.
// Each configured channel gets its own runner and goroutine; within a
// runner, processing is strictly sequential, so in-channel ordering is
// preserved without locks.
type channelRunner struct {
	channel     models.Channel
	client      types.Client
	store       storage.Store
	filters     *filter.Engine
	fetcher     *BatchFetcher
	checkpoints *CheckpointCoordinator
	log         *logrus.Entry
}

// processMessage filters one raw message and applies the result to the
// store. Dropped messages are never written; if a previously stored
// copy exists (refetch or edit whose new text now fails a drop rule),
// it is removed — retroactive filtering. Non-text payloads are skipped
// entirely and never persisted.
func (r *channelRunner) processMessage(ctx context.Context, raw types.Message) error {
	if !raw.HasText() {
		r.log.WithFields(logrus.Fields{
			"messageId": raw.ID,
			"kind":      raw.Kind,
		}).Debug("Skipping unsupported message payload")
		metrics.IncrementCounter("messages_skipped", map[string]string{"channel": r.channel.ID}, "Messages skipped as unsupported")
		return nil
	}

	res := r.filters.Apply(raw.Text)
	if res.Dropped {
		deleted, err := r.store.DeleteMessage(ctx, r.channel.ID, raw.ID)
		if err != nil {
			return fmt.Errorf("failed to remove dropped message: %w", err)
		}
		if deleted {
			r.log.WithField("messageId", raw.ID).Info("Removed previously stored message now dropped by filter")
		}
		metrics.IncrementCounter("messages_dropped", map[string]string{"channel": r.channel.ID}, "Messages dropped by filter")
		return nil
	}

	if err := r.store.UpsertMessage(ctx, r.toStoredMessage(raw, res.Text)); err != nil {
		return err
	}
	metrics.IncrementCounter("messages_saved", map[string]string{"channel": r.channel.ID}, "Messages persisted")
	return nil
}

// processBatch persists a page of messages and returns the highest ID
// it saw. An error abandons the rest of the batch; nothing before the
// failure is rolled back, which is safe because every write is an
// independent upsert.
func (r *channelRunner) processBatch(ctx context.Context, batch []types.Message) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.batch",
		attribute.String("channel.id", r.channel.ID),
		attribute.Int("batch.size", len(batch)),
		attribute.Int64("batch.first_id", batch[0].ID),
		attribute.Int64("batch.last_id", batch[len(batch)-1].ID),
	)
	defer span.End()

	var highest int64
	for _, raw := range batch {
		if err := r.processMessage(ctx, raw); err != nil {
			tracing.RecordError(ctx, err)
			return 0, err
		}
		if raw.ID > highest {
			highest = raw.ID
		}
	}
	return highest, nil
}

// backfill resumes the checkpoint-driven walk (checkpoint, head]. The
// checkpoint is committed only after each batch is persisted.
func (r *channelRunner) backfill(ctx context.Context) error {
	cursor, err := r.checkpoints.Resume(ctx, r.channel.ID)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	head, err := r.client.GetHeadMessageID(ctx, r.channel.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve head: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"checkpoint": cursor,
		"head":       head,
	}).Info("Starting backfill")

	if cursor >= head {
		r.log.Info("Backfill already caught up")
		return nil
	}

	// Shutdown stops the walk between batches, at the fetcher's limiter
	// wait; a batch already fetched is persisted and committed in full.
	persist := context.WithoutCancel(ctx)

	processed := 0
	err = r.fetcher.FetchRange(ctx, r.channel.ID, cursor, head, func(batch []types.Message) error {
		highest, err := r.processBatch(persist, batch)
		if err != nil {
			return err
		}
		processed += len(batch)
		return r.checkpoints.Commit(persist, r.channel.ID, highest)
	})
	if err != nil {
		return err
	}

	r.log.WithField("processed", processed).Info("Backfill completed")
	return nil
}

// interval ingests the [from, to] window. Interval runs are unrelated
// to backfill progress and never touch the checkpoint.
func (r *channelRunner) interval(ctx context.Context, from, to time.Time) error {
	r.log.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
	}).Info("Starting interval ingest")

	persist := context.WithoutCancel(ctx)

	processed := 0
	err := r.fetcher.FetchWindow(ctx, r.channel.ID, from, to, func(batch []types.Message) error {
		if _, err := r.processBatch(persist, batch); err != nil {
			return err
		}
		processed += len(batch)
		return nil
	})
	if err != nil {
		return err
	}

	r.log.WithField("processed", processed).Info("Interval ingest completed")
	return nil
}

// catchUp closes the gap accumulated while the process was down:
// everything newer than the latest stored message, up to the current
// head. Batched and throttled like interval mode; no checkpointing.
func (r *channelRunner) catchUp(ctx context.Context) error {
	latest, err := r.store.GetLatestMessageID(ctx, r.channel.ID)
	if err != nil {
		return fmt.Errorf("failed to read latest stored id: %w", err)
	}

	head, err := r.client.GetHeadMessageID(ctx, r.channel.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve head: %w", err)
	}

	if latest >= head {
		r.log.Debug("No catch-up needed")
		return nil
	}

	r.log.WithFields(logrus.Fields{
		"lastStored": latest,
		"head":       head,
	}).Info("Catching up missed messages")

	persist := context.WithoutCancel(ctx)
	return r.fetcher.FetchRange(ctx, r.channel.ID, latest, head, func(batch []types.Message) error {
		_, err := r.processBatch(persist, batch)
		return err
	})
}

// consume drains the runner's event queue until it closes. Failures on
// individual events are logged and do not stop the loop.
func (r *channelRunner) consume(ctx context.Context, events <-chan types.Event) {
	for ev := range events {
		r.handleEvent(ctx, ev)
	}
}

func (r *channelRunner) handleEvent(ctx context.Context, ev types.Event) {
	switch ev.Type {
	case types.EventNewMessage, types.EventMessageEdited:
		if ev.Message == nil {
			r.log.WithField("type", ev.Type).Warn("Event without message payload")
			return
		}
		if err := r.processMessage(ctx, *ev.Message); err != nil {
			r.log.WithFields(logrus.Fields{
				"messageId": ev.Message.ID,
				"type":      ev.Type,
			}).WithError(err).Error("Failed to process event")
		}

	case types.EventMessageDeleted:
		for _, id := range ev.DeletedIDs {
			deleted, err := r.store.DeleteMessage(ctx, r.channel.ID, id)
			if err != nil {
				r.log.WithField("messageId", id).WithError(err).Error("Failed to delete message")
				continue
			}
			if deleted {
				metrics.IncrementCounter("messages_deleted", map[string]string{"channel": r.channel.ID}, "Messages deleted from store")
				r.log.WithField("messageId", id).Info("Deleted message")
			} else {
				r.log.WithField("messageId", id).Debug("Delete event for unknown message")
			}
		}

	default:
		r.log.WithField("type", ev.Type).Warn("Unknown event type")
	}
}

func (r *channelRunner) toStoredMessage(raw types.Message, cleaned string) *models.Message {
	kind := models.MessageKind(raw.Kind)
	if raw.Kind == "" {
		kind = models.MessageKindText
	}
	return &models.Message{
		ChannelID:     r.channel.ID,
		MessageID:     raw.ID,
		Text:          raw.Text,
		CleanedText:   cleaned,
		Date:          raw.Date.UTC(),
		EditDate:      raw.EditDate,
		Kind:          kind,
		ReplyToID:     raw.ReplyToID,
		ForwardFromID: raw.ForwardFromID,
		Author: models.Author{
			ID:       raw.SenderID,
			Username: raw.SenderUsername,
		},
		Raw: raw.Raw,
	}
}
