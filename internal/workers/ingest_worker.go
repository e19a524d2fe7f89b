package workers

import (
	"context"
	"time"

	"sentinel/internal/domain/article"
	"sentinel/internal/pipeline"
	"sentinel/internal/queue"
	"sentinel/pkg/errors"
)

// IngestWorker scans the knowledge database for unprocessed news and
// enqueues a processing task per item. The queue absorbs duplicates
// from overlapping scans because the pipeline re-checks the processed
// flag.
type IngestWorker struct {
	*BaseWorker
	raws      article.RawRepository
	queue     *queue.Queue
	batchSize int
}

// NewIngestWorker creates the ingest scanner.
func NewIngestWorker(
	raws article.RawRepository,
	q *queue.Queue,
	batchSize int,
	interval time.Duration,
	enabled bool,
) *IngestWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IngestWorker{
		BaseWorker: NewBaseWorker("ingest_scanner", interval, enabled),
		raws:       raws,
		queue:      q,
		batchSize:  batchSize,
	}
}

// Run enqueues processing tasks for the oldest unprocessed news items
func (w *IngestWorker) Run(ctx context.Context) error {
	batch, err := w.raws.Unprocessed(ctx, w.batchSize)
	if err != nil {
		return errors.Wrap(err, "list unprocessed news")
	}
	if len(batch) == 0 {
		w.Log().Debug("No unprocessed news")
		return nil
	}

	enqueued := 0
	for _, raw := range batch {
		_, err := w.queue.Enqueue(ctx, pipeline.TaskProcessArticle, pipeline.ProcessArticleArgs{NewsID: raw.ID})
		if err != nil {
			w.Log().Error("Failed to enqueue article task", "news_id", raw.ID, "error", err)
			continue
		}
		enqueued++
	}

	w.Log().Info("Ingest scan completed", "found", len(batch), "enqueued", enqueued)
	return nil
}
