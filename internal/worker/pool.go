package worker

import (
	"context"
	"log/slog"
	"time"
)

// pollLoop receives one message per tick while a pool slot is free
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll skips the tick when every slot is busy, so nothing is received and held
// invisible without a goroutine to run it
func (w *Worker) poll(ctx context.Context) {
	if !w.sem.TryAcquire(1) {
		return
	}

	msgs, err := w.queue.Receive(ctx, 1)
	if err != nil {
		w.sem.Release(1)
		if ctx.Err() == nil {
			w.logger.Error("Failed to receive message", slog.Any("error", err))
		}
		return
	}
	if len(msgs) == 0 {
		w.sem.Release(1)
		return
	}

	msg := msgs[0]
	w.logger.Debug("Message received",
		slog.String("worker_id", w.workerID),
		slog.String("message_id", msg.ID),
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.sem.Release(1)
		// Shutdown stops polling; the job itself is bounded by its own timeout.
		w.handle(context.WithoutCancel(ctx), msg)
	}()
}
