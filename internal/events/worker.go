package events

import (
	"context"

	"go.uber.org/zap"
)

type jobKind int

const (
	jobTaskSaved jobKind = iota
	jobTaskCompleted
)

type job struct {
	kind   jobKind
	taskID int64
	isNew  bool
}

// Worker processes lifecycle events off a queue so HTTP hooks return
// immediately. Jobs carry task ids; the task row is reloaded when the
// job runs, so the worker always sees the latest state.
type Worker struct {
	handler *Handler
	tasks   TaskStore
	queue   chan job
	logger  *zap.Logger
}

func NewWorker(handler *Handler, tasks TaskStore, queueSize int, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		handler: handler,
		tasks:   tasks,
		queue:   make(chan job, queueSize),
		logger:  logger,
	}
}

// EnqueueSaved schedules post-save processing for the task. Returns
// false when the queue is full.
func (w *Worker) EnqueueSaved(taskID int64, isNew bool) bool {
	return w.enqueue(job{kind: jobTaskSaved, taskID: taskID, isNew: isNew})
}

// EnqueueCompleted schedules retraining after the task completed.
// Returns false when the queue is full.
func (w *Worker) EnqueueCompleted(taskID int64) bool {
	return w.enqueue(job{kind: jobTaskCompleted, taskID: taskID})
}

func (w *Worker) enqueue(j job) bool {
	select {
	case w.queue <- j:
		return true
	default:
		w.logger.Warn("Event queue full, dropping job",
			zap.Int64("task_id", j.taskID))
		return false
	}
}

// Run drains the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Event worker started.")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Event worker stopped.")
			return
		case j := <-w.queue:
			w.process(ctx, j)
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	task, err := w.tasks.GetTaskByID(j.taskID)
	if err != nil {
		w.logger.Error("Failed to load task for event",
			zap.Int64("task_id", j.taskID), zap.Error(err))
		return
	}

	switch j.kind {
	case jobTaskSaved:
		w.handler.OnTaskSaved(ctx, task, j.isNew)
	case jobTaskCompleted:
		w.handler.OnTaskCompleted(ctx, task)
	}
}
