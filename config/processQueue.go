package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gazo/challenge"
	"gazo/downloader"
	"gazo/parser"

	"github.com/google/uuid"
)

// Task statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
)

// ProcessTask is one batch of selected images waiting to be downloaded and reprocessed
type ProcessTask struct {
	ID            string
	Query         string
	Engine        string
	Items         []downloader.ImageResult
	Options       parser.ProcessOptions
	Status        string
	Progress      float64 // 0.0 to 1.0
	StatusMessage string
	Done          int
	Total         int
	Results       []*parser.ProcessedImage
	Failures      []*downloader.ItemError
	Error         error
	CreatedAt     time.Time

	cancel context.CancelFunc
}

// Finished reports whether the task has reached a terminal status
func (t ProcessTask) Finished() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled || t.Status == StatusFailed
}

// TaskRunner executes one task. It is registered by main and wraps downloader.Manager.
type TaskRunner func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error)

// ProcessQueue runs tasks one at a time in FIFO order.
// Callbacks receive copies and are never called with the queue lock held.
type ProcessQueue struct {
	tasks        []*ProcessTask
	mu           sync.RWMutex
	processing   bool
	processingMu sync.Mutex
	runner       TaskRunner
	wg           sync.WaitGroup

	// Callbacks for UI updates
	onTaskAdded   func(ProcessTask)
	onTaskUpdated func(ProcessTask)
	onTaskRemoved func(string)
	onQueueEmpty  func()
}

var globalQueue *ProcessQueue
var queueOnce sync.Once

// GetProcessQueue returns the application wide queue
func GetProcessQueue() *ProcessQueue {
	queueOnce.Do(func() {
		globalQueue = NewProcessQueue()
	})
	return globalQueue
}

func NewProcessQueue() *ProcessQueue {
	return &ProcessQueue{tasks: make([]*ProcessTask, 0)}
}

// SetRunner registers the function that executes tasks
func (q *ProcessQueue) SetRunner(runner TaskRunner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runner = runner
}

// SetCallbacks sets the UI update callbacks
func (q *ProcessQueue) SetCallbacks(
	onAdded func(ProcessTask),
	onUpdated func(ProcessTask),
	onRemoved func(string),
	onEmpty func(),
) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.onTaskAdded = onAdded
	q.onTaskUpdated = onUpdated
	q.onTaskRemoved = onRemoved
	q.onQueueEmpty = onEmpty
}

// AddTask queues a batch of selected images
func (q *ProcessQueue) AddTask(query, engine string, items []downloader.ImageResult, opts parser.ProcessOptions) (ProcessTask, error) {
	if len(items) == 0 {
		return ProcessTask{}, downloader.ErrNothingSelected
	}

	q.mu.Lock()
	if q.runner == nil {
		q.mu.Unlock()
		return ProcessTask{}, errors.New("no task runner registered")
	}

	task := &ProcessTask{
		ID:            uuid.NewString(),
		Query:         query,
		Engine:        engine,
		Items:         append([]downloader.ImageResult(nil), items...),
		Options:       opts,
		Status:        StatusQueued,
		StatusMessage: "Waiting in queue...",
		Total:         len(items),
		CreatedAt:     time.Now(),
	}
	q.tasks = append(q.tasks, task)
	snapshot := *task
	onAdded := q.onTaskAdded
	q.mu.Unlock()

	log.Printf("[Queue] Added task %s: %d images for %q", task.ID, len(items), query)

	if onAdded != nil {
		onAdded(snapshot)
	}

	q.start()
	return snapshot, nil
}

// RetryTask puts a failed or cancelled task back in the queue
func (q *ProcessQueue) RetryTask(id string) error {
	q.mu.Lock()
	task := q.find(id)
	if task == nil {
		q.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if task.Status != StatusFailed && task.Status != StatusCancelled {
		status := task.Status
		q.mu.Unlock()
		return fmt.Errorf("task cannot be retried (status: %s)", status)
	}

	log.Printf("[Queue] Retrying task %s", task.ID)
	task.Status = StatusQueued
	task.StatusMessage = "Retrying..."
	task.Progress = 0
	task.Done = 0
	task.Error = nil
	task.Results = nil
	task.Failures = nil
	snapshot := *task
	q.mu.Unlock()

	q.notifyUpdated(snapshot)
	q.start()
	return nil
}

// GetTasks returns copies of all tasks
func (q *ProcessQueue) GetTasks() []ProcessTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]ProcessTask, 0, len(q.tasks))
	for _, task := range q.tasks {
		out = append(out, *task)
	}
	return out
}

// GetTask returns a copy of the task with the given ID
func (q *ProcessQueue) GetTask(id string) (ProcessTask, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if task := q.find(id); task != nil {
		return *task, true
	}
	return ProcessTask{}, false
}

// CancelTask stops a running task or removes a queued one
func (q *ProcessQueue) CancelTask(id string) error {
	q.mu.Lock()
	for i, task := range q.tasks {
		if task.ID != id {
			continue
		}
		switch task.Status {
		case StatusProcessing:
			log.Printf("[Queue] Cancelling active task %s", task.ID)
			if task.cancel != nil {
				task.cancel()
			}
			task.StatusMessage = "Cancelling..."
			snapshot := *task
			q.mu.Unlock()
			q.notifyUpdated(snapshot)
			return nil
		case StatusQueued:
			log.Printf("[Queue] Removing queued task %s", task.ID)
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			onRemoved := q.onTaskRemoved
			q.mu.Unlock()
			if onRemoved != nil {
				onRemoved(id)
			}
			return nil
		default:
			status := task.Status
			q.mu.Unlock()
			return fmt.Errorf("task is not active or queued (status: %s)", status)
		}
	}
	q.mu.Unlock()
	return fmt.Errorf("task not found: %s", id)
}

// CancelAll cancels the running task and every queued task
func (q *ProcessQueue) CancelAll() {
	q.mu.Lock()
	log.Printf("[Queue] Cancelling all tasks (%d total)", len(q.tasks))

	var updated []ProcessTask
	for _, task := range q.tasks {
		switch task.Status {
		case StatusProcessing:
			if task.cancel != nil {
				task.cancel()
			}
			task.StatusMessage = "Cancelling..."
		case StatusQueued:
			task.Status = StatusCancelled
			task.StatusMessage = "Cancelled by user"
		default:
			continue
		}
		updated = append(updated, *task)
	}
	q.mu.Unlock()

	for _, t := range updated {
		q.notifyUpdated(t)
	}
}

// RemoveCompletedTasks drops every task that has finished
func (q *ProcessQueue) RemoveCompletedTasks() {
	q.mu.Lock()
	kept := make([]*ProcessTask, 0, len(q.tasks))
	var removed []string
	for _, task := range q.tasks {
		if task.Finished() {
			removed = append(removed, task.ID)
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
	onRemoved := q.onTaskRemoved
	q.mu.Unlock()

	log.Printf("[Queue] Cleaned up %d finished tasks, %d remaining", len(removed), len(kept))
	if onRemoved != nil {
		for _, id := range removed {
			onRemoved(id)
		}
	}
}

// Wait blocks until the queue is idle. Used on shutdown and in tests.
func (q *ProcessQueue) Wait() {
	q.wg.Wait()
}

func (q *ProcessQueue) start() {
	q.processingMu.Lock()
	defer q.processingMu.Unlock()
	if q.processing {
		return
	}
	q.processing = true
	q.wg.Add(1)
	go q.processQueue()
}

// processQueue processes tasks in FIFO order until none are queued
func (q *ProcessQueue) processQueue() {
	defer q.wg.Done()

	for {
		task := q.getNextTask()
		if task == nil {
			q.processingMu.Lock()
			// a task may have been queued between the lookup and taking the lock
			if task = q.getNextTask(); task == nil {
				q.processing = false
				q.processingMu.Unlock()
				break
			}
			q.processingMu.Unlock()
		}

		q.executeTask(task)
	}

	log.Println("[Queue] No more tasks to process")
	q.mu.RLock()
	onEmpty := q.onQueueEmpty
	q.mu.RUnlock()
	if onEmpty != nil {
		onEmpty()
	}
}

// getNextTask marks the next queued task as processing and returns it
func (q *ProcessQueue) getNextTask() *ProcessTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, task := range q.tasks {
		if task.Status == StatusQueued {
			task.Status = StatusProcessing
			task.StatusMessage = "Starting..."
			return task
		}
	}
	return nil
}

func (q *ProcessQueue) executeTask(task *ProcessTask) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q.mu.Lock()
	task.cancel = cancel
	runner := q.runner
	snapshot := *task
	q.mu.Unlock()
	q.notifyUpdated(snapshot)

	log.Printf("[Queue] Processing task %s (%d images)", snapshot.ID, snapshot.Total)

	progress := func(message string, done, total int) {
		q.mu.Lock()
		task.StatusMessage = message
		task.Done = done
		task.Total = total
		if total > 0 {
			task.Progress = float64(done) / float64(total)
		}
		snapshot := *task
		q.mu.Unlock()
		q.notifyUpdated(snapshot)
	}

	result, err := runner(ctx, snapshot, progress)

	q.mu.Lock()
	task.cancel = nil
	if result != nil {
		task.Results = result.Images
		task.Failures = result.Failures
	}

	switch {
	case errors.Is(err, context.Canceled):
		task.Status = StatusCancelled
		task.StatusMessage = fmt.Sprintf("Cancelled by user (%d processed)", len(task.Results))
	case err != nil:
		task.Status = StatusFailed
		task.Error = err
		if chErr, ok := challenge.IsChallenge(err); ok {
			task.StatusMessage = fmt.Sprintf("Blocked by %s page", chErr.Kind)
		} else {
			task.StatusMessage = fmt.Sprintf("Error: %v", err)
		}
	default:
		task.Status = StatusCompleted
		task.Progress = 1.0
		task.StatusMessage = fmt.Sprintf("Processed %d of %d images", len(task.Results), task.Total)
		if n := len(task.Failures); n > 0 {
			task.StatusMessage += fmt.Sprintf(" (%d failed)", n)
		}
	}
	snapshot = *task
	q.mu.Unlock()

	q.notifyUpdated(snapshot)
	log.Printf("[Queue] Task %s finished (status: %s)", snapshot.ID, snapshot.Status)
}

func (q *ProcessQueue) notifyUpdated(task ProcessTask) {
	q.mu.RLock()
	onUpdated := q.onTaskUpdated
	q.mu.RUnlock()
	if onUpdated != nil {
		onUpdated(task)
	}
}

// find must be called with q.mu held
func (q *ProcessQueue) find(id string) *ProcessTask {
	for _, task := range q.tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}
