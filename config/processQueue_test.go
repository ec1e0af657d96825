package config

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gazo/downloader"
	"gazo/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []downloader.ImageResult {
	out := make([]downloader.ImageResult, n)
	for i := range out {
		out[i] = downloader.ImageResult{URL: "https://cdn.example.com/" + string(rune('a'+i)) + ".jpg"}
	}
	return out
}

func TestProcessQueueRunsTasksInOrder(t *testing.T) {
	q := NewProcessQueue()

	var mu sync.Mutex
	var order []string
	q.SetRunner(func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		mu.Lock()
		order = append(order, task.Query)
		mu.Unlock()

		progress("working", 1, task.Total)
		res := &downloader.BatchResult{}
		for i := range task.Items {
			res.Images = append(res.Images, &parser.ProcessedImage{Index: i + 1})
		}
		return res, nil
	})

	first, err := q.AddTask("first", "google", items(2), parser.ProcessOptions{})
	require.NoError(t, err)
	second, err := q.AddTask("second", "bing", items(1), parser.ProcessOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	q.Wait()

	assert.Equal(t, []string{"first", "second"}, order)
	task, ok := q.GetTask(first.ID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, 1.0, task.Progress)
	assert.Len(t, task.Results, 2)
	assert.Equal(t, "Processed 2 of 2 images", task.StatusMessage)
	assert.True(t, task.Finished())
}

func TestProcessQueueRequiresRunnerAndItems(t *testing.T) {
	q := NewProcessQueue()
	_, err := q.AddTask("x", "google", items(1), parser.ProcessOptions{})
	assert.Error(t, err)

	q.SetRunner(func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		return nil, nil
	})
	_, err = q.AddTask("x", "google", nil, parser.ProcessOptions{})
	assert.ErrorIs(t, err, downloader.ErrNothingSelected)
}

func TestProcessQueuePartialFailures(t *testing.T) {
	q := NewProcessQueue()
	q.SetRunner(func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		return &downloader.BatchResult{
			Images:   []*parser.ProcessedImage{{Index: 1}},
			Failures: []*downloader.ItemError{{Index: 2, URL: task.Items[1].URL, Err: errors.New("404")}},
		}, nil
	})

	task, err := q.AddTask("partial", "google", items(2), parser.ProcessOptions{})
	require.NoError(t, err)
	q.Wait()

	got, _ := q.GetTask(task.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Processed 1 of 2 images (1 failed)", got.StatusMessage)
	assert.Len(t, got.Failures, 1)
}

func TestProcessQueueFailureAndRetry(t *testing.T) {
	q := NewProcessQueue()
	calls := 0
	q.SetRunner(func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		calls++
		if calls == 1 {
			return nil, downloader.ErrNothingProcessed
		}
		return &downloader.BatchResult{Images: []*parser.ProcessedImage{{Index: 1}}}, nil
	})

	task, err := q.AddTask("retry", "google", items(1), parser.ProcessOptions{})
	require.NoError(t, err)
	q.Wait()

	got, _ := q.GetTask(task.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.ErrorIs(t, got.Error, downloader.ErrNothingProcessed)

	assert.Error(t, q.RetryTask("missing"))
	require.NoError(t, q.RetryTask(task.ID))
	q.Wait()

	got, _ = q.GetTask(task.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Nil(t, got.Error)
	assert.Equal(t, 2, calls)

	assert.Error(t, q.RetryTask(task.ID), "completed tasks cannot be retried")
}

func TestProcessQueueCancel(t *testing.T) {
	q := NewProcessQueue()
	started := make(chan struct{})
	q.SetRunner(func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		if task.Query == "running" {
			close(started)
			<-ctx.Done()
			return &downloader.BatchResult{Images: []*parser.ProcessedImage{{Index: 1}}}, ctx.Err()
		}
		return &downloader.BatchResult{}, nil
	})

	var removedMu sync.Mutex
	var removed []string
	q.SetCallbacks(nil, nil, func(id string) {
		removedMu.Lock()
		removed = append(removed, id)
		removedMu.Unlock()
	}, nil)

	running, err := q.AddTask("running", "google", items(1), parser.ProcessOptions{})
	require.NoError(t, err)
	<-started
	queued, err := q.AddTask("queued", "google", items(1), parser.ProcessOptions{})
	require.NoError(t, err)

	require.NoError(t, q.CancelTask(queued.ID))
	_, ok := q.GetTask(queued.ID)
	assert.False(t, ok)

	require.NoError(t, q.CancelTask(running.ID))
	q.Wait()

	got, _ := q.GetTask(running.ID)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Len(t, got.Results, 1)
	assert.Error(t, q.CancelTask(running.ID))
	assert.Error(t, q.CancelTask("missing"))

	q.RemoveCompletedTasks()
	assert.Empty(t, q.GetTasks())

	removedMu.Lock()
	assert.ElementsMatch(t, []string{queued.ID, running.ID}, removed)
	removedMu.Unlock()
}

func TestProcessQueueCancelAll(t *testing.T) {
	q := NewProcessQueue()
	started := make(chan struct{})
	q.SetRunner(func(ctx context.Context, task ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		if task.Query == "one" {
			close(started)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			return nil, ctx.Err()
		}
		t.Errorf("task %q should not run", task.Query)
		return nil, nil
	})

	empty := make(chan struct{}, 1)
	q.SetCallbacks(nil, nil, nil, func() { empty <- struct{}{} })

	_, err := q.AddTask("one", "google", items(1), parser.ProcessOptions{})
	require.NoError(t, err)
	<-started
	_, err = q.AddTask("two", "google", items(1), parser.ProcessOptions{})
	require.NoError(t, err)

	q.CancelAll()
	q.Wait()
	<-empty

	for _, task := range q.GetTasks() {
		assert.Equal(t, StatusCancelled, task.Status, task.Query)
	}
}
