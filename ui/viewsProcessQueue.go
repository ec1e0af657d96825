package ui

import (
	"fmt"
	"log"

	"gazo/config"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ProcessQueueView lists the processing tasks with their progress.
// Selecting a finished task shows its images in the gallery.
type ProcessQueueView struct {
	Card             fyne.CanvasObject
	taskList         *widget.List
	contentContainer *fyne.Container
	cancelButton     *widget.Button
	cancelAllButton  *widget.Button
	retryButton      *widget.Button
	clearButton      *widget.Button
	state            *AppState
	tasks            []config.ProcessTask
	selectedTaskID   string
}

func NewProcessQueueView(state *AppState) *ProcessQueueView {
	view := &ProcessQueueView{state: state}

	view.cancelButton = widget.NewButton("Cancel", func() {
		view.onCancelTask()
	})
	view.cancelButton.Disable()

	view.cancelAllButton = widget.NewButton("Cancel All", func() {
		view.onCancelAll()
	})

	view.retryButton = widget.NewButton("Retry", func() {
		view.onRetry()
	})
	view.retryButton.Disable()

	view.clearButton = widget.NewButton("Clear Completed", func() {
		view.onClearCompleted()
	})

	view.taskList = widget.NewList(
		func() int {
			return len(view.tasks)
		},
		func() fyne.CanvasObject {
			titleLabel := widget.NewLabel("Query")
			titleLabel.TextStyle.Bold = true
			titleLabel.Truncation = fyne.TextTruncateEllipsis

			statusLabel := widget.NewLabel("Status message")
			statusLabel.Truncation = fyne.TextTruncateEllipsis

			progressBar := widget.NewProgressBar()
			progressBar.Min = 0
			progressBar.Max = 1

			return container.NewVBox(
				titleLabel,
				statusLabel,
				progressBar,
			)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= len(view.tasks) {
				return
			}

			task := view.tasks[id]
			vbox := item.(*fyne.Container)

			titleLabel := vbox.Objects[0].(*widget.Label)
			statusLabel := vbox.Objects[1].(*widget.Label)
			progressBar := vbox.Objects[2].(*widget.ProgressBar)

			titleLabel.SetText(fmt.Sprintf("%s %s (%dx%d)", statusIcon(task.Status), task.Query,
				task.Options.TargetWidth, task.Options.TargetHeight))
			statusLabel.SetText(task.StatusMessage)
			progressBar.SetValue(task.Progress)
		},
	)

	view.taskList.OnSelected = func(id widget.ListItemID) {
		if id >= len(view.tasks) {
			return
		}
		task := view.tasks[id]
		view.selectedTaskID = task.ID
		view.updateButtons(task)
		if task.Status == config.StatusCompleted {
			view.state.SelectTask(task)
		}
	}

	view.taskList.OnUnselected = func(id widget.ListItemID) {
		view.selectedTaskID = ""
		view.cancelButton.Disable()
		view.retryButton.Disable()
	}

	view.contentContainer = container.NewStack(
		NewHintLabel("No processing tasks yet"),
	)

	buttons := container.NewGridWithColumns(4,
		view.cancelButton,
		view.cancelAllButton,
		view.retryButton,
		view.clearButton,
	)

	view.Card = NewCard(NewSection("Processing Queue", buttons, view.contentContainer))

	refresh := func() {
		fyne.Do(func() {
			view.refreshTaskList()
		})
	}
	state.Queue.SetCallbacks(
		func(task config.ProcessTask) {
			refresh()
		},
		func(task config.ProcessTask) {
			fyne.Do(func() {
				view.refreshTaskList()
				// a batch that just finished goes straight to the gallery
				if task.Status == config.StatusCompleted {
					view.state.SelectTask(task)
				}
			})
		},
		func(taskID string) {
			refresh()
		},
		func() {
			refresh()
		},
	)

	view.refreshTaskList()

	return view
}

func statusIcon(status string) string {
	switch status {
	case config.StatusQueued:
		return "⏳"
	case config.StatusProcessing:
		return "⚙️"
	case config.StatusCompleted:
		return "✅"
	case config.StatusCancelled:
		return "🚫"
	case config.StatusFailed:
		return "❌"
	default:
		return "❓"
	}
}

func (v *ProcessQueueView) updateButtons(task config.ProcessTask) {
	if task.Status == config.StatusQueued || task.Status == config.StatusProcessing {
		v.cancelButton.Enable()
	} else {
		v.cancelButton.Disable()
	}
	if task.Status == config.StatusFailed || task.Status == config.StatusCancelled {
		v.retryButton.Enable()
	} else {
		v.retryButton.Disable()
	}
}

func (v *ProcessQueueView) onCancelTask() {
	if v.selectedTaskID == "" {
		return
	}

	if err := v.state.Queue.CancelTask(v.selectedTaskID); err != nil {
		dialog.ShowError(err, v.state.Window)
		return
	}

	log.Printf("[UI] Cancelled task: %s", v.selectedTaskID)
	v.refreshTaskList()
}

func (v *ProcessQueueView) onRetry() {
	if v.selectedTaskID == "" {
		return
	}

	if err := v.state.Queue.RetryTask(v.selectedTaskID); err != nil {
		dialog.ShowError(err, v.state.Window)
		return
	}

	log.Printf("[UI] Retrying task: %s", v.selectedTaskID)
	v.refreshTaskList()
}

func (v *ProcessQueueView) onCancelAll() {
	dialog.ShowConfirm(
		"Cancel All",
		"Cancel the running batch and everything waiting in the queue?",
		func(confirmed bool) {
			if confirmed {
				v.state.Queue.CancelAll()
				log.Println("[UI] Cancelled all tasks")
				v.refreshTaskList()
			}
		},
		v.state.Window,
	)
}

func (v *ProcessQueueView) onClearCompleted() {
	v.state.Queue.RemoveCompletedTasks()
	log.Println("[UI] Cleared finished tasks")
	v.refreshTaskList()
}

func (v *ProcessQueueView) refreshTaskList() {
	v.tasks = v.state.Queue.GetTasks()

	if len(v.tasks) == 0 {
		v.contentContainer.Objects = []fyne.CanvasObject{
			NewHintLabel("No processing tasks yet"),
		}
	} else {
		v.contentContainer.Objects = []fyne.CanvasObject{v.taskList}
	}
	v.contentContainer.Refresh()

	selected := false
	for _, task := range v.tasks {
		if task.ID == v.selectedTaskID {
			v.updateButtons(task)
			selected = true
			break
		}
	}
	if !selected {
		v.selectedTaskID = ""
		v.cancelButton.Disable()
		v.retryButton.Disable()
	}

	if len(v.tasks) > 0 {
		v.taskList.Refresh()
	}
}
