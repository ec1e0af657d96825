package ui

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"gazo/config"
	"gazo/export"
	"gazo/parser"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const uploadTimeout = 5 * time.Minute

// GalleryView shows the processed images of one task and exports them
type GalleryView struct {
	Card fyne.CanvasObject

	grid             *widget.GridWrap
	contentContainer *fyne.Container
	titleLabel       *widget.Label
	zipButton        *widget.Button
	filesButton      *widget.Button
	outputButton     *widget.Button
	outputZipButton  *widget.Button
	uploadButton     *widget.Button

	state    *AppState
	task     config.ProcessTask
	previews []image.Image
}

// NewGalleryView creates the processed image gallery
func NewGalleryView(state *AppState) *GalleryView {
	view := &GalleryView{state: state}

	view.grid = widget.NewGridWrap(
		func() int {
			return len(view.task.Results)
		},
		func() fyne.CanvasObject {
			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(GalleryPreviewSize, GalleryPreviewSize))

			caption := widget.NewLabelWithStyle("Image", fyne.TextAlignCenter, fyne.TextStyle{})
			return container.NewBorder(nil, caption, nil, nil, img)
		},
		func(id widget.GridWrapItemID, item fyne.CanvasObject) {
			if id >= len(view.task.Results) {
				return
			}
			processed := view.task.Results[id]
			box := item.(*fyne.Container)
			img := box.Objects[0].(*canvas.Image)
			caption := box.Objects[1].(*widget.Label)

			img.Image = view.previews[id]
			img.Refresh()
			caption.SetText(fmt.Sprintf("Image %d", processed.Index))
		},
	)

	view.titleLabel = widget.NewLabel("")
	view.titleLabel.Truncation = fyne.TextTruncateEllipsis

	view.zipButton = widget.NewButton("Save ZIP", func() {
		view.onSaveZip()
	})
	view.filesButton = widget.NewButton("Save Files", func() {
		view.onSaveFiles()
	})
	view.outputButton = widget.NewButton("Save to Output Folder", func() {
		view.onSaveToOutput()
	})
	view.outputZipButton = widget.NewButton("ZIP to Output Folder", func() {
		view.onSaveZipToOutput()
	})
	view.uploadButton = widget.NewButton("Upload", func() {
		view.onUpload()
	})

	view.contentContainer = container.NewStack()

	buttons := container.NewGridWithColumns(3,
		view.zipButton,
		view.filesButton,
		view.uploadButton,
		view.outputButton,
		view.outputZipButton,
	)

	view.Card = NewCard(NewSection("Processed Images",
		buttons,
		container.NewBorder(view.titleLabel, nil, nil, nil, view.contentContainer)))

	state.RegisterTaskSelectedCallback(func(task config.ProcessTask) {
		view.showTask(task)
	})
	state.RegisterSettingsChangedCallback(func() {
		view.updateButtons()
	})

	view.showTask(config.ProcessTask{})
	return view
}

func (v *GalleryView) showTask(task config.ProcessTask) {
	v.task = task
	v.previews = make([]image.Image, len(task.Results))
	for i, processed := range task.Results {
		if processed != nil && processed.Image != nil {
			v.previews[i] = parser.Preview(processed.Image, GalleryPreviewSize)
		}
	}

	if len(task.Results) == 0 {
		v.titleLabel.SetText("")
		v.contentContainer.Objects = []fyne.CanvasObject{
			NewHintLabel("Processed images appear here"),
		}
	} else {
		text := fmt.Sprintf("%q: %d images at %dx%d", task.Query, len(task.Results),
			task.Options.TargetWidth, task.Options.TargetHeight)
		if len(task.Failures) > 0 {
			text += fmt.Sprintf(", %d failed", len(task.Failures))
		}
		v.titleLabel.SetText(text)
		v.contentContainer.Objects = []fyne.CanvasObject{v.grid}
		v.grid.ScrollToTop()
	}
	v.contentContainer.Refresh()
	v.grid.Refresh()
	v.updateButtons()
}

func (v *GalleryView) updateButtons() {
	if len(v.task.Results) == 0 {
		v.zipButton.Disable()
		v.filesButton.Disable()
		v.outputButton.Disable()
		v.outputZipButton.Disable()
		v.uploadButton.Disable()
		return
	}
	v.zipButton.Enable()
	v.filesButton.Enable()
	v.outputButton.Enable()
	v.outputZipButton.Enable()
	if v.state.Settings.S3.Configured() {
		v.uploadButton.Enable()
	} else {
		v.uploadButton.Disable()
	}
}

func (v *GalleryView) onSaveZip() {
	images := v.task.Results

	saveDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(fmt.Errorf("error opening save dialog: %v", err), v.state.Window)
			return
		}
		if writer == nil {
			// User cancelled
			return
		}
		defer writer.Close()

		// build in memory first so a failed encode leaves no half-written archive
		data, err := export.ZipBytes(images)
		if err != nil {
			dialog.ShowError(err, v.state.Window)
			return
		}
		if _, err := writer.Write(data); err != nil {
			dialog.ShowError(fmt.Errorf("failed to write zip: %v", err), v.state.Window)
			return
		}

		log.Printf("[UI] Saved %d images to %s", len(images), writer.URI().Path())
		dialog.ShowInformation("Saved", fmt.Sprintf("%d images saved to\n%s", len(images), writer.URI().Path()), v.state.Window)
	}, v.state.Window)

	saveDialog.SetFileName(export.DefaultZipName)
	saveDialog.SetFilter(storage.NewExtensionFileFilter([]string{".zip"}))
	v.setDialogLocation(saveDialog)
	saveDialog.Resize(fyne.NewSize(900, 700))
	saveDialog.Show()
}

func (v *GalleryView) onSaveFiles() {
	images := v.task.Results
	query := v.task.Query

	folderDialog := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(fmt.Errorf("error opening folder dialog: %v", err), v.state.Window)
			return
		}
		if dir == nil {
			return
		}
		v.saveFiles(dir.Path(), query, images)
	}, v.state.Window)

	v.setDialogLocation(folderDialog)
	folderDialog.Resize(fyne.NewSize(900, 700))
	folderDialog.Show()
}

func (v *GalleryView) onSaveToOutput() {
	v.saveFiles(v.state.Settings.OutputDir, v.task.Query, v.task.Results)
}

func (v *GalleryView) onSaveZipToOutput() {
	images := v.task.Results
	path, err := export.SaveZipInDir(v.state.Settings.OutputDir, v.task.Query, images)
	if err != nil {
		dialog.ShowError(err, v.state.Window)
		return
	}

	dialog.ShowCustomConfirm("Saved", "Open Folder", "Close",
		widget.NewLabel(fmt.Sprintf("%d images saved to\n%s", len(images), path)),
		func(open bool) {
			if open {
				openDirectory(filepath.Dir(path), v.state.Window)
			}
		}, v.state.Window)
}

func (v *GalleryView) saveFiles(dir, query string, images []*parser.ProcessedImage) {
	paths, err := export.SaveDir(dir, query, images)
	if err != nil {
		dialog.ShowError(fmt.Errorf("saved %d of %d images: %w", len(paths), len(images), err), v.state.Window)
		return
	}

	target, _ := parser.ExpandPath(dir)
	dialog.ShowCustomConfirm("Saved", "Open Folder", "Close",
		widget.NewLabel(fmt.Sprintf("%d images saved to\n%s", len(paths), target)),
		func(open bool) {
			if open {
				openDirectory(target, v.state.Window)
			}
		}, v.state.Window)
}

func (v *GalleryView) onUpload() {
	uploader, err := export.NewBucketUploader(v.state.Settings.S3)
	if err != nil {
		dialog.ShowError(err, v.state.Window)
		return
	}

	images := v.task.Results
	folder := v.task.Query

	v.uploadButton.Disable()
	v.uploadButton.SetText("Uploading...")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		keys, err := uploader.Upload(ctx, folder, images)

		fyne.Do(func() {
			v.uploadButton.SetText("Upload")
			v.updateButtons()
			if err != nil {
				log.Printf("[UI] Upload failed after %d objects: %v", len(keys), err)
				dialog.ShowError(fmt.Errorf("uploaded %d of %d images: %w", len(keys), len(images), err), v.state.Window)
				return
			}
			dialog.ShowInformation("Uploaded",
				fmt.Sprintf("%d images uploaded to bucket %q", len(keys), v.state.Settings.S3.Bucket),
				v.state.Window)
		})
	}()
}

// setDialogLocation starts file dialogs in the configured output folder, or home
func (v *GalleryView) setDialogLocation(d interface{ SetLocation(fyne.ListableURI) }) {
	start, err := parser.ExpandPath(v.state.Settings.OutputDir)
	if err != nil {
		return
	}
	if _, err := os.Stat(start); err != nil {
		if start, err = os.UserHomeDir(); err != nil {
			return
		}
	}
	if lister, err := storage.ListerForURI(storage.NewFileURI(start)); err == nil {
		d.SetLocation(lister)
	}
}
