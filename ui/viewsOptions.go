package ui

import (
	"fmt"
	"log"
	"strconv"

	"gazo/parser"
	"gazo/validation"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// OptionsView is the "Processing" card: output aspect, enhancement and JPEG quality.
// The Process button queues the selected results.
type OptionsView struct {
	Card fyne.CanvasObject

	aspectRadio   *widget.RadioGroup
	widthEntry    *widget.Entry
	heightEntry   *widget.Entry
	customBox     *fyne.Container
	sizeLabel     *widget.Label
	enhanceCheck  *widget.Check
	qualitySlider *widget.Slider
	qualityLabel  *widget.Label
	processButton *widget.Button

	state *AppState
}

// NewOptionsView creates the processing options form
func NewOptionsView(state *AppState) *OptionsView {
	view := &OptionsView{state: state}

	view.widthEntry = widget.NewEntry()
	view.heightEntry = widget.NewEntry()
	view.widthEntry.OnChanged = func(string) { view.updateSizeLabel() }
	view.heightEntry.OnChanged = func(string) { view.updateSizeLabel() }

	view.customBox = container.NewGridWithColumns(2,
		NewFormRow("W:", view.widthEntry),
		NewFormRow("H:", view.heightEntry),
	)

	view.sizeLabel = widget.NewLabel("")

	view.aspectRadio = widget.NewRadioGroup(parser.AspectLabels(), func(selected string) {
		if selected == parser.CustomAspectLabel {
			view.customBox.Show()
		} else {
			view.customBox.Hide()
		}
		view.updateSizeLabel()
	})
	view.aspectRadio.Required = true

	view.enhanceCheck = widget.NewCheck("Sharpen and enhance", nil)

	view.qualityLabel = widget.NewLabel("")
	view.qualitySlider = widget.NewSlider(1, 100)
	view.qualitySlider.Step = 1
	view.qualitySlider.OnChanged = func(value float64) {
		view.qualityLabel.SetText(fmt.Sprintf("JPEG quality: %d", int(value)))
	}

	view.processButton = widget.NewButton("Process Selected", func() {
		view.onProcess()
	})
	view.processButton.Importance = widget.HighImportance
	view.processButton.Disable()

	form := container.NewVBox(
		widget.NewLabel("Aspect ratio:"),
		view.aspectRadio,
		view.customBox,
		view.sizeLabel,
		NewSeparator(),
		view.enhanceCheck,
		view.qualityLabel,
		view.qualitySlider,
	)

	view.Card = NewCard(NewSection("Processing", view.processButton, container.NewVScroll(form)))

	view.loadSettings()

	state.RegisterSettingsChangedCallback(func() {
		view.loadSettings()
	})
	state.RegisterSelectionChangedCallback(func(count int) {
		if count == 0 {
			view.processButton.SetText("Process Selected")
			view.processButton.Disable()
			return
		}
		view.processButton.SetText(fmt.Sprintf("Process %d Selected", count))
		view.processButton.Enable()
	})

	return view
}

// loadSettings copies the saved processing defaults into the form
func (v *OptionsView) loadSettings() {
	s := v.state.Settings
	v.widthEntry.SetText(strconv.Itoa(s.CustomWidth))
	v.heightEntry.SetText(strconv.Itoa(s.CustomHeight))
	v.aspectRadio.SetSelected(s.AspectPreset)
	v.enhanceCheck.SetChecked(s.Enhance)
	v.qualitySlider.SetValue(float64(s.JPEGQuality))
	v.qualityLabel.SetText(fmt.Sprintf("JPEG quality: %d", s.JPEGQuality))
	if s.AspectPreset != parser.CustomAspectLabel {
		v.customBox.Hide()
	}
	v.updateSizeLabel()
}

// targetSize resolves the current form values to pixels
func (v *OptionsView) targetSize() (int, int, error) {
	if v.aspectRadio.Selected != parser.CustomAspectLabel {
		w, h := parser.ResolveTargetSize(v.aspectRadio.Selected, 0, 0)
		return w, h, nil
	}
	w, err := validation.ParseSize(v.widthEntry.Text)
	if err != nil {
		return 0, 0, fmt.Errorf("width: %w", err)
	}
	h, err := validation.ParseSize(v.heightEntry.Text)
	if err != nil {
		return 0, 0, fmt.Errorf("height: %w", err)
	}
	return w, h, nil
}

func (v *OptionsView) updateSizeLabel() {
	w, h, err := v.targetSize()
	if err != nil || w <= 0 || h <= 0 {
		v.sizeLabel.SetText("Output: enter a width and height")
		return
	}
	v.sizeLabel.SetText(fmt.Sprintf("Output: %dx%d (%s)", w, h, parser.Ratio(w, h)))
}

func (v *OptionsView) onProcess() {
	items := v.state.SelectedItems()

	w, h, err := v.targetSize()
	if err != nil {
		dialog.ShowInformation("Process", err.Error(), v.state.Window)
		return
	}
	quality := int(v.qualitySlider.Value)

	if err := validation.ValidateProcess(len(items), w, h, quality); err != nil {
		dialog.ShowInformation("Process", err.Error(), v.state.Window)
		return
	}

	opts := v.state.Settings.ProcessOptions()
	opts.TargetWidth = w
	opts.TargetHeight = h
	opts.Enhance = v.enhanceCheck.Checked
	opts.JPEGQuality = quality

	task, err := v.state.Queue.AddTask(v.state.Query(), v.state.Engine(), items, opts)
	if err != nil {
		dialog.ShowError(err, v.state.Window)
		return
	}
	log.Printf("[UI] Queued %d images for %q as %dx%d (task %s)", len(items), task.Query, w, h, task.ID)
}
