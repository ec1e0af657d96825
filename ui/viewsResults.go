package ui

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"gazo/downloader"
	"gazo/parser"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/sync/semaphore"
)

const thumbnailWorkers = 6

// thumbnailCache keeps decoded previews keyed by preview URL. Entries that
// failed to load are remembered as nil so they are not fetched again.
type thumbnailCache struct {
	mu      sync.Mutex
	images  map[string]image.Image
	pending map[string]bool
}

func newThumbnailCache() *thumbnailCache {
	return &thumbnailCache{
		images:  make(map[string]image.Image),
		pending: make(map[string]bool),
	}
}

// get returns the preview and whether a load finished for url
func (c *thumbnailCache) get(url string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.images[url]
	return img, ok
}

// claim reports whether the caller should start loading url
func (c *thumbnailCache) claim(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, done := c.images[url]; done || c.pending[url] {
		return false
	}
	c.pending[url] = true
	return true
}

func (c *thumbnailCache) store(url string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, url)
	c.images[url] = img
}

// ResultsView is the thumbnail grid of the current search
type ResultsView struct {
	Card fyne.CanvasObject

	grid             *widget.GridWrap
	contentContainer *fyne.Container
	summaryLabel     *widget.Label
	selectAllButton  *widget.Button
	selectNoneButton *widget.Button
	copyButton       *widget.Button

	state    *AppState
	cache    *thumbnailCache
	sem      *semaphore.Weighted
	ctx      context.Context
	cancel   context.CancelFunc
	focusIdx int
}

// NewResultsView creates the results grid
func NewResultsView(state *AppState) *ResultsView {
	view := &ResultsView{
		state:    state,
		cache:    newThumbnailCache(),
		sem:      semaphore.NewWeighted(thumbnailWorkers),
		focusIdx: -1,
	}
	view.ctx, view.cancel = context.WithCancel(context.Background())

	view.grid = widget.NewGridWrap(
		func() int {
			return len(view.state.Results())
		},
		func() fyne.CanvasObject {
			bg := canvas.NewRectangle(ThumbnailBackgroundColor)
			bg.SetMinSize(fyne.NewSize(ThumbnailSize, ThumbnailSize))

			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(ThumbnailSize, ThumbnailSize))

			check := widget.NewCheck("Select", nil)

			caption := widget.NewLabel("")
			caption.Truncation = fyne.TextTruncateEllipsis

			return container.NewBorder(nil, container.NewVBox(caption, check), nil, nil,
				container.NewStack(bg, img))
		},
		func(id widget.GridWrapItemID, item fyne.CanvasObject) {
			results := view.state.Results()
			if id >= len(results) {
				return
			}
			view.bindItem(id, results[id], item.(*fyne.Container))
		},
	)
	view.grid.OnSelected = func(id widget.GridWrapItemID) {
		view.focusIdx = id
		view.copyButton.Enable()
	}
	view.grid.OnUnselected = func(id widget.GridWrapItemID) {
		view.focusIdx = -1
		view.copyButton.Disable()
	}

	view.summaryLabel = widget.NewLabel("")

	view.selectAllButton = widget.NewButton("Select All", func() {
		view.state.SelectAll()
		view.grid.Refresh()
	})
	view.selectNoneButton = widget.NewButton("Select None", func() {
		view.state.SelectNone()
		view.grid.Refresh()
	})
	view.copyButton = widget.NewButton("Copy URL", func() {
		view.onCopyURL()
	})
	view.copyButton.Disable()

	view.contentContainer = container.NewStack()

	buttons := container.NewHBox(
		view.selectAllButton,
		view.selectNoneButton,
		view.copyButton,
	)

	view.Card = NewCard(NewSection("Results",
		container.NewBorder(nil, nil, nil, buttons, view.summaryLabel),
		view.contentContainer))

	state.RegisterResultsChangedCallback(func() {
		view.onResultsChanged()
	})
	state.RegisterSelectionChangedCallback(func(count int) {
		view.updateSummary(count)
	})

	view.onResultsChanged()
	return view
}

func (v *ResultsView) bindItem(id int, result downloader.ImageResult, item *fyne.Container) {
	slot := item.Objects[0].(*fyne.Container)
	img := slot.Objects[1].(*canvas.Image)
	bottom := item.Objects[1].(*fyne.Container)
	caption := bottom.Objects[0].(*widget.Label)
	check := bottom.Objects[1].(*widget.Check)

	text := fmt.Sprintf("%d. %s", id+1, result.Title)
	if result.Title == "" {
		text = fmt.Sprintf("%d.", id+1)
	}
	if result.Width > 0 && result.Height > 0 {
		text += fmt.Sprintf(" (%dx%d)", result.Width, result.Height)
	}
	caption.SetText(text)

	// the item is recycled, detach the old handler before setting the value
	check.OnChanged = nil
	check.SetChecked(v.state.IsSelected(id))
	check.OnChanged = func(checked bool) {
		v.state.SetSelected(id, checked)
	}

	preview := result.PreviewURL()
	thumb, loaded := v.cache.get(preview)
	img.Image = thumb
	img.Refresh()
	if !loaded {
		v.loadThumbnail(id, preview)
	}
}

// loadThumbnail fetches and decodes one preview in the background
func (v *ResultsView) loadThumbnail(id int, previewURL string) {
	cache, ctx := v.cache, v.ctx
	if !cache.claim(previewURL) {
		return
	}

	go func() {
		if err := v.sem.Acquire(ctx, 1); err != nil {
			cache.store(previewURL, nil)
			return
		}
		defer v.sem.Release(1)

		var thumb image.Image
		data, err := v.state.Client.FetchImage(ctx, previewURL)
		if err == nil {
			thumb, err = parser.Thumbnail(data, ThumbnailSize)
		}
		if err != nil {
			log.Printf("[UI] Thumbnail failed for %s: %v", previewURL, err)
		}
		cache.store(previewURL, thumb)

		fyne.Do(func() {
			if ctx.Err() == nil {
				v.grid.RefreshItem(id)
			}
		})
	}()
}

func (v *ResultsView) onResultsChanged() {
	// stop loading previews of the previous search
	v.cancel()
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.cache = newThumbnailCache()
	v.focusIdx = -1
	v.copyButton.Disable()
	v.grid.UnselectAll()

	if len(v.state.Results()) == 0 {
		v.contentContainer.Objects = []fyne.CanvasObject{
			NewHintLabel("Search for something to see images here"),
		}
		v.selectAllButton.Disable()
		v.selectNoneButton.Disable()
	} else {
		v.contentContainer.Objects = []fyne.CanvasObject{v.grid}
		v.selectAllButton.Enable()
		v.selectNoneButton.Enable()
		v.grid.ScrollToTop()
	}
	v.contentContainer.Refresh()
	v.grid.Refresh()
	v.updateSummary(v.state.SelectedCount())
}

func (v *ResultsView) updateSummary(selected int) {
	total := len(v.state.Results())
	if total == 0 {
		v.summaryLabel.SetText("")
		return
	}
	v.summaryLabel.SetText(fmt.Sprintf("%d of %d selected for %q", selected, total, v.state.Query()))
}

func (v *ResultsView) onCopyURL() {
	results := v.state.Results()
	if v.focusIdx < 0 || v.focusIdx >= len(results) {
		return
	}
	if err := copyToClipboard(results[v.focusIdx].URL); err != nil {
		v.summaryLabel.SetText(fmt.Sprintf("Clipboard unavailable: %v", err))
	}
}
