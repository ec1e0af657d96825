package ui

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gazo/config"
	"gazo/parser"
	"gazo/sites"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ShowSettingsWindow edits settings.json. Worker, rate limit, MongoDB and
// metrics changes apply after a restart, everything else on the next search.
func ShowSettingsWindow(state *AppState) {
	s := state.Settings

	settingsWindow := state.App.NewWindow("gazo Settings")
	settingsWindow.Resize(fyne.NewSize(720, 620))

	// Search
	engineSelect := widget.NewSelect(state.Catalog.DisplayNames(), nil)
	if info, ok := state.Catalog.Find(s.Engine); ok {
		engineSelect.SetSelected(info.DisplayName)
	}
	countEntry := intEntry(s.ImageCount)
	safeCheck := widget.NewCheck("Safe search", nil)
	safeCheck.SetChecked(s.SafeSearch)

	// Processing
	aspectSelect := widget.NewSelect(parser.AspectLabels(), nil)
	aspectSelect.SetSelected(s.AspectPreset)
	widthEntry := intEntry(s.CustomWidth)
	heightEntry := intEntry(s.CustomHeight)
	enhanceCheck := widget.NewCheck("Sharpen and enhance by default", nil)
	enhanceCheck.SetChecked(s.Enhance)
	qualityEntry := intEntry(s.JPEGQuality)
	sharpenEntry := floatEntry(s.Filters.Sharpen)
	contrastEntry := floatEntry(s.Filters.Contrast)
	saturationEntry := floatEntry(s.Filters.Saturation)

	// Fetching
	workersEntry := intEntry(s.Workers)
	rpsEntry := floatEntry(s.RequestsPerSecond)
	robotsCheck := widget.NewCheck("Respect robots.txt for image hosts", nil)
	robotsCheck.SetChecked(s.RespectRobots)
	timeoutEntry := intEntry(s.TimeoutSeconds)
	uaEntry := textEntry(s.UserAgent, "default browser User-Agent")
	browserCheck := widget.NewCheck("Render with headless Chrome when a page has no results", nil)
	browserCheck.SetChecked(s.BrowserFallback)
	scrollsEntry := intEntry(s.BrowserScrolls)

	// Export
	outputEntry := textEntry(s.OutputDir, "~/Pictures/gazo")
	s3EndpointEntry := textEntry(s.S3.Endpoint, "play.min.io:9000")
	s3BucketEntry := textEntry(s.S3.Bucket, "")
	s3PrefixEntry := textEntry(s.S3.Prefix, "")
	s3AccessEntry := textEntry(s.S3.AccessKey, "")
	s3SecretEntry := widget.NewPasswordEntry()
	s3SecretEntry.SetText(s.S3.SecretKey)
	s3SSLCheck := widget.NewCheck("Use TLS", nil)
	s3SSLCheck.SetChecked(s.S3.UseSSL)

	// Engine credentials
	searxngEntry := textEntry(s.SearxngEndpoint, "https://searx.example.org")
	searxngKeyEntry := widget.NewPasswordEntry()
	searxngKeyEntry.SetText(s.SearxngAPIKey)
	braveKeyEntry := widget.NewPasswordEntry()
	braveKeyEntry.SetText(s.BraveAPIKey)
	serpKeyEntry := widget.NewPasswordEntry()
	serpKeyEntry.SetText(s.SerpAPIKey)

	// Integrations
	mongoEntry := textEntry(s.MongoURI, "mongodb://localhost:27017")
	mongoDBEntry := textEntry(s.MongoDatabase, config.DefaultMongoDatabase)
	metricsEntry := textEntry(s.MetricsAddr, "127.0.0.1:9464")

	tabs := container.NewAppTabs(
		container.NewTabItem("Search", widget.NewForm(
			widget.NewFormItem("Default engine", engineSelect),
			widget.NewFormItem("Images", countEntry),
			widget.NewFormItem("", safeCheck),
		)),
		container.NewTabItem("Processing", widget.NewForm(
			widget.NewFormItem("Aspect ratio", aspectSelect),
			widget.NewFormItem("Custom width", widthEntry),
			widget.NewFormItem("Custom height", heightEntry),
			widget.NewFormItem("", enhanceCheck),
			widget.NewFormItem("Sharpen (sigma)", sharpenEntry),
			widget.NewFormItem("Contrast (%)", contrastEntry),
			widget.NewFormItem("Saturation (%)", saturationEntry),
			widget.NewFormItem("JPEG quality", qualityEntry),
		)),
		container.NewTabItem("Fetching", widget.NewForm(
			widget.NewFormItem("Workers", workersEntry),
			widget.NewFormItem("Requests/s per host", rpsEntry),
			widget.NewFormItem("", robotsCheck),
			widget.NewFormItem("Timeout (s)", timeoutEntry),
			widget.NewFormItem("User-Agent", uaEntry),
			widget.NewFormItem("", browserCheck),
			widget.NewFormItem("Browser scrolls", scrollsEntry),
		)),
		container.NewTabItem("Export", widget.NewForm(
			widget.NewFormItem("Output folder", outputEntry),
			widget.NewFormItem("S3 endpoint", s3EndpointEntry),
			widget.NewFormItem("Bucket", s3BucketEntry),
			widget.NewFormItem("Key prefix", s3PrefixEntry),
			widget.NewFormItem("Access key", s3AccessEntry),
			widget.NewFormItem("Secret key", s3SecretEntry),
			widget.NewFormItem("", s3SSLCheck),
		)),
		container.NewTabItem("Engines", widget.NewForm(
			widget.NewFormItem("SearXNG URL", searxngEntry),
			widget.NewFormItem("SearXNG token", searxngKeyEntry),
			widget.NewFormItem("Brave API key", braveKeyEntry),
			widget.NewFormItem("SerpApi key", serpKeyEntry),
		)),
		container.NewTabItem("Integrations", widget.NewForm(
			widget.NewFormItem("MongoDB URI", mongoEntry),
			widget.NewFormItem("Database", mongoDBEntry),
			widget.NewFormItem("Metrics address", metricsEntry),
		)),
		container.NewTabItem("Catalog", newCatalogView()),
	)

	saveButton := widget.NewButton("Save", func() {
		updated := state.Settings

		var errs []string
		parseInt := func(name string, e *widget.Entry) int {
			n, err := strconv.Atoi(strings.TrimSpace(e.Text))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a whole number", name, e.Text))
			}
			return n
		}
		parseFloat := func(name string, e *widget.Entry) float64 {
			f, err := strconv.ParseFloat(strings.TrimSpace(e.Text), 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a number", name, e.Text))
			}
			return f
		}

		updated.Engine = state.Catalog.NameForDisplay(engineSelect.Selected)
		updated.ImageCount = parseInt("Images", countEntry)
		updated.SafeSearch = safeCheck.Checked
		updated.AspectPreset = aspectSelect.Selected
		updated.CustomWidth = parseInt("Custom width", widthEntry)
		updated.CustomHeight = parseInt("Custom height", heightEntry)
		updated.Enhance = enhanceCheck.Checked
		updated.JPEGQuality = parseInt("JPEG quality", qualityEntry)
		updated.Filters = parser.EnhanceOptions{
			Sharpen:    parseFloat("Sharpen", sharpenEntry),
			Contrast:   parseFloat("Contrast", contrastEntry),
			Saturation: parseFloat("Saturation", saturationEntry),
		}
		updated.Workers = parseInt("Workers", workersEntry)
		updated.RequestsPerSecond = parseFloat("Requests/s", rpsEntry)
		updated.RespectRobots = robotsCheck.Checked
		updated.TimeoutSeconds = parseInt("Timeout", timeoutEntry)
		updated.UserAgent = uaEntry.Text
		updated.BrowserFallback = browserCheck.Checked
		updated.BrowserScrolls = parseInt("Browser scrolls", scrollsEntry)
		updated.OutputDir = outputEntry.Text
		updated.S3 = config.S3Settings{
			Endpoint:  strings.TrimSpace(s3EndpointEntry.Text),
			AccessKey: strings.TrimSpace(s3AccessEntry.Text),
			SecretKey: s3SecretEntry.Text,
			Bucket:    strings.TrimSpace(s3BucketEntry.Text),
			UseSSL:    s3SSLCheck.Checked,
			Prefix:    strings.TrimSpace(s3PrefixEntry.Text),
		}
		updated.SearxngEndpoint = searxngEntry.Text
		updated.SearxngAPIKey = strings.TrimSpace(searxngKeyEntry.Text)
		updated.BraveAPIKey = strings.TrimSpace(braveKeyEntry.Text)
		updated.SerpAPIKey = strings.TrimSpace(serpKeyEntry.Text)
		updated.MongoURI = strings.TrimSpace(mongoEntry.Text)
		updated.MongoDatabase = strings.TrimSpace(mongoDBEntry.Text)
		updated.MetricsAddr = strings.TrimSpace(metricsEntry.Text)

		if len(errs) > 0 {
			dialog.ShowInformation("Settings", strings.Join(errs, "\n"), settingsWindow)
			return
		}

		if err := state.UpdateSettings(updated); err != nil {
			dialog.ShowError(fmt.Errorf("failed to save settings: %w", err), settingsWindow)
			return
		}
		settingsWindow.Close()
	})
	saveButton.Importance = widget.HighImportance

	cancelButton := widget.NewButton("Cancel", func() {
		settingsWindow.Close()
	})

	note := widget.NewLabel("Workers, rate limit, MongoDB and metrics changes apply after a restart.")
	note.Wrapping = fyne.TextWrapWord

	bottom := container.NewVBox(
		widget.NewSeparator(),
		note,
		container.NewCenter(container.NewHBox(cancelButton, saveButton)),
	)

	settingsWindow.SetContent(container.NewBorder(nil, bottom, nil, nil, tabs))
	settingsWindow.Show()
}

// newCatalogView shows the embedded engines.json with a line filter
func newCatalogView() fyne.CanvasObject {
	catalogLabel := widget.NewLabel("")
	catalogLabel.Wrapping = fyne.TextWrapWord

	var allLines []string
	scanner := bufio.NewScanner(bytes.NewReader(sites.GetEmbeddedEnginesJSON()))
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}
	catalogLabel.SetText(strings.Join(allLines, "\n"))

	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Search engine catalog...")

	performSearch := func() {
		query := strings.ToLower(searchEntry.Text)
		if query == "" {
			catalogLabel.SetText(strings.Join(allLines, "\n"))
			return
		}

		var filtered []string
		for _, line := range allLines {
			if strings.Contains(strings.ToLower(line), query) {
				filtered = append(filtered, line)
			}
		}
		if len(filtered) == 0 {
			catalogLabel.SetText(fmt.Sprintf("No results found for: %s", searchEntry.Text))
			return
		}
		catalogLabel.SetText(strings.Join(filtered, "\n") + fmt.Sprintf("\n\n[Found %d matches]", len(filtered)))
	}
	searchEntry.OnSubmitted = func(string) {
		performSearch()
	}

	clearButton := widget.NewButton("Clear", func() {
		searchEntry.SetText("")
		performSearch()
	})

	searchBox := container.NewBorder(nil, nil, nil,
		container.NewHBox(widget.NewButton("Search", performSearch), clearButton),
		searchEntry)

	return container.NewBorder(searchBox, nil, nil, nil, container.NewScroll(catalogLabel))
}

func floatEntry(value float64) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.FormatFloat(value, 'f', -1, 64))
	return e
}

func intEntry(value int) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(value))
	return e
}

func textEntry(value, placeholder string) *widget.Entry {
	e := widget.NewEntry()
	e.SetPlaceHolder(placeholder)
	e.SetText(value)
	return e
}
