package ui

import (
	"fmt"
	"log"
	"strings"

	"gazo/challenge"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"golang.design/x/clipboard"
)

// ShowChallengeDialog explains that the engine served a block page instead of results.
// The user can open the page in a real browser or copy its URL, then search again.
func ShowChallengeDialog(window fyne.Window, chErr *challenge.ChallengeError) {
	heading := "Verification page"
	reason := "The search engine did not return results."
	var indicators []string
	if chErr.Info != nil {
		heading = fmt.Sprintf("Verification page (%s)", chErr.Kind)
		if chErr.Info.Reason != "" {
			reason = chErr.Info.Reason
		}
		indicators = chErr.Info.Indicators
	}

	instructions := widget.NewLabel(
		reason + "\n\n" +
			"1. Open the page in your browser\n" +
			"2. Solve the captcha or accept the consent prompt\n" +
			"3. Wait a minute and search again, or switch engine\n\n" +
			"API engines (Brave, SerpApi, SearXNG) are not affected by these pages.",
	)
	instructions.Wrapping = fyne.TextWrapWord

	urlLabel := widget.NewLabel(fmt.Sprintf("Page URL:\n%s", chErr.URL))
	urlLabel.Wrapping = fyne.TextWrapBreak

	details := widget.NewLabel("")
	details.Wrapping = fyne.TextWrapWord
	if len(indicators) > 0 {
		details.SetText("Detected: " + strings.Join(indicators, ", "))
	} else {
		details.Hide()
	}

	statusLabel := widget.NewLabel("")
	statusLabel.Hide()

	var customDialog dialog.Dialog

	openButton := widget.NewButton("Open in Browser", func() {
		if err := challenge.OpenInBrowser(chErr.URL); err != nil {
			log.Printf("[UI] Failed to open challenge page: %v", err)
			statusLabel.SetText(fmt.Sprintf("❌ Could not open browser: %v", err))
		} else {
			statusLabel.SetText("✅ Opened in your browser")
		}
		statusLabel.Show()
	})
	openButton.Importance = widget.HighImportance

	copyButton := widget.NewButton("Copy URL", func() {
		if err := copyToClipboard(chErr.URL); err != nil {
			statusLabel.SetText(fmt.Sprintf("❌ Clipboard unavailable: %v", err))
		} else {
			statusLabel.SetText("✅ URL copied to clipboard")
		}
		statusLabel.Show()
	})

	closeButton := widget.NewButton("Close", func() {
		customDialog.Hide()
	})

	content := container.NewVBox(
		NewBoldLabel("🔒 "+heading),
		widget.NewSeparator(),
		instructions,
		widget.NewSeparator(),
		urlLabel,
		details,
		statusLabel,
		container.NewGridWithColumns(3,
			closeButton,
			copyButton,
			openButton,
		),
	)

	customDialog = dialog.NewCustomWithoutButtons("Search Blocked", content, window)
	customDialog.Resize(fyne.NewSize(600, 420))
	customDialog.Show()
}

// copyToClipboard writes text to the system clipboard
func copyToClipboard(text string) error {
	if err := clipboard.Init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	log.Printf("[UI] Copied to clipboard: %s", text)
	return nil
}
