package ui

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"gazo/config"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/nxadm/tail"
)

const (
	initialLinesToShow = 1000 // Show last 1000 lines initially
	linesPerScroll     = 500  // Load 500 more lines when scrolling up
	maxFollowedLines   = 5000
)

func ShowLogWindow(gazoApp fyne.App) {
	logFilePath, err := config.LogFilePath()
	if err != nil {
		log.Printf("[UI] Cannot locate log file: %v", err)
		return
	}
	logDir := filepath.Dir(logFilePath)

	logWindow := gazoApp.NewWindow("gazo Log")
	logWindow.Resize(fyne.NewSize(800, 600))

	logLabel := widget.NewLabel("Loading log file...")
	logLabel.Wrapping = fyne.TextWrapWord

	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Search in loaded lines...")

	// only touched on the UI goroutine
	var allLines []string
	var displayedLines []string
	var currentStartIndex int
	var follower *tail.Tail

	scroll := container.NewScroll(logLabel)

	updateDisplay := func() {
		logLabel.SetText(strings.Join(displayedLines, "\n"))
	}

	performSearch := func() {
		query := searchEntry.Text
		if query == "" {
			updateDisplay()
			return
		}

		lines := displayedLines
		go func() {
			var filtered []string
			queryLower := strings.ToLower(query)

			for _, line := range lines {
				if strings.Contains(strings.ToLower(line), queryLower) {
					filtered = append(filtered, line)
				}
			}

			result := ""
			if len(filtered) == 0 {
				result = fmt.Sprintf("No results found for: %s\n(Searching only in loaded lines)", query)
			} else {
				result = strings.Join(filtered, "\n") + fmt.Sprintf("\n\n[Found %d matches in loaded lines]", len(filtered))
			}

			fyne.Do(func() {
				logLabel.SetText(result)
			})
		}()
	}
	searchEntry.OnSubmitted = func(string) {
		performSearch()
	}

	searchButton := widget.NewButton("Search", performSearch)

	clearButton := widget.NewButton("Clear Search", func() {
		searchEntry.SetText("")
		updateDisplay()
	})

	openDirButton := widget.NewButton("Open Log Directory", func() {
		openDirectory(logDir, logWindow)
	})

	loadMoreButton := widget.NewButton("Load More Lines", func() {
		newStartIndex := currentStartIndex - linesPerScroll
		if newStartIndex < 0 {
			newStartIndex = 0
		}

		if newStartIndex == currentStartIndex {
			dialog.ShowInformation("Info", "All available lines are already loaded", logWindow)
			return
		}

		additionalLines := append([]string(nil), allLines[newStartIndex:currentStartIndex]...)
		displayedLines = append(additionalLines, displayedLines...)
		currentStartIndex = newStartIndex
		updateDisplay()
	})

	stopFollowing := func() {
		if follower != nil {
			follower.Stop()
			follower.Cleanup()
			follower = nil
		}
	}

	followCheck := widget.NewCheck("Follow", func(on bool) {
		if !on {
			stopFollowing()
			return
		}
		t, err := tail.TailFile(logFilePath, tail.Config{
			Follow:    true,
			ReOpen:    true,
			MustExist: true,
			Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to follow log file: %v", err), logWindow)
			return
		}
		follower = t

		go func() {
			for line := range t.Lines {
				if line.Err != nil {
					log.Printf("[UI] Log follow error: %v", line.Err)
					continue
				}
				text := line.Text
				fyne.Do(func() {
					displayedLines = append(displayedLines, text)
					if len(displayedLines) > maxFollowedLines {
						displayedLines = displayedLines[len(displayedLines)-maxFollowedLines:]
					}
					if searchEntry.Text == "" {
						updateDisplay()
						scroll.ScrollToBottom()
					}
				})
			}
		}()
	})

	logWindow.SetOnClosed(stopFollowing)

	infoLabel := widget.NewLabel("")

	searchBox := container.NewBorder(nil, nil, nil,
		container.NewHBox(searchButton, clearButton, loadMoreButton, followCheck, openDirButton),
		searchEntry)

	content := container.NewBorder(
		container.NewVBox(searchBox, infoLabel),
		nil, nil, nil,
		scroll,
	)
	logWindow.SetContent(content)
	logWindow.Show()

	// Load file asynchronously
	go func() {
		lines, err := readLines(logFilePath)
		if err != nil {
			fyne.Do(func() {
				logLabel.SetText(fmt.Sprintf("Failed to read log file: %v", err))
			})
			return
		}

		fyne.Do(func() {
			allLines = lines
			if len(lines) > initialLinesToShow {
				currentStartIndex = len(lines) - initialLinesToShow
			} else {
				currentStartIndex = 0
			}
			displayedLines = append([]string(nil), lines[currentStartIndex:]...)

			infoLabel.SetText(fmt.Sprintf("Showing last %d of %d total lines. Use 'Load More Lines' to see older entries, 'Follow' to watch new ones.",
				len(displayedLines), len(lines)))
			updateDisplay()
			scroll.ScrollToBottom()
		})
	}()
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// openDirectory opens the file manager to the specified directory
func openDirectory(path string, parent fyne.Window) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		dialog.ShowError(fmt.Errorf("unsupported operating system"), parent)
		return
	}

	if err := cmd.Start(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to open directory: %v", err), parent)
	}
}
