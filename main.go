package main

// main.go only wires the application together:
//
// - config/     : settings, logging, processing queue
// - downloader/ : HTTP client, worker pool, per-host politeness
// - sites/      : search engines and the registry
// - storage/    : optional MongoDB record of processed images
// - metrics/    : optional Prometheus endpoint
// - ui/         : fyne views and windows

import (
	"context"
	"log"
	"net/http"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"

	"gazo/challenge"
	"gazo/config"
	"gazo/downloader"
	"gazo/metrics"
	"gazo/storage"
	"gazo/ui"
)

const appID = "com.gazo.app"

func main() {
	logCloser, err := config.SetupLogging()
	if err != nil {
		log.Printf("[Main] File logging disabled: %v", err)
	} else {
		defer logCloser.Close()
	}
	log.Printf("[Main] Starting %s", config.VersionString())

	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("[Main] Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}

	if configDir, err := config.ConfigDirectory(); err == nil {
		if err := challenge.InitDebugLogger(configDir); err != nil {
			log.Printf("[Main] Challenge debug log disabled: %v", err)
		}
	}
	defer challenge.CloseDebugLogger()

	metricsServer, err := metrics.Serve(settings.MetricsAddr)
	if err != nil {
		log.Printf("[Main] Metrics endpoint disabled: %v", err)
	}

	storeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := storage.New(storeCtx, settings.MongoURI, settings.MongoDatabase)
	cancel()
	if err != nil {
		log.Printf("[Main] MongoDB disabled: %v", err)
		store, _ = storage.New(context.Background(), "", "")
	}

	client, err := downloader.NewHTTPClient(downloader.ClientOptions{
		UserAgent: settings.UserAgent,
		Timeout:   time.Duration(settings.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("[Main] Cannot create HTTP client: %v", err)
	}

	policy := downloader.NewHostPolicy(downloader.HostPolicyOptions{
		UserAgent:         client.UserAgent(),
		RequestsPerSecond: settings.RequestsPerSecond,
		RespectRobots:     settings.RespectRobots,
		Client:            &http.Client{Timeout: 5 * time.Second},
	})

	manager := downloader.NewManager(client, downloader.ManagerOptions{
		Workers:  settings.Workers,
		Policy:   policy,
		Recorder: store,
	})

	queue := config.GetProcessQueue()
	queue.SetRunner(func(ctx context.Context, task config.ProcessTask, progress downloader.ProgressCallback) (*downloader.BatchResult, error) {
		return manager.Process(ctx, task.Query, task.Items, task.Options, progress)
	})

	gazoApp := app.NewWithID(appID)
	app.SetMetadata(fyne.AppMetadata{
		ID:      appID,
		Name:    "gazo",
		Version: config.Version,
	})

	myWindow := gazoApp.NewWindow("gazo")
	state := ui.NewAppState(myWindow, gazoApp, settings, client, queue)
	state.Store = store

	// -------------------------------------------------------------------------
	// MENUS
	// -------------------------------------------------------------------------
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Settings", func() {
			log.Println("[UI] Settings opened (GUI)")
			ui.ShowSettingsWindow(state)
		}),
		fyne.NewMenuItem("Logs", func() {
			log.Println("[UI] Logs opened (GUI)")
			ui.ShowLogWindow(gazoApp)
		}),
	)

	historyMenu := fyne.NewMenu("History",
		fyne.NewMenuItem("Search History", func() {
			log.Println("[UI] History opened (GUI)")
			ui.ShowHistoryWindow(state)
		}),
		fyne.NewMenuItem("Export History", func() {
			log.Println("[UI] Export History triggered (GUI)")
			ui.ShowExportHistoryDialog(myWindow)
		}),
		fyne.NewMenuItem("Import History", func() {
			log.Println("[UI] Import History triggered (GUI)")
			ui.ShowImportHistoryDialog(myWindow, nil)
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			log.Println("[UI] About dialog opened")
			ui.ShowAboutDialog(gazoApp)
		}),
	)

	myWindow.SetMainMenu(fyne.NewMainMenu(fileMenu, historyMenu, helpMenu))

	// -------------------------------------------------------------------------
	// KEYBOARD SHORTCUTS
	// -------------------------------------------------------------------------
	myWindow.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyQ,
		Modifier: fyne.KeyModifierControl,
	}, func(shortcut fyne.Shortcut) {
		log.Println("[UI] User closed application (ctrl + q)")
		gazoApp.Quit()
	})
	myWindow.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyL,
		Modifier: fyne.KeyModifierControl,
	}, func(shortcut fyne.Shortcut) {
		log.Println("[UI] Logs opened (ctrl + l)")
		ui.ShowLogWindow(gazoApp)
	})
	myWindow.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyH,
		Modifier: fyne.KeyModifierControl,
	}, func(shortcut fyne.Shortcut) {
		log.Println("[UI] History opened (ctrl + h)")
		ui.ShowHistoryWindow(state)
	})
	myWindow.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyComma,
		Modifier: fyne.KeyModifierControl,
	}, func(shortcut fyne.Shortcut) {
		log.Println("[UI] Settings opened (ctrl + ,)")
		ui.ShowSettingsWindow(state)
	})

	myWindow.SetCloseIntercept(func() {
		log.Println("[UI] User closed application (window)")
		gazoApp.Quit()
	})

	myWindow.Resize(fyne.NewSize(ui.DefaultWindowWidth, ui.DefaultWindowHeight))
	myWindow.SetContent(ui.BuildMainLayout(state))

	myWindow.ShowAndRun()

	// -------------------------------------------------------------------------
	// SHUTDOWN
	// -------------------------------------------------------------------------
	queue.CancelAll()
	queue.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("[Main] Failed to close MongoDB: %v", err)
	}
	log.Println("[Main] Bye")
}
