package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/wfinley/park-compass/internal/db"
	"github.com/wfinley/park-compass/pkg/config"
	"github.com/wfinley/park-compass/pkg/geo"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Config   *config.Config
	Database *db.DB
	Repo     *db.SpotRepository
	Observer geo.Point
	DeviceID string
}

// App is the saved-spots browser: a live table of parked spots with
// distance and bearing from the observer position.
type App struct {
	config   *config.Config
	database *db.DB
	repo     *db.SpotRepository
	observer geo.Point
	deviceID string

	// UI components
	tviewApp   *tview.Application
	table      *tview.Table
	details    *tview.TextView
	controls   *tview.TextView
	status     *tview.TextView
	rootLayout *tview.Flex

	// State
	spots []db.ParkedSpot

	// Synchronization
	mu          sync.RWMutex
	updateTimer *time.Ticker
	stopChan    chan struct{}
}

// NewApp creates a new application instance
func NewApp(cfg *AppConfig) *App {
	app := &App{
		config:   cfg.Config,
		database: cfg.Database,
		repo:     cfg.Repo,
		observer: cfg.Observer,
		deviceID: cfg.DeviceID,
		stopChan: make(chan struct{}),
	}

	app.setupUI()
	return app
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.createTable()
	a.createDetailsPanel()
	a.createControlsPanel()
	a.createStatusBar()
	a.createLayout()

	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// createTable creates the spot list table
func (a *App) createTable() {
	a.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Parked Spots ")

	a.table.SetSelectionChangedFunc(func(row, col int) {
		a.updateDetails()
	})
}

// createDetailsPanel creates the selected-spot detail panel
func (a *App) createDetailsPanel() {
	a.details = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.details.SetBorder(true).SetTitle(" Details ")
}

// createControlsPanel creates the controls/shortcuts panel
func (a *App) createControlsPanel() {
	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.controls.SetBorder(true).SetTitle(" Controls ")

	controlsText := `[yellow]NAVIGATION[-]
  [white]↑/↓, j/k[-]  Select

[yellow]ACTIONS[-]
  [white]a[-]         Set active
  [white]s[-]         Save spot here
  [white]m[-]         Move spot here
  [white]d[-]         Delete

[yellow]CONTROL[-]
  [white]q[-]         Quit`

	a.controls.SetText(controlsText)
}

// createStatusBar creates the bottom status line
func (a *App) createStatusBar() {
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
}

// createLayout creates the main layout
func (a *App) createLayout() {
	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.details, 0, 3, false).
		AddItem(a.controls, 0, 2, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 7, true).
		AddItem(sidebar, 0, 3, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.tviewApp.SetRoot(a.rootLayout, true)
}

// refresh reloads spots from the database and redraws the table
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	database, err := db.EnsureConnection(a.database, a.config.Database)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]Database unavailable: %v[-]", err))
		return
	}
	if database != a.database {
		a.database = database
		a.repo = db.NewSpotRepository(database)
	}

	var spots []db.ParkedSpot
	err = db.WithRetry(func() error {
		var err error
		spots, err = a.repo.GetDeviceSpots(ctx, a.deviceID)
		return err
	}, 2)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]Failed to load spots: %v[-]", err))
		return
	}

	a.mu.Lock()
	a.spots = spots
	a.mu.Unlock()

	a.redrawTable()
	a.updateDetails()

	statsText := ""
	if stats, err := a.database.GetStats(ctx); err == nil {
		statsText = fmt.Sprintf("  |  db: %v spots, %v active, %v devices",
			stats["total_spots"], stats["active_spots"], stats["devices"])
	}
	a.setStatus(fmt.Sprintf("[gray]%d spots for device %s  |  observer %.4f, %.4f%s[-]",
		len(spots), a.deviceID, a.observer.Latitude, a.observer.Longitude, statsText))
}

// redrawTable rebuilds the table rows from current spots
func (a *App) redrawTable() {
	a.mu.RLock()
	defer a.mu.RUnlock()

	a.table.Clear()

	headers := []string{"", "Label", "Floor", "Distance", "Direction", "Saved"}
	for col, h := range headers {
		cell := tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		a.table.SetCell(0, col, cell)
	}

	for i, spot := range a.spots {
		row := i + 1

		marker := " "
		color := tcell.ColorWhite
		if spot.IsActive {
			marker = "●"
			color = tcell.ColorGreen
		}

		dist, dir := a.rangeTo(spot)

		a.table.SetCell(row, 0, tview.NewTableCell(marker).SetTextColor(tcell.ColorGreen))
		a.table.SetCell(row, 1, tview.NewTableCell(spot.Label).SetTextColor(color))
		a.table.SetCell(row, 2, tview.NewTableCell(spot.FloorLabel).SetTextColor(color))
		a.table.SetCell(row, 3, tview.NewTableCell(dist).SetTextColor(color))
		a.table.SetCell(row, 4, tview.NewTableCell(dir).SetTextColor(color))
		a.table.SetCell(row, 5, tview.NewTableCell(spot.UpdatedAt.Local().Format("Jan 02 15:04")).SetTextColor(tcell.ColorGray))
	}
}

// rangeTo formats the live distance and direction from the observer to a spot
func (a *App) rangeTo(spot db.ParkedSpot) (string, string) {
	target := geo.Point{Latitude: spot.Latitude, Longitude: spot.Longitude}

	dist, err := geo.Distance(a.observer, target)
	if err != nil {
		return "---", "---"
	}

	bearing, err := geo.Bearing(a.observer, target)
	if err != nil {
		// Observer is standing on the spot
		return geo.FormatDistance(dist, false, -1), "here"
	}

	return geo.FormatDistance(dist, false, -1), fmt.Sprintf("%.0f° %s", bearing, cardinal(bearing))
}

// cardinal maps a compass bearing to a cardinal-direction abbreviation
func cardinal(bearing float64) string {
	names := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	idx := int((geo.Normalize(bearing)+22.5)/45.0) % 8
	return names[idx]
}

// updateDetails updates the detail panel for the selected spot
func (a *App) updateDetails() {
	spot, ok := a.selectedSpot()
	if !ok {
		a.details.SetText("[gray]No spot selected[-]")
		return
	}

	dist, dir := a.rangeTo(spot)

	var text string
	text += fmt.Sprintf("[yellow]SPOT:[-] [white]%s[-] [gray](#%d)[-]\n", spot.Label, spot.ID)
	text += fmt.Sprintf("[gray]Pos:[-]   [white]%.5f°, %.5f°[-]\n", spot.Latitude, spot.Longitude)
	if spot.FloorLabel != "" {
		text += fmt.Sprintf("[gray]Floor:[-] [white]%s[-]\n", spot.FloorLabel)
	}
	if spot.Note != "" {
		text += fmt.Sprintf("[gray]Note:[-]  [white]%s[-]\n", spot.Note)
	}
	text += fmt.Sprintf("[gray]Range:[-] [white]%s %s[-]\n", dist, dir)
	if spot.IsActive {
		text += "\n[green]ACTIVE[-]\n"
	}
	text += fmt.Sprintf("\n[gray]Saved:[-]   [white]%s[-]\n", spot.CreatedAt.Local().Format("2006-01-02 15:04"))
	text += fmt.Sprintf("[gray]Updated:[-] [white]%s[-]\n", spot.UpdatedAt.Local().Format("2006-01-02 15:04"))

	a.details.SetText(text)
}

// selectedSpot returns the spot under the table cursor
func (a *App) selectedSpot() (db.ParkedSpot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	row, _ := a.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(a.spots) {
		return db.ParkedSpot{}, false
	}
	return a.spots[idx], true
}

// setStatus replaces the status line text
func (a *App) setStatus(text string) {
	a.status.SetText(text)
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape || event.Rune() == 'q':
		a.Stop()
		return nil

	case event.Rune() == 'a':
		a.setActive()
		return nil

	case event.Rune() == 's':
		a.saveHere()
		return nil

	case event.Rune() == 'd':
		a.deleteSelected()
		return nil

	case event.Rune() == 'm':
		a.moveHere()
		return nil

	case event.Rune() == 'k':
		return tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
	case event.Rune() == 'j':
		return tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)
	}

	return event
}

// setActive marks the selected spot as the device's active spot
func (a *App) setActive() {
	spot, ok := a.selectedSpot()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.repo.SetActive(ctx, spot.ID, a.deviceID); err != nil {
		a.setStatus(fmt.Sprintf("[red]Failed to set active: %v[-]", err))
		return
	}

	a.refresh()
}

// saveHere saves a new active spot at the observer position
func (a *App) saveHere() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spot := &db.ParkedSpot{
		DeviceID:  a.deviceID,
		Label:     "car",
		Latitude:  a.observer.Latitude,
		Longitude: a.observer.Longitude,
		Altitude:  a.observer.Altitude,
		IsActive:  true,
	}

	if err := a.repo.Create(ctx, spot); err != nil {
		a.setStatus(fmt.Sprintf("[red]Failed to save spot: %v[-]", err))
		return
	}

	a.refresh()
}

// moveHere relocates the selected spot to the observer position,
// for when the car was reparked without saving a new spot
func (a *App) moveHere() {
	selected, ok := a.selectedSpot()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Re-read before writing so a concurrent edit is not clobbered
	spot, err := a.repo.GetByID(ctx, selected.ID, a.deviceID)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]Failed to load spot: %v[-]", err))
		return
	}

	spot.Latitude = a.observer.Latitude
	spot.Longitude = a.observer.Longitude
	spot.Altitude = a.observer.Altitude

	if err := a.repo.Update(ctx, spot); err != nil {
		a.setStatus(fmt.Sprintf("[red]Failed to move spot: %v[-]", err))
		return
	}

	a.refresh()
}

// deleteSelected removes the selected spot
func (a *App) deleteSelected() {
	spot, ok := a.selectedSpot()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.repo.Delete(ctx, spot.ID, a.deviceID); err != nil {
		a.setStatus(fmt.Sprintf("[red]Failed to delete: %v[-]", err))
		return
	}

	a.refresh()
}

// Run starts the application
func (a *App) Run() error {
	a.refresh()

	// Periodic refresh keeps distances live as spots change underneath us
	a.updateTimer = time.NewTicker(2 * time.Second)
	go func() {
		for {
			select {
			case <-a.updateTimer.C:
				a.tviewApp.QueueUpdateDraw(func() {
					a.refresh()
				})
			case <-a.stopChan:
				return
			}
		}
	}()

	return a.tviewApp.Run()
}

// Stop shuts down the application
func (a *App) Stop() {
	close(a.stopChan)
	if a.updateTimer != nil {
		a.updateTimer.Stop()
	}
	a.tviewApp.Stop()
}
