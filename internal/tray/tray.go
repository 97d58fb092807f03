// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon, a status line and the menu
type Tray struct {
	title   string
	tooltip string
	items   []*MenuItem
	quitCh  chan struct{}

	mu         sync.Mutex
	status     string
	statusItem *systray.MenuItem
	recording  bool
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
		status:  "Ready",
	}
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title string, callback func()) int {
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil) // nil indicates separator
}

// SetStatus shows text in the status line and tooltip. The icon turns red
// while recording.
func (t *Tray) SetStatus(text string, recording bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changedIcon := recording != t.recording
	t.status, t.recording = text, recording
	if t.statusItem == nil {
		return
	}
	t.statusItem.SetTitle(text)
	systray.SetTooltip(t.tooltip + " - " + text)
	if changedIcon {
		systray.SetIcon(iconFor(recording))
	}
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// Done is closed when the tray exits
func (t *Tray) Done() <-chan struct{} {
	return t.quitCh
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(iconFor(t.recording))

	t.statusItem = systray.AddMenuItem(t.status, "")
	t.statusItem.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}

		menuItem.item = systray.AddMenuItem(menuItem.Title, "")

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(mi *MenuItem) {
				for {
					select {
					case <-mi.item.ClickedCh:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem)
		}
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}
