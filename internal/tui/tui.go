// Package tui implements the gocui-based chat window: one view per room
// list, history, status line, and input field, wired to a
// client.Screen.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/tavernmx/tmxchat/internal/client"
)

const (
	roomsView   = "rooms"
	messagesView = "messages"
	statusView  = "status"
	inputView   = "input"
)

// ChatWindow owns the gocui.Gui and redraws its views from a
// client.Screen on every tick.
type ChatWindow struct {
	gui    *gocui.Gui
	screen *client.Screen
}

// New creates a ChatWindow rendering screen's state. The caller starts
// the terminal with Run and must call Close when done.
func New(screen *client.Screen) (*ChatWindow, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("creating gui: %w", err)
	}
	w := &ChatWindow{gui: g, screen: screen}
	g.SetManagerFunc(w.layout)
	if err := w.keybindings(); err != nil {
		g.Close()
		return nil, fmt.Errorf("binding keys: %w", err)
	}
	return w, nil
}

// Close tears down the terminal.
func (w *ChatWindow) Close() {
	w.gui.Close()
}

// Run drives gocui's main loop until the user quits.
func (w *ChatWindow) Run() error {
	if err := w.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// Refresh re-renders the rooms, messages, and status views from the
// current Screen state. Safe to call from any goroutine.
func (w *ChatWindow) Refresh() {
	w.gui.Update(func(g *gocui.Gui) error {
		w.redrawRooms(g)
		w.redrawMessages(g)
		w.redrawStatus(g)
		return nil
	})
}

func (w *ChatWindow) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	sidebarWidth := 20
	msgWidth := maxX - sidebarWidth - 1
	bodyHeight := maxY - 4

	if v, err := g.SetView(messagesView, 0, 0, msgWidth, bodyHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(roomsView, msgWidth+1, 0, maxX-1, bodyHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Rooms"
		v.Wrap = true
	}

	if v, err := g.SetView(statusView, 0, bodyHeight+1, maxX-1, bodyHeight+2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}

	if v, err := g.SetView(inputView, 0, bodyHeight+3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true
		if _, err := g.SetCurrentView(inputView); err != nil {
			return err
		}
	}

	return nil
}

func (w *ChatWindow) redrawRooms(g *gocui.Gui) {
	v, err := g.View(roomsView)
	if err != nil {
		return
	}
	v.Clear()
	current := w.screen.CurrentRoomName()
	for _, name := range w.screen.RoomNames() {
		prefix := "  "
		if name == current {
			prefix = "* "
		}
		fmt.Fprintf(v, "%s%s\n", prefix, name)
	}
}

func (w *ChatWindow) redrawMessages(g *gocui.Gui) {
	v, err := g.View(messagesView)
	if err != nil {
		return
	}
	v.Clear()
	current := w.screen.CurrentRoomName()
	if current == "" {
		return
	}
	for _, event := range w.screen.History(current) {
		when := time.Unix(int64(event.Timestamp), 0).Local().Format("03:04 PM")
		fmt.Fprintf(v, "[%s] %s: %s\n", when, event.UserName, event.Text)
	}
}

func (w *ChatWindow) redrawStatus(g *gocui.Gui) {
	v, err := g.View(statusView)
	if err != nil {
		return
	}
	v.Clear()
	waiting := ""
	if w.screen.WaitingOnServer {
		waiting = " | waiting on server"
	}
	fmt.Fprintf(v, "Room: %s%s | Tab: switch rooms | Ctrl-C: quit", w.screen.CurrentRoomName(), waiting)
}

func (w *ChatWindow) keybindings() error {
	if err := w.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }); err != nil {
		return err
	}

	if err := w.gui.SetKeybinding("", gocui.KeyTab, gocui.ModNone, w.cycleRoom); err != nil {
		return err
	}

	if err := w.gui.SetKeybinding(inputView, gocui.KeyEnter, gocui.ModNone, w.handleInput); err != nil {
		return err
	}

	return nil
}

func (w *ChatWindow) cycleRoom(*gocui.Gui, *gocui.View) error {
	names := w.screen.RoomNames()
	if len(names) == 0 {
		return nil
	}
	current := w.screen.CurrentRoomName()
	next := names[0]
	for i, name := range names {
		if name == current {
			next = names[(i+1)%len(names)]
			break
		}
	}
	w.screen.SelectRoom(next)
	w.Refresh()
	return nil
}

func (w *ChatWindow) handleInput(_ *gocui.Gui, v *gocui.View) error {
	input := strings.TrimSpace(v.Buffer())
	v.Clear()
	v.SetCursor(0, 0)
	if input == "" {
		return nil
	}
	w.screen.ChatInput = input
	w.screen.SubmitChatInput()
	w.Refresh()
	return nil
}
