package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/tasksync/internal/protocol"
	"github.com/danmuck/tasksync/internal/protocol/session"
	"github.com/danmuck/tasksync/internal/store"
)

// intents is the write side the list view needs from the client.
type intents interface {
	SubmitNewItem(text string) error
	ToggleItem(item store.TaskItem) bool
	RequestList() bool
	Status() session.Status
}

type snapshotMsg store.Snapshot

type streamClosedMsg struct{}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type listModel struct {
	client  intents
	addr    string
	items   []store.TaskItem
	version uint64
	cursor  int
	adding  bool
	input   textinput.Model
	notice  string
	closed  bool
}

func newListModel(c intents, addr string) listModel {
	ti := textinput.New()
	ti.Placeholder = "new task"
	ti.CharLimit = 512
	return listModel{client: c, addr: addr, input: ti}
}

func (m listModel) Init() tea.Cmd {
	return nil
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		// Snapshots can arrive out of order through program.Send.
		if msg.Version <= m.version {
			return m, nil
		}
		m.version = msg.Version
		m.items = msg.Items
		if m.cursor >= len(m.items) {
			m.cursor = max(len(m.items)-1, 0)
		}
		return m, nil
	case streamClosedMsg:
		m.closed = true
		m.adding = false
		m.input.Blur()
		m.notice = "connection closed"
		return m, nil
	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m listModel) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case "enter":
		err := m.client.SubmitNewItem(m.input.Value())
		if errors.Is(err, protocol.ErrEmptyDescription) {
			m.notice = "description cannot be empty"
			return m, nil
		}
		m.notice = ""
		m.input.SetValue("")
		m.adding = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m listModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	}
	// No intents once the stream has ended; the list stays readable.
	if m.closed {
		return m, nil
	}
	switch msg.String() {
	case " ", "x", "enter":
		if m.cursor < len(m.items) {
			m.client.ToggleItem(m.items[m.cursor])
		}
	case "a":
		m.adding = true
		m.notice = ""
		m.input.Focus()
	case "r":
		m.client.RequestList()
	}
	return m, nil
}

func (m listModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tasksync"))
	b.WriteString(statusStyle.Render(fmt.Sprintf("  %s  %s", m.addr, m.client.Status())))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(statusStyle.Render("  no tasks"))
		b.WriteString("\n")
	}
	for i, item := range m.items {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		box := "[ ]"
		desc := item.Description
		if item.Completed {
			box = "[x]"
			desc = doneStyle.Render(desc)
		}
		fmt.Fprintf(&b, "%s%s %s\n", pointer, box, desc)
	}

	b.WriteString("\n")
	if m.adding {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("enter submit · esc cancel"))
	} else if m.closed {
		b.WriteString(statusStyle.Render("j/k move · q quit"))
	} else {
		b.WriteString(statusStyle.Render("j/k move · space toggle · a add · r refresh · q quit"))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(alertStyle.Render(m.notice))
	}
	b.WriteString("\n")
	return b.String()
}

// forwardSnapshots pushes store updates into the program until stop closes.
func forwardSnapshots(p *tea.Program, st *store.Store, done <-chan struct{}, stop <-chan struct{}) {
	updates, cancel := st.Subscribe()
	defer cancel()
	p.Send(snapshotMsg(st.Snapshot()))
	for {
		select {
		case snap := <-updates:
			p.Send(snapshotMsg(snap))
		case <-done:
			p.Send(snapshotMsg(st.Snapshot()))
			p.Send(streamClosedMsg{})
			return
		case <-stop:
			return
		}
	}
}
