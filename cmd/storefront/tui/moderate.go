package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marshallshelly/storefront/pkg/models"
)

// Moderator is the part of the store the moderation UI drives.
type Moderator interface {
	FetchPendingNotifications(ctx context.Context, adminID int64) ([]models.AdminNotification, error)
	ProcessDeveloperStatusRequest(ctx context.Context, adminID, notificationID int64, approve bool) error
}

// ModerateMode represents the current mode of the moderation UI
type ModerateMode int

const (
	ModeList ModerateMode = iota
	ModeConfirm
	ModeProcessing
	ModeError
)

// ModerateModel is the Bubbletea model for the moderation queue
type ModerateModel struct {
	ctx          context.Context
	mod          Moderator
	adminID      int64
	mode         ModerateMode
	list         list.Model
	confirmation ConfirmationDialog
	logs         LogView
	target       models.AdminNotification
	approve      bool
	err          error
	width        int
	height       int
}

// NewModerateModel creates a moderation UI acting as adminID
func NewModerateModel(ctx context.Context, mod Moderator, adminID int64) ModerateModel {
	l := list.New([]list.Item{}, NotificationItemDelegate{}, 0, 0)
	l.Title = "Developer Status Requests"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return ModerateModel{
		ctx:     ctx,
		mod:     mod,
		adminID: adminID,
		mode:    ModeList,
		list:    l,
		logs:    NewLogView(5),
	}
}

// Messages
type queueLoadedMsg struct {
	queue []models.AdminNotification
}

type requestProcessedMsg struct {
	notification models.AdminNotification
	approve      bool
	err          error
}

type confirmedMsg struct{}

type cancelledMsg struct{}

type errorMsg struct {
	err error
}

// Commands
func loadQueueCmd(ctx context.Context, mod Moderator, adminID int64) tea.Cmd {
	return func() tea.Msg {
		queue, err := mod.FetchPendingNotifications(ctx, adminID)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load queue: %w", err)}
		}
		return queueLoadedMsg{queue: queue}
	}
}

func processRequestCmd(ctx context.Context, mod Moderator, adminID int64, n models.AdminNotification, approve bool) tea.Cmd {
	return func() tea.Msg {
		err := mod.ProcessDeveloperStatusRequest(ctx, adminID, n.ID, approve)
		return requestProcessedMsg{notification: n, approve: approve, err: err}
	}
}

// Init loads the queue
func (m ModerateModel) Init() tea.Cmd {
	return tea.Batch(
		loadQueueCmd(m.ctx, m.mod, m.adminID),
		tea.EnterAltScreen,
	)
}

// Update handles messages
func (m ModerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-14)
		return m, nil

	case queueLoadedMsg:
		items := make([]list.Item, len(msg.queue))
		for i, n := range msg.queue {
			items[i] = NotificationItem{AdminNotification: n}
		}
		cmd := m.list.SetItems(items)
		m.mode = ModeList
		return m, cmd

	case confirmedMsg:
		m.mode = ModeProcessing
		return m, processRequestCmd(m.ctx, m.mod, m.adminID, m.target, m.approve)

	case cancelledMsg:
		m.mode = ModeList
		return m, nil

	case requestProcessedMsg:
		verb := "Rejected"
		if msg.approve {
			verb = "Approved"
		}
		if msg.err != nil {
			// The request stays in the queue; report and refresh
			m.logs.AddLog(dangerStyle.Render(fmt.Sprintf("#%d: %v", msg.notification.ID, msg.err)))
		} else {
			m.logs.AddLog(successStyle.Render(fmt.Sprintf("%s #%d from %s", verb, msg.notification.ID, msg.notification.Username)))
		}
		return m, loadQueueCmd(m.ctx, m.mod, m.adminID)

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			if m.list.FilterState() == list.Filtering {
				break
			}
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "a", "r":
				item, ok := m.list.SelectedItem().(NotificationItem)
				if !ok {
					return m, nil
				}
				m.target = item.AdminNotification
				m.approve = msg.String() == "a"
				m.confirmation = m.newConfirmation()
				m.mode = ModeConfirm
				return m, nil
			case "g":
				return m, loadQueueCmd(m.ctx, m.mod, m.adminID)
			}

		case ModeConfirm:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				m.mode = ModeList
				return m, nil
			default:
				return m, m.confirmation.Update(msg)
			}

		case ModeProcessing:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil

		case ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ModerateModel) newConfirmation() ConfirmationDialog {
	verb := "reject"
	if m.approve {
		verb = "approve"
	}
	d := NewConfirmationDialog(
		fmt.Sprintf("Confirm %s", verb),
		fmt.Sprintf("Are you sure you want to %s developer status for %s?\nRequest #%d",
			verb, m.target.Username, m.target.ID),
	)
	d.OnConfirm = func() tea.Cmd {
		return func() tea.Msg { return confirmedMsg{} }
	}
	d.OnCancel = func() tea.Cmd {
		return func() tea.Msg { return cancelledMsg{} }
	}
	return d
}

// View renders the UI
func (m ModerateModel) View() string {
	switch m.mode {
	case ModeList, ModeProcessing:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("a", "approve") + " • " +
				FormatKey("r", "reject") + " • " +
				FormatKey("g", "refresh") + " • " +
				FormatKey("q", "quit"),
		)
		if m.mode == ModeProcessing {
			help = helpStyle.Render(infoStyle.Render("Processing..."))
		}
		if len(m.list.Items()) == 0 {
			empty := titleStyle.Render(m.list.Title) + "\n" + mutedStyle.Render("The queue is empty")
			return lipgloss.JoinVertical(lipgloss.Left, empty, m.logs.View(), help)
		}
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), m.logs.View(), help)

	case ModeConfirm:
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			m.confirmation.View(),
		)

	case ModeError:
		msg := titleStyle.Render("Moderation Failed") + "\n\n" +
			errorStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))

		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			boxStyle.Render(msg),
		)
	}

	return "Unknown mode"
}

// RunModerateUI starts the interactive moderation queue
func RunModerateUI(ctx context.Context, mod Moderator, adminID int64) error {
	p := tea.NewProgram(NewModerateModel(ctx, mod, adminID), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
