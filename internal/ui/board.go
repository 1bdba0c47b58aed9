package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/internal/ui/components"
	"github.com/nick-dorsch/tally/pkg/models"
)

// recentDays is how many trailing occurrences the history strip shows.
const recentDays = 14

var footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// RenderHabitBoard lays out recurring stats as a board. Series listed in
// missed.SkippedRecurring go in the slipping box.
func RenderHabitBoard(stats []analytics.RecurringStats, missed *analytics.MissedAnalysis, now time.Time, width int) string {
	slipping := make(map[string]bool)
	if missed != nil {
		for _, s := range missed.SkippedRecurring {
			slipping[s.ID] = true
		}
	}

	board := components.NewHabitBoard(width)
	board.Now = now
	for _, s := range stats {
		card := components.HabitCard{
			Text:           s.TaskText,
			CurrentStreak:  s.CurrentStreak,
			LongestStreak:  s.LongestStreak,
			CompletionRate: s.CompletionRate,
			Slipping:       slipping[s.RootID],
		}
		if s.LastCompletedDate != nil {
			if d, err := models.ParseDay(*s.LastCompletedDate); err == nil {
				card.LastCompleted = &d
			}
		}

		history := s.History
		if len(history) > recentDays {
			history = history[len(history)-recentDays:]
		}
		for _, h := range history {
			card.Recent = append(card.Recent, h.Status)
		}
		board.Add(card)
	}
	return board.View()
}

// BoardModel pages through a rendered board.
type BoardModel struct {
	view    *components.BoardView
	content string
}

func NewBoardModel(content string) BoardModel {
	v := components.NewBoardView(80, 20)
	v.SetContent(content)
	return BoardModel{view: v, content: content}
}

func (m BoardModel) Init() tea.Cmd {
	return nil
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.SetSize(msg.Width, msg.Height-1)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	}
	return m, m.view.Update(msg)
}

func (m BoardModel) View() string {
	return m.view.View() + "\n" + footerStyle.Render("(arrow keys or j/k to scroll, q to quit)")
}

func RunBoard(content string) error {
	p := tea.NewProgram(NewBoardModel(content), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
