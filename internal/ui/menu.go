package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	descStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
 ████████  █████  ██      ██      ██    ██
    ██    ██   ██ ██      ██       ██  ██
    ██    ███████ ██      ██        ████
    ██    ██   ██ ██      ██         ██
    ██    ██   ██ ███████ ███████    ██
`

// MenuItem is one command offered by the menu.
type MenuItem struct {
	Command     string
	Description string
}

var menuItems = []MenuItem{
	{"board", "Habit board: streaks and slipping habits"},
	{"check", "Record missed occurrences up to today"},
	{"stats", "Streaks and completion rate per recurring task"},
	{"missed", "Overdue, never-started and slipping tasks"},
	{"lag", "Categories and priorities falling behind"},
	{"mastery", "Consistency score per category"},
	{"productivity", "Productivity score for this month"},
	{"insights", "What the last 30 days say"},
	{"goals", "Goals and their progress"},
	{"serve", "HTTP API and scheduled missed checks"},
	{"init", "Set up .tally in this directory"},
}

type MenuModel struct {
	items    []MenuItem
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{items: menuItems}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch k := key.String(); k {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.items) - 1
	case "enter":
		m.selected = m.items[m.cursor].Command
		return m, tea.Quit
	default:
		// 1-9 jump straight to a command
		if n, err := strconv.Atoi(k); err == nil && n >= 1 && n <= len(m.items) {
			m.cursor = n - 1
			m.selected = m.items[m.cursor].Command
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	width := 0
	for _, item := range m.items {
		width = max(width, len(item.Command))
	}

	var s strings.Builder
	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	for i, item := range m.items {
		prefix := " "
		if i < 9 {
			prefix = strconv.Itoa(i + 1)
		}
		line := fmt.Sprintf("%s %-*s", prefix, width, item.Command)
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("  " + descStyle.Render(item.Description) + "\n")
	}

	s.WriteString("\n(arrow keys or j/k to move, 1-9 or enter to run, q to quit)\n")
	return s.String()
}

// Selected is the chosen command, or "" when the menu was dismissed.
func (m MenuModel) Selected() string {
	return m.selected
}

func RunMenu() (string, error) {
	finalModel, err := tea.NewProgram(NewMenuModel()).Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
