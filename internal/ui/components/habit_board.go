package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/nick-dorsch/tally/pkg/models"
)

var (
	onTrackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)

	slippingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	subTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

// HabitCard is one recurring series on the board.
type HabitCard struct {
	Text           string
	CurrentStreak  int
	LongestStreak  int
	CompletionRate int
	LastCompleted  *time.Time
	// Recent holds the latest occurrence statuses, oldest first.
	Recent []models.OccurrenceStatus
	// Slipping marks a series that has gone quiet for longer than its
	// expected gap.
	Slipping bool
}

type HabitBoard struct {
	OnTrack  []HabitCard
	Slipping []HabitCard
	Width    int
	Title    string
	// Now anchors relative times; zero means time.Now.
	Now time.Time
}

func NewHabitBoard(width int) *HabitBoard {
	return &HabitBoard{
		OnTrack:  make([]HabitCard, 0),
		Slipping: make([]HabitCard, 0),
		Width:    width,
		Title:    "Habits",
	}
}

func (b *HabitBoard) Add(card HabitCard) {
	if card.Slipping {
		b.Slipping = append(b.Slipping, card)
	} else {
		b.OnTrack = append(b.OnTrack, card)
	}
}

func (b *HabitBoard) View() string {
	var boxes []string

	if len(b.Slipping) > 0 {
		boxes = append(boxes, b.renderBox("Slipping", b.Slipping, slippingStyle, "✗"))
	}
	if len(b.OnTrack) > 0 {
		boxes = append(boxes, b.renderBox("On track", b.OnTrack, onTrackStyle, "✓"))
	}

	var content string
	if len(boxes) == 0 {
		content = placeholderStyle.Render("No recurring tasks yet")
	} else {
		content = strings.Join(boxes, "\n")
	}

	if b.Title != "" {
		return boardHeaderStyle.Render(b.Title) + "\n" + content
	}
	return content
}

func (b *HabitBoard) renderBox(title string, cards []HabitCard, style lipgloss.Style, icon string) string {
	boxWidth := b.Width

	subTitle := subTitleStyle.Foreground(style.GetForeground()).Render(title)

	innerWidth := boxWidth - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	nameWidth := innerWidth - 2
	if nameWidth < 0 {
		nameWidth = 0
	}

	var lines []string
	for _, c := range cards {
		wrapped := lipgloss.NewStyle().Width(nameWidth).Render(c.Text)
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, fmt.Sprintf("%s %s", icon, line))
			} else {
				lines = append(lines, fmt.Sprintf("  %s", line))
			}
		}

		detail := lipgloss.NewStyle().Width(nameWidth).Render(b.detail(c))
		for _, line := range strings.Split(detail, "\n") {
			lines = append(lines, "  "+detailStyle.Render(line))
		}
	}

	body := strings.Join(lines, "\n")
	return style.Width(boxWidth).Render(subTitle + "\n" + body)
}

func (b *HabitBoard) detail(c HabitCard) string {
	parts := []string{
		fmt.Sprintf("streak %d (best %d)", c.CurrentStreak, c.LongestStreak),
		fmt.Sprintf("%d%%", c.CompletionRate),
	}
	if strip := HistoryStrip(c.Recent); strip != "" {
		parts = append(parts, strip)
	}

	last := "never done"
	if c.LastCompleted != nil {
		now := b.Now
		if now.IsZero() {
			now = time.Now()
		}
		last = "done " + humanize.RelTime(*c.LastCompleted, now, "ago", "from now")
	}
	parts = append(parts, last)

	return strings.Join(parts, " · ")
}

// HistoryStrip renders statuses as ■ (completed) and □ (missed).
func HistoryStrip(statuses []models.OccurrenceStatus) string {
	var sb strings.Builder
	for _, s := range statuses {
		if s == models.OccurrenceCompleted {
			sb.WriteString("■")
		} else {
			sb.WriteString("□")
		}
	}
	return sb.String()
}
