package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// BoardView shows pre-rendered report text in a scrollable viewport.
type BoardView struct {
	viewport viewport.Model
	content  string
	ready    bool
}

func NewBoardView(width, height int) *BoardView {
	return &BoardView{viewport: viewport.New(width, height)}
}

func (v *BoardView) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !v.ready {
		v.viewport = viewport.New(vpWidth, height)
		v.ready = true
	} else {
		v.viewport.Width = vpWidth
		v.viewport.Height = height
	}
	v.viewport.SetContent(v.content)
}

func (v *BoardView) SetContent(content string) {
	v.content = content
	v.viewport.SetContent(content)
	v.viewport.GotoTop()
}

func (v *BoardView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return cmd
}

func (v *BoardView) View() string {
	if !v.ready {
		return ""
	}

	if v.viewport.TotalLineCount() <= v.viewport.Height {
		return v.viewport.View()
	}

	h := v.viewport.Height
	handlePos := int(float64(h-1) * v.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, v.viewport.View(), sb.String())
}

func (v *BoardView) ScrollPercent() float64 {
	return v.viewport.ScrollPercent()
}
