package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("99")  // Purple
	colorMuted     = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
)

var avatarStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

var channelStyle = lipgloss.NewStyle().Bold(true)

var agoStyle = lipgloss.NewStyle().Foreground(colorMuted)

var badgeStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

var visitStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	PaddingLeft(4)

var urlStyle = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Underline(true).
	PaddingLeft(4)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("238")).
	Padding(0, 1).
	Width(48)

var emptyTitleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 2, 0, 2)

var emptySubtitleStyle = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 2, 1, 2)

var footerStyle = lipgloss.NewStyle().Foreground(colorMuted).PaddingLeft(1)

// Terminal draws views for a terminal.
type Terminal struct {
	out io.Writer
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Render writes v.
func (t *Terminal) Render(v View) error {
	_, err := io.WriteString(t.out, Draw(v)+"\n")
	return err
}

// Draw returns the terminal rendering of v.
func Draw(v View) string {
	if v.Empty != nil {
		parts := []string{emptyTitleStyle.Render(v.Empty.Title)}
		if v.Empty.Subtitle != "" {
			parts = append(parts, emptySubtitleStyle.Render(v.Empty.Subtitle))
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	blocks := make([]string, 0, len(v.Cards)+1)
	for _, c := range v.Cards {
		blocks = append(blocks, drawCard(c))
	}
	if v.Footer != "" {
		blocks = append(blocks, footerStyle.Render(v.Footer))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func drawCard(c Card) string {
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		avatarStyle.Render(c.Initial),
		" ",
		channelStyle.Render(c.Channel),
		" ",
		agoStyle.Render(c.TimeAgo),
		" ",
		badgeStyle.Render(fmt.Sprintf("%d", c.VisitCount)),
	)

	lines := []string{header}
	for _, label := range c.Recent {
		lines = append(lines, visitStyle.Render(label))
	}
	lines = append(lines, urlStyle.Render(c.URL))
	return cardStyle.Render(strings.Join(lines, "\n"))
}
