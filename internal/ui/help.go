package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"restaurantfinder/internal/model"
)

// RenderHelp renders the context-sensitive help footer.
func RenderHelp(keys KeyMap, formKeys FormKeyMap, screen model.Screen, mode model.Mode, width int) string {
	if mode == model.ModeInsert {
		return renderHelpLine(bindingHelp(formKeys.NextField, formKeys.PrevField, formKeys.Save, formKeys.Cancel), width)
	}

	switch screen {
	case model.ScreenResults:
		return renderHelpLine(append(
			[]string{helpKey("j/k", "navigate")},
			bindingHelp(keys.Open, keys.Search, keys.Nearby, keys.Sort, keys.Favorite, keys.Rate, keys.Tab, keys.Help)...,
		), width)
	case model.ScreenFavorites:
		return renderHelpLine(append(
			[]string{helpKey("j/k", "navigate")},
			bindingHelp(keys.Open, keys.Favorite, keys.Rate, keys.Tab, keys.Search, keys.Help)...,
		), width)
	case model.ScreenDetail:
		return renderHelpLine(bindingHelp(keys.Back, keys.Favorite, keys.Rate, keys.Retry, keys.Help), width)
	default:
		return renderHelpLine([]string{
			helpKey("j/k", "navigate"),
			helpKey("q", "quit"),
		}, width)
	}
}

func bindingHelp(bindings ...key.Binding) []string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, helpKey(h.Key, h.Desc))
	}
	return out
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Navigation"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"gg / G", "Jump to top / bottom"},
			{"ctrl+d / ctrl+u", "Half page down / up"},
			{"enter / l", "Open details"},
			{"h / esc", "Back"},
			{"tab", "Switch between results and favorites"},
			{"q", "Quit (from a list)"},
			{"?", "Toggle help"},
		}),
		titleSection("Searching"),
		helpSection([]helpItem{
			{"/", "Edit term, location and price"},
			{"n", "Search around your current location"},
			{"s", "Cycle sort: rating, reviews, distance, price"},
			{"r", "Retry the last search or detail"},
		}),
		titleSection("Your Lists"),
		helpSection([]helpItem{
			{"f", "Add or remove favorite"},
			{"1-5", "Rate the selected restaurant"},
		}),
		titleSection("Search Form"),
		helpSection([]helpItem{
			{"tab / shift+tab", "Next / previous field"},
			{"enter", "Search"},
			{"esc", "Cancel"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
