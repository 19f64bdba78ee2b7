package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
	"restaurantfinder/internal/util"
)

var resultColumns = []column{
	{label: "", width: 1},
	{label: "name", width: 26},
	{label: "rating", width: 8},
	{label: "reviews", width: 8},
	{label: "price", width: 6},
	{label: "distance", width: 9},
	{label: "mine", width: 5},
	{label: "categories", width: 20},
}

// ResultsModel is the search results table.
type ResultsModel struct {
	cursor cursor
}

// Selected returns the business under the cursor.
func (m *ResultsModel) Selected(snap state.Snapshot) (model.Business, bool) {
	list := snap.Search.Businesses
	m.cursor.clamp(len(list))
	if len(list) == 0 {
		return model.Business{}, false
	}
	return list[m.cursor.pos], true
}

// View renders the results for snap.
func (m *ResultsModel) View(snap state.Snapshot, spinner string, width, height int) string {
	section := snap.Search
	list := section.Businesses

	if len(list) == 0 {
		var msg string
		switch {
		case section.Status.IsLoading():
			msg = spinner + " Searching..."
		case section.Status.IsFailed():
			msg = "    Search failed.\n    Press  r  to retry or  /  to change the search."
		default:
			msg = "    No results yet.\n    Press  /  to search or  n  to search nearby."
		}
		return EmptyStateStyle.Width(width).Height(height).Render(msg)
	}

	widths := columnWidths(resultColumns, width)
	header := renderTableHeader(resultColumns, widths)
	divider := renderTableDivider(widths)

	m.cursor.viewportHeight = height - 3
	m.cursor.clamp(len(list))

	var rows []string
	for i := m.cursor.offset; i < len(list) && i < m.cursor.offset+m.cursor.height(); i++ {
		b := list[i]
		style := NormalRowStyle
		if i == m.cursor.pos {
			style = SelectedRowStyle
		}

		fav := " "
		if snap.IsFavorite(b.ID) {
			fav = FavoriteStyle.Render("♥")
		}
		mine, ok := snap.UserRating(b.ID)

		cells := []string{
			fav,
			util.TruncateString(b.Name, resultColumns[1].width),
			RatingStyle.Render(util.FormatRating(b.Rating)),
			fmt.Sprintf("%d", b.ReviewCount),
			util.FormatPrice(b.Price),
			util.FormatDistance(b.Distance),
			util.FormatUserRating(mine, ok),
			util.TruncateString(model.JoinCategories(b.Categories), resultColumns[7].width),
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	parts := []string{fmt.Sprintf("%d of %d results", len(list), section.Total)}
	parts = append(parts, fmt.Sprintf("row %d/%d", m.cursor.pos+1, len(list)))
	if snap.Sort != "" {
		parts = append(parts, "sort "+snap.Sort.Label())
	}
	if snap.Params.Price != "" {
		parts = append(parts, "price "+util.FormatPriceTiers(snap.Params.Price))
	}
	parts = append(parts, searchWhere(snap))
	if section.Status.IsLoading() {
		parts = append(parts, spinner+" refreshing")
	}
	status := StatusBarStyle.Render(strings.Join(parts, "  ·  "))

	return layoutTable(header, divider, rows, status, height)
}

// searchWhere describes where the last search ran.
func searchWhere(snap state.Snapshot) string {
	p := snap.Params
	switch {
	case p.Location != "":
		return "near " + p.Location
	case p.HasCoordinates():
		where := fmt.Sprintf("near %.4f,%.4f", *p.Latitude, *p.Longitude)
		if snap.Location.Resolved {
			where += " (" + string(snap.Location.Source) + ")"
		}
		return where
	default:
		return lipgloss.NewStyle().Foreground(ColorMuted).Render("no location")
	}
}
