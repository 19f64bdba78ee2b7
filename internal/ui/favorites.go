package ui

import (
	"fmt"
	"strings"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
	"restaurantfinder/internal/util"
)

var favoriteColumns = []column{
	{label: "name", width: 26},
	{label: "rating", width: 8},
	{label: "mine", width: 5},
	{label: "price", width: 6},
	{label: "address", width: 22},
	{label: "added", width: 10},
	{label: "categories", width: 18},
}

// FavoritesModel is the saved favorites table, newest first.
type FavoritesModel struct {
	cursor cursor
}

// Selected returns the favorite under the cursor.
func (m *FavoritesModel) Selected(snap state.Snapshot) (model.FavoriteRestaurant, bool) {
	list := snap.Favorites
	m.cursor.clamp(len(list))
	if len(list) == 0 {
		return model.FavoriteRestaurant{}, false
	}
	return list[m.cursor.pos], true
}

// View renders the favorites for snap.
func (m *FavoritesModel) View(snap state.Snapshot, width, height int) string {
	list := snap.Favorites
	if len(list) == 0 {
		emptyMsg := `    No favorites yet.
    Press  f  on a result to save it here.`
		return EmptyStateStyle.Width(width).Height(height).Render(emptyMsg)
	}

	widths := columnWidths(favoriteColumns, width)
	header := renderTableHeader(favoriteColumns, widths)
	divider := renderTableDivider(widths)

	m.cursor.viewportHeight = height - 3
	m.cursor.clamp(len(list))

	var rows []string
	for i := m.cursor.offset; i < len(list) && i < m.cursor.offset+m.cursor.height(); i++ {
		f := list[i]
		style := NormalRowStyle
		if i == m.cursor.pos {
			style = SelectedRowStyle
		}
		mine, ok := snap.UserRating(f.ID)

		cells := []string{
			util.TruncateString(f.Name, favoriteColumns[0].width),
			RatingStyle.Render(util.FormatRating(f.Rating)),
			util.FormatUserRating(mine, ok),
			util.FormatPrice(f.Price),
			util.TruncateString(f.Address, favoriteColumns[4].width),
			f.CreatedAt.Local().Format("Jan 02"),
			util.TruncateString(f.Categories, favoriteColumns[6].width),
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	parts := []string{
		fmt.Sprintf("%d favorites", len(list)),
		fmt.Sprintf("row %d/%d", m.cursor.pos+1, len(list)),
		fmt.Sprintf("%d rated", len(snap.Ratings)),
	}
	status := StatusBarStyle.Render(strings.Join(parts, "  ·  "))

	return layoutTable(header, divider, rows, status, height)
}
