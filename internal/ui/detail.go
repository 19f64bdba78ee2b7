package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
	"restaurantfinder/internal/util"
)

// DetailModel renders the selected business with its hours and reviews.
type DetailModel struct {
	id    string
	photo string // ASCII art of the business photo, if loaded
	now   func() time.Time
}

// NewDetailModel creates a detail screen for the business id.
func NewDetailModel(id string) *DetailModel {
	return &DetailModel{id: id, now: time.Now}
}

func (m *DetailModel) ID() string { return m.id }

// SetPhoto attaches rendered art for the business photo.
func (m *DetailModel) SetPhoto(art string) { m.photo = art }

// View renders the detail screen.
func (m *DetailModel) View(snap state.Snapshot, spinner string, width, height int) string {
	details := snap.Details

	d, ok := state.SelectedDetail(details.Selected)
	if !ok || d.ID != m.id {
		var msg string
		switch {
		case details.Status.IsFailed():
			msg = "    Could not load this business.\n    " + details.Status.Err()
		default:
			msg = spinner + " Loading business..."
		}
		return EmptyStateStyle.Width(width).Height(height).Render(msg)
	}

	var sections []string
	sections = append(sections, m.renderInfo(snap, d))

	divider := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render(strings.Repeat("─", max(0, width-8)))

	if hours := renderHours(d.Hours); hours != "" {
		sections = append(sections, divider, LabelStyle.Render("Hours:"), hours)
	}

	sections = append(sections, divider, LabelStyle.Render("Reviews:"), m.renderReviews(snap, spinner, width))

	body := strings.Join(sections, "\n\n")
	if m.photo != "" && width >= 100 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "   ", m.photo)
	}

	return PanelStyle.
		Width(width - 4).
		MaxHeight(height).
		Render(body)
}

func (m *DetailModel) renderInfo(snap state.Snapshot, d model.BusinessDetail) string {
	title := LabelStyle.Render(d.Name)
	if snap.IsFavorite(d.ID) {
		title += " " + FavoriteStyle.Render("♥ favorite")
	}

	open := ClosedStyle.Render(util.FormatOpenNow(false))
	if d.OpenNow() {
		open = OpenStyle.Render(util.FormatOpenNow(true))
	}

	mine, rated := snap.UserRating(d.ID)
	fields := []string{
		title,
		renderField("Rating", RatingStyle.Render(util.FormatRatingStars(d.Rating))+" "+util.FormatRating(d.Rating)+fmt.Sprintf(" (%d reviews)", d.ReviewCount)),
		renderField("Your rating", util.FormatUserRating(mine, rated)),
		renderField("Price", util.FormatPrice(d.Price)),
		renderField("Categories", model.JoinCategories(d.Categories)),
		renderField("Status", open),
	}
	if d.Location != nil && len(d.Location.DisplayAddress) > 0 {
		fields = append(fields, renderField("Address", strings.Join(d.Location.DisplayAddress, ", ")))
	}
	if d.DisplayPhone != "" {
		fields = append(fields, renderField("Phone", d.DisplayPhone))
	}
	return strings.Join(fields, "\n")
}

func (m *DetailModel) renderReviews(snap state.Snapshot, spinner string, width int) string {
	reviews := snap.Reviews
	switch {
	case reviews.BusinessID != m.id || reviews.Status.IsLoading():
		return HelpDescStyle.Render(spinner + " loading reviews")
	case reviews.Status.IsFailed():
		return ErrorStyle.Render(reviews.Status.Err())
	case len(reviews.Reviews) == 0:
		return HelpDescStyle.Render("No reviews yet.")
	}

	textWidth := max(20, width-12)
	var entries []string
	for _, r := range reviews.Reviews {
		head := fmt.Sprintf("%s  %s  %s",
			RatingStyle.Render(util.FormatRatingStars(float64(r.Rating))),
			NormalRowStyle.Render(r.User.Name),
			HelpDescStyle.Render(util.FormatReviewDate(r.TimeCreated, m.now())),
		)
		text := lipgloss.NewStyle().Width(textWidth).Foreground(ColorText).Render(r.Text)
		entries = append(entries, head+"\n"+text)
	}
	return strings.Join(entries, "\n\n")
}

// renderHours lists the regular opening windows, one line per window.
func renderHours(hours []model.Hours) string {
	var lines []string
	for _, h := range hours {
		if h.HoursType != "" && h.HoursType != "REGULAR" {
			continue
		}
		for _, o := range h.Open {
			line := fmt.Sprintf("%s  %s-%s", util.FormatWeekday(o.Day), util.FormatHours(o.Start), util.FormatHours(o.End))
			if o.IsOvernight {
				line += " (overnight)"
			}
			lines = append(lines, NormalRowStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func renderField(label, value string) string {
	if strings.TrimSpace(value) == "" {
		value = "—"
	}
	return LabelStyle.Render(label+":") + " " + NormalRowStyle.Render(value)
}
