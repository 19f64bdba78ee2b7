package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/util"
)

const (
	fieldTerm = iota
	fieldLocation
	fieldPrice
)

// SearchFormModel edits the search term, location and price filter.
type SearchFormModel struct {
	keys         FormKeyMap
	focusedField int
	inputs       []textinput.Model
	error        string
}

// NewSearchFormModel creates a form prefilled from the current parameters.
func NewSearchFormModel(p model.SearchParams) *SearchFormModel {
	inputs := make([]textinput.Model, 3)

	inputs[fieldTerm] = textinput.New()
	inputs[fieldTerm].Placeholder = "restaurants, ramen, tacos..."
	inputs[fieldTerm].CharLimit = 100
	inputs[fieldTerm].SetValue(p.Term)
	inputs[fieldTerm].Focus()

	inputs[fieldLocation] = textinput.New()
	inputs[fieldLocation].Placeholder = "City, neighborhood or address (blank for nearby)"
	inputs[fieldLocation].CharLimit = 200
	inputs[fieldLocation].SetValue(p.Location)

	inputs[fieldPrice] = textinput.New()
	inputs[fieldPrice].Placeholder = "$, $$ or 1,2"
	inputs[fieldPrice].CharLimit = 20
	inputs[fieldPrice].SetValue(util.FormatPriceTiers(p.Price))

	return &SearchFormModel{
		keys:   DefaultFormKeyMap(),
		inputs: inputs,
	}
}

// Update handles input.
func (m SearchFormModel) Update(msg tea.KeyMsg) (SearchFormModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m, func() tea.Msg {
			return model.FormCancelledMsg{}
		}
	case key.Matches(msg, m.keys.Save):
		return m.submit()
	case key.Matches(msg, m.keys.NextField):
		m.nextField()
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.prevField()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(msg)
	return m, cmd
}

// View renders the form.
func (m *SearchFormModel) View(width, height int) string {
	fields := []string{
		renderFormField("What", m.inputs[fieldTerm], m.focusedField == fieldTerm),
		renderFormField("Where", m.inputs[fieldLocation], m.focusedField == fieldLocation),
		renderFormField("Price", m.inputs[fieldPrice], m.focusedField == fieldPrice),
	}

	if m.error != "" {
		fields = append(fields, "", ErrorStyle.Render(m.error))
	}

	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(strings.Join(fields, "\n"))
}

func (m *SearchFormModel) nextField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField = (m.focusedField + 1) % len(m.inputs)
	m.inputs[m.focusedField].Focus()
}

func (m *SearchFormModel) prevField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField--
	if m.focusedField < 0 {
		m.focusedField = len(m.inputs) - 1
	}
	m.inputs[m.focusedField].Focus()
}

// submit validates the form. An empty term falls back to the default term.
func (m SearchFormModel) submit() (SearchFormModel, tea.Cmd) {
	term := strings.TrimSpace(m.inputs[fieldTerm].Value())
	if term == "" {
		term = model.DefaultSearchTerm
	}
	where := strings.TrimSpace(m.inputs[fieldLocation].Value())

	tiers, err := util.ParsePriceInput(m.inputs[fieldPrice].Value())
	if err != nil {
		m.error = fmt.Sprintf("Price: %v", err)
		return m, nil
	}
	price := strings.Join(tiers, ",")
	m.error = ""

	return m, func() tea.Msg {
		return model.SearchSubmittedMsg{
			Update: model.ParamsUpdate{Term: &term, Location: &where, Price: &price},
		}
	}
}

func renderFormField(label string, input textinput.Model, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		input.View(),
	)

	return style.Render(field)
}
