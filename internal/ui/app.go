package ui

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
)

// Controller is the part of the aggregator the TUI drives.
type Controller interface {
	Snapshot() state.Snapshot
	Subscribe(fn state.Observer) func()
	Search(p model.SearchParams)
	RetrySearch()
	UpdateSearchParams(u model.ParamsUpdate)
	FetchLocationAndSearch()
	Sort(by model.SortCriteria)
	LoadBusiness(id string)
	AddFavorite(b model.Business)
	AddDetailToFavorites(d model.BusinessDetail)
	RemoveFavorite(id string)
	Rate(id string, rating float64)
}

// snapshotChangedMsg signals that the aggregator published a new snapshot.
type snapshotChangedMsg struct{}

// Options configures the root model.
type Options struct {
	ConfigDir    string // where ui_prefs.json lives; "" disables persistence
	Capabilities TerminalCapabilities
	HTTPClient   *http.Client // photo downloads; nil disables photos
	Logger       *log.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	ctrl     Controller
	opts     Options
	changes  chan struct{}
	unsub    func()
	screen   model.Screen
	previous model.Screen // screen to return to from detail or the form
	mode     model.Mode
	gState   GState

	width  int
	height int

	info        string
	showingHelp bool

	spinner    spinner.Model
	results    *ResultsModel
	favorites  *FavoritesModel
	detail     *DetailModel
	searchForm *SearchFormModel
	photos     map[string]string

	keys     KeyMap
	formKeys FormKeyMap
	prefs    UIPreferences
}

// New creates the root model and subscribes it to ctrl. Notifications are
// coalesced through a one-slot channel; the view always reads the latest
// snapshot.
func New(ctrl Controller, opts Options) Model {
	changes := make(chan struct{}, 1)
	unsub := ctrl.Subscribe(func(state.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	prefs := loadUIPreferences(opts.ConfigDir)
	if prefs.LastTerm != "" {
		term := prefs.LastTerm
		ctrl.UpdateSearchParams(model.ParamsUpdate{Term: &term})
	}

	return Model{
		ctrl:      ctrl,
		opts:      opts,
		changes:   changes,
		unsub:     unsub,
		screen:    model.ScreenResults,
		mode:      model.ModeNav,
		gState:    GStateIdle,
		spinner:   s,
		results:   &ResultsModel{},
		favorites: &FavoritesModel{},
		photos:    make(map[string]string),
		keys:      DefaultKeyMap(),
		formKeys:  DefaultFormKeyMap(),
		prefs:     prefs,
	}
}

// Close stops snapshot notifications.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.spinner.Tick)
}

func (m Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.changes; !ok {
			return nil
		}
		return snapshotChangedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotChangedMsg:
		cmd := m.onSnapshot()
		return m, tea.Batch(cmd, m.waitForSnapshot())

	case photoLoadedMsg:
		if msg.err != nil {
			m.logger().Debug("photo unavailable", "id", msg.id, "err", msg.err)
			return m, nil
		}
		m.photos[msg.id] = msg.art
		if m.detail != nil && m.detail.ID() == msg.id {
			m.detail.SetPhoto(msg.art)
		}
		return m, nil

	case tea.KeyMsg:
		// Handle ctrl+c globally
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.mode == model.ModeNav && key.Matches(msg, m.keys.Help) {
			m.showingHelp = !m.showingHelp
			return m, nil
		}

		if m.showingHelp {
			if msg.String() == "esc" {
				m.showingHelp = false
			}
			return m, nil
		}

		if m.mode == model.ModeNav {
			return m.handleNavMode(msg)
		}
		return m.handleInsertMode(msg)

	case model.SearchSubmittedMsg:
		m.closeForm()
		m.submitSearch(msg.Update)
		return m, nil

	case model.FormCancelledMsg:
		m.closeForm()
		return m, nil

	}

	return m, nil
}

// onSnapshot reacts to state changes that need follow-up work: reapplying
// the preferred sort to fresh results and fetching the detail photo.
func (m *Model) onSnapshot() tea.Cmd {
	snap := m.ctrl.Snapshot()

	if snap.Sort == "" && m.prefs.LastSort != "" && !snap.Search.Status.IsLoading() && len(snap.Search.Businesses) > 1 {
		m.ctrl.Sort(m.prefs.LastSort)
	}

	if m.detail == nil || m.opts.HTTPClient == nil || !m.opts.Capabilities.Photos {
		return nil
	}
	d, ok := state.SelectedDetail(snap.Details.Selected)
	if !ok || d.ID != m.detail.ID() || d.ImageURL == "" {
		return nil
	}
	if _, requested := m.photos[d.ID]; requested {
		return nil
	}
	m.photos[d.ID] = ""
	return loadPhotoCmd(m.opts.HTTPClient, m.opts.Capabilities, d.ID, d.ImageURL)
}

func (m Model) logger() *log.Logger {
	if m.opts.Logger == nil {
		return log.Default()
	}
	return m.opts.Logger
}

func (m *Model) submitSearch(u model.ParamsUpdate) {
	snap := m.ctrl.Snapshot()
	p := u.Apply(snap.Params)

	if u.Term != nil && *u.Term != m.prefs.LastTerm {
		m.prefs.LastTerm = *u.Term
		m.savePrefs()
	}

	switch {
	case p.Location != "":
		p.Latitude, p.Longitude = nil, nil
		m.ctrl.Search(p)
		m.info = fmt.Sprintf("Searching %q near %s", p.Term, p.Location)
	case p.HasCoordinates():
		m.ctrl.Search(p)
		m.info = fmt.Sprintf("Searching %q nearby", p.Term)
	default:
		m.ctrl.UpdateSearchParams(u)
		m.ctrl.FetchLocationAndSearch()
		m.info = fmt.Sprintf("Locating you to search %q", p.Term)
	}
}

func (m *Model) closeForm() {
	m.mode = model.ModeNav
	m.searchForm = nil
	m.screen = m.previous
}

func (m *Model) openDetail(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	if m.screen != model.ScreenDetail {
		m.previous = m.screen
	}
	m.screen = model.ScreenDetail
	m.detail = NewDetailModel(id)
	if art := m.photos[id]; art != "" {
		m.detail.SetPhoto(art)
	}
	m.info = ""
	m.ctrl.LoadBusiness(id)
	return m.onSnapshot()
}

func (m *Model) savePrefs() {
	if err := saveUIPreferences(m.opts.ConfigDir, m.prefs); err != nil {
		m.logger().Warn("failed to save preferences", "err", err)
	}
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	snap := m.ctrl.Snapshot()
	spin := m.spinner.View()
	contentHeight := m.height - 4

	var content string
	var breadcrumbParts []string
	showTabs := false

	switch m.screen {
	case model.ScreenResults:
		breadcrumbParts = []string{"Results"}
		showTabs = true
		contentHeight -= 2
		content = m.results.View(snap, spin, m.width, contentHeight)
	case model.ScreenFavorites:
		breadcrumbParts = []string{"Favorites"}
		showTabs = true
		contentHeight -= 2
		content = m.favorites.View(snap, m.width, contentHeight)
	case model.ScreenDetail:
		breadcrumbParts = []string{screenName(m.previous), "Detail"}
		if m.detail != nil {
			content = m.detail.View(snap, spin, m.width, contentHeight)
		}
	case model.ScreenSearchForm:
		breadcrumbParts = []string{"Search"}
		if m.searchForm != nil {
			content = m.searchForm.View(m.width, contentHeight)
		}
	}

	header := renderHeader(breadcrumbParts, m.width)
	footer := RenderHelp(m.keys, m.formKeys, m.screen, m.mode, m.width)

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(max(0, contentHeight-len(m.banners(snap)))).
		Render(content)

	parts := []string{header}
	if showTabs {
		parts = append(parts, renderTabs(m.screen, m.width))
	}
	parts = append(parts, m.banners(snap)...)
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// banners returns the error and info lines above the content.
func (m Model) banners(snap state.Snapshot) []string {
	var out []string

	if e := snap.Search.Status.Err(); e != "" && m.screen == model.ScreenResults {
		out = append(out, ErrorStyle.Width(m.width).Render("Error: "+e))
	}
	if m.info != "" {
		out = append(out, SuccessStyle.Width(m.width).Render(m.info))
	}
	return out
}

func (m Model) detailID() string {
	if m.detail == nil {
		return ""
	}
	return m.detail.ID()
}

func screenName(s model.Screen) string {
	switch s {
	case model.ScreenFavorites:
		return "Favorites"
	case model.ScreenDetail:
		return "Detail"
	case model.ScreenSearchForm:
		return "Search"
	default:
		return "Results"
	}
}

func renderTabs(screen model.Screen, width int) string {
	tabs := []model.Screen{model.ScreenResults, model.ScreenFavorites}

	var tabStrings []string
	for _, tab := range tabs {
		tabStyle := lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(ColorMuted)

		if screen == tab {
			tabStyle = tabStyle.
				Foreground(ColorText).
				Bold(true).
				Underline(true)
		}

		tabStrings = append(tabStrings, tabStyle.Render(screenName(tab)))
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Left, tabStrings...)
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		Render(tabBar)
}

func renderHeader(breadcrumbParts []string, width int) string {
	title := HeaderStyle.Render("restaurantfinder")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb
	right := BreadcrumbStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle "gg" state machine
	if msg.String() == "g" {
		if m.gState == GStateFirstG {
			m.gState = GStateIdle
			m.moveCursor(func(c *cursor, n int) { c.top() })
			return m, nil
		}
		m.gState = GStateFirstG
		return m, nil
	}
	m.gState = GStateIdle

	switch {
	case key.Matches(msg, m.keys.Search):
		m.openSearchForm()
		return m, nil
	case key.Matches(msg, m.keys.Nearby):
		m.ctrl.FetchLocationAndSearch()
		m.screen = model.ScreenResults
		m.info = "Locating you..."
		return m, nil
	case key.Matches(msg, m.keys.Rate):
		return m.rateSelected(msg.String())
	case key.Matches(msg, m.keys.Favorite):
		m.toggleFavorite()
		return m, nil
	}

	switch m.screen {
	case model.ScreenResults, model.ScreenFavorites:
		return m.handleListNav(msg)
	case model.ScreenDetail:
		return m.handleDetailNav(msg)
	}
	return m, nil
}

func (m Model) handleListNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		if m.screen == model.ScreenResults {
			m.screen = model.ScreenFavorites
		} else {
			m.screen = model.ScreenResults
		}
		m.info = ""
		return m, nil
	case key.Matches(msg, m.keys.Open):
		cmd := m.openDetail(m.selectedID(snap))
		return m, cmd
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(func(c *cursor, n int) { c.down(n) })
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(func(c *cursor, n int) { c.up() })
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(func(c *cursor, n int) { c.bottom(n) })
	case key.Matches(msg, m.keys.HalfPageDown):
		m.moveCursor(func(c *cursor, n int) { c.halfPageDown(n, m.height/2) })
	case key.Matches(msg, m.keys.HalfPageUp):
		m.moveCursor(func(c *cursor, n int) { c.halfPageUp(n, m.height/2) })
	case m.screen == model.ScreenResults && key.Matches(msg, m.keys.Sort):
		next := snap.Sort.Next()
		m.ctrl.Sort(next)
		m.prefs.LastSort = next
		m.savePrefs()
		m.info = "Sorted by " + next.Label()
	case m.screen == model.ScreenResults && key.Matches(msg, m.keys.Retry):
		m.ctrl.RetrySearch()
		m.info = "Retrying search"
	}
	return m, nil
}

func (m Model) handleDetailNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = m.previous
		m.detail = nil
		m.info = ""
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		if m.detail != nil {
			m.ctrl.LoadBusiness(m.detail.ID())
		}
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) openSearchForm() {
	if m.screen != model.ScreenSearchForm && m.screen != model.ScreenDetail {
		m.previous = m.screen
	}
	if m.screen == model.ScreenDetail {
		m.previous = model.ScreenResults
	}
	m.screen = model.ScreenSearchForm
	m.mode = model.ModeInsert
	m.searchForm = NewSearchFormModel(m.ctrl.Snapshot().Params)
	m.info = ""
}

// moveCursor applies fn to the cursor of the visible list.
func (m *Model) moveCursor(fn func(c *cursor, n int)) {
	snap := m.ctrl.Snapshot()
	switch m.screen {
	case model.ScreenResults:
		fn(&m.results.cursor, len(snap.Search.Businesses))
	case model.ScreenFavorites:
		fn(&m.favorites.cursor, len(snap.Favorites))
	}
}

// selectedID returns the business id the current screen points at.
func (m *Model) selectedID(snap state.Snapshot) string {
	switch m.screen {
	case model.ScreenResults:
		if b, ok := m.results.Selected(snap); ok {
			return b.ID
		}
	case model.ScreenFavorites:
		if f, ok := m.favorites.Selected(snap); ok {
			return f.ID
		}
	case model.ScreenDetail:
		return m.detailID()
	}
	return ""
}

func (m Model) rateSelected(k string) (tea.Model, tea.Cmd) {
	id := m.selectedID(m.ctrl.Snapshot())
	if id == "" {
		return m, nil
	}
	stars, err := strconv.Atoi(k)
	if err != nil {
		return m, nil
	}
	m.ctrl.Rate(id, float64(stars))
	m.info = fmt.Sprintf("Rated %d/5", stars)
	return m, nil
}

func (m *Model) toggleFavorite() {
	snap := m.ctrl.Snapshot()
	id := m.selectedID(snap)
	if id == "" {
		return
	}

	if snap.IsFavorite(id) {
		m.ctrl.RemoveFavorite(id)
		m.info = "Removed from favorites"
		return
	}

	if d, ok := state.SelectedDetail(snap.Details.Selected); ok && d.ID == id {
		m.ctrl.AddDetailToFavorites(d)
		m.info = "Added to favorites"
		return
	}
	if b, ok := snap.Business(id); ok {
		m.ctrl.AddFavorite(b)
		m.info = "Added to favorites"
	}
}

// handleInsertMode handles search form input.
func (m Model) handleInsertMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchForm == nil {
		m.mode = model.ModeNav
		return m, nil
	}
	form, cmd := m.searchForm.Update(msg)
	m.searchForm = &form
	return m, cmd
}
