package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type OnboardingSettings struct {
	Completed       bool `json:"completed"`
	LocationConsent bool `json:"location_consent"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, fmt.Errorf("failed to parse %s: %w", onboardingPath(configDir), err)
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func secureYelpKeyPath(configDir string) string {
	return filepath.Join(configDir, "yelp_api_key")
}

func saveSecureYelpAPIKey(configDir, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	// Owner read/write only.
	return os.WriteFile(secureYelpKeyPath(configDir), []byte(strings.TrimSpace(key)+"\n"), 0600)
}

func loadSecureYelpAPIKey(configDir string) (string, error) {
	data, err := os.ReadFile(secureYelpKeyPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type onboardingStep int

const (
	stepKey onboardingStep = iota
	stepLocation
	stepDone
)

type onboardingModel struct {
	step        onboardingStep
	consent     bool
	keyInput    textinput.Model
	settings    OnboardingSettings
	capturedKey string
	status      []string
	width       int
	height      int
}

var (
	obColorMuted  = lipgloss.Color("#7E8C80")
	obColorText   = lipgloss.Color("#D6E0D3")
	obColorAccent = lipgloss.Color("#8FA082")
	obColorDanger = lipgloss.Color("#f38ba8")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obOptionStyle = lipgloss.NewStyle().
			Foreground(obColorText)

	obOptionSelected = lipgloss.NewStyle().
				Foreground(obColorAccent).
				Bold(true)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

// newOnboardingModel starts at the key step, or skips it when a key is
// already configured through flags or the environment.
func newOnboardingModel(existingKey string) onboardingModel {
	in := textinput.New()
	in.Placeholder = "Paste YELP API key here"
	in.CharLimit = 300
	in.Prompt = "api> "
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	in.Focus()

	m := onboardingModel{
		step:     stepKey,
		consent:  true,
		keyInput: in,
		settings: OnboardingSettings{Completed: true},
	}
	if strings.TrimSpace(existingKey) != "" {
		m.step = stepLocation
		m.status = append(m.status, "Using existing YELP_API_KEY from environment/flags.")
	}
	return m
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.settings.LocationConsent = false
			m.status = append(m.status, "Setup canceled. Nearby search uses the default location.")
			m.step = stepDone
			return m, tea.Quit
		}

		switch m.step {
		case stepKey:
			switch msg.String() {
			case "enter":
				key := strings.TrimSpace(m.keyInput.Value())
				if key == "" {
					m.status = append(m.status, "No key entered. Set YELP_API_KEY before searching.")
				} else {
					m.capturedKey = key
					m.status = append(m.status, "YELP API key saved.")
				}
				m.step = stepLocation
				return m, nil
			case "esc":
				m.status = append(m.status, "Skipped key setup. Set YELP_API_KEY before searching.")
				m.step = stepLocation
				return m, nil
			}
			var cmd tea.Cmd
			m.keyInput, cmd = m.keyInput.Update(msg)
			return m, cmd
		case stepLocation:
			switch msg.String() {
			case "y", "Y":
				m.consent = true
				return m.finish()
			case "n", "N":
				m.consent = false
				return m.finish()
			case "up", "k", "left", "h":
				m.consent = true
			case "down", "j", "right", "l":
				m.consent = false
			case "enter":
				return m.finish()
			case "q", "esc":
				m.consent = false
				return m.finish()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m onboardingModel) finish() (tea.Model, tea.Cmd) {
	m.settings.LocationConsent = m.consent
	if m.consent {
		m.status = append(m.status, "Nearby search will use your approximate location.")
	} else {
		m.status = append(m.status, "Location disabled. Nearby search uses the default location.")
	}
	m.step = stepDone
	return m, tea.Quit
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	header := m.renderHeader(width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)

	contentHeight := max(8, height-6)
	content := m.renderContent(width, contentHeight)
	ui := lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("restaurantfinder") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderTabs(width int) string {
	keyTab := obTabInactive.Render("YELP API Key")
	locTab := obTabInactive.Render("Location")
	switch m.step {
	case stepKey:
		keyTab = obTabActive.Render("YELP API Key")
	case stepLocation:
		locTab = obTabActive.Render("Location")
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", keyTab, locTab))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepKey:
		return obFooterStyle.Width(width).Render("enter save  esc skip  ctrl+c cancel")
	case stepLocation:
		return obFooterStyle.Width(width).Render("↑↓/jk to navigate  y/n enter to confirm  q decline")
	default:
		return obFooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepKey:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.keyInput.View())
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Get a YELP API key:"),
			"",
			obMutedStyle.Render("1) https://www.yelp.com/developers/v3/manage_app"),
			obMutedStyle.Render("2) Create an app"),
			obMutedStyle.Render("3) Copy API key"),
			"",
			obLabelStyle.Render("YELP API Key"),
			input,
			"",
			obMutedStyle.Render("Press Enter to save, Esc to skip."),
		)
	case stepLocation:
		question := obLabelStyle.Render("Use your approximate location for nearby search?")
		on := "Allow location lookup"
		off := "Use the default location"

		var onDisplay, offDisplay string
		if m.consent {
			onDisplay = "  " + obOptionSelected.Render("→ "+on)
			offDisplay = "    " + obOptionStyle.Render(off)
		} else {
			onDisplay = "    " + obOptionStyle.Render(on)
			offDisplay = "  " + obOptionSelected.Render("→ "+off)
		}

		body = lipgloss.JoinVertical(
			lipgloss.Left,
			question,
			"",
			onDisplay,
			offDisplay,
			"",
			obMutedStyle.Render("Your IP address is sent to a geolocation service only when you search nearby."),
			obMutedStyle.Render("You can change this later in ~/.restaurantfinder/onboarding.json"),
		)
	default:
		lines := []string{obLabelStyle.Render("Onboarding Complete"), ""}
		for _, s := range m.status {
			style := obMutedStyle
			if strings.Contains(s, "default location") || strings.Contains(s, "before searching") {
				style = obWarnStyle
			}
			lines = append(lines, style.Render(s))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func runOnboarding(configDir string, existingKey string) (OnboardingSettings, error) {
	prog := tea.NewProgram(newOnboardingModel(existingKey), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	if err := saveSecureYelpAPIKey(configDir, m.capturedKey); err != nil {
		return OnboardingSettings{}, err
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
