package model

// Bubble Tea message types

// SearchSubmittedMsg is sent when the search form is submitted.
type SearchSubmittedMsg struct {
	Update ParamsUpdate
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// Screen represents different app screens.
type Screen int

const (
	ScreenResults Screen = iota
	ScreenFavorites
	ScreenDetail
	ScreenSearchForm
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)
