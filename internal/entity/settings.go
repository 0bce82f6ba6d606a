package entity

import "slices"

// MarkStyle is the visual family used for marks. Exactly one is active.
type MarkStyle string

const (
	StyleBorder     MarkStyle = "border"
	StyleBackground MarkStyle = "background"
	StyleUnderline  MarkStyle = "underline"
)

// Valid reports whether s is a known style.
func (s MarkStyle) Valid() bool {
	return s == StyleBorder || s == StyleBackground || s == StyleUnderline
}

// Colors holds one CSS color per tier.
type Colors struct {
	Recent  string `json:"recent"`
	Today   string `json:"today"`
	Earlier string `json:"earlier"`
}

// For returns the color configured for tier.
func (c Colors) For(tier RecencyTier) string {
	switch tier {
	case TierRecent:
		return c.Recent
	case TierToday:
		return c.Today
	default:
		return c.Earlier
	}
}

// Settings is the user configuration held in the synced store. It is treated
// as an immutable value: updates produce a new Settings and consumers diff
// old against new.
type Settings struct {
	Enabled             bool        `json:"enabled"`
	ShowCurrentPage     bool        `json:"showCurrentPage"`
	MarkStyle           MarkStyle   `json:"markStyle"`
	Colors              Colors      `json:"colors"`
	HistoryMode         HistoryMode `json:"historyMode"`
	CustomRetentionTime int         `json:"customRetentionTime"`
	AutoClean           bool        `json:"autoClean"`
	CleanPeriod         int         `json:"cleanPeriod"`
	ExcludeSites        []string    `json:"excludeSites"`
	AutoEnable          bool        `json:"autoEnable"`
	ShowControlButton   bool        `json:"showControlButton"`
}

// DefaultSettings is what a fresh profile sees. Every missing stored key
// falls back to the matching field here.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         true,
		ShowCurrentPage: true,
		MarkStyle:       StyleBorder,
		Colors: Colors{
			Recent:  "#FF0000",
			Today:   "#FFA500",
			Earlier: "#90EE90",
		},
		HistoryMode:         HistoryAll,
		CustomRetentionTime: 7,
		AutoClean:           false,
		CleanPeriod:         7,
		ExcludeSites:        []string{},
		AutoEnable:          true,
		ShowControlButton:   true,
	}
}

// Retention extracts the retention configuration.
func (s Settings) Retention() RetentionConfig {
	return RetentionConfig{Mode: s.HistoryMode, CustomDays: s.CustomRetentionTime}
}

// Visible reports whether marks should be shown under these settings.
func (s Settings) Visible() bool {
	return s.Enabled && s.ShowCurrentPage
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.ExcludeSites = slices.Clone(s.ExcludeSites)
	if out.ExcludeSites == nil {
		out.ExcludeSites = []string{}
	}
	return out
}

// SettingsChange describes which aspects differ between two Settings values.
type SettingsChange struct {
	Style      bool // markStyle or colors
	Visibility bool // enabled or showCurrentPage
	Retention  bool // historyMode or customRetentionTime
	Exclusion  bool
	Control    bool // showControlButton
}

// Any reports whether anything the page engine cares about changed.
func (c SettingsChange) Any() bool {
	return c.Style || c.Visibility || c.Retention || c.Exclusion || c.Control
}

// Diff compares old against s.
func (s Settings) Diff(old Settings) SettingsChange {
	return SettingsChange{
		Style:      s.MarkStyle != old.MarkStyle || s.Colors != old.Colors,
		Visibility: s.Visible() != old.Visible(),
		Retention:  s.HistoryMode != old.HistoryMode || s.CustomRetentionTime != old.CustomRetentionTime,
		Exclusion:  !slices.Equal(s.ExcludeSites, old.ExcludeSites),
		Control:    s.ShowControlButton != old.ShowControlButton,
	}
}
