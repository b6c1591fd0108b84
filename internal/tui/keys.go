package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Open key.Binding
	Back key.Binding

	// Actions
	Quit       key.Binding
	Help       key.Binding
	Refresh    key.Binding
	Search     key.Binding
	Menu       key.Binding
	Archive    key.Binding
	Settings   key.Binding
	Replies    key.Binding
	File       key.Binding
	NextLink   key.Binding
	PostNo     key.Binding
	Quote      key.Binding
	ToggleView key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open: key.NewBinding(
			key.WithKeys("enter", "l", "right"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "h", "left", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Menu: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "options"),
		),
		Archive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "archive"),
		),
		Settings: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "site settings"),
		),
		Replies: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "replies"),
		),
		File: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "download file"),
		),
		NextLink: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "follow link"),
		),
		PostNo: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "mark post"),
		),
		Quote: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "quote"),
		),
		ToggleView: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "list/card"),
		),
	}
}

// Package-level key map instance
var Keys = DefaultKeyMap()

// ShortHelp returns bindings for the footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Back, k.Search, k.Menu, k.Help, k.Quit}
}

// FullHelp returns bindings for the help overlay
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Back, k.Refresh, k.Search, k.Quit},
		{k.Menu, k.Archive, k.Settings, k.ToggleView, k.Help},
		{k.Replies, k.File, k.NextLink, k.PostNo, k.Quote},
	}
}
