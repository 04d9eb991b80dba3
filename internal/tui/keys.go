package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	All    key.Binding
	Major  key.Binding
	Minor  key.Binding
	Micro  key.Binding
	Set    key.Binding
	Apply  key.Binding
	Revert key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		All:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Major:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "bump major")),
		Minor:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "bump minor")),
		Micro:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "bump micro")),
		Set:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "set version")),
		Apply:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Revert: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "revert")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Minor, k.Set, k.Apply, k.Revert, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.All},
		{k.Major, k.Minor, k.Micro, k.Set},
		{k.Apply, k.Revert, k.Reload},
		{k.Help, k.Quit},
	}
}

// setPending enables apply and revert only while edits are pending.
func (k *keyMap) setPending(pending bool) {
	k.Apply.SetEnabled(pending)
	k.Revert.SetEnabled(pending)
}
