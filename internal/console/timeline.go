package console

import (
	"strings"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

// FilterAll shows every event.
const FilterAll = "all"

// EventStyle is the colour and icon of an event card.
type EventStyle struct {
	Color string
	Icon  string
}

var (
	styleAuth    = EventStyle{Color: "#ef4444", Icon: "shield"}
	styleBrowser = EventStyle{Color: "#10b981", Icon: "globe"}
	styleFile    = EventStyle{Color: "#f59e0b", Icon: "folder"}
	styleNetwork = EventStyle{Color: "#3b82f6", Icon: "network"}
	styleDefault = EventStyle{Color: "#6366f1", Icon: "info"}
)

// StyleFor picks the style from keywords in the source, first match wins.
func StyleFor(source string) EventStyle {
	s := strings.ToLower(source)
	switch {
	case strings.Contains(s, "auth"):
		return styleAuth
	case strings.Contains(s, "browser"):
		return styleBrowser
	case strings.Contains(s, "file"):
		return styleFile
	case strings.Contains(s, "network"):
		return styleNetwork
	default:
		return styleDefault
	}
}

// Card is one rendered timeline event.
type Card struct {
	Event   evidence.Event
	Style   EventStyle
	Visible bool
}

// Cards builds one card per event, visible according to filter.
func Cards(events []evidence.Event, filter string) []Card {
	cards := make([]Card, 0, len(events))
	for _, e := range events {
		cards = append(cards, Card{Event: e, Style: StyleFor(e.Source), Visible: Matches(e.Source, filter)})
	}
	return cards
}

// Matches reports whether an event from source passes filter.
func Matches(source, filter string) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return strings.Contains(strings.ToLower(source), strings.ToLower(filter))
}
