// Package view implements the sort/view pipeline: two mutually exclusive
// display modes over a shared, sticky sort.
package view

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/saved"
)

// View selects which list is displayed.
type View string

const (
	ViewSearch View = "search"
	ViewSaved  View = "saved"
)

// SortMode orders a display list by name, or not at all.
type SortMode string

const (
	SortNone SortMode = "none"
	SortAZ   SortMode = "az"
	SortZA   SortMode = "za"
)

// ParseSortMode validates a sort mode supplied as a flag or query value.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case SortNone, SortAZ, SortZA:
		return SortMode(s), nil
	case "":
		return SortNone, nil
	}
	return SortNone, fmt.Errorf("unknown sort mode %q", s)
}

// collator does locale-aware, case-insensitive name comparison.
var collator = collate.New(language.English, collate.IgnoreCase)

// SortPlaces returns a sorted copy of the raw result list. The input order
// is never mutated; ties keep their original relative order.
func SortPlaces(in []models.Place, mode SortMode) []models.Place {
	out := make([]models.Place, len(in))
	copy(out, in)
	if mode == SortNone {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].Name, out[j].Name, mode)
	})
	return out
}

// SortResources returns a sorted copy of a saved-resource list.
func SortResources(in []models.Resource, mode SortMode) []models.Resource {
	out := make([]models.Resource, len(in))
	copy(out, in)
	if mode == SortNone {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].Name, out[j].Name, mode)
	})
	return out
}

func less(a, b string, mode SortMode) bool {
	cmp := collator.CompareString(a, b)
	if mode == SortZA {
		return cmp > 0
	}
	return cmp < 0
}

// Session owns the transient display state for one running UI: the active
// view, the sticky sort mode, and the in-memory results of the last search.
// It is rebuilt fresh every run and never persisted.
type Session struct {
	view          View
	mode          SortMode
	searchResults []models.Place
	saved         *saved.Store
}

// NewSession starts in the search view with no sorting.
func NewSession(savedStore *saved.Store) *Session {
	return &Session{
		view:  ViewSearch,
		mode:  SortNone,
		saved: savedStore,
	}
}

// View returns the active view.
func (s *Session) View() View { return s.view }

// SortMode returns the sticky sort mode.
func (s *Session) SortMode() SortMode { return s.mode }

// SetSortMode changes the sort applied to whichever view is active.
func (s *Session) SetSortMode(mode SortMode) { s.mode = mode }

// SetSearchResults replaces the in-memory search results and activates the
// search view, as a fresh search does.
func (s *Session) SetSearchResults(places []models.Place) {
	s.searchResults = places
	s.view = ViewSearch
}

// SearchResults returns the in-memory results of the last search.
func (s *Session) SearchResults() []models.Place { return s.searchResults }

// Activate switches the active view. The sticky sort mode carries over.
func (s *Session) Activate(v View) { s.view = v }

// Display re-sources the list for the active view and applies the sticky
// sort, returning display cards. Sources are copied, never mutated.
func (s *Session) Display() []models.Card {
	switch s.view {
	case ViewSaved:
		list := SortResources(s.saved.List(), s.mode)
		cards := make([]models.Card, len(list))
		for i, r := range list {
			cards[i] = models.CardFromResource(r)
		}
		return cards
	default:
		list := SortPlaces(s.searchResults, s.mode)
		cards := make([]models.Card, len(list))
		for i, p := range list {
			cards[i] = models.CardFromPlace(p)
		}
		return cards
	}
}

// SavedCount returns the saved-list size, recomputed from the store.
func (s *Session) SavedCount() int { return s.saved.Count() }
