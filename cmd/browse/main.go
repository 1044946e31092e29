package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kass/go-resource-finder/pkg/cache"
	"github.com/kass/go-resource-finder/pkg/config"
	"github.com/kass/go-resource-finder/pkg/location"
	"github.com/kass/go-resource-finder/pkg/maps"
	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/places"
	"github.com/kass/go-resource-finder/pkg/saved"
	"github.com/kass/go-resource-finder/pkg/view"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

type model struct {
	finder  *places.Finder
	saved   *saved.Store
	loc     *location.State
	session *view.Session

	query    string
	radius   int
	category string

	spinner  spinner.Model
	fetching bool
	cached   bool
	status   string

	cards  []models.Card
	cursor int
	width  int
	height int
}

type resultsMsg struct {
	result places.Result
	err    error
}

func initialModel(finder *places.Finder, savedStore *saved.Store, loc *location.State, query string, radius int, category string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		finder:   finder,
		saved:    savedStore,
		loc:      loc,
		session:  view.NewSession(savedStore),
		query:    query,
		radius:   radius,
		category: category,
		spinner:  s,
		fetching: true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.search())
}

func (m model) search() tea.Cmd {
	return func() tea.Msg {
		result, err := m.finder.Search(context.Background(), m.query, m.radius, m.category, m.loc.Load())
		return resultsMsg{result: result, err: err}
	}
}

func (m *model) refresh() {
	m.cards = m.session.Display()
	if m.cursor >= len(m.cards) {
		m.cursor = len(m.cards) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultsMsg:
		m.fetching = false
		m.cached = msg.result.FromCache
		switch {
		case errors.Is(msg.err, places.ErrMissingAPIKey):
			m.status = "No API key stored. Run: resource-finder key set <value>"
		case msg.err != nil:
			m.status = "Fetch failed. Press r to retry."
		default:
			m.status = ""
		}
		// A second search resolving later simply overwrites the results:
		// last response wins.
		m.session.SetSearchResults(msg.result.Places)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "tab":
			if m.session.View() == view.ViewSearch {
				m.session.Activate(view.ViewSaved)
			} else {
				m.session.Activate(view.ViewSearch)
			}
			m.cursor = 0
			m.refresh()
			return m, nil

		case "s":
			switch m.session.SortMode() {
			case view.SortNone:
				m.session.SetSortMode(view.SortAZ)
			case view.SortAZ:
				m.session.SetSortMode(view.SortZA)
			default:
				m.session.SetSortMode(view.SortNone)
			}
			m.refresh()
			return m, nil

		case "r":
			if !m.fetching {
				m.fetching = true
				return m, tea.Batch(m.spinner.Tick, m.search())
			}
			return m, nil

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "j":
			if m.cursor < len(m.cards)-1 {
				m.cursor++
			}
			return m, nil

		case "enter":
			if card, ok := m.selected(); ok && card.HasCoord {
				// Fire-and-forget; the TUI keeps running either way.
				maps.Open(card.Lat, card.Lng, card.Name)
			}
			return m, nil

		case " ":
			card, ok := m.selected()
			if !ok {
				return m, nil
			}
			if m.session.View() == view.ViewSearch {
				if _, ok, err := m.saved.Save(card.PlaceID, m.session.SearchResults()); err != nil {
					m.status = "Save failed."
				} else if ok {
					m.status = "Saved " + card.Name
				}
			} else {
				if err := m.saved.Remove(card.PlaceID); err != nil {
					m.status = "Remove failed."
				} else {
					m.status = "Removed " + card.Name
				}
			}
			m.refresh()
			return m, nil
		}
	}

	return m, nil
}

func (m model) selected() (models.Card, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return models.Card{}, false
	}
	return m.cards[m.cursor], true
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Community Resource Finder"))
	b.WriteString("\n")

	if m.fetching {
		b.WriteString(m.spinner.View() + " Searching...\n")
		return b.String()
	}

	viewName := "Search Results"
	if m.session.View() == view.ViewSaved {
		viewName = "Saved Resources"
	}
	b.WriteString(subtitleStyle.Render(viewName))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  sort:%s", m.session.SortMode())))
	if m.session.View() == view.ViewSearch {
		cacheStat := "fresh"
		if m.cached {
			cacheStat = "cached"
		}
		b.WriteString(dimStyle.Render("  " + cacheStat))
	}
	b.WriteString("\n\n")

	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n\n")
	}

	if len(m.cards) == 0 {
		b.WriteString(dimStyle.Render("No resources found."))
		b.WriteString("\n")
	}

	for i, card := range m.cards {
		line := card.Name
		if m.saved.Contains(card.PlaceID) {
			line += successStyle.Render(" [saved]")
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(dimStyle.Render("    " + card.Address))
			b.WriteString("\n")
			if card.Phone != "" {
				b.WriteString(dimStyle.Render("    " + card.Phone))
				b.WriteString("\n")
			}
			if card.Website != "" {
				b.WriteString(dimStyle.Render("    " + card.Website))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("%d shown, %d saved", len(m.cards), m.session.SavedCount())))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab: switch view  s: sort  space: save/remove  enter: map  r: refresh  q: quit"))

	return b.String()
}

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Config file path")
		query      = flag.String("q", places.DefaultCategory, "Search query")
		radius     = flag.Int("radius", places.DefaultRadius, "Search radius in meters")
		category   = flag.String("category", "", "Resource category")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	store, err := cfg.OpenStore()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	creds := places.NewCredentials(store)
	finder := places.NewFinder(places.NewClient(cfg.API.BaseURL, cfg.API.Host), cache.New(store), creds)

	program := tea.NewProgram(
		initialModel(finder, saved.New(store), location.New(store), *query, *radius, *category),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		log.Fatal(err)
	}
}
