package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kass/go-resource-finder/pkg/cache"
	"github.com/kass/go-resource-finder/pkg/config"
	"github.com/kass/go-resource-finder/pkg/geoindex"
	"github.com/kass/go-resource-finder/pkg/location"
	"github.com/kass/go-resource-finder/pkg/maps"
	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/places"
	"github.com/kass/go-resource-finder/pkg/saved"
	"github.com/kass/go-resource-finder/pkg/server"
	"github.com/kass/go-resource-finder/pkg/storage"
	"github.com/kass/go-resource-finder/pkg/view"
)

var (
	configFile string
	dataDir    string
	verbose    bool
)

var (
	searchRadius   int
	searchCategory string
	sortFlag       string
	nearFlag       bool
	nearRadiusKm   float64
	mapFlag        string
)

var (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func init() {
	// Disable colors if not in a terminal
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		colorReset = ""
		colorGreen = ""
		colorYellow = ""
		colorCyan = ""
		colorBold = ""
		colorDim = ""
	}
}

var rootCmd = &cobra.Command{
	Use:   "resource-finder",
	Short: "Find and keep track of nearby community-support resources",
	Long: `Search for nearby community-support locations, cache results to avoid
redundant lookups, and keep a personal shortlist across sessions.`,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for nearby resources",
	Long:  `Search for resources around the current location. Repeated identical searches within 30 minutes are served from the local cache without a network call.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runSearch,
}

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved resources",
	Run:   runSaved,
}

var saveCmd = &cobra.Command{
	Use:   "save <place_id> [query]",
	Short: "Save a resource from the latest search results",
	Long:  `Re-runs the search (normally a cache hit) and saves the matching record. Saving an already-saved resource is a no-op.`,
	Args:  cobra.RangeArgs(1, 2),
	Run:   runSave,
}

var removeCmd = &cobra.Command{
	Use:   "remove <place_id>",
	Short: "Remove a resource from the saved list",
	Args:  cobra.ExactArgs(1),
	Run:   runRemove,
}

var locationCmd = &cobra.Command{
	Use:   "location [lat,lng | preset-name | presets]",
	Short: "Show or set the current search origin",
	Long:  `With no argument, prints the current origin. Pass "presets" to list the named presets, or a preset name or "lat,lng" pair to set the origin.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runLocation,
}

var keyCmd = &cobra.Command{
	Use:   "key <set|show|clear> [value]",
	Short: "Manage the lookup API key",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runKey,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	Run:   runPurge,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the finder over a local HTTP API",
	Run:   runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	searchCmd.Flags().IntVarP(&searchRadius, "radius", "r", places.DefaultRadius, "Search radius in meters (1-10000)")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "t", "", "Category: food, shelter, health, education, legal, community services")
	searchCmd.Flags().StringVarP(&sortFlag, "sort", "s", "none", "Sort mode: none, az, za")

	saveCmd.Flags().IntVarP(&searchRadius, "radius", "r", places.DefaultRadius, "Radius of the search to save from")
	saveCmd.Flags().StringVarP(&searchCategory, "category", "t", "", "Category of the search to save from")

	savedCmd.Flags().StringVarP(&sortFlag, "sort", "s", "none", "Sort mode: none, az, za")
	savedCmd.Flags().BoolVar(&nearFlag, "near", false, "Only saved resources near the current location")
	savedCmd.Flags().Float64Var(&nearRadiusKm, "radius-km", 10.0, "Radius in km for --near")

	savedCmd.Flags().StringVarP(&mapFlag, "map", "m", "", "Open a map for the given place_id")
	searchCmd.Flags().StringVarP(&mapFlag, "map", "m", "", "Open a map for the given place_id")

	rootCmd.AddCommand(searchCmd, savedCmd, saveCmd, removeCmd, locationCmd, keyCmd, purgeCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	store  storage.Store
	cache  *cache.Cache
	loc    *location.State
	saved  *saved.Store
	creds  *places.Credentials
	finder *places.Finder
}

func newApp() *app {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dataDir != "" {
		cfg.Storage.Dir = dataDir
		cfg.Storage.Driver = "file"
	}

	store, err := cfg.OpenStore()
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	c := cache.New(store)
	creds := places.NewCredentials(store)
	client := places.NewClient(cfg.API.BaseURL, cfg.API.Host)

	return &app{
		store:  store,
		cache:  c,
		loc:    location.New(store),
		saved:  saved.New(store),
		creds:  creds,
		finder: places.NewFinder(client, c, creds),
	}
}

func runSearch(cmd *cobra.Command, args []string) {
	a := newApp()

	query := places.DefaultCategory
	if len(args) > 0 && args[0] != "" {
		query = args[0]
	}

	mode, err := view.ParseSortMode(sortFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	loc := a.loc.Load()
	if verbose {
		fmt.Printf("Searching %q within %dm of %.6f, %.6f\n", query, places.ClampRadius(searchRadius), loc.Lat, loc.Lng)
	}

	result, err := a.finder.Search(context.Background(), query, searchRadius, searchCategory, loc)
	switch {
	case errors.Is(err, places.ErrMissingAPIKey):
		fmt.Printf("%sNo API key stored.%s Set one with: resource-finder key set <value>\n", colorYellow, colorReset)
	case err != nil:
		fmt.Printf("%sFetch failed:%s %v\n", colorYellow, colorReset, err)
	}

	session := view.NewSession(a.saved)
	session.SetSearchResults(result.Places)
	session.SetSortMode(mode)
	cards := session.Display()

	printCards(cards, a.saved)
	printStats(len(cards), session.SavedCount(), searchCategory, result.FromCache, err)

	if mapFlag != "" {
		openMapFor(cards, mapFlag)
	}
}

func runSaved(cmd *cobra.Command, args []string) {
	a := newApp()

	mode, err := view.ParseSortMode(sortFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if nearFlag {
		idx := geoindex.Build(a.saved.List())
		hits, err := idx.Near(a.loc.Load(), nearRadiusKm)
		if err != nil {
			log.Fatalf("Failed to search saved resources: %v", err)
		}
		if len(hits) == 0 {
			fmt.Printf("No saved resources within %.1f km.\n", nearRadiusKm)
			return
		}
		for i, hit := range hits {
			card := models.CardFromResource(hit.Resource)
			fmt.Printf("%s%d. %s%s %s(%.1f km)%s\n", colorBold, i+1, card.Name, colorReset, colorDim, hit.DistanceKm, colorReset)
			printCardBody(card)
		}
		return
	}

	session := view.NewSession(a.saved)
	session.Activate(view.ViewSaved)
	session.SetSortMode(mode)
	cards := session.Display()

	if len(cards) == 0 {
		fmt.Println("No saved resources found.")
		return
	}
	printCards(cards, a.saved)
	fmt.Printf("\n%s%d saved resource(s)%s\n", colorCyan, len(cards), colorReset)

	if mapFlag != "" {
		openMapFor(cards, mapFlag)
	}
}

func runSave(cmd *cobra.Command, args []string) {
	a := newApp()

	placeID := args[0]
	query := places.DefaultCategory
	if len(args) > 1 {
		query = args[1]
	}

	result, err := a.finder.Search(context.Background(), query, searchRadius, searchCategory, a.loc.Load())
	if err != nil && !result.FromCache {
		fmt.Printf("%sCould not load search results:%s %v\n", colorYellow, colorReset, err)
	}

	rec, ok, err := a.saved.Save(placeID, result.Places)
	if err != nil {
		log.Fatalf("Failed to save resource: %v", err)
	}
	if !ok {
		fmt.Printf("Place %q is not in the current search results.\n", placeID)
		return
	}
	fmt.Printf("%sSaved:%s %s\n", colorGreen, colorReset, rec.Name)
	fmt.Printf("%d saved resource(s)\n", a.saved.Count())
}

func runRemove(cmd *cobra.Command, args []string) {
	a := newApp()

	if err := a.saved.Remove(args[0]); err != nil {
		log.Fatalf("Failed to remove resource: %v", err)
	}
	fmt.Printf("%sRemoved%s %s\n", colorGreen, colorReset, args[0])
	fmt.Printf("%d saved resource(s)\n", a.saved.Count())
}

func runLocation(cmd *cobra.Command, args []string) {
	a := newApp()

	if len(args) == 0 {
		loc := a.loc.Load()
		fmt.Printf("Current location: %s%.6f, %.6f%s\n", colorBold, loc.Lat, loc.Lng, colorReset)
		return
	}

	if args[0] == "presets" {
		for _, name := range location.Presets() {
			coord, _ := location.Preset(name)
			fmt.Printf("%s%-14s%s %.6f, %.6f\n", colorBold, name, colorReset, coord.Lat, coord.Lng)
		}
		return
	}

	lat, lng, err := location.Parse(args[0])
	if err != nil {
		// Rejected before any persistence side effect.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	coord, err := a.loc.Save(lat, lng)
	if err != nil {
		log.Fatalf("Failed to save location: %v", err)
	}
	fmt.Printf("%sLocation saved:%s %.6f, %.6f\n", colorGreen, colorReset, coord.Lat, coord.Lng)
}

func runKey(cmd *cobra.Command, args []string) {
	a := newApp()

	switch args[0] {
	case "set":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: resource-finder key set <value>")
			os.Exit(1)
		}
		if err := a.creds.Set(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%sAPI key saved.%s\n", colorGreen, colorReset)
	case "show":
		key, ok := a.creds.Get()
		if !ok {
			fmt.Println("No API key stored.")
			return
		}
		fmt.Println(key)
	case "clear":
		if err := a.creds.Clear(); err != nil {
			log.Fatalf("Failed to clear API key: %v", err)
		}
		fmt.Printf("%sAPI key cleared.%s\n", colorGreen, colorReset)
	default:
		fmt.Fprintf(os.Stderr, "unknown key action %q\n", args[0])
		os.Exit(1)
	}
}

func runPurge(cmd *cobra.Command, args []string) {
	a := newApp()

	removed, err := a.cache.Purge()
	if err != nil {
		log.Fatalf("Failed to purge cache: %v", err)
	}
	fmt.Printf("Removed %d expired cache entr%s\n", removed, pluralY(removed))
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	a := newApp()

	srv := server.New(a.finder, a.saved, a.loc, a.creds)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal("Server failed:", err)
	}
}

func printCards(cards []models.Card, savedStore *saved.Store) {
	if len(cards) == 0 {
		fmt.Println("No resources found.")
		return
	}
	for i, card := range cards {
		marker := ""
		if savedStore.Contains(card.PlaceID) {
			marker = colorGreen + " [saved]" + colorReset
		}
		fmt.Printf("%s%d. %s%s%s\n", colorBold, i+1, card.Name, colorReset, marker)
		printCardBody(card)
	}
}

func printCardBody(card models.Card) {
	fmt.Printf("   %sAddress:%s %s\n", colorDim, colorReset, card.Address)
	if card.Phone != "" {
		fmt.Printf("   %sPhone:%s %s\n", colorDim, colorReset, card.Phone)
	}
	if card.Website != "" {
		fmt.Printf("   %sWebsite:%s %s\n", colorDim, colorReset, card.Website)
	}
	if card.HasCoord {
		fmt.Printf("   %sCoords:%s %.6f, %.6f\n", colorDim, colorReset, card.Lat, card.Lng)
	}
	fmt.Printf("   %sid:%s %s\n", colorDim, colorReset, card.PlaceID)
}

func printStats(results, savedCount int, category string, cached bool, err error) {
	cacheStat := "Active"
	if cached {
		cacheStat = "Cached"
	}
	if err != nil {
		cacheStat = "Error"
	}
	if category == "" {
		category = "All"
	}
	fmt.Printf("\n%sResults:%s %d  %sSaved:%s %d  %sCategory:%s %s  %sCache:%s %s\n",
		colorCyan, colorReset, results,
		colorCyan, colorReset, savedCount,
		colorCyan, colorReset, category,
		colorCyan, colorReset, cacheStat)
}

func openMapFor(cards []models.Card, placeID string) {
	for _, card := range cards {
		if card.PlaceID != placeID {
			continue
		}
		if !card.HasCoord {
			fmt.Printf("No coordinates for %q.\n", placeID)
			return
		}
		if err := maps.Open(card.Lat, card.Lng, card.Name); err != nil {
			fmt.Printf("Map: %s\n", maps.URL(card.Lat, card.Lng))
		}
		return
	}
	fmt.Printf("Place %q not in the displayed results.\n", placeID)
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
