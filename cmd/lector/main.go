// Package main is the Lector CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/annotations"
	"github.com/libroglot/lector/internal/cli"
	"github.com/libroglot/lector/internal/config"
	"github.com/libroglot/lector/internal/extract"
	"github.com/libroglot/lector/internal/library"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
	"github.com/libroglot/lector/internal/prefs"
	"github.com/libroglot/lector/internal/search"
	"github.com/libroglot/lector/internal/server"
	"github.com/libroglot/lector/internal/translate"
	"github.com/libroglot/lector/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/lector/config.yaml"
	defaultServerURL  = "http://localhost:8090"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "lector server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "books":
		runBooks()
	case "search":
		runSearch()
	case "notes":
		runNotes()
	case "bookmarks":
		runBookmarks()
	case "export":
		runExport()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("lector version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (book loads, search requests, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := persist.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	extractor := extract.NewExtractor()
	lib := library.New(cfg.Library.Path, cfg.Library.Extensions, extractor, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := lib.Scan(ctx); err != nil {
		logger.Warn("library scan incomplete", zap.Error(err))
	}
	logger.Info("library loaded", zap.Int("books", lib.Len()), zap.String("path", cfg.Library.Path))

	if cfg.Library.WatchOrDefault() {
		go func() {
			if err := lib.Watch(ctx); err != nil {
				logger.Warn("library watch stopped", zap.Error(err))
			}
		}()
	}

	recent := search.NewRecentSearches(store, cfg.Search.RecentMax, logger)
	engine := search.NewEngine(extractor, recent, cfg.Search.ContextRadius, logger)
	ann := annotations.NewStore(store, logger)
	pm := prefs.NewManager(ctx, store, logger)
	translator := buildTranslator(cfg, logger)

	srv := server.NewServer(lib, engine, ann, pm, translator, store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// buildTranslator assembles the translation chain: HTTP client behind an LRU
// cache when an endpoint is configured, otherwise a passthrough.
func buildTranslator(cfg *config.Config, logger *zap.Logger) translate.Translator {
	if cfg.Translation.Endpoint == "" {
		return translate.NewService(&translate.Static{}, logger)
	}
	client := translate.NewClient(cfg.Translation.Endpoint, time.Duration(cfg.Translation.TimeoutMS)*time.Millisecond)
	cached := translate.NewCached(client, cfg.Translation.CacheSize)
	return translate.NewService(cached, logger)
}

func runBooks() {
	fs := flag.NewFlagSet("books", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var out struct {
		Books []models.BookListItem `json:"books"`
	}
	if err := apiGet(*serverURL, "/api/v1/books", &out); err != nil {
		fmt.Fprintf(os.Stderr, "List books failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		printJSON(out)
		return
	}
	if len(out.Books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	for _, b := range out.Books {
		fmt.Printf("%s  %-30s  %d pages  %s\n", b.ID, b.Title, b.TotalPages, b.Path)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so `lector search "query" -regex`
// would otherwise leave -regex unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: lector search -book <id> [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  lector search -book a1b2c3 whale
  lector search -book a1b2c3 "white whale"
  lector search -book a1b2c3 -whole-words cat      # skips "category"
  lector search -book a1b2c3 -regex "ca[tp]s?"
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	bookID := fs.String("book", "", "book ID (required; see 'lector books')")
	caseSensitive := fs.Bool("case-sensitive", false, "match case exactly")
	wholeWords := fs.Bool("whole-words", false, "match whole words only")
	regex := fs.Bool("regex", false, "treat the query as a regular expression")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if *bookID == "" || queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	req := models.SearchRequest{
		Query: queryStr,
		Options: models.SearchOptions{
			CaseSensitive: *caseSensitive,
			WholeWords:    *wholeWords,
			Regex:         *regex,
		},
	}
	var resp models.SearchResponse
	if err := apiPost(*serverURL, "/api/v1/books/"+*bookID+"/search", req, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteSearchResults(os.Stdout, &resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runNotes() {
	fs := flag.NewFlagSet("notes", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	bookID := fs.String("book", "", "book ID (required)")
	page := fs.Int("page", 1, "page number (for add)")
	_ = fs.Parse(os.Args[2:])

	if *bookID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: lector notes -book <id> [flags] list | add <content...> | remove <noteID>")
		os.Exit(1)
	}
	base := "/api/v1/books/" + *bookID

	switch fs.Arg(0) {
	case "list":
		var out struct {
			Notes []models.Note `json:"notes"`
		}
		if err := apiGet(*serverURL, base+"/annotations", &out); err != nil {
			fmt.Fprintf(os.Stderr, "List notes failed: %v\n", err)
			os.Exit(1)
		}
		if len(out.Notes) == 0 {
			fmt.Println("No notes.")
			return
		}
		for _, n := range out.Notes {
			fmt.Printf("%s  p.%-4d %s\n", n.ID, n.Page, n.Content)
		}
	case "add":
		content := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if content == "" {
			fmt.Println("Usage: lector notes -book <id> [-page N] add <content...>")
			os.Exit(1)
		}
		var note models.Note
		body := map[string]interface{}{"page": *page, "content": content}
		if err := apiPost(*serverURL, base+"/notes", body, &note); err != nil {
			fmt.Fprintf(os.Stderr, "Add note failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added note %s on page %d.\n", note.ID, note.Page)
	case "remove":
		if fs.NArg() < 2 {
			fmt.Println("Usage: lector notes -book <id> remove <noteID>")
			os.Exit(1)
		}
		if err := apiDelete(*serverURL, base+"/notes/"+fs.Arg(1)); err != nil {
			fmt.Fprintf(os.Stderr, "Remove note failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Removed.")
	default:
		fmt.Printf("Unknown notes action: %s\n", fs.Arg(0))
		os.Exit(1)
	}
}

func runBookmarks() {
	fs := flag.NewFlagSet("bookmarks", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	bookID := fs.String("book", "", "book ID (required)")
	title := fs.String("title", "", "bookmark title (for add; defaults to \"Page N\")")
	_ = fs.Parse(os.Args[2:])

	if *bookID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: lector bookmarks -book <id> [flags] list | add <page> | remove <page>")
		os.Exit(1)
	}
	base := "/api/v1/books/" + *bookID

	switch fs.Arg(0) {
	case "list":
		var out struct {
			Bookmarks []models.Bookmark `json:"bookmarks"`
		}
		if err := apiGet(*serverURL, base+"/annotations", &out); err != nil {
			fmt.Fprintf(os.Stderr, "List bookmarks failed: %v\n", err)
			os.Exit(1)
		}
		if len(out.Bookmarks) == 0 {
			fmt.Println("No bookmarks.")
			return
		}
		for _, b := range out.Bookmarks {
			fmt.Printf("p.%-4d %-20s [%s]\n", b.Page, b.Title, b.Color)
		}
	case "add":
		if fs.NArg() < 2 {
			fmt.Println("Usage: lector bookmarks -book <id> add <page>")
			os.Exit(1)
		}
		pageNum, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid page: %s\n", fs.Arg(1))
			os.Exit(1)
		}
		var bm models.Bookmark
		body := map[string]interface{}{"page": pageNum, "title": *title}
		if err := apiPost(*serverURL, base+"/bookmarks", body, &bm); err != nil {
			fmt.Fprintf(os.Stderr, "Add bookmark failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bookmarked page %d (%s).\n", bm.Page, bm.Title)
	case "remove":
		if fs.NArg() < 2 {
			fmt.Println("Usage: lector bookmarks -book <id> remove <page>")
			os.Exit(1)
		}
		if err := apiDelete(*serverURL, base+"/bookmarks/page/"+fs.Arg(1)); err != nil {
			fmt.Fprintf(os.Stderr, "Remove bookmark failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Removed.")
	default:
		fmt.Printf("Unknown bookmarks action: %s\n", fs.Arg(0))
		os.Exit(1)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	bookID := fs.String("book", "", "book ID (required)")
	outPath := fs.String("out", "", "output file (default stdout)")
	_ = fs.Parse(os.Args[2:])

	if *bookID == "" {
		fmt.Println("Usage: lector export -book <id> [-out file.json]")
		os.Exit(1)
	}
	data, err := apiGetRaw(*serverURL, "/api/v1/books/"+*bookID+"/annotations/export")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	if *outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported annotations to %s.\n", *outPath)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	bookID := fs.String("book", "", "book ID (required)")
	_ = fs.Parse(os.Args[2:])

	if *bookID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: lector import -book <id> <file.json>")
		os.Exit(1)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}
	var out struct {
		Imported int `json:"imported"`
	}
	if err := apiPostRaw(*serverURL, "/api/v1/books/"+*bookID+"/annotations/import", data, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d annotations.\n", out.Imported)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status struct {
		Books  int `json:"books"`
		Config struct {
			LibraryPath   string `json:"library_path"`
			DatabasePath  string `json:"database_path"`
			ContextRadius int    `json:"context_radius"`
			WordsPerPage  int    `json:"words_per_page"`
		} `json:"config"`
	}
	if err := apiGet(*serverURL, "/api/v1/status", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		printJSON(status)
		return
	}
	fmt.Printf("books:           %d\n", status.Books)
	fmt.Printf("library_path:    %s\n", status.Config.LibraryPath)
	fmt.Printf("database_path:   %s\n", status.Config.DatabasePath)
	fmt.Printf("context_radius:  %d\n", status.Config.ContextRadius)
	fmt.Printf("words_per_page:  %d\n", status.Config.WordsPerPage)
}

func apiGet(serverURL, path string, out interface{}) error {
	data, err := apiGetRaw(serverURL, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiGetRaw(serverURL, path string) ([]byte, error) {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func apiPost(serverURL, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return apiPostRaw(serverURL, path, body, out)
}

func apiPostRaw(serverURL, path string, body []byte, out interface{}) error {
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func apiDelete(serverURL, path string) error {
	req, err := http.NewRequest(http.MethodDelete, serverURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Lector - bilingual e-book reading companion

Usage:
  lector server [-config path] [-debug]       Start the HTTP server
  lector books [-server url]                  List books in the library
  lector search -book <id> [flags] <query>    Search inside a book
  lector notes -book <id> list|add|remove     Manage notes
  lector bookmarks -book <id> list|add|remove Manage bookmarks
  lector export -book <id> [-out file]        Export annotations as JSON
  lector import -book <id> <file>             Import annotations from JSON
  lector status [-server url]                 Show server status
  lector version                              Print version`)
}
