package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/lotas/setuptabs/internal/applog"
	"github.com/lotas/setuptabs/internal/coordinator"
	"github.com/lotas/setuptabs/internal/export"
	"github.com/lotas/setuptabs/internal/navwatch"
	"github.com/lotas/setuptabs/internal/popup"
	"github.com/lotas/setuptabs/internal/store"
	"github.com/lotas/setuptabs/internal/surface"
	"github.com/lotas/setuptabs/internal/tablist"
	"github.com/lotas/setuptabs/internal/titlefetch"
	"github.com/lotas/setuptabs/internal/types"
	"github.com/lotas/setuptabs/internal/urlcodec"
)

const defaultPort = 19292

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "page":
			runPage(os.Args[2:])
			return
		case "list":
			runList(os.Args[2:])
			return
		case "add":
			runAdd(os.Args[2:])
			return
		case "remove":
			runRemove(os.Args[2:])
			return
		case "move":
			runMove(os.Args[2:])
			return
		case "import":
			runImport(os.Args[2:])
			return
		case "export":
			runExport(os.Args[2:])
			return
		case "empty":
			runEmpty(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "popup":
			runPopup(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	// Default: the popup editor.
	runPopup(os.Args[1:])
}

func printHelp() {
	fmt.Print(`setuptabs — Salesforce Setup tab favourites

Usage:
  setuptabs [popup]                           Open the tab list editor (default)
    --org <name>                              Stamp new tabs with this Org

  setuptabs serve                             Run the coordinator
    --port <n>                                WebSocket port (default: 19292)
    --export-dir <path>                       Where the export verb writes (default: .)

  setuptabs page                              Run a page surface against a coordinator
    --port <n>                                Coordinator port (default: 19292)

  setuptabs list                              Print the saved tabs
  setuptabs add <url> [title]                 Save a tab
    --org <name>                              Scope the tab to an Org
    --fetch-title                             Derive the title from the page when omitted
  setuptabs remove <url> [title]              Remove a saved tab
  setuptabs move <url> <first|left|right|last>  Reorder a saved tab
  setuptabs import [file]                     Import a tab list (default: again-why-salesforce.json)
    --overwrite                               Replace instead of append
    --drop-other-org                          Drop Org-scoped tabs of other Orgs
  setuptabs export                            Write the tab list to a file
    --out <dir>                               Output directory (default: .)
    --backup                                  Also write the lz4 backup
  setuptabs empty                             Remove all saved tabs
  setuptabs history                           List saved revisions
  setuptabs history restore <id>              Restore an old revision

Environment:
  SETUPTABS_PORT   Coordinator port (overridden by --port)
  SETUPTABS_DB     Database path (default: ~/.local/share/setuptabs/setuptabs.db)
`)
}

func resolvePort(flagPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	if env := os.Getenv("SETUPTABS_PORT"); env != "" {
		if p, err := strconv.Atoi(env); err == nil {
			return p
		}
	}
	return defaultPort
}

func openDB() (*sql.DB, error) {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return store.OpenDB(dbPath)
}

func mustOpen() *sql.DB {
	db, err := openDB()
	if err != nil {
		fatal("open database: %v", err)
	}
	return db
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 0, "WebSocket port")
	exportDir := fs.String("export-dir", ".", "Directory the export verb writes to")
	fs.Parse(args)

	dbPath, err := store.DefaultDBPath()
	if err != nil {
		fatal("%v", err)
	}
	if err := applog.Init(filepath.Dir(dbPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: log init failed: %v\n", err)
	}
	defer applog.Close()

	db, err := store.OpenDB(dbPath)
	if err != nil {
		fatal("open database: %v", err)
	}
	defer db.Close()

	coord := coordinator.New(db)
	coord.Exporter = func(tabs types.TabList) error {
		_, err := export.WriteFile(*exportDir, tabs)
		return err
	}
	srv := coordinator.NewServer(resolvePort(*port), coord)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Coordinator listening on 127.0.0.1:%d\n", srv.Port())
	if err := srv.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		fatal("%v", err)
	}
}

func runPopup(args []string) {
	fs := flag.NewFlagSet("popup", flag.ExitOnError)
	org := fs.String("org", "", "Stamp new tabs with this Org")
	fs.Parse(args)

	db := mustOpen()
	defer db.Close()

	backend := &localBackend{coord: coordinator.New(db)}
	backend.coord.Exporter = func(tabs types.TabList) error {
		_, err := export.WriteFile(".", tabs)
		return err
	}

	if err := popup.Run(context.Background(), backend, *org); err != nil {
		fatal("%v", err)
	}
}

// runPage drives a page surface from stdin: each line is a navigated URL,
// the strip renders to the terminal. It exercises the full websocket path
// against a running coordinator.
func runPage(args []string) {
	fs := flag.NewFlagSet("page", flag.ExitOnError)
	port := fs.Int("port", 0, "Coordinator port")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := fmt.Sprintf("ws://127.0.0.1:%d", resolvePort(*port))
	client, err := surface.Dial(ctx, url)
	if err != nil {
		fatal("%v", err)
	}
	defer client.Close()

	page := surface.NewPage(client, &consoleRenderer{})
	notes := make(chan coordinator.Message, 16)
	client.OnNotify = func(msg coordinator.Message) { notes <- msg }

	if err := client.Register(ctx, coordinator.RolePage); err != nil {
		fatal("register: %v", err)
	}
	if err := page.Refresh(ctx); err != nil {
		fatal("%v", err)
	}

	navs := make(chan string)
	debounce := navwatch.NewDebouncer(0, func(u string) { navs <- u })
	defer debounce.Stop()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				debounce.Notify(line)
			}
		}
	}()

	fmt.Fprintln(os.Stderr, "Paste a Setup URL per line to navigate; Ctrl-C to quit.")
	for {
		select {
		case u := <-navs:
			if err := page.OnNavigate(ctx, u); err != nil {
				fmt.Fprintf(os.Stderr, "navigate: %v\n", err)
			}
		case msg := <-notes:
			if err := page.HandleNotification(ctx, msg); err != nil {
				fmt.Fprintf(os.Stderr, "notify: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func runList(args []string) {
	db := mustOpen()
	defer db.Close()

	tabs, err := coordinator.New(db).Tabs()
	if err != nil {
		fatal("%v", err)
	}
	for _, tab := range tabs {
		line := fmt.Sprintf("%s\t%s", tab.TabTitle, tab.URL)
		if tab.Org != "" {
			line += "\t[" + tab.Org + "]"
		}
		fmt.Println(line)
	}
}

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	org := fs.String("org", "", "Scope the tab to an Org")
	fetchTitle := fs.Bool("fetch-title", false, "Derive the title from the page when omitted")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fatal("usage: setuptabs add <url> [title]")
	}
	rawURL := rest[0]
	mini := urlcodec.Minify(rawURL)
	if mini == "" {
		mini = rawURL
	}

	title := ""
	if len(rest) > 1 {
		title = rest[1]
	} else if *fetchTitle {
		fetched, err := titlefetch.FetchTitle(context.Background(), rawURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: title fetch failed: %v\n", err)
		} else {
			title = fetched
		}
	}
	if title == "" {
		title = mini
	}

	orgName := *org
	if orgName == "" {
		orgName = urlcodec.ExtractOrgName(rawURL)
	}

	db := mustOpen()
	defer db.Close()
	coord := coordinator.New(db)

	tabs, err := coord.Tabs()
	if err != nil {
		fatal("%v", err)
	}
	// record pages are Org-specific, so they scope by default
	stamp := *org != "" || urlcodec.ContainsSalesforceID(mini)
	tabs = tablist.Add(tabs, types.Tab{TabTitle: title, URL: mini}, orgName, stamp)
	if err := coord.SetTabs(tabs); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Added %s (%s)\n", title, mini)
}

func runRemove(args []string) {
	if len(args) < 1 {
		fatal("usage: setuptabs remove <url> [title]")
	}
	url := urlcodec.Minify(args[0])
	if url == "" {
		url = args[0]
	}
	title := ""
	if len(args) > 1 {
		title = args[1]
	}

	db := mustOpen()
	defer db.Close()
	coord := coordinator.New(db)

	tabs, err := coord.Tabs()
	if err != nil {
		fatal("%v", err)
	}
	tabs, err = tablist.Remove(tabs, url, title)
	if err != nil {
		fatal("%v", err)
	}
	if err := coord.SetTabs(tabs); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Removed %s\n", url)
}

func runMove(args []string) {
	if len(args) < 2 {
		fatal("usage: setuptabs move <url> <first|left|right|last>")
	}
	url := urlcodec.Minify(args[0])
	if url == "" {
		url = args[0]
	}

	var before, full bool
	switch args[1] {
	case "first":
		before, full = true, true
	case "left":
		before, full = true, false
	case "right":
		before, full = false, false
	case "last":
		before, full = false, true
	default:
		fatal("unknown direction %q", args[1])
	}

	db := mustOpen()
	defer db.Close()
	coord := coordinator.New(db)

	tabs, err := coord.Tabs()
	if err != nil {
		fatal("%v", err)
	}
	tabs, err = tablist.MoveTab(tabs, url, "", before, full)
	if err != nil {
		fatal("%v", err)
	}
	if err := coord.SetTabs(tabs); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Moved %s %s\n", url, args[1])
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	overwrite := fs.Bool("overwrite", false, "Replace instead of append")
	dropOtherOrg := fs.Bool("drop-other-org", false, "Drop Org-scoped tabs of other Orgs")
	fs.Parse(args)

	path := export.DefaultPath()
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	data, err := export.ReadFile(path)
	if err != nil {
		fatal("%v", err)
	}

	db := mustOpen()
	defer db.Close()
	coord := coordinator.New(db)

	preserve := !*dropOtherOrg
	resp := coord.Handle(coordinator.Envelope{Message: coordinator.Message{
		What:             coordinator.WhatImport,
		Imported:         json.RawMessage(data),
		Overwrite:        *overwrite,
		PreserveOtherOrg: &preserve,
	}})
	if resp.Error != "" {
		fatal("%s", resp.Error)
	}
	fmt.Printf("Imported %d tabs from %s\n", len(resp.Tabs), path)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outDir := fs.String("out", ".", "Output directory")
	backup := fs.Bool("backup", false, "Also write the lz4 backup")
	fs.Parse(args)

	db := mustOpen()
	defer db.Close()

	tabs, err := coordinator.New(db).Tabs()
	if err != nil {
		fatal("%v", err)
	}
	path, err := export.WriteFile(*outDir, tabs)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Exported %d tabs to %s\n", len(tabs), path)

	if *backup {
		bpath, err := export.WriteBackup(*outDir, tabs)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Backup written to %s\n", bpath)
	}
}

func runEmpty(args []string) {
	db := mustOpen()
	defer db.Close()

	if err := coordinator.New(db).SetTabs(types.TabList{}); err != nil {
		fatal("%v", err)
	}
	fmt.Println("Removed all tabs")
}

func runHistory(args []string) {
	db := mustOpen()
	defer db.Close()
	coord := coordinator.New(db)

	if len(args) > 0 && args[0] == "restore" {
		if len(args) < 2 {
			fatal("usage: setuptabs history restore <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fatal("bad revision id %q", args[1])
		}
		tabs, err := store.GetRevision(db, id)
		if err != nil {
			fatal("%v", err)
		}
		if err := coord.SetTabs(tabs); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Restored revision %d (%d tabs)\n", id, len(tabs))
		return
	}

	revs, err := store.ListRevisions(db)
	if err != nil {
		fatal("%v", err)
	}
	if len(revs) == 0 {
		fmt.Println("No revisions yet.")
		return
	}
	for _, r := range revs {
		fmt.Printf("%d\t%s\t%d tabs\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.TabCount)
	}
}

// localBackend runs the coordinator in-process for the CLI and popup,
// going through the same dispatch the websocket path uses.
type localBackend struct {
	coord *coordinator.Coordinator
}

func (b *localBackend) Tabs(ctx context.Context) (types.TabList, bool, error) {
	resp := b.coord.Handle(coordinator.Envelope{Message: coordinator.Message{What: coordinator.WhatGet}})
	if resp.Error != "" {
		return nil, false, fmt.Errorf("%s", resp.Error)
	}
	return resp.Tabs, resp.Found, nil
}

func (b *localBackend) SetTabs(ctx context.Context, tabs types.TabList) error {
	return b.coord.SetTabs(tabs)
}

func (b *localBackend) Import(ctx context.Context, payload json.RawMessage, overwrite, preserveOtherOrg bool) (types.TabList, error) {
	resp := b.coord.Handle(coordinator.Envelope{Message: coordinator.Message{
		What:             coordinator.WhatImport,
		Imported:         payload,
		Overwrite:        overwrite,
		PreserveOtherOrg: &preserveOtherOrg,
	}})
	if resp.Error != "" {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Tabs, nil
}

func (b *localBackend) Export(ctx context.Context, tabs types.TabList) error {
	resp := b.coord.Handle(coordinator.Envelope{Message: coordinator.Message{
		What: coordinator.WhatExport,
		Tabs: tabs,
	}})
	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	return nil
}

// consoleRenderer prints the strip state for the page subcommand.
type consoleRenderer struct{}

func (consoleRenderer) RenderTabs(tabs types.TabList, activeURL string) {
	fmt.Println("--- tabs ---")
	for _, tab := range tabs {
		marker := "  "
		if activeURL != "" && strings.Contains(tab.URL, activeURL) {
			marker = "> "
		}
		line := marker + tab.TabTitle + "  " + tab.URL
		if tab.Org != "" {
			line += "  [" + tab.Org + "]"
		}
		fmt.Println(line)
	}
}

func (consoleRenderer) SetFavourite(visible, saved bool) {
	if !visible {
		return
	}
	state := "not saved"
	if saved {
		state = "saved"
	}
	fmt.Printf("[favourite: %s]\n", state)
}

func (consoleRenderer) SetTheme(theme string) {
	fmt.Printf("[theme: %s]\n", theme)
}

func (consoleRenderer) Toast(level, text string) {
	fmt.Printf("[%s] %s\n", level, text)
}
