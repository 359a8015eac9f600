// deskmuxctl inspects the persisted workspace without launching the desktop
// app. Useful for debugging a workspace that fails to restore.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"deskmux/internal/config"
	"deskmux/internal/store"
	"deskmux/internal/workspace"
)

func main() {
	logger := log.New(os.Stderr, "[deskmuxctl] ", log.LstdFlags|log.Lmsgprefix)

	dbPath := flag.String("db", defaultDBPath(), "path to the workspace database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: deskmuxctl [-db path] <list|export>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer st.Close()

	records, err := st.LoadTabs(ctx)
	if err != nil {
		logger.Fatalf("load tabs: %v", err)
	}

	switch flag.Arg(0) {
	case "list":
		listTabs(records)
	case "export":
		exportTabs(logger, records)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func defaultDBPath() string {
	return filepath.Join(filepath.Dir(config.DefaultPath()), "deskmux.db")
}

// listTabs prints one line per tab: position, id, name, pane count.
func listTabs(records []workspace.TabRecord) {
	for i, rec := range records {
		paneCount := 0
		if tab, err := workspace.TabFromRecord(rec); err == nil {
			paneCount = len(workspace.PaneList(tab.Layout))
		}
		fmt.Printf("%2d  %s  %-24s  %d pane(s)\n", i, rec.ID, rec.Name, paneCount)
	}
}

// exportTabs writes the full tab records, layouts included, as JSON.
func exportTabs(logger *log.Logger, records []workspace.TabRecord) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		logger.Fatalf("encode tabs: %v", err)
	}
}
