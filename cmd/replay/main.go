package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"newtonviz.dev/internal/protocol"
	"newtonviz.dev/internal/recording"
	"newtonviz.dev/internal/transport/stream"
)

func main() {
	var (
		recPath   = flag.String("recording", "", "path to .jsonl.zst recording")
		dbPath    = flag.String("db", "", "recordings sqlite db (for -list or -id)")
		recID     = flag.String("id", "", "recording id to resolve via -db")
		list      = flag.Bool("list", false, "list recordings in -db and exit")
		serveAddr = flag.String("serve", "", "re-serve the recording on this address")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags)

	if *list {
		if *dbPath == "" {
			fmt.Fprintln(os.Stderr, "missing -db")
			os.Exit(2)
		}
		listRecordings(*dbPath, logger)
		return
	}

	path := *recPath
	appID := "newton-viewer"
	if path == "" && *recID != "" {
		if *dbPath == "" {
			fmt.Fprintln(os.Stderr, "missing -db")
			os.Exit(2)
		}
		idx, err := recording.OpenIndex(*dbPath)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		meta, err := idx.Get(*recID)
		_ = idx.Close()
		if err != nil {
			logger.Fatalf("recording %s: %v", *recID, err)
		}
		path = meta.Path
		appID = meta.AppID
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -recording (or -db with -id)")
		os.Exit(2)
	}

	entries, err := recording.ReadAll(path)
	if err != nil {
		logger.Fatalf("read recording: %v", err)
	}

	printSummary(path, entries)

	if *serveAddr == "" {
		return
	}

	// Re-serve: publish the whole recording, then keep the endpoint up so
	// viewers can attach and get it replayed as history.
	if bp := firstBlueprint(entries); bp != nil {
		appID = bp.AppID
	}
	s := stream.NewServer(appID, logger)
	uri, err := s.Listen(*serveAddr)
	if err != nil {
		logger.Fatalf("serve: %v", err)
	}
	defer s.Close()

	for _, e := range entries {
		switch {
		case e.Record != nil:
			s.Publish(e.Record.Record)
		case e.Blueprint != nil:
			s.SendBlueprint(e.Blueprint.Blueprint)
		}
	}
	logger.Printf("re-serving %d messages at %s", len(entries), uri)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}

func listRecordings(dbPath string, logger *log.Logger) {
	idx, err := recording.OpenIndex(dbPath)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	metas, err := idx.List()
	if err != nil {
		logger.Fatalf("list: %v", err)
	}
	for _, m := range metas {
		end := "open"
		if !m.EndedAt.IsZero() {
			end = m.EndedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  app=%s  records=%d  started=%s  ended=%s  %s\n",
			m.ID, m.AppID, m.Records, m.StartedAt.Format("2006-01-02 15:04:05"), end, m.Path)
	}
}

func printSummary(path string, entries []recording.Entry) {
	kinds := map[string]int{}
	blueprints := 0
	var minTime, maxTime float64
	haveTime := false
	for _, e := range entries {
		switch {
		case e.Record != nil:
			kinds[e.Record.Record.Kind]++
			if tp := e.Record.Record.Time; tp != nil {
				if !haveTime || tp.Seconds < minTime {
					minTime = tp.Seconds
				}
				if !haveTime || tp.Seconds > maxTime {
					maxTime = tp.Seconds
				}
				haveTime = true
			}
		case e.Blueprint != nil:
			blueprints++
		}
	}

	fmt.Printf("recording %s: %d messages\n", path, len(entries))
	for _, k := range []string{protocol.RecordMesh, protocol.RecordInstances, protocol.RecordSetTime, protocol.RecordClear} {
		if kinds[k] > 0 {
			fmt.Printf("  %-10s %d\n", k, kinds[k])
		}
	}
	if blueprints > 0 {
		fmt.Printf("  %-10s %d\n", "BLUEPRINT", blueprints)
	}
	if haveTime {
		fmt.Printf("  timeline   %.3fs .. %.3fs\n", minTime, maxTime)
	}
}

func firstBlueprint(entries []recording.Entry) *protocol.Blueprint {
	for _, e := range entries {
		if e.Blueprint != nil {
			return &e.Blueprint.Blueprint
		}
	}
	return nil
}
