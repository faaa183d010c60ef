package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"multiworld.gg/internal/logic/playthrough"
	"multiworld.gg/internal/logic/worlddef"
	"multiworld.gg/internal/persistence/runsdb"
	"multiworld.gg/internal/persistence/tracelog"
	"multiworld.gg/internal/trace"
	"multiworld.gg/internal/transport/observer"
)

func main() {
	var (
		worldPath = flag.String("world", "", "world definition yaml")
		tracePath = flag.String("trace", "", "trace log output (.jsonl or .jsonl.zst, optional)")
		perItem   = flag.Bool("per_item", false, "emit fractional per-item trace lines")
		perRound  = flag.Bool("per_round", true, "emit integer per-round trace lines")
		dbPath    = flag.String("db", "", "sqlite runs archive (optional)")
		observe   = flag.String("observe", "", "listen address for live trace websocket (optional)")
		list      = flag.Bool("list", false, "list archived runs for this world and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[playthrough] ", log.LstdFlags|log.Lmicroseconds)

	if *worldPath == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}

	def, err := worlddef.Load(*worldPath)
	if err != nil {
		logger.Fatalf("load world: %v", err)
	}
	digest, err := def.Digest()
	if err != nil {
		logger.Fatalf("digest world: %v", err)
	}

	var store *runsdb.Store
	if *dbPath != "" {
		store, err = runsdb.Open(*dbPath)
		if err != nil {
			logger.Fatalf("open runs db: %v", err)
		}
		defer store.Close()
	}

	if *list {
		if store == nil {
			fmt.Fprintln(os.Stderr, "-list requires -db")
			os.Exit(2)
		}
		runs, err := store.Runs(digest, 50)
		if err != nil {
			logger.Fatalf("list runs: %v", err)
		}
		for _, r := range runs {
			fmt.Printf("%d\t%s\t%s\tspheres=%d\t%s\n", r.ID, r.CreatedAt, r.Status, r.Spheres, r.Error)
		}
		return
	}

	w, oracle, err := worlddef.Build(def)
	if err != nil {
		logger.Fatalf("build world: %v", err)
	}

	var sinks []trace.Sink
	if *tracePath != "" {
		// A trace open failure disables tracing, it never blocks the run.
		tw, err := tracelog.Create(*tracePath)
		if err != nil {
			logger.Printf("open trace log: %v (tracing disabled)", err)
		} else {
			defer tw.Close()
			sinks = append(sinks, tw)
		}
	}

	var hub *observer.Hub
	if *observe != "" {
		hub = observer.NewHub()
		defer hub.Close()
		sinks = append(sinks, hub)
		srv := observer.NewServer(hub, logger)
		mux := http.NewServeMux()
		mux.Handle("/trace", srv.Handler())
		go func() {
			if err := http.ListenAndServe(*observe, mux); err != nil {
				logger.Printf("observer server: %v", err)
			}
		}()
		logger.Printf("observer listening on ws://%s/trace", *observe)
	}

	opts := playthrough.Options{
		PerItem:  *perItem,
		PerRound: *perRound,
		Log:      logger,
	}
	if len(sinks) > 0 {
		opts.Sink = trace.MultiSink(sinks...)
	}

	res, err := playthrough.Create(w, oracle, opts)
	if err != nil {
		if store != nil {
			if _, dberr := store.RecordFailure(digest, def.Game, err); dberr != nil {
				logger.Printf("record failure: %v", dberr)
			}
		}
		logger.Fatalf("create playthrough: %v", err)
	}

	if store != nil {
		if _, err := store.RecordSuccess(digest, def.Game, res); err != nil {
			logger.Printf("record run: %v", err)
		}
	}

	out, err := json.MarshalIndent(res.Playthrough, "", "  ")
	if err != nil {
		logger.Fatalf("marshal playthrough: %v", err)
	}
	fmt.Println(string(out))
	for _, s := range res.ExcessPrecollected {
		logger.Printf("excess starting item: %s", s)
	}
	for _, s := range res.UnreachableExcess {
		logger.Printf("unreachable excess location: %s", s)
	}
}
