// Command replay verifies a recorded trace log: every line must
// validate against the state_update schema, and re-running the engine
// against the same world definition must reproduce the log byte for
// byte.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"multiworld.gg/internal/logic/playthrough"
	"multiworld.gg/internal/logic/worlddef"
	"multiworld.gg/internal/persistence/tracelog"
	"multiworld.gg/internal/trace"
)

type lineCapture struct {
	lines [][]byte
}

func (c *lineCapture) WriteStateUpdate(su trace.StateUpdate) error {
	b, err := json.Marshal(su)
	if err != nil {
		return err
	}
	c.lines = append(c.lines, b)
	return nil
}

func main() {
	var (
		worldPath  = flag.String("world", "", "world definition yaml")
		tracePath  = flag.String("trace", "", "recorded trace log (.jsonl or .jsonl.zst)")
		schemaDir  = flag.String("schemas", "./schemas", "schema directory")
		perItem    = flag.Bool("per_item", false, "recorded run used per-item lines")
		perRound   = flag.Bool("per_round", true, "recorded run used per-round lines")
		skipSchema = flag.Bool("skip_schema", false, "skip schema validation")
	)
	flag.Parse()

	if *worldPath == "" || *tracePath == "" {
		fmt.Fprintln(os.Stderr, "missing -world or -trace")
		os.Exit(2)
	}

	recorded, err := tracelog.ReadLines(*tracePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read trace:", err)
		os.Exit(1)
	}

	if !*skipSchema {
		schema, err := jsonschema.Compile(filepath.Join(*schemaDir, "state_update.schema.json"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "compile schema:", err)
			os.Exit(1)
		}
		for i, line := range recorded {
			var v any
			if err := json.Unmarshal(line, &v); err != nil {
				fmt.Fprintf(os.Stderr, "line %d: bad json: %v\n", i+1, err)
				os.Exit(1)
			}
			if err := schema.Validate(v); err != nil {
				fmt.Fprintf(os.Stderr, "line %d: schema: %v\n", i+1, err)
				os.Exit(1)
			}
		}
	}

	def, err := worlddef.Load(*worldPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load world:", err)
		os.Exit(1)
	}
	w, oracle, err := worlddef.Build(def)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build world:", err)
		os.Exit(1)
	}

	rerun := &lineCapture{}
	_, err = playthrough.Create(w, oracle, playthrough.Options{
		Sink:     rerun,
		PerItem:  *perItem,
		PerRound: *perRound,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "create playthrough:", err)
		os.Exit(1)
	}

	if len(rerun.lines) != len(recorded) {
		fmt.Fprintf(os.Stderr, "line count mismatch: recorded=%d rerun=%d\n", len(recorded), len(rerun.lines))
		os.Exit(1)
	}
	for i := range recorded {
		if !bytes.Equal(recorded[i], rerun.lines[i]) {
			fmt.Fprintf(os.Stderr, "divergence at line %d:\n recorded: %s\n rerun:    %s\n",
				i+1, recorded[i], rerun.lines[i])
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: %d lines identical\n", len(recorded))
}
