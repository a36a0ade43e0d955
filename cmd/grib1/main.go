// Command grib1 searches GRIB edition-1 files for fields by parameter and
// level, then decodes them or extracts the raw messages.
//
// Usage:
//
//	grib1 -search "33:700,34:700" era.grib
//	grib1 -search "11:850" -point 52.52,13.41 era.grib
//	grib1 -search "33:700" -extract wind.grib era.grib
//	grib1 -search "33:700" -url https://archive.example.com era/2020/era.grib
//	grib1 -search "33:700" -json era.grib
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geal-ai/grib1"
	"github.com/rs/zerolog"
)

// jsonMatch is a single match in JSON output.
type jsonMatch struct {
	Offset    int64    `json:"offset"`
	Parameter uint8    `json:"parameter"`
	LevelType uint8    `json:"level_type"`
	Level     uint16   `json:"level"`
	RefTime   string   `json:"ref_time"`
	Ni        int      `json:"ni,omitempty"`
	Nj        int      `json:"nj,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func main() {
	searchStr := flag.String("search", "", `comma-separated param:level pairs, e.g. "33:700,34:700"`)
	extractPath := flag.String("extract", "", "write matching messages to this file instead of decoding")
	pointStr := flag.String("point", "", `print the value nearest "lat,lon" for each match`)
	asJSON := flag.Bool("json", false, "output matches as JSON")
	archiveURL := flag.String("url", "", "fetch the file from this archive base URL instead of local disk")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	if flag.NArg() != 1 || *searchStr == "" {
		fmt.Fprintln(os.Stderr, "error: -search and exactly one input file are required")
		usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	criteria, err := parseCriteria(*searchStr)
	if err != nil {
		log.Fatal().Err(err).Str("search", *searchStr).Msg("invalid -search")
	}

	var havePoint bool
	var lat, lon float64
	if *pointStr != "" {
		lat, lon, err = parsePoint(*pointStr)
		if err != nil {
			log.Fatal().Err(err).Str("point", *pointStr).Msg("invalid -point")
		}
		havePoint = true
	}

	mode := grib1.Decode
	if *extractPath != "" {
		mode = grib1.ExtractRaw
	}

	results, stats, err := run(context.Background(), log, input, *archiveURL, criteria, mode)
	if err != nil {
		// Results collected before the failure are still reported below.
		log.Error().Err(err).Msg("search terminated early")
	}
	log.Debug().
		Int("messages", stats.Messages).
		Int("skipped", stats.Skipped).
		Int("resyncs", stats.Resyncs).
		Int("matches", len(results)).
		Msg("scan complete")

	if *extractPath != "" {
		if err := writeExtract(*extractPath, results); err != nil {
			log.Fatal().Err(err).Msg("writing extract")
		}
		log.Info().Str("path", *extractPath).Int("matches", len(results)).Msg("extracted")
		return
	}

	if *asJSON {
		emitJSON(log, results, havePoint, lat, lon)
		return
	}
	printResults(results, havePoint, lat, lon)
}

// run opens the input (local file or archive URL) and executes the search.
func run(ctx context.Context, log zerolog.Logger, input, archiveURL string, criteria []grib1.Criterion, mode grib1.Mode) ([]grib1.Result, grib1.Stats, error) {
	if archiveURL != "" {
		log.Debug().Str("base", archiveURL).Str("path", input).Msg("fetching from archive")
		client := grib1.NewArchiveClient(archiveURL)
		results, err := client.Search(ctx, input, criteria, mode)
		return results, grib1.Stats{}, err
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, grib1.Stats{}, err
	}
	defer f.Close()
	rd := grib1.NewReader(f)
	results, err := rd.Search(criteria, mode)
	return results, rd.Stats(), err
}

// parseCriteria parses "param:level[,param:level...]".
func parseCriteria(s string) ([]grib1.Criterion, error) {
	var out []grib1.Criterion
	for _, part := range strings.Split(s, ",") {
		pl := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(pl) != 2 {
			return nil, fmt.Errorf("%q is not param:level", part)
		}
		param, err := strconv.ParseUint(pl[0], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pl[0], err)
		}
		level, err := strconv.ParseUint(pl[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("level %q: %w", pl[1], err)
		}
		out = append(out, grib1.Criterion{Parameter: uint8(param), Level: uint16(level)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no criteria in %q", s)
	}
	return out, nil
}

// parsePoint parses "lat,lon".
func parsePoint(s string) (lat, lon float64, err error) {
	ll := strings.SplitN(s, ",", 2)
	if len(ll) != 2 {
		return 0, 0, fmt.Errorf("%q is not lat,lon", s)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(ll[0]), 64); err != nil {
		return 0, 0, err
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(ll[1]), 64); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// writeExtract concatenates the raw matches into one GRIB1 file.
func writeExtract(path string, results []grib1.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	last := int64(-1)
	for _, r := range results {
		if r.Offset == last {
			continue
		}
		if _, err := f.Write(r.Raw); err != nil {
			f.Close()
			return err
		}
		last = r.Offset
	}
	return f.Close()
}

func emitJSON(log zerolog.Logger, results []grib1.Result, havePoint bool, lat, lon float64) {
	matches := make([]jsonMatch, 0, len(results))
	for _, r := range results {
		m := jsonMatch{
			Offset:    r.Offset,
			Parameter: r.PDS.Parameter,
			LevelType: r.PDS.LevelType,
			Level:     r.PDS.Level,
			RefTime:   r.PDS.RefTime().Format(time.RFC3339),
		}
		switch {
		case r.Err != nil:
			m.Error = r.Err.Error()
		case r.Field != nil:
			m.Ni = r.Field.Grid.Ni
			m.Nj = r.Field.Grid.Nj
			if havePoint {
				v := r.Field.Lookup(lat, lon)
				if math.IsNaN(v) {
					m.Error = "point outside grid"
				} else {
					m.Value = &v
				}
			}
		}
		matches = append(matches, m)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(matches); err != nil {
		log.Fatal().Err(err).Msg("encoding JSON")
	}
}

func printResults(results []grib1.Result, havePoint bool, lat, lon float64) {
	if len(results) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, r := range results {
		fmt.Printf("offset %-10d param %-3d level %-5d (type %d)  %s",
			r.Offset, r.PDS.Parameter, r.PDS.Level, r.PDS.LevelType,
			r.PDS.RefTime().Format("2006-01-02 15:04Z"))
		switch {
		case r.Err != nil:
			fmt.Printf("  error: %v", r.Err)
		case r.Field != nil:
			fmt.Printf("  grid %dx%d", r.Field.Grid.Ni, r.Field.Grid.Nj)
			if havePoint {
				v := r.Field.Lookup(lat, lon)
				if math.IsNaN(v) {
					fmt.Printf("  (%.3f, %.3f) outside grid", lat, lon)
				} else {
					fmt.Printf("  value(%.3f, %.3f) = %g", lat, lon, v)
				}
			}
		}
		fmt.Println()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `grib1 — search GRIB edition-1 files and decode or extract fields

Usage:
  grib1 -search "param:level[,param:level...]" [flags] <file>

Flags:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Examples:
  grib1 -search "33:700,34:700" era.grib
  grib1 -search "11:850" -point 52.52,13.41 era.grib
  grib1 -search "33:700" -extract wind.grib era.grib
  grib1 -search "33:700" -url https://archive.example.com era/2020/era.grib`)
}
