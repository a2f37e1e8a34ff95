/*------------------------------------------------------------------
 *
 * Purpose:	CLI invocation parsing for the two subcommands (spec §6):
 *		`zim player [file]` and
 *		`zim play FILE1 [FILE2 [FILE3]] [--gains g1,g2,g3] [--pans p1,p2,p3]`.
 *
 * Description:	Flag parsing follows the teacher's use of
 *		github.com/spf13/pflag rather than the standard library's
 *		flag package (pflag gives GNU-style `--long-flag` parsing,
 *		which the spec's invocation examples use).
 *
 *------------------------------------------------------------------*/
package cliargs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/zim-audio/zim/internal/mixer"
)

// MaxFiles mirrors mixer.MaxTracks: at most 3 files on a `play`
// invocation.
const MaxFiles = mixer.MaxTracks

// PlayerArgs holds the parsed `zim player [file]` invocation.
type PlayerArgs struct {
	File      string // "" means start with no track loaded
	Telemetry bool
}

// PlayArgs holds the parsed `zim play FILE1 [FILE2 [FILE3]] ...`
// invocation.
type PlayArgs struct {
	Files     []string
	Gains     []float64
	Pans      []float64
	Telemetry bool
}

// ParsePlayer parses `zim player [file]`.
func ParsePlayer(args []string) (*PlayerArgs, error) {
	fs := pflag.NewFlagSet("player", pflag.ContinueOnError)
	telemetry := fs.Bool("telemetry", false, "enable file logging to /tmp/zim-player.log")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return nil, fmt.Errorf("zim player takes at most one file argument")
	}
	pa := &PlayerArgs{Telemetry: *telemetry}
	if len(rest) == 1 {
		pa.File = rest[0]
	}
	return pa, nil
}

// ParsePlay parses `zim play FILE1 [FILE2 [FILE3]] [--gains ...] [--pans ...] [--telemetry]`.
func ParsePlay(args []string) (*PlayArgs, error) {
	fs := pflag.NewFlagSet("play", pflag.ContinueOnError)
	gainsFlag := fs.String("gains", "", "comma-separated per-track gains, default 1.0")
	pansFlag := fs.String("pans", "", "comma-separated per-track pans, default 0.0")
	telemetry := fs.Bool("telemetry", false, "enable file logging to /tmp/zim-player.log")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	files := fs.Args()
	if len(files) == 0 {
		return nil, fmt.Errorf("zim play requires at least one file")
	}
	if len(files) > MaxFiles {
		return nil, fmt.Errorf("zim play supports at most %d files, got %d", MaxFiles, len(files))
	}

	gains, err := parseFloatList(*gainsFlag, len(files), mixer.MinGain, mixer.MaxGain, 1.0)
	if err != nil {
		return nil, fmt.Errorf("--gains: %w", err)
	}
	pans, err := parseFloatList(*pansFlag, len(files), mixer.MinPan, mixer.MaxPan, 0.0)
	if err != nil {
		return nil, fmt.Errorf("--pans: %w", err)
	}

	return &PlayArgs{
		Files:     files,
		Gains:     gains,
		Pans:      pans,
		Telemetry: *telemetry,
	}, nil
}

// parseFloatList parses a comma-separated list of floats, defaulting
// every unset slot to defaultVal and clamping each value into
// [lo, hi]. An empty raw string yields n copies of defaultVal. A
// non-empty raw string must supply exactly n values.
func parseFloatList(raw string, n int, lo, hi, defaultVal float64) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		out[i] = defaultVal
	}
	if raw == "" {
		return out, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		out[i] = v
	}
	return out, nil
}
