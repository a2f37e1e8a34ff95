/*------------------------------------------------------------------
 *
 * Package:	sidecar
 *
 * Purpose:	Parse, validate, and write the YAML-frontmatter Markdown
 *		sidecar files that accompany audio files. Used by the
 *		Exporter (clone + annotate with provenance), and usable by
 *		an external lint tool against the same schema. The Browser
 *		does not parse sidecars: it keeps their raw text for search,
 *		so an invalid sidecar's text is still searched.
 *
 * Description:	A sidecar is a "---\n ... \n---\n" YAML fence followed by
 *		a free-form Markdown body. This mirrors how the teacher's
 *		deviceid.go loads a YAML table (gopkg.in/yaml.v3) into
 *		typed Go structs, generalized to frontmatter-in-Markdown
 *		and schema validation instead of a flat vendor table.
 *
 *------------------------------------------------------------------*/
package sidecar

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zim-audio/zim/internal/zimerr"
)

const fence = "---"

// ArtPurpose enumerates the recognized `art[].purpose` values.
type ArtPurpose string

const (
	ArtInspiration ArtPurpose = "inspiration"
	ArtCoverArt    ArtPurpose = "cover_art"
	ArtOther       ArtPurpose = "other"
)

// Art describes one `art` entry.
type Art struct {
	Path        string     `yaml:"path"`
	Description string     `yaml:"description,omitempty"`
	Purpose     ArtPurpose `yaml:"purpose,omitempty"`
}

// Duration holds either a known number of seconds or the literal
// "unknown" that spec §6 allows in place of a number. It implements
// yaml.Marshaler/Unmarshaler so callers work with a plain *float64
// (nil means unknown) instead of juggling a raw node.
type Duration struct {
	Seconds *float64
}

func (d Duration) MarshalYAML() (any, error) {
	if d.Seconds == nil {
		return "unknown", nil
	}
	return *d.Seconds, nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "unknown" {
		d.Seconds = nil
		return nil
	}
	var f float64
	if err := node.Decode(&f); err != nil {
		return err
	}
	d.Seconds = &f
	return nil
}

// Frontmatter is the typed view of the recognized top-level keys from
// spec §6.
type Frontmatter struct {
	File        string   `yaml:"file"`
	Path        string   `yaml:"path"`
	Title       string   `yaml:"title,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Duration    Duration `yaml:"duration"`
	SampleRate  int      `yaml:"sample_rate,omitempty"`
	Channels    int      `yaml:"channels,omitempty"`
	BitDepth    int      `yaml:"bit_depth,omitempty"`
	FileSize    int64    `yaml:"file_size,omitempty"`
	Modified    string   `yaml:"modified,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Art         []Art    `yaml:"art,omitempty"`

	// Provenance fields (spec §4.8), present only on exported selections.
	SourceFile      string `yaml:"source_file,omitempty"`
	SourceTimeStart string `yaml:"source_time_start,omitempty"`
	SourceTimeEnd   string `yaml:"source_time_end,omitempty"`
	SourceDuration  string `yaml:"source_duration,omitempty"`
	ExtractedAt     string `yaml:"extracted_at,omitempty"`
	ExtractionType  string `yaml:"extraction_type,omitempty"`
}

// Document is a parsed sidecar: validated frontmatter plus the raw
// free-form body that followed the closing fence.
type Document struct {
	Frontmatter Frontmatter
	Body        string

	// raw holds the unmarshaled top-level map, used to detect unknown
	// keys during Validate without losing any value's original shape.
	raw map[string]any
}

var recognizedKeys = map[string]bool{
	"file": true, "path": true, "title": true, "description": true,
	"duration": true, "sample_rate": true, "channels": true,
	"bit_depth": true, "file_size": true, "modified": true,
	"tags": true, "art": true,
	"source_file": true, "source_time_start": true, "source_time_end": true,
	"source_duration": true, "extracted_at": true, "extraction_type": true,
}

// Parse splits raw sidecar content into frontmatter and body, unmarshals
// the frontmatter, and validates it against the recognized-key schema
// (spec §6). On any failure it returns a *zimerr.SidecarParseError.
func Parse(path string, content string) (*Document, error) {
	fm, body, err := splitFence(content)
	if err != nil {
		return nil, zimerr.NewSidecarParseError(path, err.Error())
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(fm), &raw); err != nil {
		return nil, zimerr.NewSidecarParseError(path, "invalid YAML: "+err.Error())
	}

	var front Frontmatter
	if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
		return nil, zimerr.NewSidecarParseError(path, "invalid YAML: "+err.Error())
	}

	doc := &Document{Frontmatter: front, Body: body, raw: raw}
	if err := doc.Validate(); err != nil {
		return nil, zimerr.NewSidecarParseError(path, err.Error())
	}
	return doc, nil
}

func splitFence(content string) (frontmatter string, body string, err error) {
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, fence) {
		return "", "", fmt.Errorf("missing opening %q fence", fence)
	}
	rest := trimmed[len(fence):]
	rest = strings.TrimPrefix(rest, "\n")

	idx := strings.Index(rest, "\n"+fence)
	if idx < 0 {
		return "", "", fmt.Errorf("missing closing %q fence", fence)
	}

	frontmatter = rest[:idx]
	after := rest[idx+1+len(fence):]
	after = strings.TrimPrefix(after, "\n")
	return frontmatter, after, nil
}

// Validate checks the required/range/enum rules from spec §6: `file`
// and `path` are required, numeric fields must be non-negative,
// `channels` must be 1 or 2, and unknown top-level keys are an error.
func (d *Document) Validate() error {
	if d.Frontmatter.File == "" {
		return fmt.Errorf("missing required key \"file\"")
	}
	if d.Frontmatter.Path == "" {
		return fmt.Errorf("missing required key \"path\"")
	}
	if d.Frontmatter.SampleRate < 0 {
		return fmt.Errorf("sample_rate must be non-negative")
	}
	if d.Frontmatter.BitDepth < 0 {
		return fmt.Errorf("bit_depth must be non-negative")
	}
	if d.Frontmatter.FileSize < 0 {
		return fmt.Errorf("file_size must be non-negative")
	}
	if d.Frontmatter.Channels != 0 && d.Frontmatter.Channels != 1 && d.Frontmatter.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", d.Frontmatter.Channels)
	}
	for key := range d.raw {
		if !recognizedKeys[key] {
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return nil
}

// Render re-serializes the document back into fenced frontmatter plus
// body. Key order follows yaml.v3's struct-field marshal order, which
// is stable but not guaranteed byte-identical to the original file —
// the spec does not require byte-stable round-trips, only that the
// recognized keys survive.
func (d *Document) Render() (string, error) {
	out, err := yaml.Marshal(d.Frontmatter)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(fence)
	b.WriteString("\n")
	b.Write(out)
	b.WriteString(fence)
	b.WriteString("\n")
	if d.Body != "" {
		b.WriteString(d.Body)
	}
	return b.String(), nil
}
