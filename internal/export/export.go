/*------------------------------------------------------------------
 *
 * Purpose:	Save dialog / Exporter (C8): sample-accurate selection
 *		extraction from the *source* decoder, a 16-bit PCM WAV
 *		writer, filename suggestion, and sidecar cloning with
 *		provenance fields (spec §4.8).
 *
 * Description:	Save full and save selection always open a fresh
 *		decoder instance on the source path — independent of
 *		whatever is currently loaded in the live mixer — so export
 *		never disturbs ongoing playback (spec §5: "During save,
 *		playback continues unaffected because the exporter opens
 *		its own decoder instance").
 *
 *------------------------------------------------------------------*/
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zim-audio/zim/internal/decoder"
	"github.com/zim-audio/zim/internal/sidecar"
	"github.com/zim-audio/zim/internal/zimerr"
)

// pullChunkFrames is how many frames the exporter reads per decoder
// pull while copying a selection or transcoding a full file.
const pullChunkFrames = 4096

// Job describes one export operation (spec §3's "Export job"). The same
// Job is passed to SaveFull/SaveSelection and, when CloneSidecar is set,
// on to CloneSidecar afterward — FrameStart/FrameEnd are ignored by
// SaveFull, which always copies the whole source.
type Job struct {
	SourcePath   string
	TargetPath   string
	FrameStart   uint64
	FrameEnd     uint64
	CloneSidecar bool
}

// SaveFull copies job.SourcePath to job.TargetPath as a WAV. A source
// with a .wav/.wave extension is copied byte for byte, keeping its own
// sample format; FLAC and AIFF sources are transcoded to 16-bit PCM.
func SaveFull(job Job) error {
	sourcePath, targetPath := job.SourcePath, job.TargetPath
	if strings.EqualFold(filepath.Ext(sourcePath), ".wav") || strings.EqualFold(filepath.Ext(sourcePath), ".wave") {
		return copyFile(sourcePath, targetPath)
	}
	return transcodeFull(sourcePath, targetPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return zimerr.NewIOError(src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return zimerr.NewIOError(dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return zimerr.NewIOError(dst, err)
	}
	return nil
}

func transcodeFull(sourcePath, targetPath string) error {
	d, err := decoder.Open(sourcePath)
	if err != nil {
		return err
	}
	defer d.Close()

	return writeSelectionFromDecoder(d, 0, d.Info().TotalFrames, targetPath)
}

// SaveSelection extracts frames [job.FrameStart, job.FrameEnd) from a
// fresh decoder opened on job.SourcePath and writes them as a 16-bit PCM
// WAV to job.TargetPath, clamping bounds to the source's total frame
// count (spec §4.8).
func SaveSelection(job Job) error {
	d, err := decoder.Open(job.SourcePath)
	if err != nil {
		return err
	}
	defer d.Close()

	frameStart, frameEnd := job.FrameStart, job.FrameEnd
	total := d.Info().TotalFrames
	if frameEnd > total {
		frameEnd = total
	}
	if frameStart > frameEnd {
		frameStart = frameEnd
	}

	return writeSelectionFromDecoder(d, frameStart, frameEnd, job.TargetPath)
}

func writeSelectionFromDecoder(d decoder.Decoder, start, end uint64, targetPath string) error {
	if err := d.Seek(start); err != nil {
		return err
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return zimerr.NewIOError(targetPath, err)
	}
	defer out.Close()

	totalFrames := end - start
	if err := writeWAVHeader(out, d.Info().Channels, d.Info().SampleRate, totalFrames); err != nil {
		return zimerr.NewIOError(targetPath, err)
	}

	remaining := totalFrames
	for remaining > 0 {
		want := pullChunkFrames
		if uint64(want) > remaining {
			want = int(remaining)
		}
		frames, err := d.PullFrames(want)
		if err != nil && err != zimerr.ErrEndOfStream {
			return err
		}
		channels := d.Info().Channels
		got := uint64(len(frames) / maxInt(channels, 1))
		if err := writeFrames(out, frames); err != nil {
			return zimerr.NewIOError(targetPath, err)
		}
		remaining -= got
		if got == 0 {
			break
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SuggestSelectionFilename returns the first unused filename of the
// form "<stem>_edit.wav", "<stem>_edit_2.wav", ... in dir (spec §4.8).
func SuggestSelectionFilename(dir, sourceStem string) string {
	base := sourceStem + "_edit"
	candidate := filepath.Join(dir, base+".wav")
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	for n := 2; ; n++ {
		candidate = filepath.Join(dir, base+"_"+strconv.Itoa(n)+".wav")
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// CloneSidecar writes a sidecar at job.TargetPath+".md" carrying the
// selection's provenance fields (spec §4.8). When job.SourcePath+".md"
// exists, its frontmatter is cloned and the provenance fields
// overwritten/inserted; otherwise a minimal sidecar with just the
// provenance fields is written. Returns zimerr.ErrExportPartial on
// failure — callers must not roll back the already-written WAV.
func CloneSidecar(job Job, sampleRate int, now time.Time) error {
	sourcePath, targetPath := job.SourcePath, job.TargetPath
	frameStart, frameEnd := job.FrameStart, job.FrameEnd

	var doc *sidecar.Document

	sourceSidecarPath := sourcePath + ".md"
	if content, err := os.ReadFile(sourceSidecarPath); err == nil {
		parsed, perr := sidecar.Parse(sourceSidecarPath, string(content))
		if perr == nil {
			doc = parsed
		}
	}
	if doc == nil {
		doc = &sidecar.Document{}
	}

	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		absSource = sourcePath
	}

	startSeconds := float64(frameStart) / float64(sampleRate)
	endSeconds := float64(frameEnd) / float64(sampleRate)
	durationSeconds := endSeconds - startSeconds

	doc.Frontmatter.File = filepath.Base(targetPath)
	doc.Frontmatter.Path = targetPath
	doc.Frontmatter.Duration = sidecar.Duration{Seconds: &durationSeconds}
	doc.Frontmatter.SourceFile = absSource
	doc.Frontmatter.SourceTimeStart = formatMMSS(startSeconds)
	doc.Frontmatter.SourceTimeEnd = formatMMSS(endSeconds)
	doc.Frontmatter.SourceDuration = formatMMSS(endSeconds - startSeconds)
	doc.Frontmatter.ExtractedAt = now.UTC().Format(time.RFC3339)
	doc.Frontmatter.ExtractionType = "selection"

	rendered, err := doc.Render()
	if err != nil {
		return zimerr.ErrExportPartial
	}

	if err := os.WriteFile(targetPath+".md", []byte(rendered), 0o644); err != nil {
		return zimerr.ErrExportPartial
	}
	return nil
}

func formatMMSS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
