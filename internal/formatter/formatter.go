// package formatter exports roadmaps and video notes to Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts markdown (or md), csv and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (markdown, csv, json)", shared.ErrInvalidArgument, s)
	}
}

// NotesFilename is the file name the notes editor exports to.
func NotesFilename(v models.Video) string {
	id := v.ID
	if id == "" {
		id = "video"
	}
	return fmt.Sprintf("studyflow-notes-%s.md", id)
}

// ExportNotesMarkdown returns the video's notes as a Markdown document, unchanged.
func ExportNotesMarkdown(v models.Video) []byte {
	return []byte(v.Notes)
}

// ExportRoadmapCSV writes one row per video with columns:
// Position, YouTube ID, Title, Duration, Completed, Progress, URL, Timestamps, Notes
func ExportRoadmapCSV(rm models.Roadmap) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "YouTube ID", "Title", "Duration", "Completed", "Progress", "URL", "Timestamps", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, v := range rm.Videos {
		record := []string{
			strconv.Itoa(i + 1),
			v.YouTubeID,
			v.Title,
			v.Duration,
			strconv.FormatBool(v.IsComplete()),
			strconv.FormatFloat(v.Progress, 'f', -1, 64),
			services.WatchURL(v.YouTubeID),
			strconv.Itoa(len(v.Timestamps)),
			v.Notes,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportRoadmapMarkdown renders a roadmap as a checklist with notes and timestamps.
// imageFilename, when set, is linked as the cover.
func ExportRoadmapMarkdown(rm models.Roadmap, imageFilename string) []byte {
	rm = rm.Normalize()
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", rm.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if rm.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", rm.Description)
	}

	fmt.Fprintf(&buf, "**Progress**: %d%% (%d of %d videos)\n", rm.TotalProgress, rm.CompletedCount(), len(rm.Videos))
	fmt.Fprintf(&buf, "**Updated**: %s\n\n", rm.UpdatedAt.Format(time.DateOnly))

	buf.WriteString("## Videos\n\n")
	for i, v := range rm.Videos {
		check := " "
		if v.IsComplete() {
			check = "x"
		}
		fmt.Fprintf(&buf, "%d. [%s] [%s](%s) [%s]", i+1, check, v.Title, services.WatchURL(v.YouTubeID), v.Duration)
		if !v.IsComplete() && v.Progress > 0 {
			fmt.Fprintf(&buf, " %.0f%%", v.Progress)
		}
		buf.WriteString("\n")

		for _, ts := range v.Timestamps {
			fmt.Fprintf(&buf, "    - %s %s\n", models.NoteMarker(ts.Time), ts.Note)
		}

		if notes := strings.TrimSpace(v.Notes); notes != "" {
			buf.WriteString("\n")
			for _, line := range strings.Split(notes, "\n") {
				fmt.Fprintf(&buf, "    > %s\n", line)
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// ExportRoadmapJSON renders the roadmap in its stored JSON shape.
func ExportRoadmapJSON(rm models.Roadmap) ([]byte, error) {
	data, err := json.MarshalIndent(rm.Normalize(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roadmap: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders rm in format.
func Export(rm models.Roadmap, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportRoadmapCSV(rm)
	case FormatJSON:
		return ExportRoadmapJSON(rm)
	case FormatMarkdown:
		return ExportRoadmapMarkdown(rm, ""), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Extension returns the file extension for format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".md"
	}
}

// WriteExport writes data to dir/name, creating dir. Returns the written path.
func WriteExport(dir, name string, data []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: file name", shared.ErrMissingArgument)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md for the roadmap, plus one notes file per video that has notes.
//
// Directory name defaults to the roadmap ID. When the first video has a thumbnail it is downloaded as
// {dir}/cover.jpg; a failed download is logged and the export continues without a cover.
func WriteMarkdownExport(rm models.Roadmap, outputDir string, logger *log.Logger) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = rm.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(rm.Videos) > 0 && rm.Videos[0].Thumbnail != "" {
		imageData, err := DownloadImage(rm.Videos[0].Thumbnail)
		if err != nil {
			logger.Warn("failed to download cover image", "error", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				logger.Warn("failed to save cover image", "error", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdFile, err := WriteExport(outputDir, "README.md", ExportRoadmapMarkdown(rm, coverImageFilename))
	if err != nil {
		return nil, err
	}
	result.Files = append(result.Files, mdFile)

	for _, v := range rm.Videos {
		if strings.TrimSpace(v.Notes) == "" {
			continue
		}
		path, err := WriteExport(outputDir, NotesFilename(v), ExportNotesMarkdown(v))
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
	}

	return result, nil
}
