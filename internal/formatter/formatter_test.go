package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	tu "github.com/desertthunder/studyflow/internal/testing"
)

func testRoadmap() models.Roadmap {
	rm := models.NewRoadmap("Go Concurrency", "Channels and goroutines")
	rm.UpdatedAt = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	first := models.NewVideo("dQw4w9WgXcQ", "Intro")
	first.Duration = "12:34"
	first.Completed = true
	first.Notes = "# Intro\n[[1:05]] goroutines are cheap"
	first.Timestamps = []models.Timestamp{{Time: 65, Note: "goroutines"}}

	second := models.NewVideo("9bZkp7q19f0", "Channels, \"buffered\"")
	second.Progress = 40

	rm.Videos = []models.Video{first, second}
	return rm.Normalize()
}

func TestExporters(t *testing.T) {
	t.Run("ExportNotesMarkdown", func(t *testing.T) {
		v := testRoadmap().Videos[0]

		if got := string(ExportNotesMarkdown(v)); got != v.Notes {
			t.Errorf("expected notes verbatim, got %q", got)
		}
		if got := NotesFilename(v); got != "studyflow-notes-"+v.ID+".md" {
			t.Errorf("unexpected filename %s", got)
		}
		if got := NotesFilename(models.Video{}); got != "studyflow-notes-video.md" {
			t.Errorf("unexpected fallback filename %s", got)
		}
	})

	t.Run("ExportRoadmapCSV", func(t *testing.T) {
		data, err := ExportRoadmapCSV(testRoadmap())
		if err != nil {
			t.Fatalf("ExportRoadmapCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Position,YouTube ID,Title,Duration,Completed,Progress,URL,Timestamps,Notes" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[1][4] != "true" || records[2][4] != "false" {
			t.Errorf("unexpected completion columns %q %q", records[1][4], records[2][4])
		}
		if records[2][2] != `Channels, "buffered"` {
			t.Errorf("title not round tripped: %q", records[2][2])
		}
		if records[1][6] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
			t.Errorf("unexpected URL %q", records[1][6])
		}
	})

	t.Run("ExportRoadmapMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			output := string(ExportRoadmapMarkdown(testRoadmap(), ""))

			for _, want := range []string{
				"# Go Concurrency",
				"Channels and goroutines",
				"**Progress**: 50% (1 of 2 videos)",
				"**Updated**: 2024-04-02",
				"1. [x] [Intro](https://www.youtube.com/watch?v=dQw4w9WgXcQ) [12:34]",
				"2. [ ] [Channels, \"buffered\"](https://www.youtube.com/watch?v=9bZkp7q19f0) [0:00] 40%",
				"    - [[1:05]] goroutines",
				"    > # Intro",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("markdown missing %q\n%s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("unexpected cover image")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			output := string(ExportRoadmapMarkdown(testRoadmap(), "cover.jpg"))
			if !strings.Contains(output, "![Cover](cover.jpg)") {
				t.Error("missing cover image link")
			}
		})
	})

	t.Run("ExportRoadmapJSON", func(t *testing.T) {
		rm := testRoadmap()
		data, err := ExportRoadmapJSON(rm)
		if err != nil {
			t.Fatalf("ExportRoadmapJSON failed: %v", err)
		}

		var decoded models.Roadmap
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.ID != rm.ID || len(decoded.Videos) != 2 || decoded.TotalProgress != 50 {
			t.Errorf("unexpected roadmap %+v", decoded)
		}
	})

	t.Run("Export", func(t *testing.T) {
		for _, f := range []Format{FormatMarkdown, FormatCSV, FormatJSON} {
			data, err := Export(testRoadmap(), f)
			if err != nil {
				t.Errorf("Export(%s) failed: %v", f, err)
			}
			if len(data) == 0 {
				t.Errorf("Export(%s) returned nothing", f)
			}
		}
		if _, err := Export(testRoadmap(), "yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
		err  bool
	}{
		{"md", FormatMarkdown, ".md", false},
		{"Markdown", FormatMarkdown, ".md", false},
		{"", FormatMarkdown, ".md", false},
		{"csv", FormatCSV, ".csv", false},
		{" JSON ", FormatJSON, ".json", false},
		{"txt", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || got.Extension() != tt.ext {
				t.Errorf("expected %s (%s), got %s (%s)", tt.want, tt.ext, got, got.Extension())
			}
		})
	}
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer srv.Close()

		data, err := DownloadImage(srv.URL)
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "jpeg-bytes" {
			t.Errorf("unexpected data %q", data)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		if _, err := DownloadImage(srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")

		path, err := WriteExport(dir, "../escape.md", []byte("hello"))
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != filepath.Join(dir, "escape.md") {
			t.Errorf("expected file inside dir, got %s", path)
		}
		if tu.MustReadFile(t, path) != "hello" {
			t.Error("unexpected file content")
		}

		if _, err := WriteExport(dir, "", nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer srv.Close()

		rm := testRoadmap()
		rm.Videos[0].Thumbnail = srv.URL + "/thumb.jpg"
		dir := filepath.Join(t.TempDir(), "export")

		result, err := WriteMarkdownExport(rm, dir, shared.NewLogger(io.Discard))
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		tu.AssertDirExists(t, result.Directory)
		tu.AssertFileExists(t, filepath.Join(dir, "README.md"))
		tu.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))
		tu.AssertFileExists(t, filepath.Join(dir, NotesFilename(rm.Videos[0])))

		if len(result.Files) != 3 {
			t.Errorf("expected cover, README and one notes file, got %v", result.Files)
		}
		if !strings.Contains(tu.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
			t.Error("README should link the cover")
		}
	})

	t.Run("WriteMarkdownExport without cover", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		rm := testRoadmap()
		rm.Videos[0].Thumbnail = srv.URL
		dir := t.TempDir()

		result, err := WriteMarkdownExport(rm, dir, shared.NewLogger(io.Discard))
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if result.CoverImage != "" {
			t.Errorf("expected no cover, got %s", result.CoverImage)
		}
	})
}
