// package formatter renders transfer results and library snapshots as plain text, Markdown, CSV, or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/dustin/go-humanize"
)

// Format is an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "plain":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (text, markdown, csv, json)", shared.ErrInvalidFlag, s)
}

// FormatFromPath picks a format from a file extension, defaulting to text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	}
	return FormatText
}

// typeSummary aggregates the entries of one bulk type.
type typeSummary struct {
	kind      models.EntityType
	batches   int
	items     int
	failures  int
	lastError string
}

func summarize(result *models.TransferResult) []typeSummary {
	byType := map[models.EntityType]*typeSummary{}
	for _, t := range models.BulkTypes {
		byType[t] = &typeSummary{kind: t}
	}
	for _, e := range result.Success {
		if s, ok := byType[e.Type]; ok {
			s.batches++
			s.items += e.Count
		}
	}
	for _, e := range result.Failed {
		if s, ok := byType[e.Type]; ok {
			s.failures++
			s.lastError = e.Error
		}
	}

	out := []typeSummary{}
	for _, t := range models.BulkTypes {
		if s := byType[t]; s.batches > 0 || s.failures > 0 {
			out = append(out, *s)
		}
	}
	return out
}

func playlistLine(e models.SuccessEntry) string {
	switch {
	case e.Skipped:
		return fmt.Sprintf("%s (already transferred, skipped)", e.Name)
	case e.FailedBatches > 0:
		return fmt.Sprintf("%s (%s tracks, %d track batches failed)", e.Name, humanize.Comma(int64(e.Tracks)), e.FailedBatches)
	}
	return fmt.Sprintf("%s (%s tracks)", e.Name, humanize.Comma(int64(e.Tracks)))
}

func failedLine(e models.FailedEntry) string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s", e.ID, e.Error)
	}
	return e.Error
}

// ResultToText renders a transfer result for the terminal.
func ResultToText(result *models.TransferResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Transfer complete: %d succeeded, %d failed\n", len(result.Success), len(result.Failed))

	for _, s := range summarize(result) {
		fmt.Fprintf(&buf, "\n%s: %s saved in %s", s.kind, humanize.Comma(int64(s.items)), plural(s.batches, "batch", "batches"))
		if s.failures > 0 {
			fmt.Fprintf(&buf, ", %s failed (%s)", plural(s.failures, "batch", "batches"), s.lastError)
		}
		buf.WriteString("\n")
	}

	var playlists, failedPlaylists []string
	for _, e := range result.Success {
		if e.Type == models.EntityPlaylist {
			playlists = append(playlists, playlistLine(e))
		}
	}
	for _, e := range result.Failed {
		if e.Type == models.EntityPlaylist {
			failedPlaylists = append(failedPlaylists, failedLine(e))
		}
	}

	if len(playlists) > 0 {
		fmt.Fprintf(&buf, "\nPlaylists copied: %d\n", len(playlists))
		for i, line := range playlists {
			fmt.Fprintf(&buf, "  %d. %s\n", i+1, line)
		}
	}
	if len(failedPlaylists) > 0 {
		fmt.Fprintf(&buf, "\nPlaylists failed: %d\n", len(failedPlaylists))
		for _, line := range failedPlaylists {
			fmt.Fprintf(&buf, "  ✗ %s\n", line)
		}
	}

	return buf.Bytes()
}

// ResultToMarkdown renders a transfer result as a Markdown report.
func ResultToMarkdown(result *models.TransferResult, title string) []byte {
	var buf bytes.Buffer

	if title == "" {
		title = "Transfer Report"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Succeeded**: %d\n", len(result.Success))
	fmt.Fprintf(&buf, "**Failed**: %d\n\n", len(result.Failed))

	if summary := summarize(result); len(summary) > 0 {
		buf.WriteString("## Library\n\n")
		buf.WriteString("| Type | Items | Batches | Failed batches |\n")
		buf.WriteString("| --- | ---: | ---: | ---: |\n")
		for _, s := range summary {
			fmt.Fprintf(&buf, "| %s | %d | %d | %d |\n", s.kind, s.items, s.batches, s.failures)
		}
		buf.WriteString("\n")
	}

	var wrotePlaylists bool
	for _, e := range result.Success {
		if e.Type != models.EntityPlaylist {
			continue
		}
		if !wrotePlaylists {
			buf.WriteString("## Playlists\n\n")
			wrotePlaylists = true
		}
		fmt.Fprintf(&buf, "- %s\n", mdEscape(playlistLine(e)))
	}
	if wrotePlaylists {
		buf.WriteString("\n")
	}

	if len(result.Failed) > 0 {
		buf.WriteString("## Failures\n\n")
		for _, e := range result.Failed {
			fmt.Fprintf(&buf, "- **%s** %s\n", e.Type, mdEscape(failedLine(e)))
		}
	}

	return buf.Bytes()
}

// ResultToCSV writes one row per result entry with columns: Status, Type, ID, Name, Count, Skipped, FailedBatches, Error
func ResultToCSV(result *models.TransferResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Status", "Type", "ID", "Name", "Count", "Skipped", "FailedBatches", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range result.Success {
		record := []string{
			"success",
			string(e.Type),
			"",
			e.Name,
			strconv.Itoa(e.Items()),
			strconv.FormatBool(e.Skipped),
			strconv.Itoa(e.FailedBatches),
			"",
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	for _, e := range result.Failed {
		record := []string{"failed", string(e.Type), e.ID, "", "0", "false", "0", e.Error}
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

// RenderResult encodes result in format.
func RenderResult(result *models.TransferResult, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return ResultToMarkdown(result, ""), nil
	case FormatCSV:
		return ResultToCSV(result)
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return append(data, '\n'), nil
	}
	return ResultToText(result), nil
}

// WriteReport writes result to path in the format its extension implies.
func WriteReport(result *models.TransferResult, path string) (Format, error) {
	format := FormatFromPath(path)
	data, err := RenderResult(result, format)
	if err != nil {
		return format, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return format, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return format, fmt.Errorf("failed to write report: %w", err)
	}
	return format, nil
}

// SnapshotToText summarizes a library with per-type counts and the playlist list.
func SnapshotToText(snapshot *models.LibrarySnapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString("Library\n")
	for _, row := range []struct {
		label string
		kind  models.EntityType
	}{
		{"Playlists", models.EntityPlaylist},
		{"Liked songs", models.EntityTracks},
		{"Saved albums", models.EntityAlbums},
		{"Followed artists", models.EntityArtists},
		{"Saved podcasts", models.EntityPodcasts},
	} {
		fmt.Fprintf(&buf, "  %-17s %s\n", row.label+":", humanize.Comma(int64(snapshot.Count(row.kind))))
	}

	if len(snapshot.Playlists) > 0 {
		buf.WriteString("\nPlaylists\n")
		for i, p := range snapshot.Playlists {
			fmt.Fprintf(&buf, "  %d. %s (%s tracks, %s)\n", i+1, p.Name, humanize.Comma(int64(p.TracksTotal)), shared.VisibilityString(p.Public))
			fmt.Fprintf(&buf, "     ID: %s", p.ID)
			if p.Owner.DisplayName != "" {
				fmt.Fprintf(&buf, "  Owner: %s", p.Owner.DisplayName)
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// SnapshotToMarkdown renders a library summary as Markdown.
func SnapshotToMarkdown(snapshot *models.LibrarySnapshot, title string) []byte {
	var buf bytes.Buffer

	if title == "" {
		title = "Library"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Playlists**: %d\n", len(snapshot.Playlists))
	fmt.Fprintf(&buf, "**Liked songs**: %d\n", len(snapshot.SavedTracks))
	fmt.Fprintf(&buf, "**Saved albums**: %d\n", len(snapshot.SavedAlbums))
	fmt.Fprintf(&buf, "**Followed artists**: %d\n", len(snapshot.FollowedArtists))
	fmt.Fprintf(&buf, "**Saved podcasts**: %d\n\n", len(snapshot.SavedShows))

	if len(snapshot.Playlists) > 0 {
		buf.WriteString("## Playlists\n\n")
		buf.WriteString("| # | Name | Tracks | Visibility | ID |\n")
		buf.WriteString("| ---: | --- | ---: | --- | --- |\n")
		for i, p := range snapshot.Playlists {
			fmt.Fprintf(&buf, "| %d | %s | %d | %s | %s |\n", i+1, mdEscape(p.Name), p.TracksTotal, shared.VisibilityString(p.Public), p.ID)
		}
	}

	return buf.Bytes()
}

// PlaylistsToCSV writes the snapshot's playlists with columns: ID, Name, Tracks, Public, Owner
func PlaylistsToCSV(snapshot *models.LibrarySnapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Tracks", "Public", "Owner"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, p := range snapshot.Playlists {
		record := []string{p.ID, p.Name, strconv.Itoa(p.TracksTotal), strconv.FormatBool(p.Public), p.Owner.DisplayName}
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

// RenderSnapshot encodes snapshot in format. CSV lists playlists only.
func RenderSnapshot(snapshot *models.LibrarySnapshot, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return SnapshotToMarkdown(snapshot, ""), nil
	case FormatCSV:
		return PlaylistsToCSV(snapshot)
	case FormatJSON:
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		return append(data, '\n'), nil
	}
	return SnapshotToText(snapshot), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

var mdReplacer = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`)

func mdEscape(s string) string { return mdReplacer.Replace(s) }
