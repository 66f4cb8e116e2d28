// package formatter renders similar-track results, catalog tracks, connections and search history
// as JSON, YAML, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat resolves a --format value. Empty means text; "md" and "yml" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// MarshalYAML encodes v with two-space indentation.
func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ResultsToCSV converts a result set to CSV with columns: Rank, Name, Artist, Source, Confidence, Reasons, Upvotes, ID, Album, AlbumArt, URL
func ResultsToCSV(rs models.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Name", "Artist", "Source", "Confidence", "Reasons", "Upvotes", "ID", "Album", "AlbumArt", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, c := range rs {
		upvotes := ""
		if c.CommunityUpvotes != nil {
			upvotes = strconv.Itoa(*c.CommunityUpvotes)
		}
		record := []string{
			strconv.Itoa(i + 1),
			c.Name,
			c.Artist,
			string(c.Provenance),
			strconv.FormatFloat(c.Confidence, 'f', 2, 64),
			strings.Join(c.MatchReasons, "; "),
			upvotes,
			c.ExternalID,
			c.AlbumName,
			c.AlbumArt,
			c.ExternalURL,
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

// ResultsToMarkdown converts a result set to a Markdown list headed by the seed
func ResultsToMarkdown(seed models.Seed, rs models.ResultSet) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Songs like %s - %s\n\n", seed.Name, seed.Artist)
	fmt.Fprintf(&buf, "**Results**: %d\n\n", len(rs))

	for i, c := range rs {
		title := fmt.Sprintf("%s - %s", c.Artist, c.Name)
		if c.ExternalURL != "" {
			title = fmt.Sprintf("[%s](%s)", title, c.ExternalURL)
		}
		fmt.Fprintf(&buf, "%d. %s _(%s, %s)_\n", i+1, title, c.Provenance.String(), percent(c.Confidence))
		for _, r := range c.MatchReasons {
			fmt.Fprintf(&buf, "   - %s\n", r)
		}
		if c.AlbumArt != "" {
			fmt.Fprintf(&buf, "   - ![%s](%s)\n", orUnknown(c.AlbumName), c.AlbumArt)
		}
	}

	return buf.Bytes(), nil
}

// ResultsToText converts a result set to colored plain text for terminals
func ResultsToText(seed models.Seed, rs models.ResultSet) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, styles.Title(fmt.Sprintf("Songs like %s - %s", seed.Name, seed.Artist)))
	if len(rs) == 0 {
		fmt.Fprintln(&buf, styles.Warn("No similar songs found."))
		return buf.Bytes(), nil
	}
	fmt.Fprintf(&buf, "%s\n\n", styles.Help(fmt.Sprintf("%d results, %d missing artwork", len(rs), rs.Missing())))

	for i, c := range rs {
		fmt.Fprintf(&buf, "%3d. %s - %s %s %s\n", i+1, c.Artist, c.Name, styles.Source(c.Provenance), percent(c.Confidence))
		if len(c.MatchReasons) > 0 {
			fmt.Fprintf(&buf, "     %s\n", styles.Help(strings.Join(c.MatchReasons, " · ")))
		}
		if c.CommunityUpvotes != nil {
			fmt.Fprintf(&buf, "     %s upvotes\n", humanize.Comma(int64(*c.CommunityUpvotes)))
		}
		if c.ExternalURL != "" {
			fmt.Fprintf(&buf, "     %s\n", c.ExternalURL)
		}
	}

	return buf.Bytes(), nil
}

// RenderResults encodes a result set in the given format.
func RenderResults(format Format, seed models.Seed, rs models.ResultSet) ([]byte, error) {
	switch format {
	case FormatJSON:
		return MarshalJSON(resultsDoc{Seed: seed, Results: nonNil(rs)}, true)
	case FormatYAML:
		return MarshalYAML(newResultsView(seed, rs))
	case FormatCSV:
		return ResultsToCSV(rs)
	case FormatMarkdown:
		return ResultsToMarkdown(seed, rs)
	default:
		return ResultsToText(seed, rs)
	}
}

// WriteResults renders a result set to w.
func WriteResults(w io.Writer, format Format, seed models.Seed, rs models.ResultSet) error {
	data, err := RenderResults(format, seed, rs)
	if err != nil {
		return err
	}
	return write(w, data)
}

// WriteResultsFile renders a result set into path.
func WriteResultsFile(path string, format Format, seed models.Seed, rs models.ResultSet) error {
	data, err := RenderResults(format, seed, rs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteTracks renders catalog search results to w.
func WriteTracks(w io.Writer, format Format, tracks []models.Track) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatJSON:
		data, err = MarshalJSON(nonNilTracks(tracks), true)
	case FormatYAML:
		data, err = MarshalYAML(newTrackViews(tracks))
	case FormatCSV:
		data, err = tracksToCSV(tracks)
	case FormatMarkdown:
		var buf bytes.Buffer
		for i, t := range tracks {
			fmt.Fprintf(&buf, "%d. %s - %s (%s) `%s`\n", i+1, t.Artist, t.Name, orUnknown(t.AlbumName), t.ID)
		}
		data = buf.Bytes()
	default:
		var buf bytes.Buffer
		if len(tracks) == 0 {
			fmt.Fprintln(&buf, styles.Warn("No tracks found."))
		}
		for i, t := range tracks {
			fmt.Fprintf(&buf, "%3d. %s - %s %s\n", i+1, t.Artist, t.Name, styles.Help(t.ID))
			if t.AlbumName != "" {
				fmt.Fprintf(&buf, "     %s\n", t.AlbumName)
			}
		}
		data = buf.Bytes()
	}
	if err != nil {
		return err
	}
	return write(w, data)
}

// WriteConnections renders community connections to w.
func WriteConnections(w io.Writer, format Format, conns []*models.Connection) error {
	views := NewConnectionViews(conns)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(views, true)
	case FormatYAML:
		data, err = MarshalYAML(views)
	default:
		var buf bytes.Buffer
		if len(conns) == 0 {
			fmt.Fprintln(&buf, styles.Warn("No connections."))
		}
		for _, c := range conns {
			fmt.Fprintf(&buf, "%s  %s - %s → %s - %s  %s upvotes  %s\n",
				styles.Help(c.ID()), c.Source().Artist, c.Source().Name, c.Similar().Artist, c.Similar().Name,
				humanize.Comma(int64(c.Upvotes())), humanize.Time(c.CreatedAt()))
		}
		data = buf.Bytes()
	}
	if err != nil {
		return err
	}
	return write(w, data)
}

// WriteHistory renders recent aggregations to w.
func WriteHistory(w io.Writer, format Format, aggs []*models.Aggregation) error {
	views := NewHistoryViews(aggs)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(views, true)
	case FormatYAML:
		data, err = MarshalYAML(views)
	default:
		var buf bytes.Buffer
		if len(aggs) == 0 {
			fmt.Fprintln(&buf, styles.Warn("No searches yet."))
		}
		for _, a := range aggs {
			status := styles.OK("ok")
			if a.Outcome().Failed() {
				status = styles.Err("failed")
			}
			fmt.Fprintf(&buf, "%-12s %s - %s  %d results (%d verified)  %s\n",
				humanize.Time(a.CreatedAt()), a.Seed().Artist, a.Seed().Name, a.Candidates(), a.Verified(), status)
		}
		data = buf.Bytes()
	}
	if err != nil {
		return err
	}
	return write(w, data)
}

func tracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"ID", "Name", "Artist", "Album", "AlbumArt", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, t := range tracks {
		if err := writer.Write([]string{t.ID, t.Name, t.Artist, t.AlbumName, t.AlbumArt, t.ExternalURL}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

func write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func percent(f float64) string {
	return humanize.FtoaWithDigits(f*100, 0) + "%"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown album"
	}
	return s
}

func nonNil(rs models.ResultSet) models.ResultSet {
	if rs == nil {
		return models.ResultSet{}
	}
	return rs
}

func nonNilTracks(t []models.Track) []models.Track {
	if t == nil {
		return []models.Track{}
	}
	return t
}
