package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/gamedata/pkg/datastore"
)

// Row is one property together with the namespace it lives in.
type Row struct {
	Type      string
	Namespace string
	Value     datastore.DataValue
}

// jsonRow is the JSONL form of a Row: the namespace identity plus the
// replication DTO of the value.
type jsonRow struct {
	Type      string `json:"type"`
	Namespace string `json:"namespace"`
	*datastore.GameDataValueDto
}

// FormatTable writes rows as a formatted table to the provided writer.
// The table includes columns: TYPE, NAMESPACE, NAME, DATATYPE, VALUE (truncated) and TAGS.
// Returns the number of rows formatted.
func FormatTable(w io.Writer, rows []Row, instanceName string) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No properties found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Properties for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-12s %-16s %-16s %-11s %-40s %s\n",
		"TYPE", "NAMESPACE", "NAME", "DATATYPE", "VALUE", "TAGS")
	fmt.Fprintf(w, "%-12s %-16s %-16s %-11s %-40s %s\n",
		"------------", "----------------", "----------------", "-----------",
		"----------------------------------------", "----")

	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %-16s %-16s %-11s %-40s %s\n",
			truncate(r.Type, 12),
			truncate(r.Namespace, 16),
			truncate(r.Value.Name(), 16),
			r.Value.DataType(),
			formatValue(r.Value),
			formatTags(r.Value.Tags()),
		)
	}

	countMsg := "property"
	if len(rows) != 1 {
		countMsg = "properties"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(rows), countMsg)

	return len(rows)
}

// FormatJSONL writes rows as line-delimited JSON (JSONL) to the provided writer.
// Each value is written in its replication form, so undefined values keep
// their declared type.
func FormatJSONL(w io.Writer, rows []Row) error {
	for _, r := range rows {
		dto, err := datastore.GameValueToDto(r.Value)
		if err != nil {
			return fmt.Errorf("failed to convert %s/%s %s: %w", r.Type, r.Namespace, r.Value.Name(), err)
		}

		data, err := json.Marshal(jsonRow{Type: r.Type, Namespace: r.Namespace, GameDataValueDto: dto})
		if err != nil {
			return fmt.Errorf("failed to marshal property to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatValue renders the payload for table display: the first line,
// truncated to 40 characters. Undefined values show "-".
func formatValue(v datastore.DataValue) string {
	if v.IsUndefined() {
		return "-"
	}

	var s string
	switch v.DataType() {
	case datastore.Asset:
		handle, _ := v.AsAsset()
		s = datastore.AssetURI(handle)
	case datastore.String:
		raw, _ := v.AsString()
		s = fmt.Sprintf("%q", raw)
	case datastore.JSONArray:
		raw, _ := v.AsJSONArray()
		s = string(raw)
	case datastore.JSONObject:
		raw, _ := v.AsJSONObject()
		s = string(raw)
	default:
		s, _ = v.AsString()
	}

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(s, 40)
}

// formatTags joins tags with commas. No tags returns "-".
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
