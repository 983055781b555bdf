package workitem

import (
	"math"
	"strconv"
	"strings"
	"time"

	serrors "github.com/buildcrew/sitetrack/internal/errors"
)

// Accepted layouts for source date fields, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Normalize maps a heterogeneous raw record into a canonical WorkItem.
// It is pure and total: missing, renamed, or malformed fields resolve to safe
// defaults and it never panics. An item with no resolvable id comes back with
// an empty ID; bulk callers use NormalizeAll to skip and report those.
func Normalize(raw RawRecord, hint Kind) WorkItem {
	item := WorkItem{
		ID:              FirstString(raw, "id", "_id", "taskId"),
		Title:           FirstString(raw, "taskName", "title", "issueTitle", "name"),
		Description:     FirstString(raw, "description"),
		ProjectName:     projectName(raw),
		ProgressPercent: clampProgress(FirstNumber(raw, "percent", "progress")),
		Status:          strings.ToLower(FirstString(raw, "status")),
		DueDate:         FirstDate(raw, "date", "dueDate", "endDate"),
		IsCritical:      firstBool(raw, "isCritical"),
		CreatorName:     creatorName(raw),
		AssignedUserIDs: idList(raw, "assignedUsers", "assignedTo"),
	}
	if item.Title == "" {
		item.Title = "untitled"
	}

	item.Kind = KindTask
	if hint == KindIssue || firstBool(raw, "isIssue") {
		item.Kind = KindIssue
	}

	for _, dep := range idList(raw, "dependentTaskIds") {
		if dep == item.ID {
			continue // surfaced by NormalizeAll as a SelfDependencyError
		}
		item.DependentItemIDs = append(item.DependentItemIDs, dep)
	}
	return item
}

// NormalizeAll normalizes a collection of raw records. Records with no
// resolvable id are skipped and reported through the returned error slice;
// self-dependencies are likewise reported as warnings. A later record with
// the same id overwrites the earlier one rather than duplicating it.
func NormalizeAll(raws []RawRecord, hint Kind) ([]WorkItem, []error) {
	items := make([]WorkItem, 0, len(raws))
	index := make(map[string]int, len(raws))
	var warnings []error

	for i, raw := range raws {
		item := Normalize(raw, hint)
		if item.ID == "" {
			title := item.Title
			if title == "untitled" {
				title = ""
			}
			warnings = append(warnings, &serrors.MalformedRecordError{Index: i, Title: title})
			continue
		}
		for _, dep := range idList(raw, "dependentTaskIds") {
			if dep == item.ID {
				warnings = append(warnings, &serrors.SelfDependencyError{TaskID: item.ID})
			}
		}
		if at, seen := index[item.ID]; seen {
			items[at] = item
			continue
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	return items, warnings
}

// FirstString resolves the first present key to a string, coercing numbers.
// This is the "first match wins" alias strategy the backend's loose field
// naming requires.
func FirstString(raw RawRecord, keys ...string) string {
	for _, key := range keys {
		if s := asString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

// FirstNumber resolves the first present key to a float, accepting numeric
// strings. The first present key wins even when its value is not numeric:
// later aliases never override it, and NaN signals no resolvable number.
func FirstNumber(raw RawRecord, keys ...string) float64 {
	for _, key := range keys {
		v, present := raw[key]
		if !present || v == nil {
			continue
		}
		switch v := v.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
		return math.NaN()
	}
	return math.NaN()
}

// FirstDate resolves the first present key to a parsed date, or nil when
// every candidate is absent or unparseable.
func FirstDate(raw RawRecord, keys ...string) *time.Time {
	for _, key := range keys {
		s := asString(raw[key])
		if s == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

func firstBool(raw RawRecord, keys ...string) bool {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case bool:
			return v
		case string:
			// the backend string-encodes booleans on some endpoints
			return strings.EqualFold(strings.TrimSpace(v), "true")
		}
	}
	return false
}

func projectName(raw RawRecord) string {
	switch v := raw["project"].(type) {
	case map[string]any:
		if name := asString(v["projectName"]); name != "" {
			return name
		}
	case string:
		if v != "" {
			return v
		}
	}
	return FirstString(raw, "projectName")
}

func creatorName(raw RawRecord) string {
	if name := FirstString(raw, "creatorName", "createdBy"); name != "" {
		return name
	}
	if creator, ok := raw["creator"].(map[string]any); ok {
		return asString(creator["name"])
	}
	return ""
}

// idList flattens an array-valued field into string ids. Elements may be
// plain ids or user/task objects carrying one of the id aliases.
func idList(raw RawRecord, keys ...string) []string {
	for _, key := range keys {
		entries, ok := raw[key].([]any)
		if !ok {
			continue
		}
		ids := make([]string, 0, len(entries))
		for _, entry := range entries {
			var id string
			switch v := entry.(type) {
			case map[string]any:
				id = FirstString(v, "id", "_id", "userId", "taskId")
			default:
				id = asString(v)
			}
			if id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	return nil
}

func clampProgress(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; ids are whole numbers
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}
