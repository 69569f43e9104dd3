// filesystem/record.go
package filesystem

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/bmatcuk/doublestar/v4"
)

const (
	notePrefix  = "note_"
	noteExt     = ".json"
	notePattern = notePrefix + "*" + noteExt
)

// NotePath returns the record file for id inside dir.
func NotePath(dir string, id int64) string {
	return filepath.Join(dir, notePrefix+strconv.FormatInt(id, 10)+noteExt)
}

// naiveLayout is an ISO-8601 timestamp without a UTC offset, as older
// records carry.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// record is the on-disk form of a note.
type record struct {
	Text      string    `json:"text"`
	CreatedAt timestamp `json:"created_at"`
	UpdatedAt timestamp `json:"updated_at"`
}

// timestamp decodes RFC 3339 values and offset-less ISO-8601 values, the
// latter in local time.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*t = timestamp(parsed)
		return nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, raw, time.Local)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	*t = timestamp(parsed)
	return nil
}

// ReadNote decodes the record at path. The returned note has no ID set.
func ReadNote(path string) (domain.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Note{}, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Note{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return domain.Note{
		Text:      rec.Text,
		CreatedAt: time.Time(rec.CreatedAt),
		UpdatedAt: time.Time(rec.UpdatedAt),
	}, nil
}

// WriteNote stores note at path with RFC 3339 timestamps.
func WriteNote(path string, note domain.Note) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}
	return WriteFileAtomic(path, data, 0644)
}

// ListIDs returns the ids of every note record in dir in ascending order.
// A missing directory holds no notes.
func ListIDs(dir string) ([]int64, error) {
	ids := []int64{}

	matches, err := doublestar.Glob(os.DirFS(dir), notePattern)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, err
	}

	for _, name := range matches {
		id, ok := parseID(name)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// MaxID returns the highest stored id, or 0 when dir holds no notes.
func MaxID(dir string) (int64, error) {
	ids, err := ListIDs(dir)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[len(ids)-1], nil
}

func parseID(name string) (int64, bool) {
	if !strings.HasPrefix(name, notePrefix) || !strings.HasSuffix(name, noteExt) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, notePrefix), noteExt)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
