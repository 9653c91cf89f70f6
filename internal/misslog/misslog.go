// Package misslog records search queries that failed to surface an expected
// note. The log is a JSON Lines document that only ever grows.
package misslog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/semindex/internal/apperr"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
)

// Log appends and reads miss records.
type Log struct {
	path string
	now  func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns a log persisted at path.
func New(path string, opts ...Option) *Log {
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the log document path.
func (l *Log) Path() string { return l.path }

type recordInput struct {
	Query        string
	ExpectedPath string
}

func (in *recordInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Query, validation.Required),
		validation.Field(&in.ExpectedPath, validation.Required),
	)
}

// Record appends one miss. expectedPath need not exist in the index.
func (l *Log) Record(query, expectedPath, reason string) (models.MissRecord, error) {
	in := recordInput{Query: strings.TrimSpace(query), ExpectedPath: strings.TrimSpace(expectedPath)}
	if err := in.Validate(); err != nil {
		return models.MissRecord{}, apperr.Invalid("misslog: record", l.path, err)
	}
	rec := models.MissRecord{
		ID:           uuid.NewString(),
		Timestamp:    l.now().UTC(),
		Query:        in.Query,
		ExpectedPath: in.ExpectedPath,
		Reason:       strings.TrimSpace(reason),
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return models.MissRecord{}, fmt.Errorf("misslog: encode: %w", err)
	}
	if err := storage.AppendLine(l.path, line); err != nil {
		return models.MissRecord{}, apperr.IO("misslog: record", l.path, err)
	}
	return rec, nil
}

// List returns every record in insertion order. A missing log is empty.
// Each call re-reads the document from the start.
func (l *Log) List() ([]models.MissRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.MissRecord{}, nil
		}
		return nil, apperr.IO("misslog: list", l.path, err)
	}

	out := []models.MissRecord{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec models.MissRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, apperr.Corrupt("misslog: list", fmt.Sprintf("%s:%d", l.path, lineNo), err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.IO("misslog: list", l.path, err)
	}
	return out, nil
}

// Count returns the number of records.
func (l *Log) Count() (int, error) {
	recs, err := l.List()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}
