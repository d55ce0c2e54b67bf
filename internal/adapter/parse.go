package adapter

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/ludo-technologies/cloneval/domain"
)

// rawRecord is one detector record before mapping to fragments.
type rawRecord struct {
	First    domain.FragmentLocation
	Second   domain.FragmentLocation
	Score    float64
	HasScore bool
}

// recordReader yields raw records until io.EOF.
type recordReader interface {
	Next() (rawRecord, error)
	// Position is the 1-based number of the last record read
	Position() int
}

func newRecordReader(r io.Reader, format domain.ToolOutputFormat) (recordReader, error) {
	switch format {
	case domain.ToolOutputCSV, "":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.Comment = '#'
		cr.TrimLeadingSpace = true
		cr.ReuseRecord = true
		return &csvRecordReader{r: cr}, nil
	case domain.ToolOutputJSONL:
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		return &jsonlRecordReader{sc: sc}, nil
	default:
		return nil, domain.NewUnsupportedFormatError(string(format))
	}
}

// csvRecordReader accepts
//
//	file1,start1,end1,file2,start2,end2[,score]
//	dir1,file1,start1,end1,dir2,file2,start2,end2[,score]
//
// The second form is the BigCloneEval clone list layout. A leading header
// row is skipped.
type csvRecordReader struct {
	r   *csv.Reader
	pos int
}

func (c *csvRecordReader) Position() int { return c.pos }

func (c *csvRecordReader) Next() (rawRecord, error) {
	for {
		fields, err := c.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rawRecord{}, io.EOF
			}
			c.pos++
			return rawRecord{}, err
		}
		c.pos++
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			c.pos--
			continue
		}
		rec, err := parseCSVFields(fields)
		if err != nil && c.pos == 1 && looksLikeHeader(fields) {
			c.pos--
			continue
		}
		return rec, err
	}
}

func looksLikeHeader(fields []string) bool {
	for _, f := range fields {
		if _, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
			return false
		}
	}
	return true
}

func parseCSVFields(fields []string) (rawRecord, error) {
	var rec rawRecord
	var err error
	var scoreField string
	switch len(fields) {
	case 6, 7:
		if rec.First, err = location(fields[0], fields[1], fields[2]); err != nil {
			return rec, err
		}
		if rec.Second, err = location(fields[3], fields[4], fields[5]); err != nil {
			return rec, err
		}
		if len(fields) == 7 {
			scoreField = fields[6]
		}
	case 8, 9:
		if rec.First, err = location(path.Join(fields[0], fields[1]), fields[2], fields[3]); err != nil {
			return rec, err
		}
		if rec.Second, err = location(path.Join(fields[4], fields[5]), fields[6], fields[7]); err != nil {
			return rec, err
		}
		if len(fields) == 9 {
			scoreField = fields[8]
		}
	default:
		return rec, fmt.Errorf("expected 6 to 9 fields, got %d", len(fields))
	}
	if s := strings.TrimSpace(scoreField); s != "" {
		score, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, fmt.Errorf("bad score %q: %w", s, err)
		}
		rec.Score, rec.HasScore = score, true
	}
	return rec, nil
}

func location(p, start, end string) (domain.FragmentLocation, error) {
	s, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return domain.FragmentLocation{}, fmt.Errorf("bad start line %q", start)
	}
	e, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return domain.FragmentLocation{}, fmt.Errorf("bad end line %q", end)
	}
	loc := domain.FragmentLocation{Path: strings.TrimSpace(p), StartLine: s, EndLine: e}
	if err := loc.Validate(); err != nil {
		return domain.FragmentLocation{}, err
	}
	return loc, nil
}

type jsonEndpoint struct {
	Path  string `json:"path"`
	Start *int   `json:"start"`
	End   *int   `json:"end"`
}

type jsonRecord struct {
	A     *jsonEndpoint `json:"a"`
	B     *jsonEndpoint `json:"b"`
	Score *float64      `json:"score"`
}

// jsonlRecordReader accepts one object per line:
//
//	{"a":{"path":"x.java","start":1,"end":9},"b":{...},"score":0.93}
type jsonlRecordReader struct {
	sc  *bufio.Scanner
	pos int
}

func (j *jsonlRecordReader) Position() int { return j.pos }

func (j *jsonlRecordReader) Next() (rawRecord, error) {
	for j.sc.Scan() {
		line := strings.TrimSpace(j.sc.Text())
		if line == "" {
			continue
		}
		j.pos++
		var jr jsonRecord
		if err := json.Unmarshal([]byte(line), &jr); err != nil {
			return rawRecord{}, err
		}
		first, err := jr.A.location("a")
		if err != nil {
			return rawRecord{}, err
		}
		second, err := jr.B.location("b")
		if err != nil {
			return rawRecord{}, err
		}
		rec := rawRecord{First: first, Second: second}
		if jr.Score != nil {
			rec.Score, rec.HasScore = *jr.Score, true
		}
		return rec, nil
	}
	if err := j.sc.Err(); err != nil {
		j.pos++
		return rawRecord{}, err
	}
	return rawRecord{}, io.EOF
}

func (e *jsonEndpoint) location(name string) (domain.FragmentLocation, error) {
	if e == nil || e.Start == nil || e.End == nil {
		return domain.FragmentLocation{}, fmt.Errorf("endpoint %q needs path, start and end", name)
	}
	loc := domain.FragmentLocation{Path: strings.TrimSpace(e.Path), StartLine: *e.Start, EndLine: *e.End}
	if err := loc.Validate(); err != nil {
		return domain.FragmentLocation{}, fmt.Errorf("endpoint %q: %w", name, err)
	}
	return loc, nil
}
