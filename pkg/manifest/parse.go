package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DroppedBlock is a block the parser could not turn into a record.
type DroppedBlock struct {
	Line  int
	Lines []string
}

func (d DroppedBlock) String() string {
	return fmt.Sprintf("line %d: block without %s= (%d lines)", d.Line, KeyName, len(d.Lines))
}

// Parsed is the result of reading manifest text back.
type Parsed struct {
	Records []Record
	Dropped []DroppedBlock
}

type block struct {
	line  int
	lines []string
}

// Parse splits manifest text into records. Blocks end at blank lines and
// at every name= line; comment lines are ignored. A block without a name=
// line is reported in Dropped rather than returned as a record.
func Parse(r io.Reader) (Parsed, error) {
	var (
		out  Parsed
		cur  *block
		n    int
		scan = bufio.NewScanner(r)
	)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	flush := func() {
		if cur == nil {
			return
		}
		if rec, ok := parseBlock(cur.lines); ok {
			out.Records = append(out.Records, rec)
		} else {
			out.Dropped = append(out.Dropped, DroppedBlock{Line: cur.line, Lines: cur.lines})
		}
		cur = nil
	}

	for scan.Scan() {
		n++
		line := strings.TrimRight(scan.Text(), "\r")
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
		default:
			if strings.HasPrefix(trimmed, KeyName+"=") {
				flush()
			}
			if cur == nil {
				cur = &block{line: n}
			}
			cur.lines = append(cur.lines, trimmed)
		}
	}
	if err := scan.Err(); err != nil {
		return out, fmt.Errorf("read manifest: %w", err)
	}
	flush()
	return out, nil
}

func parseBlock(lines []string) (Record, bool) {
	var (
		rec     Record
		hasName bool
	)
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			rec.Extra = append(rec.Extra, line)
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case KeyName:
			rec.Name = value
			hasName = true
		case KeyURI:
			rec.URI = value
		case KeyType:
			rec.Type = value
		case KeyArea:
			rec.Area = value
		case KeyDescription:
			rec.Description = value
		case KeyUpdate:
			rec.Update = value
		case KeyBBox:
			rec.BBox = value
		default:
			rec.Extra = append(rec.Extra, line)
		}
	}
	return rec, hasName
}
