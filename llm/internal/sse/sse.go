// Package sse frames a response body into discrete records.
//
// Decoder handles text/event-stream bodies; LineDecoder handles
// newline-delimited JSON. Both yield records in wire order and hold a partial
// trailing record until more bytes arrive or the body ends.
package sse

import (
	"bufio"
	"bytes"
	"io"
)

// Record is one server-sent event.
type Record struct {
	Event string
	ID    string
	Data  []byte
}

// Done reports whether the payload is the [DONE] end-of-stream sentinel.
func (r Record) Done() bool {
	return bytes.Equal(bytes.TrimSpace(r.Data), []byte("[DONE]"))
}

// Reader is implemented by both decoders.
type Reader interface {
	Next() (Record, error)
}

type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next record. Multiple `data:` lines are joined with `\n`.
// A record made only of comments or an event name without data is skipped.
// It returns io.EOF once the body is exhausted.
func (d *Decoder) Next() (Record, error) {
	var (
		rec       Record
		dataLines [][]byte
	)
	flush := func() Record {
		rec.Data = bytes.Join(dataLines, []byte("\n"))
		return rec
	}
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			// A trailing record without its blank line is still a record once
			// the connection has closed.
			if len(line) > 0 {
				d.field(bytes.TrimRight(line, "\r\n"), &rec, &dataLines)
			}
			if len(dataLines) > 0 {
				return flush(), nil
			}
			return Record{}, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(dataLines) == 0 {
				rec = Record{}
				continue
			}
			return flush(), nil
		}
		d.field(line, &rec, &dataLines)
	}
}

func (d *Decoder) field(line []byte, rec *Record, dataLines *[][]byte) {
	if len(line) == 0 || line[0] == ':' {
		return
	}
	name, val, found := bytes.Cut(line, []byte(":"))
	if found && len(val) > 0 && val[0] == ' ' {
		val = val[1:]
	}
	switch string(name) {
	case "data":
		*dataLines = append(*dataLines, append([]byte(nil), val...))
	case "event":
		rec.Event = string(val)
	case "id":
		rec.ID = string(val)
	}
	// retry: and vendor extension fields are ignored.
}

// LineDecoder frames newline-delimited JSON; each non-empty line is one record.
type LineDecoder struct {
	r *bufio.Reader
}

func NewLineDecoder(r io.Reader) *LineDecoder {
	return &LineDecoder{r: bufio.NewReaderSize(r, 64*1024)}
}

func (d *LineDecoder) Next() (Record, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			return Record{Data: append([]byte(nil), trimmed...)}, nil
		}
		if err != nil {
			return Record{}, err
		}
	}
}

// ForContentType picks the framing for a response body.
func ForContentType(contentType string, r io.Reader) Reader {
	if bytes.Contains([]byte(contentType), []byte("ndjson")) ||
		bytes.Contains([]byte(contentType), []byte("jsonl")) {
		return NewLineDecoder(r)
	}
	return NewDecoder(r)
}
