package wire

import (
	"bufio"
	"fmt"
	"io"
)

// Reader frames ';'-terminated records off a byte stream.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadRecord returns the next record including its trailing delimiter.
// A stream that ends mid-record yields the truncated bytes once, without
// error, so the validator can reject the malformed record; the following
// call reports the underlying error.
func (r *Reader) ReadRecord() (string, error) {
	rec, err := r.r.ReadString(Delim)
	if err != nil {
		if len(rec) > 0 {
			return rec, nil
		}
		return "", err
	}
	return rec, nil
}

// Writer sends records on a byte stream, flushing after every record so a
// reply is visible to the trader before the dispatcher moves on.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteRecord(rec string) error {
	if _, err := w.w.WriteString(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}
