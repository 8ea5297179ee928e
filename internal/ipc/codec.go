package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageBytes bounds one encoded request or response line.
const MaxMessageBytes = 4 << 10

var errMessageTooLarge = fmt.Errorf("message exceeds %d bytes", MaxMessageBytes)

func newLineReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, MaxMessageBytes)
}

// writeLine encodes v as one newline-terminated JSON document.
func writeLine(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(payload, '\n'))
	return err
}

// readLine decodes one newline-terminated JSON document into v. what names the
// message in errors ("request" or "response").
func readLine(r *bufio.Reader, v any, what string) error {
	line, err := r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		err = errMessageTooLarge
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
