package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxMessageSize bounds the body of a single framed message.
const maxMessageSize = 64 << 20

var errMessageTooLarge = errors.New("message exceeds maximum size")

// readMsg reads one Content-Length framed message.
func readMsg(r *bufio.Reader) ([]byte, error) {
	contentLen := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if i := strings.IndexByte(line, ':'); i >= 0 {
			key := strings.ToLower(strings.TrimSpace(line[:i]))
			if key == "content-length" {
				n, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
				if err != nil {
					return nil, fmt.Errorf("bad Content-Length %q: %w", line[i+1:], err)
				}
				if n > maxMessageSize {
					return nil, fmt.Errorf("%w: Content-Length %d", errMessageTooLarge, n)
				}
				contentLen = n
			}
		}
	}
	if contentLen < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	buf := make([]byte, contentLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeMsg(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	_, err = w.Write(b.Bytes())
	return err
}
