package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxContentLength bounds a single message. Full document sync sends the
// whole text on every change, so this is generous.
const maxContentLength = 64 << 20

// Stream reads and writes whole messages. Read is called from a single
// goroutine; Write calls are serialized by the Conn.
type Stream interface {
	// Read returns the next message and the number of bytes it took.
	Read(context.Context) (Message, int64, error)
	// Write sends msg and returns the number of bytes written.
	Write(context.Context, Message) (int64, error)
}

// NewHeaderStream frames messages with a Content-Length header, the base
// protocol of LSP.
func NewHeaderStream(in io.Reader, out io.Writer) Stream {
	return &headerStream{in: bufio.NewReader(in), out: out}
}

type headerStream struct {
	in  *bufio.Reader
	out io.Writer
}

func (s *headerStream) Read(ctx context.Context) (Message, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	length, total, err := s.readHeader()
	if err != nil {
		return nil, total, err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(s.in, data); err != nil {
		return nil, total, fmt.Errorf("reading message body: %w", err)
	}
	total += length
	msg, err := DecodeMessage(data)
	return msg, total, err
}

// readHeader consumes header lines up to the blank separator line. Header
// names are case insensitive; Content-Type is accepted but not checked
// beyond its charset.
func (s *headerStream) readHeader() (length, total int64, err error) {
	length = -1
	for {
		line, err := s.in.ReadString('\n')
		total += int64(len(line))
		if err != nil {
			if errors.Is(err, io.EOF) && total == 0 {
				return 0, 0, io.EOF
			}
			return 0, total, fmt.Errorf("reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return 0, total, fmt.Errorf("invalid header line %q", line)
		}
		value = strings.TrimSpace(value)
		switch {
		case strings.EqualFold(name, "Content-Length"):
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n <= 0 {
				return 0, total, fmt.Errorf("invalid Content-Length %q", value)
			}
			if n > maxContentLength {
				return 0, total, fmt.Errorf("message of %d bytes exceeds the %d byte limit", n, maxContentLength)
			}
			length = n
		case strings.EqualFold(name, "Content-Type"):
			if charset := contentCharset(value); charset != "" && charset != "utf-8" && charset != "utf8" {
				return 0, total, fmt.Errorf("unsupported charset %q", charset)
			}
		}
	}
	if length < 0 {
		return 0, total, errors.New("missing Content-Length header")
	}
	return length, total, nil
}

func contentCharset(contentType string) string {
	for _, param := range strings.Split(contentType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(key, "charset") {
			return strings.ToLower(strings.Trim(value, `"`))
		}
	}
	return ""
}

func (s *headerStream) Write(ctx context.Context, msg Message) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}
	// One write per message keeps the header and body together if the
	// writer is shared.
	var buf bytes.Buffer
	buf.Grow(len(data) + 32)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(data))
	buf.Write(data)
	n, err := s.out.Write(buf.Bytes())
	return int64(n), err
}
