package ipc

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/goccy/go-json"
)

// Request represents an IPC request.
type Request struct {
	Method   string          `json:"method"`
	Name     string          `json:"name,omitempty"`
	Format   string          `json:"format,omitempty"`
	Query    string          `json:"query,omitempty"`
	Key      string          `json:"key,omitempty"`
	Value    string          `json:"value,omitempty"`
	Bookmark json.RawMessage `json:"bookmark,omitempty"`
}

// Response represents an IPC response.
type Response struct {
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Conn wraps a Unix socket connection with framed JSON.
type Conn struct {
	conn net.Conn
	rw   *bufio.ReadWriter
}

// Dial connects to a Unix socket.
func Dial(socketPath string) (*Conn, error) {
	c, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: c, rw: bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c))}, nil
}

// SetDeadline bounds every following read and write on the connection.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// SendRequest writes a framed JSON request.
func (c *Conn) SendRequest(req Request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.rw.Write(append(b, '\n')); err != nil {
		return err
	}
	return c.rw.Flush()
}

// ReadResponse reads one framed JSON response.
func (c *Conn) ReadResponse(resp interface{}) error {
	line, err := c.rw.ReadBytes('\n')
	if err != nil {
		return err
	}
	if err := json.Unmarshal(line, resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Call sends req and decodes the reply's data into out (which may be nil).
// A response with ok=false comes back as an error.
func (c *Conn) Call(req Request, out interface{}) error {
	if err := c.SendRequest(req); err != nil {
		return err
	}
	var raw struct {
		OK    bool            `json:"ok"`
		Error string          `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	if err := c.ReadResponse(&raw); err != nil {
		return err
	}
	if !raw.OK {
		return fmt.Errorf("%s: %s", req.Method, raw.Error)
	}
	if out == nil || len(raw.Data) == 0 {
		return nil
	}
	return json.Unmarshal(raw.Data, out)
}
