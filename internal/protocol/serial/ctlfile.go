// internal/protocol/serial/ctlfile.go
package serial

import (
	"fmt"
	"io"
	"os"
)

// CtlFile drives a textual control file: "b<baud>" sets the speed,
// "i<n>" the input FIFO mode and "q<n>" the queue size.
type CtlFile struct {
	w io.WriteCloser
}

// OpenCtlFile opens path for writing.
func OpenCtlFile(path string) (*CtlFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open control file: %w", err)
	}
	return &CtlFile{w: f}, nil
}

// NewCtlFile wraps an already open control stream.
func NewCtlFile(w io.WriteCloser) *CtlFile {
	return &CtlFile{w: w}
}

func (c *CtlFile) SetBaudRate(baud int) error { return c.command('b', baud) }
func (c *CtlFile) SetBufferSize(n int) error  { return c.command('q', n) }
func (c *CtlFile) SetMode(flag int) error     { return c.command('i', flag) }

func (c *CtlFile) Close() error {
	return c.w.Close()
}

func (c *CtlFile) command(verb byte, arg int) error {
	if _, err := fmt.Fprintf(c.w, "%c%d", verb, arg); err != nil {
		return fmt.Errorf("control %c%d: %w", verb, arg, err)
	}
	return nil
}
