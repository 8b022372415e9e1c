package shared

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

type StringWriteCloser interface {
	io.Closer
	io.StringWriter
}

type WriteCloser struct {
	w io.Writer
}

// NewWriteCloser adapts w for use as a Printer hook. Close is forwarded only
// when w is an io.Closer, so os.Stdout and bytes.Buffer both work.
func NewWriteCloser(w io.Writer) StringWriteCloser {
	if w == nil {
		return nil
	}
	return &WriteCloser{w: w}
}

func (wc *WriteCloser) WriteString(s string) (n int, err error) {
	return io.WriteString(wc.w, s)
}

func (wc *WriteCloser) Close() error {
	if c, ok := wc.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Printer writes indented, multi-line text to every hook. It is the visible
// channel of the assistant: status lines, scan results and announcements.
type Printer struct {
	mu     sync.Mutex
	indStr string
	hooks  []StringWriteCloser
}

func NewPrinter(indentString string, hooks ...StringWriteCloser) (*Printer, error) {
	if len(hooks) == 0 {
		return nil, errors.New("no hook provided")
	}
	for _, hook := range hooks {
		if hook == nil {
			return nil, errors.New("a nil pointed hook is given")
		}
	}
	return &Printer{
		indStr: indentString,
		hooks:  hooks,
	}, nil
}

func (p *Printer) Write(s string, ind int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeLocked(s, ind)
}

func (p *Printer) Writeln(s string, ind int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeLocked(s, ind); err != nil {
		return err
	}
	return p.emit("\n")
}

// Block writes lines atomically, the first at ind and the rest one level deeper.
func (p *Printer) Block(ind int, title string, lines ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeLocked(title, ind); err != nil {
		return err
	}
	if err := p.emit("\n"); err != nil {
		return err
	}
	for _, line := range lines {
		if err := p.writeLocked(line, ind+1); err != nil {
			return err
		}
		if err := p.emit("\n"); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) writeLocked(s string, ind int) error {
	indent := strings.Repeat(p.indStr, ind)
	firstLine := true
	for line := range strings.SplitSeq(s, "\n") {
		if !firstLine {
			line = "\n" + indent + line
		} else {
			firstLine = false
			line = indent + line
		}
		if err := p.emit(line); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) emit(s string) error {
	for _, hook := range p.hooks {
		if _, err := hook.WriteString(s); err != nil {
			return fmt.Errorf("on writing to hook: %w", err)
		}
	}
	return nil
}

func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, hook := range p.hooks {
		if err := hook.Close(); err != nil {
			return fmt.Errorf("on closing hook: %w", err)
		}
	}
	return nil
}
