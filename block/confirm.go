package block

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Confirmer waits for an operator to say the page is usable again.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) error
}

// ConsoleConfirmer prints the prompt and waits for a line on its reader.
// A single goroutine reads lines for every Confirm call, so a cancelled wait
// never swallows the line meant for the next one.
type ConsoleConfirmer struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan struct{}
}

// NewConsoleConfirmer returns a ConsoleConfirmer. nil arguments select
// os.Stdin and os.Stderr.
func NewConsoleConfirmer(in io.Reader, out io.Writer) *ConsoleConfirmer {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleConfirmer{in: in, out: out, lines: make(chan struct{})}
}

// readLines hands each line to a waiting Confirm. lines is closed on a
// reader error, including EOF.
func (c *ConsoleConfirmer) readLines() {
	defer close(c.lines)
	r := bufio.NewReader(c.in)
	for {
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		c.lines <- struct{}{}
	}
}

// Confirm returns when a line arrives or ctx ends. A reader error counts as
// confirmation. A line typed while nobody was waiting is discarded.
func (c *ConsoleConfirmer) Confirm(ctx context.Context, prompt string) error {
	c.once.Do(func() { go c.readLines() })

	select {
	case _, ok := <-c.lines:
		if !ok {
			return nil
		}
	default:
	}
	fmt.Fprintln(c.out, prompt)

	select {
	case <-c.lines:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChanConfirmer resumes when a value arrives on its channel.
type ChanConfirmer struct {
	C       <-chan struct{}
	Prompts chan<- string
}

func (c ChanConfirmer) Confirm(ctx context.Context, prompt string) error {
	if c.Prompts != nil {
		select {
		case c.Prompts <- prompt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-c.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
