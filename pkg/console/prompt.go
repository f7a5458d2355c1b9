package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputClosed is returned when the input stream ends before an answer was given
var ErrInputClosed = errors.New("input closed before an answer was given")

type readResult struct {
	line string
	err  error
}

// Prompter reads answers from a line-oriented input stream
type Prompter struct {
	r   *bufio.Reader
	w   io.Writer
	msg *Messenger

	// pending is an unfinished read left behind by a canceled prompt
	pending chan readResult

	// AutoAccept answers every yes/no question with "y" without reading input
	AutoAccept bool
}

// NewPrompter returns a Prompter reading from r and writing prompts to w.
// Invalid yes/no answers are reported through msg.
func NewPrompter(r io.Reader, w io.Writer, msg *Messenger, autoAccept bool) *Prompter {
	return &Prompter{
		r:          bufio.NewReader(r),
		w:          w,
		msg:        msg,
		AutoAccept: autoAccept,
	}
}

// Line writes a blank line and the prompt, then reads one line of input.
// An empty answer is replaced by def. No validation is done.
//
// Canceling ctx returns ctx.Err() while the read is still blocked; the line
// read afterwards is never returned as an answer to this prompt.
func (p *Prompter) Line(ctx context.Context, prompt, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	if _, err := fmt.Fprint(p.w, "\n"+prompt+": "); err != nil {
		return "", err
	}

	var res readResult
	select {
	case res = <-p.read():
		p.pending = nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
	// Cancellation wins over an answer that raced it
	if err := ctx.Err(); err != nil {
		return "", err
	}

	line, err := res.line, res.err
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		// A final line without newline still counts as an answer
		if line == "" {
			return "", ErrInputClosed
		}
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// read starts reading one line in the background, or returns the read a
// canceled prompt left running
func (p *Prompter) read() <-chan readResult {
	if p.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			line, err := p.r.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}()
		p.pending = ch
	}
	return p.pending
}

// YesNo asks until the answer is "y" or "n" (any case) and returns it in
// lowercase. With AutoAccept set it returns "y" without any I/O, unless ctx
// is already canceled.
func (p *Prompter) YesNo(ctx context.Context, prompt, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.AutoAccept {
		return "y", nil
	}

	for {
		answer, err := p.Line(ctx, prompt+" (y/n)", def)
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(answer)
		if answer == "y" || answer == "n" {
			return answer, nil
		}
		p.msg.Warnf("Invalid answer %q, please enter 'y' or 'n'", answer)
	}
}

// Confirm is YesNo reduced to a bool
func (p *Prompter) Confirm(ctx context.Context, prompt, def string) (bool, error) {
	answer, err := p.YesNo(ctx, prompt, def)
	if err != nil {
		return false, err
	}
	return answer == "y", nil
}
