package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/codeready-toolchain/drafter/pkg/events"
	"github.com/codeready-toolchain/drafter/pkg/models"
	"github.com/codeready-toolchain/drafter/pkg/progress"
	"github.com/codeready-toolchain/drafter/pkg/session"
)

// command is one parsed input line. Plain text has an empty name.
type command struct {
	name string
	arg  string
}

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{arg: line}
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}
}

// parseReplacement splits "original => proposed".
func parseReplacement(arg string) (original, proposed string, err error) {
	original, proposed, ok := strings.Cut(arg, "=>")
	original = strings.TrimSpace(original)
	proposed = strings.TrimSpace(proposed)
	if !ok || original == "" {
		return "", "", errors.New("usage: <original> => <proposed>")
	}
	return original, proposed, nil
}

// repl executes input lines against the controller.
type repl struct {
	controller *session.Controller
	out        *printer
}

// handle runs one line and reports whether the loop should continue.
func (r *repl) handle(ctx context.Context, line string) bool {
	cmd := parseCommand(line)
	c := r.controller

	switch cmd.name {
	case "":
		if cmd.arg == "" {
			return true
		}
		r.report(c.SendMessage(ctx, cmd.arg, r.documentContext()))

	case "quit", "exit":
		return false

	case "accept", "reject":
		pending := c.Snapshot().PendingEdit
		if pending == nil {
			r.out.printf("no edit awaiting a decision\n")
			return true
		}
		if cmd.name == "reject" {
			r.report(c.RejectEdit(ctx, pending.EditID))
			return true
		}
		res, err := c.AcceptEdit(ctx, pending.EditID)
		if err == nil {
			r.out.printf("accepted (%s, applied locally: %t)\n", res.Strategy, res.Applied)
		}
		r.report(err)

	case "preview", "previewall":
		original, proposed, err := parseReplacement(cmd.arg)
		if err != nil {
			r.report(err)
			return true
		}
		info, ok, err := c.PreviewEdit(ctx, original, proposed, cmd.name == "previewall")
		if err != nil {
			r.report(err)
			return true
		}
		if !ok {
			r.out.printf("%q was not found in the document\n", original)
			return true
		}
		r.out.printPreview(info)

	case "keep", "skip":
		i, err := strconv.Atoi(cmd.arg)
		if err != nil {
			r.report(fmt.Errorf("usage: /%s <occurrence>", cmd.name))
			return true
		}
		r.report(c.ResolveOccurrence(i, cmd.name == "keep"))

	case "confirm":
		res, err := c.ConfirmPreview(ctx)
		if err == nil {
			r.out.printf("committed %d replacement(s)\n", res.Count)
		}
		r.report(err)

	case "discard":
		r.report(c.DiscardPreview())

	case "doc":
		doc := c.Snapshot().Document
		if doc.Content == "" {
			r.out.printf("no document loaded\n")
			return true
		}
		r.out.printf("%s\n%s\n", doc.Title, doc.Content)

	case "status":
		r.out.printStatus(c.Snapshot())

	default:
		r.out.printf("unknown command /%s\n", cmd.name)
	}
	return true
}

func (r *repl) documentContext() *events.DocumentContext {
	doc := r.controller.Snapshot().Document
	if doc.ID == "" {
		return nil
	}
	return &events.DocumentContext{DocumentID: doc.ID}
}

func (r *repl) report(err error) {
	if err != nil {
		r.out.printf("error: %v\n", err)
	}
}

// printer writes transcript updates. Finished messages are printed once;
// the streaming row is shown only when it completes.
type printer struct {
	mu       sync.Mutex
	w        io.Writer
	printed  map[string]bool
	progress models.GenerationProgress
	state    models.ConnectionState
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, printed: make(map[string]bool)}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) render(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Session.ConnectionState != p.state {
		p.state = snap.Session.ConnectionState
		fmt.Fprintf(p.w, "* %s\n", p.state)
	}
	for _, m := range snap.Messages {
		if m.IsStreaming || p.printed[m.ID] {
			continue
		}
		p.printed[m.ID] = true
		fmt.Fprintf(p.w, "[%s] %s\n", m.Kind, m.Content)
		if m.EditData != nil {
			fmt.Fprintf(p.w, "    %q => %q (/accept or /reject)\n", m.EditData.Original, m.EditData.Proposed)
		}
		for _, s := range m.Suggestions {
			fmt.Fprintf(p.w, "    ? %s\n", s)
		}
	}
	if snap.ProgressState == progress.StateRunning && snap.Progress != p.progress {
		fmt.Fprintf(p.w, "... %s %d%%\n", snap.Progress.Stage, snap.Progress.Percent)
	}
	p.progress = snap.Progress
}

func (p *printer) printPreview(info session.PreviewInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "preview %s (%s)\n", info.ID, info.Strategy)
	for i, o := range info.Occurrences {
		fmt.Fprintf(p.w, "  [%d] %q => %q\n", i, o.Before, o.After)
	}
	if info.ServerHTML != "" {
		fmt.Fprintf(p.w, "server preview:\n%s\n", info.ServerHTML)
	}
	fmt.Fprintf(p.w, "/keep N, /skip N, /confirm or /discard\n")
}

func (p *printer) printStatus(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := snap.Session
	fmt.Fprintf(p.w, "session %s (%s) connection=%s mode=%s\n", s.SessionID, s.Title, s.ConnectionState, s.AgentMode)
	fmt.Fprintf(p.w, "generation=%s stage=%q percent=%d\n", snap.ProgressState, snap.Progress.Stage, snap.Progress.Percent)
	if snap.PendingEdit != nil {
		fmt.Fprintf(p.w, "pending edit %s\n", snap.PendingEdit.EditID)
	}
	if snap.Preview != nil {
		fmt.Fprintf(p.w, "open preview %s\n", snap.Preview.ID)
	}
}
