package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/starford/quill/internal"
	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/filter"
	"github.com/starford/quill/internal/noteservice"
)

// session is what every catalog command works with: a service over the
// notes root and the output settings taken from the global flags.
type session struct {
	svc     *noteservice.Service
	close   func()
	logger  *slog.Logger
	out     io.Writer
	in      io.Reader
	verbose bool
	delim   string
	order   noteservice.Order
	styles  styles
}

func openSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	root := cmd.Root()
	errOut := root.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	svc, closer, err := internal.OpenService(cfg, false, logger)
	if err != nil {
		return nil, err
	}

	out := root.Writer
	if out == nil {
		out = os.Stdout
	}
	in := root.Reader
	if in == nil {
		in = os.Stdin
	}

	order := noteservice.OrderModified
	if cmd.Bool("alpha") {
		order = noteservice.OrderAlpha
	}

	return &session{
		svc:     svc,
		close:   closer,
		logger:  logger,
		out:     out,
		in:      in,
		verbose: cmd.Bool("verbose"),
		delim:   cmd.String("delimiter"),
		order:   order,
		styles:  newStyles(lipgloss.NewRenderer(out)),
	}, nil
}

// withSession opens a session for the duration of fn.
func withSession(fn func(ctx context.Context, cmd *cli.Command, s *session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(ctx, cmd, s)
	}
}

// noteFilters returns the --note glob and the --since bound.
func noteFilters(cmd *cli.Command) (catalog.Filter, time.Time, error) {
	match, err := filter.Glob(cmd.String("note"))
	if err != nil {
		return nil, time.Time{}, err
	}
	since, err := filter.ParseSince(cmd.String("since"), time.Now())
	if err != nil {
		return nil, time.Time{}, err
	}
	return match, since, nil
}

// confirm asks a y/n question and reports whether the answer was yes.
func (s *session) confirm(question string) bool {
	fmt.Fprintf(s.out, "%s (y/n): ", question)
	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// args returns the n positional arguments of cmd, or a usage error naming
// the first missing one.
func args(cmd *cli.Command, names ...string) ([]string, error) {
	a := cmd.Args()
	out := make([]string, len(names))
	for i, name := range names {
		if a.Len() <= i {
			return nil, fmt.Errorf("missing %s; see --help", name)
		}
		out[i] = a.Get(i)
	}
	if a.Len() > len(names) {
		return nil, fmt.Errorf("unexpected argument %q; see --help", a.Get(len(names)))
	}
	return out, nil
}
