package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v3"

	"github.com/starford/quill/internal/filter"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/render"
)

var (
	categorySub = []string{"c"}
	noteSub     = []string{"n"}
)

var treeAction = withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
	if cmd.Args().Present() {
		return fmt.Errorf("unknown command %q; see --help", cmd.Args().First())
	}
	catMatch, err := filter.Glob(cmd.String("category"))
	if err != nil {
		return err
	}
	noteMatch, since, err := noteFilters(cmd)
	if err != nil {
		return err
	}

	cats, err := s.svc.Categories(ctx, s.order, catMatch)
	if err != nil {
		return fmt.Errorf("couldn't get the categories: %w", err)
	}
	notes := make(map[string][]models.Note, len(cats))
	for _, c := range cats {
		ns, err := s.svc.Notes(ctx, c.Title, s.order, noteMatch, since)
		if err != nil {
			return fmt.Errorf("couldn't get the notes: %w", err)
		}
		notes[c.Title] = ns
	}
	printTree(s.out, s.styles, s.delim, cats, notes)
	return nil
})

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:   "tree",
		Usage:  "Print every category with its notes (default)",
		Action: treeAction,
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"l"},
		Usage:   "List categories or the notes of a category",
		Commands: []*cli.Command{
			{
				Name:    "category",
				Aliases: categorySub,
				Usage:   "List categories",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					if _, err := args(cmd); err != nil {
						return err
					}
					match, err := filter.Glob(cmd.String("category"))
					if err != nil {
						return err
					}
					cats, err := s.svc.Categories(ctx, s.order, match)
					if err != nil {
						return err
					}
					printCategoryList(s.out, s.styles, cats)
					return nil
				}),
			},
			{
				Name:      "note",
				Aliases:   noteSub,
				Usage:     "List the notes of a category",
				ArgsUsage: "CATEGORY",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title")
					if err != nil {
						return err
					}
					match, since, err := noteFilters(cmd)
					if err != nil {
						return err
					}
					notes, err := s.svc.Notes(ctx, a[0], s.order, match, since)
					if err != nil {
						return err
					}
					printNoteList(s.out, s.styles, s.delim, notes)
					return nil
				}),
			},
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:    "add",
		Aliases: []string{"a"},
		Usage:   "Add a category or a note",
		Commands: []*cli.Command{
			{
				Name:      "category",
				Aliases:   categorySub,
				Usage:     "Create a category directory",
				ArgsUsage: "TITLE",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title")
					if err != nil {
						return err
					}
					c, err := s.svc.CreateCategory(ctx, a[0])
					if err != nil {
						return err
					}
					if s.verbose {
						fmt.Fprintf(s.out, "Category '%s' added at '%s'.\n", c.Title, c.Path)
					} else {
						fmt.Fprintln(s.out, c.Path)
					}
					return nil
				}),
			},
			{
				Name:      "note",
				Aliases:   noteSub,
				Usage:     "Create a note with a title and an optional description",
				ArgsUsage: "CATEGORY TITLE [DESCRIPTION]",
				Description: heredoc.Doc(`
					The note file is named after the current Unix time and starts with
					a header carrying the title and, when given, the description.
				`),
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					var a []string
					var err error
					if cmd.Args().Len() > 2 {
						a, err = args(cmd, "category title", "note title", "description")
					} else {
						a, err = args(cmd, "category title", "note title")
						a = append(a, "")
					}
					if err != nil {
						return err
					}
					n, err := s.svc.CreateNote(ctx, a[0], a[1], a[2])
					if err != nil {
						return err
					}
					if s.verbose {
						fmt.Fprintf(s.out, "Note titled '%s' added to the category '%s' at '%s'.\n", n.Title, n.Category, n.Path)
					} else {
						fmt.Fprintln(s.out, n.Path)
					}
					return nil
				}),
			},
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:    "remove",
		Aliases: []string{"r"},
		Usage:   "Remove a category or a note",
		Commands: []*cli.Command{
			{
				Name:      "category",
				Aliases:   categorySub,
				Usage:     "Remove a category and every file inside it",
				ArgsUsage: "TITLE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask before removing notes"},
				},
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title")
					if err != nil {
						return err
					}
					notes, err := s.svc.Notes(ctx, a[0], s.order, nil, time.Time{})
					if err != nil {
						return err
					}
					if len(notes) > 0 && !cmd.Bool("yes") {
						fmt.Fprintf(s.out, "The category contains %d note(s): %s.\n", len(notes), quoteTitles(notes))
						if !s.confirm("Removing the category will remove all the above notes too! Do you want to continue?") {
							return nil
						}
					}
					if err := s.svc.DeleteCategory(ctx, a[0], true); err != nil {
						return err
					}
					fmt.Fprintf(s.out, "Category '%s' removed.\n", a[0])
					return nil
				}),
			},
			{
				Name:      "note",
				Aliases:   noteSub,
				Usage:     "Remove a note file",
				ArgsUsage: "CATEGORY TITLE",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title", "note title")
					if err != nil {
						return err
					}
					if err := s.svc.DeleteNote(ctx, a[0], a[1]); err != nil {
						return err
					}
					fmt.Fprintf(s.out, "Note titled '%s' of the category '%s' removed.\n", a[1], a[0])
					return nil
				}),
			},
		},
	}
}

func copyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "copy", Usage: "Also copy the path to the clipboard"}
}

// printPath prints path and copies it when --copy is set. A clipboard failure
// is reported after the path has been printed.
func printPath(cmd *cli.Command, s *session, path, verbose string) error {
	if s.verbose {
		fmt.Fprintln(s.out, verbose)
	} else {
		fmt.Fprintln(s.out, path)
	}
	if !cmd.Bool("copy") {
		return nil
	}
	if err := clipboard.WriteAll(path); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

func pathCommand() *cli.Command {
	return &cli.Command{
		Name:    "path",
		Aliases: []string{"p"},
		Usage:   "Print the path of a category or a note",
		Commands: []*cli.Command{
			{
				Name:      "category",
				Aliases:   categorySub,
				ArgsUsage: "TITLE",
				Flags:     []cli.Flag{copyFlag()},
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title")
					if err != nil {
						return err
					}
					c, err := s.svc.Category(ctx, a[0])
					if err != nil {
						return err
					}
					return printPath(cmd, s, c.Path, fmt.Sprintf("Path of the category '%s' is '%s'.", c.Title, c.Path))
				}),
			},
			{
				Name:      "note",
				Aliases:   noteSub,
				ArgsUsage: "CATEGORY TITLE",
				Flags:     []cli.Flag{copyFlag()},
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title", "note title")
					if err != nil {
						return err
					}
					n, err := s.svc.Note(ctx, a[0], a[1])
					if err != nil {
						return err
					}
					return printPath(cmd, s, n.Path,
						fmt.Sprintf("Path of the note titled '%s' of category '%s' is '%s'.", n.Title, n.Category, n.Path))
				}),
			},
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:    "info",
		Aliases: []string{"i"},
		Usage:   "Show details of a category or a note",
		Commands: []*cli.Command{
			{
				Name:      "category",
				Aliases:   categorySub,
				ArgsUsage: "TITLE",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title")
					if err != nil {
						return err
					}
					c, err := s.svc.Category(ctx, a[0])
					if err != nil {
						return err
					}
					notes, err := s.svc.Notes(ctx, a[0], s.order, nil, time.Time{})
					if err != nil {
						return err
					}
					printCategoryInfo(s.out, s.styles, c, notes)
					return nil
				}),
			},
			{
				Name:      "note",
				Aliases:   noteSub,
				ArgsUsage: "CATEGORY TITLE",
				Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
					a, err := args(cmd, "category title", "note title")
					if err != nil {
						return err
					}
					n, err := s.svc.Note(ctx, a[0], a[1])
					if err != nil {
						return err
					}
					printNoteInfo(s.out, s.styles, n)
					return nil
				}),
			},
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Aliases:   []string{"s"},
		Usage:     "Render a note in the terminal",
		ArgsUsage: "CATEGORY TITLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "style", Usage: "Glamour style (dark, light, notty, ...); picked from the terminal when empty"},
			&cli.IntFlag{Name: "width", Value: 80, Usage: "Wrap width"},
		},
		Action: withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
			a, err := args(cmd, "category title", "note title")
			if err != nil {
				return err
			}
			n, err := s.svc.Content(ctx, a[0], a[1])
			if err != nil {
				return err
			}
			width := int(cmd.Int("width"))
			if width <= 0 {
				return errors.New("width must be positive")
			}
			out, err := render.Terminal([]byte(n.Content), cmd.String("style"), width)
			if err != nil {
				return err
			}
			fmt.Fprint(s.out, out)
			return nil
		}),
	}
}
