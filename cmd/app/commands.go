package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/starford/inkwell/internal"
	"github.com/starford/inkwell/internal/export"
	"github.com/starford/inkwell/internal/noteservice"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/search"
)

// ANSI reverse video, used for highlights on a terminal.
const (
	termMarkOpen  = "\x1b[7m"
	termMarkClose = "\x1b[27m"
)

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Directory to write the file to",
		Value:   ".",
	}
}

// withService runs fn against a note service opened from the configured
// store. CLI logs go to stderr at warning level or above.
func withService(ctx context.Context, cmd *cli.Command, fn func(*noteservice.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: max(cfg.App.LogLevel, slog.LevelWarn),
	}))

	svc, store, err := internal.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(svc)
}

func stdout(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func parseID(cmd *cli.Command) (int64, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return 0, errors.New("note id is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", arg)
	}
	return id, nil
}

// content joins args with spaces, or reads stdin when there are none.
func content(cmd *cli.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.Root().Reader)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func writeExport(cmd *cli.Command, f export.File) error {
	dir := cmd.String("output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	p := filepath.Join(dir, f.Filename)
	if err := os.WriteFile(p, f.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	_, err := fmt.Fprintln(stdout(cmd), p)
	return err
}

func printNotes(w io.Writer, notes []noteservice.NoteDetail) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODIFIED\tWORDS\tTITLE\tTAGS")
	for _, n := range notes {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			n.ID,
			n.LastModified.Local().Format("2006-01-02 15:04"),
			n.Words,
			n.Title,
			strings.Join(n.Tags, ","))
	}
	return tw.Flush()
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, most recently modified first",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				return printNotes(stdout(cmd), svc.ListNotes(ctx))
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "render", Aliases: []string{"r"}, Usage: "Render markdown for the terminal"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				n, err := svc.GetNote(ctx, id)
				if err != nil {
					return err
				}
				out := n.Content
				if cmd.Bool("render") {
					term, err := render.NewTerminal(80)
					if err != nil {
						return err
					}
					if out, err = term.Render(n.Content); err != nil {
						return err
					}
				}
				_, err = fmt.Fprintln(stdout(cmd), out)
				return err
			})
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a note from arguments or stdin",
		ArgsUsage: "[text...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := content(cmd, cmd.Args().Slice())
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				n, err := svc.CreateNote(ctx, text)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout(cmd), n.ID)
				return err
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace a note's content from arguments or stdin",
		ArgsUsage: "<id> [text...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd)
			if err != nil {
				return err
			}
			text, err := content(cmd, cmd.Args().Tail())
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				n, err := svc.UpdateNote(ctx, id, text, "")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(stdout(cmd), "%d %s\n", n.ID, n.Title)
				return err
			})
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a note",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				return svc.DeleteNote(ctx, id)
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find notes containing every term",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "highlight", Usage: "Mark matches in previews"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				res := svc.Search(ctx, query, false)
				w := stdout(cmd)
				if !res.Active {
					return errors.New("search query is required")
				}
				if !cmd.Bool("highlight") {
					notes := make([]noteservice.NoteDetail, len(res.Results))
					for i, h := range res.Results {
						notes[i] = h.NoteDetail
					}
					return printNotes(w, notes)
				}
				markOpen, markClose := search.MarkOpen, search.MarkClose
				if isTerminal(w) {
					markOpen, markClose = termMarkOpen, termMarkClose
				}
				for _, h := range res.Results {
					line := search.HighlightWith(h.Preview, query, markOpen, markClose)
					if _, err := fmt.Fprintf(w, "%d\t%s\n", h.ID, line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write one note to a markdown file",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{outputFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				f, err := svc.ExportNote(ctx, id)
				if err != nil {
					return err
				}
				return writeExport(cmd, f)
			})
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Write every note to a JSON backup file",
		Flags: []cli.Flag{outputFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				f, err := svc.ExportAll(ctx)
				if err != nil {
					return err
				}
				return writeExport(cmd, f)
			})
		},
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Merge a JSON backup file into the collection",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("backup file is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			return withService(ctx, cmd, func(svc *noteservice.Service) error {
				n, err := svc.Restore(ctx, data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(stdout(cmd), "restored %d notes\n", n)
				return err
			})
		},
	}
}
