package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/loader"
)

// dump prints boards, a catalog or a thread as plain text, for pipes and
// scripts.
func dump(ctx context.Context, w io.Writer, a *app, f flags) error {
	boards, err := a.commands.FetchBoards(ctx, a.site)
	if err != nil {
		return err
	}
	if f.board == "" {
		writeBoards(w, boards)
		return nil
	}

	board, ok := a.site.Board(f.board)
	if !ok {
		return fmt.Errorf("board /%s/: %w", f.board, domain.ErrNotFound)
	}

	if f.thread > 0 {
		l, err := a.commands.Open(ctx, loadable.ForThread(a.site, board, f.thread, ""))
		if err != nil {
			return err
		}
		thread, err := a.commands.FetchThread(ctx, l)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, l.Title)
		writeThread(w, thread)
		return nil
	}

	l, err := a.commands.Open(ctx, loadable.ForCatalog(a.site, board))
	if err != nil {
		return err
	}
	catalog, err := a.commands.FetchCatalog(ctx, l)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, l.Title)
	writeCatalog(w, board.Code, catalog)
	return nil
}

func writeBoards(w io.Writer, boards []*domain.Board) {
	for _, b := range boards {
		nsfw := ""
		if !b.WorkSafe {
			nsfw = " (nsfw)"
		}
		fmt.Fprintf(w, "/%s/\t%s%s\n", b.Code, b.Name, nsfw)
	}
}

func writeCatalog(w io.Writer, board string, c *domain.Catalog) {
	for _, op := range c.Threads {
		fmt.Fprintf(w, "No.%d\t%s\tR: %d / I: %d\n",
			op.No, loader.ThreadTitle(board, op), op.ReplyCount, op.ImageCount)
	}
}

func writeThread(w io.Writer, t *domain.Thread) {
	for _, p := range t.Posts {
		header := []string{fmt.Sprintf("No.%d", p.No)}
		if p.Name != "" {
			header = append(header, p.Name)
		}
		if !p.Time.IsZero() {
			header = append(header, p.Time.UTC().Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w, strings.Join(header, " "))
		for _, img := range p.Images {
			fmt.Fprintf(w, "  %s (%s)\n", img.ImageURL, img.FormattedSize())
		}
		if p.Text != "" {
			fmt.Fprintln(w, p.Text)
		}
		fmt.Fprintln(w)
	}
}

// printHistory lists the threads the user opened, newest first
func printHistory(ctx context.Context, w io.Writer, a *app) error {
	threads, err := a.manager.History(ctx)
	if err != nil {
		return err
	}
	return writeHistory(w, threads)
}

// writeHistory prints one thread per line with the token -open accepts
func writeHistory(w io.Writer, threads []*loadable.Loadable) error {
	for _, l := range threads {
		token, err := l.Token()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "/%s/%d\t%s\t%s\n", l.BoardCode, l.No, l.Title, token)
	}
	return nil
}
