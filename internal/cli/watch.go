package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/forensiq/internal/client"
	"github.com/bryanwahyu/forensiq/internal/console"
)

func (a *app) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Analyze evidence dropped into a directory",
		Long: `Watch a directory as a drop zone. Files created or written there are
queued; once the directory has been quiet for --settle the queue is
submitted, the result rendered and the session reset.

Examples:
  forensiq watch ./dropbox
  forensiq watch /srv/evidence --settle 5s --tab report`,
		Args: cobra.ExactArgs(1),
		RunE: a.runWatch,
	}
	addViewFlags(cmd)
	cmd.Flags().Duration("settle", 2*time.Second, "quiet period before submitting")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := a.viewOptions()
	if err != nil {
		return err
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}

	dz := &dropZone{
		dir:     args[0],
		settle:  a.v.GetDuration("settle"),
		session: console.NewSession(a.client(), console.WriterNotifier{W: a.errOut}),
		errOut:  a.errOut,
		enqueue: a.enqueue,
		render: func(res *client.Result, at time.Time) error {
			return a.renderResult(res, at, opts)
		},
	}
	fmt.Fprintf(a.errOut, "watching %s (settle %s), Ctrl+C to stop\n", dz.dir, dz.settle)
	return dz.run(ctx)
}

// dropZone batches files appearing in dir and submits them once no new
// activity has been seen for settle.
type dropZone struct {
	dir     string
	settle  time.Duration
	session *console.Session
	errOut  io.Writer
	enqueue func(*console.Session, []console.PendingFile)
	render  func(*client.Result, time.Time) error
	ready   chan struct{} // closed once the watch is established
}

func (d *dropZone) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(d.dir); err != nil {
		return fmt.Errorf("watch %s: %w", d.dir, err)
	}
	if d.ready != nil {
		close(d.ready)
	}

	timer := time.NewTimer(d.settle)
	timer.Stop()
	var settled <-chan time.Time

	var pending []string
	seen := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || hidden(ev.Name) {
				continue
			}
			if !seen[ev.Name] {
				seen[ev.Name] = true
				pending = append(pending, ev.Name)
			}
			timer.Reset(d.settle)
			settled = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(d.errOut, "watcher error: %v\n", err)
		case <-settled:
			settled = nil
			d.flush(ctx, pending)
			pending = nil
			clear(seen)
		}
	}
}

func (d *dropZone) flush(ctx context.Context, paths []string) {
	files := make([]console.PendingFile, 0, len(paths))
	for _, p := range paths {
		f, err := console.LocalFile(p)
		if err != nil {
			// removed again or a directory
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return
	}
	if d.enqueue != nil {
		d.enqueue(d.session, files)
	} else {
		d.session.AddFiles(files...)
	}

	if err := d.session.Submit(ctx); err == nil {
		res, at := d.session.Result()
		if err := d.render(res, at); err != nil {
			fmt.Fprintf(d.errOut, "render error: %v\n", err)
		}
	}
	d.session.Reset()
}

func hidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
