package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/forensiq/internal/client"
	"github.com/bryanwahyu/forensiq/internal/console"
	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Submit evidence files and show the investigation",
		Long: `Queue the given files (or glob patterns) and submit them in one request.
Duplicates (same name and size) are queued once.

Examples:
  forensiq analyze auth.log history.csv
  forensiq analyze "evidence/**/*.log" --tab timeline --filter auth
  forensiq analyze dump/* --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runAnalyze,
	}
	addViewFlags(cmd)
	return cmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().String("tab", "all", "what to show: report, timeline, all")
	cmd.Flags().String("filter", console.FilterAll, "only show timeline events whose source contains this")
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := a.viewOptions()
	if err != nil {
		return err
	}
	files, err := expandPaths(args)
	if err != nil {
		return err
	}

	session := console.NewSession(a.client(), console.WriterNotifier{W: a.errOut})
	a.enqueue(session, files)

	if err := session.Submit(ctx); err != nil {
		return err
	}
	res, at := session.Result()
	return a.renderResult(res, at, opts)
}

// enqueue adds files to the session and lists the queue on errOut.
func (a *app) enqueue(session *console.Session, files []console.PendingFile) {
	_, skipped := session.AddFiles(files...)
	if skipped > 0 {
		fmt.Fprintf(a.errOut, "skipped %d duplicate file(s)\n", skipped)
	}
	fmt.Fprintf(a.errOut, "queued %s:\n", session.CountLabel())
	for i, f := range session.Files() {
		fmt.Fprintln(a.errOut, "  "+console.QueueLine(i, f))
	}
}

type viewOptions struct {
	tab    string
	filter string
	json   bool
	width  int
}

func (a *app) viewOptions() (viewOptions, error) {
	asJSON, err := a.jsonOutput()
	if err != nil {
		return viewOptions{}, err
	}
	tab := a.v.GetString("tab")
	if tab == "" {
		tab = "all"
	}
	if tab != "all" {
		if _, err := console.ParseTab(tab); err != nil {
			return viewOptions{}, err
		}
	}
	filter := a.v.GetString("filter")
	if filter == "" {
		filter = console.FilterAll
	}
	return viewOptions{tab: tab, filter: filter, json: asJSON, width: a.v.GetInt("width")}, nil
}

func (a *app) renderResult(res *client.Result, at time.Time, opts viewOptions) error {
	if res == nil {
		return nil
	}
	if opts.json {
		out := *res
		out.Timeline = filterEvents(res.Timeline, opts.filter)
		switch opts.tab {
		case string(console.TabReport):
			out.Timeline = nil
		case string(console.TabTimeline):
			out.Report = ""
		}
		return a.writeJSON(out)
	}
	_, err := fmt.Fprint(a.out, console.NewRenderer(opts.width).Result(res, at, opts.tab, opts.filter))
	return err
}

// filterEvents keeps the events that pass filter.
func filterEvents(events []evidence.Event, filter string) []evidence.Event {
	out := make([]evidence.Event, 0, len(events))
	for _, e := range events {
		if console.Matches(e.Source, filter) {
			out = append(out, e)
		}
	}
	return out
}

// expandPaths resolves paths and doublestar globs ("logs/**/*.log") into
// queued files.
func expandPaths(args []string) ([]console.PendingFile, error) {
	var files []console.PendingFile
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files matched %q", arg)
		}
		for _, m := range matches {
			f, err := console.LocalFile(m)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}
