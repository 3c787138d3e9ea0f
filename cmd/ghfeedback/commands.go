package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JohanCodinha/ghfeedback/internal/cache"
	"github.com/JohanCodinha/ghfeedback/internal/delivery"
	"github.com/JohanCodinha/ghfeedback/internal/feedback"
	"github.com/JohanCodinha/ghfeedback/internal/md"
	"github.com/JohanCodinha/ghfeedback/internal/sync"
)

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refetch your stale issues from GitHub",
		Long: `Refresh lists the issues you opened and refetches every one whose cached
copy is older than sync.update_interval. Use --force to refetch all of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.engine.Refresh(cmd.Context(), force)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "refetch every issue regardless of cache age")
	return cmd
}

func printOutcome(w io.Writer, o sync.Outcome) {
	if o.Skipped {
		fmt.Fprintln(w, "refresh skipped: another refresh ran recently")
		return
	}
	fmt.Fprintf(w, "refreshed %d of %d issues\n", len(o.Refreshed), o.Listed)

	failed := make([]int, 0, len(o.Failed))
	for id := range o.Failed {
		failed = append(failed, id)
	}
	sort.Ints(failed)
	for _, id := range failed {
		fmt.Fprintf(w, "  #%d failed: %v\n", id, o.Failed[id])
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		all    bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the cached issues",
		Long: `List prints the cached issues, most recently updated first. Closed issues
are hidden once they have been quiet for sync.hide_after, unless --all is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "markdown" {
				return fmt.Errorf("invalid format %q: must be text or markdown", format)
			}

			a, err := openApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.All()
			if err != nil {
				return err
			}
			hideAfter := a.cfg.Sync.HideAfter
			if all {
				hideAfter = time.Duration(math.MaxInt64)
			}
			visible := cache.Visible(entries, time.Now(), hideAfter)

			if format == "markdown" {
				for i, e := range visible {
					if i > 0 {
						fmt.Fprintln(cmd.OutOrStdout())
					}
					fmt.Fprint(cmd.OutOrStdout(), md.Format(e, a.cfg.Repo))
				}
				return nil
			}
			printEntries(cmd.OutOrStdout(), visible, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include closed issues that are no longer shown")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text, markdown)")
	return cmd
}

func printEntries(w io.Writer, entries []cache.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no issues cached, run 'ghfeedback refresh'")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		flag := ""
		if e.NotifiedForReply {
			flag = "awaiting reply"
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\t%s\n",
			e.Number, e.State, e.Title, humanize.RelTime(e.LastUpdated, now, "ago", "from now"), flag)
	}
	tw.Flush()
}

func newOutstandingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outstanding",
		Short: "Show the issues where a maintainer waits for your reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.engine.Refresh(cmd.Context(), true); err != nil {
				return err
			}

			items := a.outstanding.List()
			w := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(w, "no issue is waiting for your reply")
				return nil
			}
			for _, item := range items {
				c := item.LastDevComment
				fmt.Fprintf(w, "#%d %s\n", item.Number(), item.Issue.Title)
				fmt.Fprintf(w, "  %s asked %s: %s\n", c.User.Login, humanize.Time(c.CreatedAt), firstLine(c.Body))
				fmt.Fprintf(w, "  %s\n", item.Issue.HTMLURL)
			}
			return nil
		},
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}

type respondOptions struct {
	message   string
	attach    []string
	include   []string
	anonymous bool
}

func newRespondCmd(opts *rootOptions) *cobra.Command {
	var ro respondOptions

	cmd := &cobra.Command{
		Use:   "respond <issue>",
		Short: "Send your response to a maintainer's request",
		Long: `Respond refreshes your issues, then answers the given issue if a
maintainer is waiting for you there.

Sources for --include: ` + sourceNames() + `

Example:
  ghfeedback respond 42 -m "Happens with the new build too" --attach crash.png --include log,state`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseIssueNumber(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.engine.Refresh(cmd.Context(), true); err != nil {
				return err
			}

			c, err := a.coordinator()
			if err != nil {
				return err
			}
			if err := compose(cmd, c, number, ro, a.cfg.Feedback.Anonymous); err != nil {
				if derr := c.Discard(); derr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", derr)
				}
				return err
			}

			result, err := c.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if result.MayClose {
				fmt.Fprintln(cmd.OutOrStdout(), "no other issue is waiting for your reply")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&ro.message, "message", "m", "", "response text")
	cmd.Flags().StringSliceVar(&ro.attach, "attach", nil, "file to attach (repeatable)")
	cmd.Flags().StringSliceVar(&ro.include, "include", nil, "system source to attach (repeatable)")
	cmd.Flags().BoolVar(&ro.anonymous, "anonymous", false, "send without identifying yourself")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func compose(cmd *cobra.Command, c *feedback.Coordinator, number int, ro respondOptions, anonymous bool) error {
	if err := c.Select(number); err != nil {
		return err
	}
	if err := c.SetMessage(ro.message); err != nil {
		return err
	}
	if err := c.SetAnonymous(anonymous || ro.anonymous); err != nil {
		return err
	}
	for _, path := range ro.attach {
		if err := c.AttachPath(path); err != nil {
			return err
		}
	}
	for _, name := range ro.include {
		source, err := feedback.ParseSource(name)
		if err != nil {
			return err
		}
		if err := c.Include(cmd.Context(), source); err != nil {
			return err
		}
	}
	return nil
}

func parseIssueNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid issue number %q", s)
	}
	return n, nil
}

func sourceNames() string {
	var names []string
	for _, s := range feedback.Sources() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func newOutboxCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "List the responses queued by the outbox delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			manifests, err := delivery.NewOutbox(cfg.Feedback.OutboxDir).List()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(manifests) == 0 {
				fmt.Fprintln(w, "outbox is empty")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, m := range manifests {
				var size int64
				for _, att := range m.Attachments {
					size += att.Size
				}
				fmt.Fprintf(tw, "%s\t#%d\t%s\t%d files (%s)\t%s\n",
					m.ID, m.Issue, m.Title, len(m.Attachments), humanize.IBytes(uint64(size)), humanize.Time(m.CreatedAt))
			}
			return tw.Flush()
		},
	}
}
