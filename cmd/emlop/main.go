// Command emlop summarizes and predicts Gentoo portage build times from
// an emerge.log file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vincentdephily/emlop-sub000/internal/command"
	"github.com/vincentdephily/emlop-sub000/internal/config"
	"github.com/vincentdephily/emlop-sub000/internal/event"
	"github.com/vincentdephily/emlop-sub000/internal/filter"
	"github.com/vincentdephily/emlop-sub000/internal/logsource"
	"github.com/vincentdephily/emlop-sub000/internal/parser"
	"github.com/vincentdephily/emlop-sub000/internal/predict"
	"github.com/vincentdephily/emlop-sub000/internal/resume"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("emlop", "err", err)
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	var raw config.Raw

	root := &cobra.Command{
		Use:          "emlop",
		Short:        "Summarize and predict emerge.log build times",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&raw.Logfile, "logfile", "f", "/var/log/emerge.log", "path to emerge.log (.gz supported)")
	root.PersistentFlags().StringVar(&raw.From, "from", "", "only show events at or after this point")
	root.PersistentFlags().StringVar(&raw.To, "to", "", "only show events at or before this point")
	root.PersistentFlags().StringSliceVarP(&raw.Package, "package", "p", nil, "filter by package name or regex")
	root.PersistentFlags().BoolVar(&raw.Exact, "exact", false, "match --package terms exactly instead of as a regex")
	root.PersistentFlags().StringVar(&raw.Show, "show", "", "event kinds to show: any of m(erge) u(nmerge) s(ync) c(ommand) a(ll)")
	root.PersistentFlags().BoolVar(&raw.Utc, "utc", false, "display dates in UTC instead of the local offset")
	root.PersistentFlags().StringVar(&raw.Date, "date", "", "date format: ymd, ymdhms (default), ymdhmso, rfc3339, rfc2822, compact, unix")
	root.PersistentFlags().StringVar(&raw.Duration, "duration", "", "duration format: hms (default), hmsfixed, secs, human")
	root.PersistentFlags().StringVar(&raw.Color, "color", "", "override theme colors, e.g. \"merge:1;32 count:0;33\"")
	root.PersistentFlags().BoolVar(&raw.Tab, "tab", false, "tab-separate columns instead of aligning them")

	root.AddCommand(newLogCmd(&raw), newStatsCmd(&raw), newPredictCmd(&raw), newAccuracyCmd(&raw))
	return root
}

func resolveCommon(raw config.Raw) (command.Common, error) {
	resolved, err := config.Resolve(raw, time.Now(), config.StdoutIsTerminal(os.Stdout.Fd()))
	if err != nil {
		return command.Common{}, err
	}
	win, err := resolveWindow(raw.Logfile, resolved)
	if err != nil {
		return command.Common{}, err
	}
	return command.Common{
		Logfile:    resolved.Logfile,
		Window:     win,
		Pkg:        resolved.Pkg,
		Show:       resolved.Show,
		Loc:        resolved.Loc,
		DateStyle:  resolved.DateStyle,
		DurStyle:   resolved.DurStyle,
		TableStyle: resolved.TableStyle,
		Theme:      resolved.Theme,
	}, nil
}

// resolveWindow turns the parsed --from/--to bounds into a concrete
// filter.Window. A bound given as "the Nth invocation" needs a first pass
// over the log's CommandStart markers to resolve to a timestamp.
func resolveWindow(logfile string, r config.Resolved) (filter.Window, error) {
	min, max := filter.MinTS, filter.MaxTS
	needRun := r.FromBound.IsRun || r.ToBound.IsRun
	if needRun {
		ts, err := commandStartTimes(logfile)
		if err != nil {
			return filter.Window{}, err
		}
		if r.FromBound.IsRun {
			if r.FromBound.Run >= len(ts) {
				return filter.Window{}, fmt.Errorf("--from: only %d invocations in log", len(ts))
			}
			min = ts[r.FromBound.Run]
		}
		if r.ToBound.IsRun {
			if r.ToBound.Run >= len(ts) {
				return filter.Window{}, fmt.Errorf("--to: only %d invocations in log", len(ts))
			}
			max = ts[r.ToBound.Run]
		}
	}
	if !r.FromBound.IsRun && r.FromBound.Unix != 0 {
		min = r.FromBound.Unix
	}
	if !r.ToBound.IsRun && r.ToBound.Unix != 0 {
		max = r.ToBound.Unix
	}
	if min > max {
		return filter.Window{}, fmt.Errorf("--from must not be after --to")
	}
	return filter.Window{Min: min, Max: max}, nil
}

func commandStartTimes(logfile string) ([]int64, error) {
	src, err := logsource.Open(logfile)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	var ts []int64
	opt := parser.Options{Window: filter.Unbounded(), Pkg: filter.NewMatchAll(), Show: parser.Show{Command: true}}
	for ev := range parser.Stream(context.Background(), src, opt) {
		if ev.Kind == event.CommandStart {
			ts = append(ts, ev.TS)
		}
	}
	return ts, nil
}

func newLogCmd(raw *config.Raw) *cobra.Command {
	var first, last int
	c := &cobra.Command{
		Use:   "log [search]",
		Short: "List merge/unmerge/sync events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := *raw
			if len(args) == 1 {
				r.Package = append(append([]string{}, r.Package...), args[0])
			}
			common, err := resolveCommon(r)
			if err != nil {
				return err
			}
			found, err := command.Log(cmd.Context(), common, first, last, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !found {
				slog.Warn("no matching events found")
			}
			return nil
		},
	}
	c.Flags().IntVar(&first, "first", 0, "show only the first N matching rows")
	c.Flags().IntVar(&last, "last", 0, "show only the last N matching rows")
	return c
}

func newStatsCmd(raw *config.Raw) *cobra.Command {
	var group, avg string
	var limit int
	c := &cobra.Command{
		Use:   "stats",
		Short: "Show per-package and per-period build time summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			common, err := resolveCommon(*raw)
			if err != nil {
				return err
			}
			span, err := timeutil.ParseTimespan(group)
			if err != nil {
				return err
			}
			average, err := predict.ParseAverage(avg)
			if err != nil {
				return err
			}
			found, err := command.Stats(cmd.Context(), command.StatsOptions{
				Common: common, Group: span, Average: average, Limit: limit,
			}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !found {
				slog.Warn("no matching events found")
			}
			return nil
		},
	}
	c.Flags().StringVarP(&group, "groupby", "g", "", "bucket totals by y(ear)/m(onth)/w(eek)/d(ay)/n(one)")
	c.Flags().StringVarP(&avg, "avg", "a", "", "average style: a(rith)/m(edian)/w(eighted-arith)/wm(weighted-median)")
	c.Flags().IntVarP(&limit, "limit", "l", 10, "max history entries kept per package (0 = unlimited)")
	return c
}

func newPredictCmd(raw *config.Raw) *cobra.Command {
	var avg, resumeKind, resumeDB string
	c := &cobra.Command{
		Use:   "predict",
		Short: "Estimate time remaining for in-progress or pending builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			common, err := resolveCommon(*raw)
			if err != nil {
				return err
			}
			average, err := predict.ParseAverage(avg)
			if err != nil {
				return err
			}
			rk, err := resume.ParseKind(resumeKind)
			if err != nil {
				return err
			}
			found, err := command.Predict(command.PredictOptions{
				Common: common, Average: average, Resume: rk, ResumeDB: resumeDB, Now: time.Now().Unix(),
			}, os.Stdin, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !found {
				slog.Warn("nothing currently building or pending")
			}
			return nil
		},
	}
	c.Flags().StringVarP(&avg, "avg", "a", "", "average style: a(rith)/m(edian)/w(eighted-arith)/wm(weighted-median)")
	c.Flags().StringVar(&resumeKind, "resume", "", "resume list to consult when stdin gives no pretend output: auto/main/backup/either/no")
	c.Flags().StringVar(&resumeDB, "resume-db", "", "path to the resume-list database")
	return c
}

func newAccuracyCmd(raw *config.Raw) *cobra.Command {
	var avg string
	var limit int
	c := &cobra.Command{
		Use:   "accuracy",
		Short: "Compare past predictions against what actually happened",
		RunE: func(cmd *cobra.Command, args []string) error {
			common, err := resolveCommon(*raw)
			if err != nil {
				return err
			}
			average, err := predict.ParseAverage(avg)
			if err != nil {
				return err
			}
			found, err := command.Accuracy(cmd.Context(), common, average, limit, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !found {
				slog.Warn("not enough history to evaluate accuracy")
			}
			return nil
		},
	}
	c.Flags().StringVarP(&avg, "avg", "a", "", "average style: a(rith)/m(edian)/w(eighted-arith)/wm(weighted-median)")
	c.Flags().IntVarP(&limit, "limit", "l", 10, "max history entries kept per package (0 = unlimited)")
	return c
}
