package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"antclust/internal/config"
	"antclust/internal/dataset"
	"antclust/internal/stats"
	"antclust/pkg/antclust"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		configPath string
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Cluster the dataset described by a run configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				return errors.New("run requires --config")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			client, err := openClient(cmd, flags, &cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, summary.Record)
			}

			record := summary.Record
			fmt.Fprintf(out, "run_id=%s entities=%s colonies=%d unaffiliated=%d reassigned=%d meetings=%s\n",
				record.ID,
				humanize.Comma(int64(record.Stats.Entities)),
				record.Stats.Colonies,
				record.Stats.Unaffiliated,
				record.Stats.Reassigned,
				humanize.Comma(int64(record.Stats.Meetings)),
			)
			if record.Evaluation != nil {
				fmt.Fprintf(out, "purity=%.4f adjusted_rand_index=%.4f truth_classes=%d\n",
					record.Evaluation.Purity, record.Evaluation.AdjustedRandIndex, record.Evaluation.TruthClasses)
			}
			if summary.ArtifactsDir != "" {
				fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "run configuration file (YAML or JSON)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the stored run record as JSON")
	return cmd
}

func newRunsCmd(flags *globalFlags) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			client, err := openClient(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			for _, run := range runs {
				line := fmt.Sprintf("%s created=%s entities=%s colonies=%d seed=%d",
					run.RunID, describeTime(run.CreatedAtUTC), humanize.Comma(int64(run.Entities)), run.Colonies, run.Seed)
				if run.Purity != nil {
					line += fmt.Sprintf(" purity=%.4f", *run.Purity)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs list as JSON")
	return cmd
}

func newShowCmd(flags *globalFlags) *cobra.Command {
	var (
		latest  bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRunSelector(args, latest); err != nil {
				return err
			}
			client, err := openClient(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			var record antclust.RunRecord
			if latest {
				record, err = client.LatestRun(cmd.Context())
			} else {
				record, err = client.GetRun(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, record)
			}
			writeRecord(out, record)
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "show the most recent run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the run record as JSON")
	return cmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var (
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write the artifact files of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRunSelector(args, latest); err != nil {
				return err
			}
			client, err := openClient(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			req := antclust.ExportRequest{Latest: latest, OutDir: outDir}
			if len(args) == 1 {
				req.RunID = args[0]
			}
			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&outDir, "out", "exports", "export output directory")
	return cmd
}

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run_id=%s\n", args[0])
			return nil
		},
	}
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List similarity strategies, rule sets and template rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "similarity: %s\n", strings.Join(antclust.StrategyNames(), ", "))
			fmt.Fprintf(out, "rulesets: %s\n", strings.Join(antclust.RulesetNames(), ", "))
			fmt.Fprintf(out, "template rules: %s\n", strings.Join(antclust.TemplateRuleNames(), ", "))
			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	var (
		header      bool
		labelColumn string
	)
	cmd := &cobra.Command{
		Use:   "describe <csv>",
		Short: "Print per-column ranges of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := dataset.LoadFile(args[0], dataset.LoadOptions{Header: header, LabelColumn: labelColumn})
			if err != nil {
				return err
			}
			columnStats, err := table.ColumnStats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows=%s columns=%d\n", humanize.Comma(int64(len(table.Rows))), len(columnStats))
			labelIdx := -1
			if labelColumn != "" {
				labelIdx, _ = table.ColumnIndex(labelColumn)
			}
			for i, s := range columnStats {
				name := strconv.Itoa(i)
				if i < len(table.Header) {
					name = table.Header[i]
				}
				if i == labelIdx {
					fmt.Fprintf(out, "column=%s label classes=%d\n", name, countClasses(table.Truth))
					continue
				}
				fmt.Fprintf(out, "column=%s min=%g avg=%g max=%g\n", name, s.Min, s.Avg, s.Max)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&header, "header", true, "first row holds column names")
	cmd.Flags().StringVar(&labelColumn, "label-column", "", "ground-truth column name or index")
	return cmd
}

func countClasses(truth []string) int {
	classes := make(map[string]struct{}, len(truth))
	for _, class := range truth {
		classes[class] = struct{}{}
	}
	return len(classes)
}

func checkRunSelector(args []string, latest bool) error {
	if len(args) == 1 && latest {
		return errors.New("use either a run id or --latest, not both")
	}
	if len(args) == 0 && !latest {
		return errors.New("a run id or --latest is required")
	}
	return nil
}

func writeRecord(out io.Writer, record antclust.RunRecord) {
	fmt.Fprintf(out, "run_id=%s\n", record.ID)
	fmt.Fprintf(out, "created=%s\n", describeTime(record.CreatedAtUTC))
	if record.Config.DatasetPath != "" {
		fmt.Fprintf(out, "dataset=%s\n", record.Config.DatasetPath)
	}
	fmt.Fprintf(out, "ruleset=%s seed=%d alpha=%g beta=%g shrink=%g removal=%g\n",
		record.Config.Ruleset, record.Config.Seed, record.Config.Alpha, record.Config.Beta,
		record.Config.NestShrinkProp, record.Config.NestRemovalProp)
	fmt.Fprintf(out, "entities=%s meetings=%s colonies=%d unaffiliated=%d reassigned=%d\n",
		humanize.Comma(int64(record.Stats.Entities)), humanize.Comma(int64(record.Stats.Meetings)),
		record.Stats.Colonies, record.Stats.Unaffiliated, record.Stats.Reassigned)

	sizes, unlabeled := stats.ClusterSizes(record.Labels)
	for label, size := range sizes {
		fmt.Fprintf(out, "colony=%d size=%s\n", label, humanize.Comma(int64(size)))
	}
	if unlabeled > 0 {
		fmt.Fprintf(out, "unlabeled=%d\n", unlabeled)
	}
	if record.Evaluation != nil {
		fmt.Fprintf(out, "purity=%.4f adjusted_rand_index=%.4f\n",
			record.Evaluation.Purity, record.Evaluation.AdjustedRandIndex)
	}
}

func describeTime(value string) string {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%s (%s)", value, humanize.Time(t))
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
