// Package main provides the corpusgraph CLI entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/corpusgraph/internal/pipeline"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/workflow"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpusgraph",
		Short: "corpusgraph - linguistic corpus conversion pipeline",
		Long: `corpusgraph runs declarative TOML workflows that import, fuse, and
export linguistic annotation corpora through an in-memory annotation graph.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("corpusgraph v%s (%s)\n", version, commit)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run [workflow-file]",
		Short: "Run a workflow file",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkflow,
	}
	runCmd.Flags().Int("spill-threshold", 0, "events buffered in memory before an importer's log spills to disk (0 disables spilling)")
	runCmd.Flags().String("spill-dir", "", "parent directory for an importer's spilled update log (defaults to the OS temp dir)")
	runCmd.Flags().Bool("strict", false, "fail instead of warn when fan-in apply hits a precondition error")
	rootCmd.AddCommand(runCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [workflow-file]",
		Short: "Parse and resolve a workflow file without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  validateWorkflow,
	}
	validateCmd.Flags().Bool("dump-plan", false, "print the resolved graph_op configuration as YAML instead of a summary line")
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	path := args[0]
	desc, err := workflow.ReadFile(path)
	if err != nil {
		return err
	}
	built, err := workflow.Build(desc)
	if err != nil {
		return err
	}

	spillThreshold, _ := cmd.Flags().GetInt("spill-threshold")
	spillDir, _ := cmd.Flags().GetString("spill-dir")
	strict, _ := cmd.Flags().GetBool("strict")

	executor := pipeline.New(built.Importers, built.Manipulators, built.Exporters, workflow.Dir(path))
	executor.StrictApply = strict
	executor.SpillThreshold = spillThreshold
	executor.SpillDir = spillDir

	sink, recv := progress.New(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, ok := recv.Recv()
			if !ok {
				return
			}
			printMessage(msg)
		}
	}()

	_, runErr := executor.Run(context.Background(), sink)
	recv.Close()
	<-done
	return runErr
}

func validateWorkflow(cmd *cobra.Command, args []string) error {
	desc, err := workflow.ReadFile(args[0])
	if err != nil {
		return err
	}
	if _, err := workflow.Build(desc); err != nil {
		return err
	}

	dumpPlan, _ := cmd.Flags().GetBool("dump-plan")
	if dumpPlan {
		return dumpGraphOpPlan(desc)
	}

	fmt.Printf("ok: %d import(s), %d graph_op(s), %d export(s)\n", len(desc.Import), len(desc.GraphOp), len(desc.Export))
	return nil
}

// dumpGraphOpPlan renders each graph_op step's resolved configuration as
// YAML, a debug-only format distinct from the TOML workflow wire format.
func dumpGraphOpPlan(desc *workflow.Descriptor) error {
	plan := make([]map[string]any, 0, len(desc.GraphOp))
	for i, step := range desc.GraphOp {
		plan = append(plan, map[string]any{
			"index":  i,
			"action": step.Action,
			"config": step.Config,
		})
	}
	out, err := yaml.Marshal(plan)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, string(out))
	return nil
}

func printMessage(msg progress.Message) {
	switch msg.Kind {
	case progress.Info:
		fmt.Fprintln(os.Stdout, msg.Text)
	case progress.Warning:
		fmt.Fprintln(os.Stderr, "warning:", msg.Text)
	case progress.Failed:
		fmt.Fprintln(os.Stderr, "failed:", msg.Err)
	case progress.Progress:
		fmt.Fprintf(os.Stdout, "progress: %d/%d\n", msg.Done, msg.Total)
	case progress.StepDone:
		fmt.Fprintf(os.Stdout, "done: %s\n", msg.Step)
	}
}
