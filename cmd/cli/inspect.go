package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/limaJavier/cctt/pkg/store"
	"github.com/spf13/cobra"
)

func newInspectCmd(app *app) *cobra.Command {
	var database string
	var timetable bool
	cmd := &cobra.Command{
		Use:   "inspect [run]",
		Short: "List the stored runs, or the solutions of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := store.Open(database)
			if err != nil {
				return err
			}
			defer archive.Close()
			if len(args) == 0 {
				return listRuns(cmd, app, archive)
			}
			return listSolutions(cmd, app, archive, args[0], timetable)
		},
	}
	cmd.Flags().StringVar(&database, "db", "cctt.db", "Path of the sqlite archive")
	cmd.Flags().BoolVar(&timetable, "timetable", false, "Print the sessions of the cheapest solution")
	return cmd
}

func listRuns(cmd *cobra.Command, app *app, archive *store.Store) error {
	runs, err := archive.Runs(cmd.Context())
	if err != nil {
		return err
	}
	writer := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "RUN\tINSTANCE\tSTRATEGY\tBACKEND\tSTARTED\tSTATUS\tBEST")
	for _, run := range runs {
		best := "-"
		if run.BestCost != nil {
			best = fmt.Sprint(*run.BestCost)
		}
		fmt.Fprintf(writer, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			run.Id, run.Instance, run.Strategy, run.Backend, run.StartedAt.Local().Format(time.DateTime), run.Status, best)
	}
	return writer.Flush()
}

func listSolutions(cmd *cobra.Command, app *app, archive *store.Store, runId string, timetable bool) error {
	solutions, err := archive.Solutions(cmd.Context(), runId)
	if err != nil {
		return err
	}
	neighbourhoods, err := archive.CountNeighbourhoods(cmd.Context(), runId)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "Run %v: %d solutions, %d neighbourhoods\n", runId, len(solutions), neighbourhoods)

	writer := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "PHASE\tCOST\tCAPACITY\tMIN-DAYS\tCOMPACTNESS\tSTABILITY\tDISCOVERED")
	for _, solution := range solutions {
		fmt.Fprintf(writer, "%v\t%d\t%d\t%d\t%d\t%d\t%v\n",
			solution.Phase, solution.Cost, solution.PenaltyRoomCapacity, solution.PenaltyMinCourseDays,
			solution.PenaltyCompactness, solution.PenaltyRoomStability, solution.Discovered)
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	if timetable && len(solutions) > 0 {
		fmt.Fprint(app.stdout, solutions[0].Timetable)
	}
	return nil
}
