package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMutateCmd(a *app) *cobra.Command {
	var (
		rf         recordFlags
		checkAfter bool
	)
	cmd := &cobra.Command{
		Use:   "mutate FILE...",
		Short: "Write subject metadata into .agd or .gt3x files",
		Long: "Write subject metadata into each FILE. The container kind is taken from the\n" +
			"extension. Files are processed one at a time; a failed file is restored from\n" +
			"its backup and the remaining files are still attempted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := rf.record(cmd)
			if err != nil {
				return err
			}
			e, err := a.mutator()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				res := e.Mutate(path, rec)
				if !res.OK {
					failed++
					fmt.Fprintf(out, "FAIL %s\n", res.Message)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", res.Message)
				if !checkAfter {
					continue
				}
				if ok, rep := e.Validate(path, rec); !ok {
					failed++
					fmt.Fprintf(out, "FAIL validate %s: %s\n", path, rep)
				}
			}
			if failed > 0 {
				return errFailed
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&checkAfter, "validate", false, "re-read each file after writing and compare")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	rf := recordFlags{withExpectationOnlyFlags: true}
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check that files hold the given subject metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := rf.record(cmd)
			if err != nil {
				return err
			}
			e, err := a.mutator()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				ok, rep := e.Validate(path, rec)
				if !ok {
					failed++
					fmt.Fprintf(out, "FAIL %s: %s\n", path, rep)
					continue
				}
				fmt.Fprintf(out, "ok   %s: %s\n", path, rep)
			}
			if failed > 0 {
				return errFailed
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
