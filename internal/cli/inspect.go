package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/actimeta/internal/agd"
	"github.com/mesh-intelligence/actimeta/internal/gt3x"
	"github.com/mesh-intelligence/actimeta/internal/infotext"
	"github.com/mesh-intelligence/actimeta/internal/ticks"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// field is one stored metadata value as printed by inspect.
type field struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Decoded string `json:"decoded,omitempty"`
}

type inspection struct {
	File    string              `json:"file"`
	Kind    types.ContainerKind `json:"kind"`
	Entries []string            `json:"entries,omitempty"`
	Fields  []field             `json:"fields"`
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the stored metadata of an .agd or .gt3x file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.mutator()
			if err != nil {
				return err
			}
			path := args[0]
			kind, err := types.KindFromPath(path)
			if err != nil {
				return err
			}

			ins := inspection{File: path, Kind: kind}
			switch kind {
			case types.KindAGD:
				settings, err := agd.ReadSettings(path)
				if err != nil {
					return err
				}
				for _, s := range settings {
					ins.Fields = append(ins.Fields, field{Key: s.Name, Value: s.Value})
				}
			case types.KindGT3X:
				if ins.Entries, err = gt3x.Entries(path); err != nil {
					return err
				}
				data, err := gt3x.ReadEntry(path, gt3x.InfoEntry)
				if err != nil {
					return err
				}
				for _, l := range infotext.Parse(string(data)).Pairs() {
					ins.Fields = append(ins.Fields, field{Key: l.Key, Value: l.Value})
				}
			}

			if dobKey, ok := e.FieldMap().Key(kind, types.FieldDateOfBirth); ok {
				for i := range ins.Fields {
					if ins.Fields[i].Key == dobKey {
						ins.Fields[i].Decoded = decodeTicks(ins.Fields[i].Value)
					}
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ins)
			}
			fmt.Fprintf(out, "%s (%s)\n", ins.File, ins.Kind)
			if len(ins.Entries) > 0 {
				fmt.Fprintf(out, "entries: %v\n", ins.Entries)
			}
			for _, f := range ins.Fields {
				if f.Decoded != "" {
					fmt.Fprintf(out, "  %s: %s (%s)\n", f.Key, f.Value, f.Decoded)
					continue
				}
				fmt.Fprintf(out, "  %s: %s\n", f.Key, f.Value)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func decodeTicks(raw string) string {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n == 0 {
		return ""
	}
	return ticks.ToTime(n).Format(time.RFC3339)
}

func newTicksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ticks VALUE",
		Short: "Convert between a date and device ticks",
		Long: "If VALUE is a date (including the compact 20060102 form) it is printed as ticks;\n" +
			"any other integer is decoded as ticks and printed as an RFC 3339 time.",
		Example: "  actimeta ticks 1999-11-01\n  actimeta ticks 630770112000000000",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			raw := strings.TrimSpace(args[0])
			n, nerr := strconv.ParseInt(raw, 10, 64)
			// Eight digits is always a compact date: as ticks it would be
			// under one second past the epoch.
			if nerr != nil || len(raw) == len(compactDateLayout) {
				t, err := parseDate(raw)
				if err == nil {
					fmt.Fprintln(out, ticks.FromTime(t))
					return nil
				}
				if nerr != nil {
					return err
				}
			}
			fmt.Fprintln(out, ticks.ToTime(n).Format(time.RFC3339Nano))
			return nil
		},
	}
}
