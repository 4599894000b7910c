package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/drivertrack/cmd/pingctl/app/options"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newQueryCommand(opts *options.PingctlOptions) *cobra.Command {
	rf := &rangeFlags{}
	output := outputTable

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List a driver's pings for a time range",
		Example: `  pingctl query --driver d-42 --since 1h
  pingctl query --driver d-42 --from 1700000000 --to 1700003600 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateStore(); err != nil {
				return err
			}
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("--output must be %q or %q", outputTable, outputJSON)
			}

			ctx := genericapiserver.SetupSignalContext()
			svc, closeStore, err := openService(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := svc.Pings(ctx, rf.query(time.Now()))
			if err != nil {
				return err
			}

			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			writeTable(cmd.OutOrStdout(), records)
			return nil
		},
	}

	rf.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", output, "Output format, 'table' or 'json'.")
	_ = cmd.MarkFlagRequired("driver")

	return cmd
}

func writeTable(w io.Writer, records []*model.PingRecord) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("DRIVER", "TIMESTAMP", "UNIX", "LATITUDE", "LONGITUDE")
	for _, r := range records {
		table.AddRow(
			r.DriverID,
			r.Timestamp.Format(time.RFC3339),
			r.Timestamp.Unix(),
			strconv.FormatFloat(r.Latitude, 'f', 6, 64),
			strconv.FormatFloat(r.Longitude, 'f', 6, 64),
		)
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "\n%d ping(s)\n", len(records))
}

func writeJSON(w io.Writer, records []*model.PingRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
