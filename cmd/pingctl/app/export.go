package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/drivertrack/cmd/pingctl/app/options"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/archive"
)

func newExportCommand(opts *options.PingctlOptions) *cobra.Command {
	rf := &rangeFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a driver's pings for a time range to object storage as NDJSON",
		Long: `Export uploads the selected pings to pings/{driverId}/{from}-{to}.ndjson in
the configured bucket, creating the bucket if it does not exist.`,
		Example: `  pingctl export --driver d-42 --since 24h --s3.endpoint minio.local:9000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateArchive(); err != nil {
				return err
			}

			objects, err := archive.NewMinIO(opts.S3Options)
			if err != nil {
				return err
			}

			ctx := genericapiserver.SetupSignalContext()
			svc, closeStore, err := openService(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := archive.NewExporter(objects, svc).Export(ctx, rf.query(time.Now()))
			if err != nil {
				return err
			}

			if res.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pings in range, nothing exported")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d ping(s) (%d bytes) to s3://%s/%s\n",
				res.Count, res.Bytes, opts.S3Options.BucketName, res.Key)
			return nil
		},
	}

	rf.addFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("driver")

	return cmd
}
