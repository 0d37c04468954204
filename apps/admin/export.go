package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/report"
)

var nowFunc = time.Now // mockable

func (cli *commandLine) exportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	cmd.PersistentFlags().StringVarP(&out, "out", "o", "", "The workbook path (default <kind>_<timestamp>.xlsx).")

	var fromWeek, toWeek int
	allowancesCmd := &cobra.Command{
		Use:   "allowances",
		Short: "Export the weekly allowances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				recs []allowance.Record
				err  error
			)
			if fromWeek > 0 || toWeek > 0 {
				policy := cli.allowanceSvc.Calculator().Policy()
				if fromWeek == 0 {
					fromWeek = policy.MinWeek
				}
				if toWeek == 0 {
					toWeek = policy.MaxWeek
				}
				recs, err = cli.allowanceSvc.QueryRange(context.Background(), fromWeek, toWeek)
			} else {
				recs, err = cli.allowanceSvc.All(context.Background())
			}
			if err != nil {
				return errors.Wrap(err, "selecting allowance records")
			}
			return cli.writeWorkbook(out, "allowances", len(recs), func(w io.Writer) error {
				return report.WriteAllowanceXLSX(w, recs)
			})
		},
	}
	allowancesCmd.Flags().IntVar(&fromWeek, "from", 0, "The first week.")
	allowancesCmd.Flags().IntVar(&toWeek, "to", 0, "The last week.")

	var filter attendance.QueryFilter
	attendanceCmd := &cobra.Command{
		Use:   "attendance",
		Short: "Export the attendance records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := cli.attendanceSvc.Query(context.Background(), filter)
			if err != nil {
				return errors.Wrap(err, "querying attendance")
			}
			return cli.writeWorkbook(out, "attendance", len(recs), func(w io.Writer) error {
				return report.WriteAttendanceXLSX(w, recs)
			})
		},
	}
	attendanceCmd.Flags().StringVar(&filter.From, "from", "", "The first date (YYYY-MM-DD).")
	attendanceCmd.Flags().StringVar(&filter.To, "to", "", "The last date (YYYY-MM-DD).")
	attendanceCmd.Flags().StringVar(&filter.TeacherID, "teacher", "", "Only this teacher's records.")
	attendanceCmd.Flags().StringVar(&filter.Subject, "subject", "", "teacher or student.")

	cmd.AddCommand(allowancesCmd, attendanceCmd)
	return cmd
}

func (cli *commandLine) writeWorkbook(path, prefix string, count int, write func(w io.Writer) error) error {
	if path == "" {
		path = report.XLSXFilename(prefix, nowFunc())
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating workbook")
	}
	if err = write(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing workbook")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing workbook")
	}
	fmt.Fprintf(cli.out, "%d records exported to %s\n", count, path)
	return nil
}
