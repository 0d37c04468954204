package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
)

func (cli *commandLine) calcCommand() *cobra.Command {
	var (
		in                             allowance.Input
		classes                        map[string]string
		total, welfare, office, kitchen string
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute the allowance of a week without storing it",
		Example: "  admin calc --week 3 --teachers 5 --jhs-teachers 3 " +
			"--class creche=200 --class basic1=300 --class basic7_general=500 --class basic8_jhs=90",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Classes = allowance.ParseClasses(classes)
			in.TotalSum = allowance.ParseAmount(total)
			in.Welfare = allowance.ParseAmount(welfare)
			in.Office = allowance.ParseAmount(office)
			in.Kitchen = allowance.ParseAmount(kitchen)

			alloc, err := cli.allowanceSvc.Preview(in)
			if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
				for _, fErr := range vErr.Fields {
					fmt.Fprintf(cli.out, "%s: %s\n", fErr.Field, fErr.Error)
				}
				return err
			} else if err != nil {
				return err
			}
			printAllocation(cli.out, alloc)
			return nil
		},
	}
	cmd.Flags().IntVarP(&in.WeekNumber, "week", "w", 0, "The academic week.")
	cmd.Flags().IntVarP(&in.NumberOfTeachers, "teachers", "t", 0, "The number of teachers sharing the balance.")
	cmd.Flags().IntVarP(&in.NumberOfJHSTeachers, "jhs-teachers", "j", 0, "The number of JHS teachers.")
	cmd.Flags().StringToStringVarP(&classes, "class", "c", nil, "A class amount, as bucket=amount (repeatable).")
	cmd.Flags().StringVar(&total, "total", "", "The total sum (manual deduction policy).")
	cmd.Flags().StringVar(&welfare, "welfare", "", "The welfare deduction (manual deduction policy).")
	cmd.Flags().StringVar(&office, "office", "", "The office deduction (manual deduction policy).")
	cmd.Flags().StringVar(&kitchen, "kitchen", "", "The kitchen deduction (manual deduction policy).")
	return cmd
}

func printAllocation(w io.Writer, a allowance.Allocation) {
	lines := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Total sum", a.TotalSum},
		{"Welfare", a.Welfare},
		{"Balance after welfare", a.BalanceAfterWelfare},
		{"Office", a.Office},
		{"Balance after office", a.BalanceAfterOffice},
		{"Kitchen", a.Kitchen},
		{"Balance after kitchen", a.BalanceAfterKitchen},
		{"JHS classes total", a.JHSClassesTotal},
		{"Each teacher", a.EachTeacher},
		{"Each JHS teacher", a.EachJHSTeacher},
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%-22s %s\n", l.label+":", core.FormatCedis(l.amount))
	}
}
