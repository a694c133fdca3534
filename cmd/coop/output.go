package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/alfredjeanlab/cooprules/internal/client"
	"github.com/alfredjeanlab/cooprules/internal/finance"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printConfigEntry(w io.Writer, e *model.ConfigEntry) {
	fmt.Fprintf(w, "Key:         %s\n", ui.RenderAccent(e.Key))
	fmt.Fprintf(w, "Value:       %s\n", e.Value)
	fmt.Fprintf(w, "Type:        %s\n", e.Type)
	fmt.Fprintf(w, "Category:    %s\n", e.Category)
	if e.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", e.Description)
	}
	if e.Min != nil || e.Max != nil {
		fmt.Fprintf(w, "Bounds:      %s\n", formatBounds(e.Min, e.Max))
	}
	if e.Pattern != "" {
		fmt.Fprintf(w, "Pattern:     %s\n", e.Pattern)
	}
	fmt.Fprintf(w, "Editable:    %t\n", e.Editable)
	if e.RequiresRestart {
		fmt.Fprintf(w, "Restart:     %s\n", ui.RenderMuted("required after change"))
	}
	if e.UpdatedBy != "" {
		fmt.Fprintf(w, "Updated By:  %s\n", e.UpdatedBy)
	}
	if !e.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated At:  %s\n", e.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printConfigTable(w io.Writer, entries []*model.ConfigEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tTYPE\tCATEGORY\tEDITABLE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", e.Key, e.Value, e.Type, e.Category, e.Editable)
	}
	tw.Flush()
}

func printHistoryTable(w io.Writer, changes []*model.ConfigChange) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANGED AT\tACTOR\tOLD\tNEW\tID")
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ChangedAt.Format("2006-01-02 15:04:05"), c.Actor, c.OldValue, c.NewValue, ui.RenderMuted(c.ID))
	}
	tw.Flush()
}

func printEligibility(w io.Writer, kind string, res *client.Eligibility) {
	if res.Eligible {
		fmt.Fprintf(w, "Member %d: %s\n", res.MemberID, ui.RenderPass(kind+" eligible"))
		return
	}
	fmt.Fprintf(w, "Member %d: %s (%d %s)\n", res.MemberID, ui.RenderFail(kind+" not eligible"),
		len(res.Violations), pluralize(len(res.Violations), "violation"))
	for _, v := range res.Violations {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}

func printCreditScore(w io.Writer, res *model.CreditScoreResult) {
	fmt.Fprintf(w, "Member:           %d\n", res.MemberID)
	fmt.Fprintf(w, "Score:            %s\n", ui.RenderAccent(strconv.Itoa(res.Score)))
	fmt.Fprintf(w, "Rating:           %s\n", res.Rating)
	fmt.Fprintf(w, "Payments:         %d\n", res.TotalPayments)
	fmt.Fprintf(w, "On time:          %.2f%%\n", res.OnTimePercentage)
	fmt.Fprintf(w, "Compliant months: %d\n", res.CompliantMonths)
}

func printPenalty(w io.Writer, res *finance.PenaltyResult) {
	fmt.Fprintf(w, "Loan:            %d\n", res.LoanID)
	fmt.Fprintf(w, "Due:             %s\n", res.DueDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Grace ends:      %s\n", res.GraceEnds.Format("2006-01-02"))
	fmt.Fprintf(w, "Monthly payment: %.2f\n", res.MonthlyPayment)
	fmt.Fprintf(w, "Penalty rate:    %.2f%%\n", res.PenaltyRate)
	fmt.Fprintf(w, "Months overdue:  %d\n", res.MonthsOverdue)
	fmt.Fprintf(w, "Penalty:         %s\n", ui.RenderAccent(fmt.Sprintf("%.2f", res.Amount)))
}

func printInterest(w io.Writer, res *finance.InterestResult) {
	fmt.Fprintf(w, "Balance:     %.2f\n", res.Balance)
	fmt.Fprintf(w, "Annual rate: %.2f%% (%s)\n", res.AnnualRate, res.Frequency)
	fmt.Fprintf(w, "Interest:    %s\n", ui.RenderAccent(fmt.Sprintf("%.2f", res.Interest)))
}

func printSchedule(w io.Writer, s *finance.Schedule) {
	fmt.Fprintf(w, "Principal %.2f over %d months, %s at %.2f%%\n", s.Principal, s.TermMonths, s.Method, s.AnnualRate)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDUE\tPAYMENT\tPRINCIPAL\tINTEREST\tBALANCE\t")
	for _, in := range s.Installments {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			in.Number, in.DueDate.Format("2006-01-02"), in.Payment, in.Principal, in.Interest, in.Balance)
	}
	tw.Flush()
	fmt.Fprintf(w, "Total interest %.2f, total payable %.2f\n", s.TotalInterest, s.TotalPayable)
}

func formatBounds(lo, hi *float64) string {
	f := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return f(lo) + ".." + f(hi)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
