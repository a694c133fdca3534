package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cooprules/internal/client"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

var eligibilityCmd = &cobra.Command{
	Use:     "eligibility",
	Short:   "Check whether a member may take a loan, deposit or withdraw",
	GroupID: "rules",
}

var eligibilityLoanCmd = &cobra.Command{
	Use:   "loan <member-id> <amount>",
	Short: "Check loan eligibility",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		memberID, amount, err := parseMemberAmount(args)
		if err != nil {
			return err
		}
		loanType, _ := cmd.Flags().GetInt64("loan-type")
		res, err := rulesClient.LoanEligibility(cmd.Context(), memberID, amount, loanType)
		if err != nil {
			return err
		}
		return reportEligibility(cmd, "loan", res)
	},
}

var eligibilityDepositCmd = &cobra.Command{
	Use:   "deposit <member-id> <amount>",
	Short: "Check whether a deposit is allowed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		memberID, amount, err := parseMemberAmount(args)
		if err != nil {
			return err
		}
		account, _ := cmd.Flags().GetString("account")
		res, err := rulesClient.DepositEligibility(cmd.Context(), memberID, amount, model.Account(account))
		if err != nil {
			return err
		}
		return reportEligibility(cmd, "deposit", res)
	},
}

var eligibilityWithdrawalCmd = &cobra.Command{
	Use:   "withdrawal <member-id> <amount>",
	Short: "Check whether a withdrawal is allowed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		memberID, amount, err := parseMemberAmount(args)
		if err != nil {
			return err
		}
		account, _ := cmd.Flags().GetString("account")
		res, err := rulesClient.WithdrawalEligibility(cmd.Context(), memberID, amount, model.Account(account))
		if err != nil {
			return err
		}
		return reportEligibility(cmd, "withdrawal", res)
	},
}

// reportEligibility prints res and, with --strict, fails when it is not eligible.
func reportEligibility(cmd *cobra.Command, kind string, res *client.Eligibility) error {
	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		printEligibility(cmd.OutOrStdout(), kind, res)
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict && !res.Eligible {
		return fmt.Errorf("%s not eligible", kind)
	}
	return nil
}

var creditScoreCmd = &cobra.Command{
	Use:     "credit-score <member-id>",
	Short:   "Compute a member's credit score",
	GroupID: "rules",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		memberID, err := parseID(args[0])
		if err != nil {
			return err
		}
		res, err := rulesClient.CreditScore(cmd.Context(), memberID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printCreditScore(cmd.OutOrStdout(), res)
		return nil
	},
}

var penaltyCmd = &cobra.Command{
	Use:     "penalty <loan-id> <due-date>",
	Short:   "Compute the late-payment penalty for a loan installment",
	Example: "  coop penalty 11 2026-04-10",
	GroupID: "rules",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loanID, err := parseID(args[0])
		if err != nil {
			return err
		}
		due, err := parseDate(args[1])
		if err != nil {
			return err
		}
		res, err := rulesClient.Penalty(cmd.Context(), loanID, due)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printPenalty(cmd.OutOrStdout(), res)
		return nil
	},
}

var interestCmd = &cobra.Command{
	Use:     "interest <balance>",
	Short:   "Compute savings interest for one compounding period",
	GroupID: "rules",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		balance, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		res, err := rulesClient.SavingsInterest(cmd.Context(), balance)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printInterest(cmd.OutOrStdout(), res)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:     "schedule <principal> <term-months>",
	Short:   "Show the repayment schedule for a loan",
	GroupID: "rules",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		term, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid term %q", args[1])
		}
		firstDue := time.Now().AddDate(0, 1, 0)
		if s, _ := cmd.Flags().GetString("first-due"); s != "" {
			if firstDue, err = parseDate(s); err != nil {
				return err
			}
		}
		res, err := rulesClient.Schedule(cmd.Context(), principal, term, firstDue)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printSchedule(cmd.OutOrStdout(), res)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseMemberAmount(args []string) (int64, float64, error) {
	memberID, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return 0, 0, err
	}
	return memberID, amount, nil
}

func init() {
	eligibilityCmd.PersistentFlags().Bool("strict", false, "exit non-zero when not eligible")
	eligibilityLoanCmd.Flags().Int64("loan-type", 0, "loan type ID for per-type limits")
	eligibilityDepositCmd.Flags().String("account", string(model.AccountVoluntary), "savings account (mandatory or voluntary)")
	eligibilityWithdrawalCmd.Flags().String("account", string(model.AccountVoluntary), "savings account (mandatory or voluntary)")
	scheduleCmd.Flags().String("first-due", "", "first installment date, YYYY-MM-DD (default: one month from today)")

	eligibilityCmd.AddCommand(eligibilityLoanCmd)
	eligibilityCmd.AddCommand(eligibilityDepositCmd)
	eligibilityCmd.AddCommand(eligibilityWithdrawalCmd)
}
