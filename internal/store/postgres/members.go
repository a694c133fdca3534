package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// activeLoanStatuses are the loan states counted against the concurrency limit.
const activeLoanStatuses = `'active', 'approved', 'disbursed'`

func memberSavingsQuery(s Schema) string {
	signed := fmt.Sprintf(`CASE WHEN t.%[1]s = 'deposit' THEN t.%[2]s
		WHEN t.%[1]s = 'withdrawal' THEN -t.%[2]s ELSE 0 END`, s.TxType, s.TxAmount)
	return fmt.Sprintf(`
		SELECT m.id, m.joined_at, m.status,
			COALESCE(SUM(CASE WHEN a.%[1]s = 'mandatory' THEN %[2]s END), 0),
			COALESCE(SUM(CASE WHEN a.%[1]s = 'voluntary' THEN %[2]s END), 0),
			COALESCE(SUM(CASE WHEN t.%[8]s = 'deposit' THEN t.%[9]s END), 0)
		FROM members m
		LEFT JOIN %[3]s a ON a.%[4]s = m.id
		LEFT JOIN %[5]s t ON t.%[6]s = a.id AND t.%[7]s = 'completed'
		WHERE m.id = $1
		GROUP BY m.id, m.joined_at, m.status`,
		s.AcctType, signed, s.AcctTable, s.AcctMember, s.TxTable, s.TxAccount, s.TxStatus, s.TxType, s.TxAmount)
}

func mandatoryDepositsQuery(s Schema) string {
	return fmt.Sprintf(`
		SELECT t.%[1]s, t.%[2]s
		FROM %[3]s t
		JOIN %[4]s a ON a.id = t.%[5]s
		WHERE a.%[6]s = $1 AND a.%[7]s = 'mandatory'
			AND t.%[8]s = 'deposit' AND t.%[9]s = 'completed'
			AND t.%[2]s >= $2
		ORDER BY t.%[2]s`,
		s.TxAmount, s.TxDate, s.TxTable, s.AcctTable, s.TxAccount, s.AcctMember, s.AcctType, s.TxType, s.TxStatus)
}

func queryGetMember(ctx context.Context, db executor, s Schema, memberID int64) (*model.Member, error) {
	var m model.Member
	var status string
	err := db.QueryRowContext(ctx, memberSavingsQuery(s), memberID).Scan(
		&m.ID, &m.JoinedAt, &status, &m.MandatorySavings, &m.VoluntarySavings, &m.DepositedSavings,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("member %d: %w", memberID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m.Status = model.MemberStatus(status)
	m.TotalSavings = m.MandatorySavings + m.VoluntarySavings
	return &m, nil
}

func queryGetLoanSummary(ctx context.Context, db executor, memberID int64) (*model.LoanSummary, error) {
	sum := model.LoanSummary{MemberID: memberID}
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN (`+activeLoanStatuses+`)),
			COUNT(*) FILTER (WHERE status = 'defaulted'),
			COALESCE(SUM(outstanding_balance) FILTER (WHERE status IN ('active', 'disbursed', 'defaulted')), 0)
		FROM loans WHERE member_id = $1`, memberID,
	).Scan(&sum.Active, &sum.Defaulted, &sum.OutstandingBalance)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func queryCountActiveGuarantors(ctx context.Context, db executor, memberID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT g.guarantor_member_id)
		FROM loan_guarantors g
		JOIN members m ON m.id = g.guarantor_member_id
		WHERE g.member_id = $1 AND g.status = 'active' AND m.status = 'active'`, memberID,
	).Scan(&n)
	return n, err
}

func queryGetLoan(ctx context.Context, db executor, loanID int64) (*model.Loan, error) {
	var l model.Loan
	err := db.QueryRowContext(ctx, `
		SELECT id, member_id, principal, monthly_payment, status
		FROM loans WHERE id = $1`, loanID,
	).Scan(&l.ID, &l.MemberID, &l.Principal, &l.MonthlyPayment, &l.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("loan %d: %w", loanID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func queryListMandatoryDeposits(ctx context.Context, db executor, s Schema, memberID int64, since time.Time) ([]model.Deposit, error) {
	rows, err := db.QueryContext(ctx, mandatoryDepositsQuery(s), memberID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []model.Deposit
	for rows.Next() {
		var d model.Deposit
		if err := rows.Scan(&d.Amount, &d.Date); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

func queryListPaymentHistory(ctx context.Context, db executor, memberID int64) ([]model.PaymentRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.due_date, s.paid_at, s.amount, s.status
		FROM loan_schedules s
		JOIN loans l ON l.id = s.loan_id
		WHERE l.member_id = $1 AND s.status IN ('paid', 'overdue')
		ORDER BY s.due_date`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.PaymentRecord
	for rows.Next() {
		p, err := scanPaymentRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}
