package postgres

import "fmt"

// Schema names the savings transaction columns used by member queries.
// Older deployments store transactions with different column names; the
// schema is chosen once at construction rather than discovered at runtime.
type Schema struct {
	Name       string
	TxAccount  string // foreign key to savings_accounts.id
	TxType     string
	TxStatus   string
	TxDate     string
	TxAmount   string
	TxTable    string
	AcctTable  string
	AcctType   string
	AcctMember string
}

// CanonicalSchema matches the tables created by this package's migrations.
var CanonicalSchema = Schema{
	Name:       "canonical",
	TxTable:    "savings_transactions",
	TxAccount:  "account_id",
	TxType:     "type",
	TxStatus:   "status",
	TxDate:     "transaction_date",
	TxAmount:   "amount",
	AcctTable:  "savings_accounts",
	AcctType:   "account_type",
	AcctMember: "member_id",
}

// LegacySchema matches databases created before the transaction columns were renamed.
var LegacySchema = Schema{
	Name:       "legacy",
	TxTable:    "savings_transactions",
	TxAccount:  "savings_account_id",
	TxType:     "transaction_type",
	TxStatus:   "trans_status",
	TxDate:     "trans_date",
	TxAmount:   "amount",
	AcctTable:  "savings_accounts",
	AcctType:   "account_type",
	AcctMember: "member_id",
}

// SchemaByName returns the named schema ("canonical" or "legacy").
func SchemaByName(name string) (Schema, error) {
	switch name {
	case "", CanonicalSchema.Name:
		return CanonicalSchema, nil
	case LegacySchema.Name:
		return LegacySchema, nil
	}
	return Schema{}, fmt.Errorf("unknown schema %q (must be canonical or legacy)", name)
}
