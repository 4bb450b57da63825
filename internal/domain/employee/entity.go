package employee

// Employee holds the identity and bank data used for transfers. The account
// number is stored encrypted.
type Employee struct {
	ID                string
	IdentityNumber    string
	FullName          string
	BankName          *string
	BankAccountType   *string
	BankAccountNumber []byte
}

// HasBankData reports whether a transfer row can be produced.
func (e Employee) HasBankData() bool {
	return e.BankName != nil && *e.BankName != "" && len(e.BankAccountNumber) > 0
}
