package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	DivisionOffice   Division = "Office"
	DivisionPersonal Division = "Personal"
)

const (
	AccountCash    AccountType = "Cash"
	AccountBank    AccountType = "Bank"
	AccountCard    AccountType = "Card"
	AccountWallet  AccountType = "Wallet"
	AccountSavings AccountType = "Savings"
	AccountOther   AccountType = "Other"
)

const (
	CategoryIncome  CategoryType = "Income"
	CategoryExpense CategoryType = "Expense"
	CategoryBoth    CategoryType = "Both"
)

const (
	DefaultAccount  = "Cash"
	DefaultCurrency = "INR"
	dateLayout      = "2006-01-02"
)

type (
	// Kind is the direction of an entry. Income credits its account,
	// expense debits it. Amounts are never signed.
	Kind string

	Division string

	AccountType string

	CategoryType string

	// Date is a calendar date without a clock component.
	Date struct {
		time.Time
	}

	Entry struct {
		ID            string          `json:"id"`
		Kind          Kind            `json:"kind"`
		Owner         string          `json:"owner"`
		Source        string          `json:"source"`
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"paymentMethod"`
		Date          Date            `json:"date"`
		Time          string          `json:"time"`
		Notes         string          `json:"notes,omitempty"`
		Division      Division        `json:"division"`
		Category      string          `json:"category"`
		Account       string          `json:"account"`
		IsTransfer    bool            `json:"isTransfer"`
		TransferTo    string          `json:"transferTo,omitempty"`
		TransferFrom  string          `json:"transferFrom,omitempty"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// EntryPatch carries the fields of a partial update; nil means unchanged.
	EntryPatch struct {
		Source        *string          `json:"source,omitempty"`
		Amount        *decimal.Decimal `json:"amount,omitempty"`
		PaymentMethod *string          `json:"paymentMethod,omitempty"`
		Date          *Date            `json:"date,omitempty"`
		Time          *string          `json:"time,omitempty"`
		Notes         *string          `json:"notes,omitempty"`
		Division      *Division        `json:"division,omitempty"`
		Category      *string          `json:"category,omitempty"`
		Account       *string          `json:"account,omitempty"`
	}

	// EntryFilter scopes entry queries. Zero values leave a dimension unconstrained.
	EntryFilter struct {
		Owner     string
		Kind      Kind
		From      Date
		To        Date
		Division  Division
		Category  string
		Account   string
		Ascending bool
		Limit     int
	}

	Account struct {
		ID          string          `json:"id"`
		Owner       string          `json:"owner"`
		AccountName string          `json:"accountName"`
		AccountType AccountType     `json:"accountType"`
		Balance     decimal.Decimal `json:"balance"`
		Currency    string          `json:"currency"`
		IsActive    bool            `json:"isActive"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	AccountPatch struct {
		AccountName *string      `json:"accountName,omitempty"`
		AccountType *AccountType `json:"accountType,omitempty"`
		Currency    *string      `json:"currency,omitempty"`
		IsActive    *bool        `json:"isActive,omitempty"`
	}

	Category struct {
		ID        string       `json:"id"`
		Owner     string       `json:"owner"`
		Name      string       `json:"name"`
		Type      CategoryType `json:"type"`
		Division  Division     `json:"division"`
		IsActive  bool         `json:"isActive"`
		CreatedAt time.Time    `json:"createdAt"`
	}

	// Transfer moves funds between two accounts of the same owner.
	Transfer struct {
		Owner         string          `json:"owner"`
		FromAccount   string          `json:"fromAccount"`
		ToAccount     string          `json:"toAccount"`
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"paymentMethod"`
		Date          Date            `json:"date"`
		Time          string          `json:"time"`
		Notes         string          `json:"notes,omitempty"`
		Division      Division        `json:"division"`
	}
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	}
	return "", fmt.Errorf("unknown entry kind %q", s)
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Sign is +1 for income and -1 for expense.
func (k Kind) Sign() int64 {
	if k == KindExpense {
		return -1
	}
	return 1
}

// BalanceDelta is the change an entry of this kind applies to its account.
// Reversing an entry applies the negated delta.
func (k Kind) BalanceDelta(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(k.Sign()))
}

// ParseDivision normalises a division name. Empty input yields Personal.
func ParseDivision(s string) (Division, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DivisionPersonal, nil
	case "personal":
		return DivisionPersonal, nil
	case "office":
		return DivisionOffice, nil
	}
	return "", &ValidationError{Field: "division", Reason: "must be Office or Personal"}
}

func ParseAccountType(s string) (AccountType, error) {
	if strings.TrimSpace(s) == "" {
		return AccountCash, nil
	}
	for _, t := range []AccountType{AccountCash, AccountBank, AccountCard, AccountWallet, AccountSavings, AccountOther} {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "accountType", Reason: "unknown account type"}
}

func ParseCategoryType(s string) (CategoryType, error) {
	if strings.TrimSpace(s) == "" {
		return CategoryBoth, nil
	}
	for _, t := range []CategoryType{CategoryIncome, CategoryExpense, CategoryBoth} {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "type", Reason: "must be Income, Expense or Both"}
}

// Matches reports whether a category of type t may tag entries of kind k.
func (t CategoryType) Matches(k Kind) bool {
	switch t {
	case CategoryBoth:
		return true
	case CategoryIncome:
		return k == KindIncome
	case CategoryExpense:
		return k == KindExpense
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date in the instant's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps from clients that send ISO instants.
	if len(s) > len(dateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*d = DateOf(t)
			return nil
		}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm"}

// Timestamp combines the entry date with its free-text clock value so
// entries on the same day order by time. An unparseable clock counts as midnight.
func (e Entry) Timestamp() time.Time {
	base := e.Date.Time
	clock := strings.TrimSpace(e.Time)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(base.Year(), base.Month(), base.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		}
	}
	return base
}

// ApplyDefaults fills division, category and account when the caller left them blank.
func (e *Entry) ApplyDefaults() {
	if e.Division == "" {
		e.Division = DivisionPersonal
	}
	if strings.TrimSpace(e.Category) == "" {
		e.Category = e.Source
	}
	if strings.TrimSpace(e.Account) == "" {
		e.Account = DefaultAccount
	}
}

func (e Entry) Validate() error {
	if !e.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be income or expense"}
	}
	if strings.TrimSpace(e.Owner) == "" {
		return &ValidationError{Field: "owner", Reason: "required"}
	}
	if strings.TrimSpace(e.Source) == "" {
		return &ValidationError{Field: "source", Reason: "required"}
	}
	if len(e.Source) > 200 {
		return &ValidationError{Field: "source", Reason: "too long (max 200 characters)"}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if _, err := CentsOf(e.Amount); err != nil {
		return &ValidationError{Field: "amount", Reason: "is too large"}
	}
	if strings.TrimSpace(e.PaymentMethod) == "" {
		return &ValidationError{Field: "paymentMethod", Reason: "required"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if strings.TrimSpace(e.Time) == "" {
		return &ValidationError{Field: "time", Reason: "required"}
	}
	if e.Division != DivisionOffice && e.Division != DivisionPersonal {
		return &ValidationError{Field: "division", Reason: "must be Office or Personal"}
	}
	if strings.TrimSpace(e.Account) == "" {
		return &ValidationError{Field: "account", Reason: "required"}
	}
	return nil
}

// Apply copies the non-nil patch fields onto e.
func (p EntryPatch) Apply(e *Entry) {
	if p.Source != nil {
		e.Source = *p.Source
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.Division != nil {
		e.Division = *p.Division
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Account != nil {
		e.Account = *p.Account
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Owner) == "" {
		return &ValidationError{Field: "owner", Reason: "required"}
	}
	if strings.TrimSpace(a.AccountName) == "" {
		return &ValidationError{Field: "accountName", Reason: "required"}
	}
	if _, err := CentsOf(a.Balance); err != nil {
		return &ValidationError{Field: "balance", Reason: "is too large"}
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return &ValidationError{Field: "owner", Reason: "required"}
	}
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}

func (t Transfer) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return &ValidationError{Field: "owner", Reason: "required"}
	}
	if strings.TrimSpace(t.FromAccount) == "" {
		return &ValidationError{Field: "fromAccount", Reason: "required"}
	}
	if strings.TrimSpace(t.ToAccount) == "" {
		return &ValidationError{Field: "toAccount", Reason: "required"}
	}
	if strings.EqualFold(strings.TrimSpace(t.FromAccount), strings.TrimSpace(t.ToAccount)) {
		return &ValidationError{Field: "toAccount", Reason: "must differ from fromAccount"}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if _, err := CentsOf(t.Amount); err != nil {
		return &ValidationError{Field: "amount", Reason: "is too large"}
	}
	return nil
}

// Entry builds the expense record that represents the transfer on the source account.
func (t Transfer) Entry() Entry {
	method := t.PaymentMethod
	if strings.TrimSpace(method) == "" {
		method = "Transfer"
	}
	return Entry{
		Kind:          KindExpense,
		Owner:         t.Owner,
		Source:        "Transfer to " + t.ToAccount,
		Amount:        t.Amount,
		PaymentMethod: method,
		Date:          t.Date,
		Time:          t.Time,
		Notes:         t.Notes,
		Division:      t.Division,
		Category:      "Transfer",
		Account:       t.FromAccount,
		IsTransfer:    true,
		TransferTo:    t.ToAccount,
	}
}
