// Package http exposes the entry, report, account and category services as
// a JSON API.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

const (
	maxBodyBytes = 1 << 20
	maxLimit     = 1000
)

// decodeJSON reads one JSON object from the request body. Every decoding
// problem surfaces as a validation error.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &core.ValidationError{Field: "body", Reason: "unreadable request body"}
	}
	if len(body) > maxBodyBytes {
		return &core.ValidationError{Field: "body", Reason: "request body too large"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &core.ValidationError{Field: "body", Reason: "request body is required"}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &core.ValidationError{Field: typeErr.Field, Reason: "has the wrong type"}
		}
		return &core.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}

// amountField accepts an amount as a JSON number or string and defers
// parsing so errors name the field.
type amountField struct {
	raw string
	set bool
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	a.raw, a.set = s, true
	return nil
}

func (a amountField) decimal(field string) (decimal.Decimal, error) {
	if !a.set {
		return decimal.Zero, &core.ValidationError{Field: field, Reason: "is required"}
	}
	d, err := core.ParseAmount(a.raw)
	if errors.Is(err, core.ErrAmountTooLarge) {
		return decimal.Zero, &core.ValidationError{Field: field, Reason: "is too large"}
	}
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: field, Reason: "must be a non-negative number"}
	}
	return d, nil
}

type entryRequest struct {
	Owner         string      `json:"owner"`
	Source        string      `json:"source"`
	Amount        amountField `json:"amount"`
	PaymentMethod string      `json:"paymentMethod"`
	Date          core.Date   `json:"date"`
	Time          string      `json:"time"`
	Notes         string      `json:"notes"`
	Division      string      `json:"division"`
	Category      string      `json:"category"`
	Account       string      `json:"account"`
}

func (req entryRequest) entry(kind core.Kind) (core.Entry, error) {
	amount, err := req.Amount.decimal("amount")
	if err != nil {
		return core.Entry{}, err
	}
	division, err := core.ParseDivision(req.Division)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		Kind:          kind,
		Owner:         req.Owner,
		Source:        strings.TrimSpace(req.Source),
		Amount:        amount,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Date:          req.Date,
		Time:          strings.TrimSpace(req.Time),
		Notes:         strings.TrimSpace(req.Notes),
		Division:      division,
		Category:      strings.TrimSpace(req.Category),
		Account:       strings.TrimSpace(req.Account),
	}, nil
}

type entryPatchRequest struct {
	Source        *string     `json:"source"`
	Amount        amountField `json:"amount"`
	PaymentMethod *string     `json:"paymentMethod"`
	Date          *core.Date  `json:"date"`
	Time          *string     `json:"time"`
	Notes         *string     `json:"notes"`
	Division      *string     `json:"division"`
	Category      *string     `json:"category"`
	Account       *string     `json:"account"`
}

func (req entryPatchRequest) patch() (core.EntryPatch, error) {
	p := core.EntryPatch{
		Source:        req.Source,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date,
		Time:          req.Time,
		Notes:         req.Notes,
		Category:      req.Category,
		Account:       req.Account,
	}
	if req.Division != nil {
		d, err := core.ParseDivision(*req.Division)
		if err != nil {
			return core.EntryPatch{}, err
		}
		p.Division = &d
	}
	if req.Amount.set {
		d, err := req.Amount.decimal("amount")
		if err != nil {
			return core.EntryPatch{}, err
		}
		p.Amount = &d
	}
	return p, nil
}

type transferRequest struct {
	Owner         string      `json:"owner"`
	FromAccount   string      `json:"fromAccount"`
	ToAccount     string      `json:"toAccount"`
	Amount        amountField `json:"amount"`
	PaymentMethod string      `json:"paymentMethod"`
	Date          core.Date   `json:"date"`
	Time          string      `json:"time"`
	Notes         string      `json:"notes"`
	Division      string      `json:"division"`
}

func (req transferRequest) transfer() (core.Transfer, error) {
	amount, err := req.Amount.decimal("amount")
	if err != nil {
		return core.Transfer{}, err
	}
	division, err := core.ParseDivision(req.Division)
	if err != nil {
		return core.Transfer{}, err
	}
	return core.Transfer{
		Owner:         req.Owner,
		FromAccount:   strings.TrimSpace(req.FromAccount),
		ToAccount:     strings.TrimSpace(req.ToAccount),
		Amount:        amount,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Date:          req.Date,
		Time:          strings.TrimSpace(req.Time),
		Notes:         strings.TrimSpace(req.Notes),
		Division:      division,
	}, nil
}

// parseEntryFilter reads the date range and dimension filters shared by the
// list, transactions and export endpoints.
func parseEntryFilter(q url.Values, owner string) (core.EntryFilter, error) {
	f := core.EntryFilter{
		Owner:    strings.TrimSpace(owner),
		Category: strings.TrimSpace(q.Get("category")),
		Account:  strings.TrimSpace(q.Get("account")),
	}
	if f.Owner == "" {
		return f, &core.ValidationError{Field: "owner", Reason: "is required"}
	}
	if v := q.Get("startDate"); v != "" {
		d, err := parseDateParam("startDate", v)
		if err != nil {
			return f, err
		}
		f.From = d
	}
	if v := q.Get("endDate"); v != "" {
		d, err := parseDateParam("endDate", v)
		if err != nil {
			return f, err
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return f, &core.ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}
	if v := q.Get("division"); v != "" {
		d, err := core.ParseDivision(v)
		if err != nil {
			return f, err
		}
		f.Division = d
	}
	return f, nil
}

func parseDateParam(field, v string) (core.Date, error) {
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}

// parsePeriod returns "" when the parameter is absent.
func parsePeriod(q url.Values) (report.Period, error) {
	v := strings.TrimSpace(q.Get("period"))
	if v == "" {
		return "", nil
	}
	p, ok := report.ParsePeriod(v)
	if !ok {
		return "", &core.ValidationError{
			Field:  "period",
			Reason: fmt.Sprintf("unknown period %q", v),
		}
	}
	return p, nil
}

// parseLimit returns 0 (no limit) when absent.
func parseLimit(q url.Values) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxLimit {
		return 0, &core.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", maxLimit)}
	}
	return n, nil
}
