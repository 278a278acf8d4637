package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type AccountStore interface {
	InsertAccount(ctx context.Context, a core.Account) (core.Account, error)
	ListAccounts(ctx context.Context, owner string) ([]core.Account, error)
	GetAccount(ctx context.Context, id string) (core.Account, error)
	GetAccountByName(ctx context.Context, owner, name string) (core.Account, error)
	UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error)
}

// AccountService manages the accounts entries refer to by name.
type AccountService struct {
	store           AccountStore
	defaultCurrency string
}

func NewAccountService(store AccountStore, defaultCurrency string) *AccountService {
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrency
	}
	return &AccountService{store: store, defaultCurrency: defaultCurrency}
}

// Create opens an account. The opening balance may be negative, e.g. for cards.
func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = ""
	a.Owner = strings.TrimSpace(a.Owner)
	a.AccountName = strings.TrimSpace(a.AccountName)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := auth.CheckOwner(ctx, a.Owner); err != nil {
		return core.Account{}, err
	}
	if a.AccountType == "" {
		a.AccountType = core.AccountCash
	}
	if strings.TrimSpace(a.Currency) == "" {
		a.Currency = s.defaultCurrency
	}
	a.Balance = a.Balance.Round(2)
	a.IsActive = true

	saved, err := s.store.InsertAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	slog.InfoContext(ctx, "Account created",
		"owner", saved.Owner,
		"account", saved.AccountName,
		"type", saved.AccountType)
	return saved, nil
}

func (s *AccountService) List(ctx context.Context, owner string) ([]core.Account, error) {
	if err := auth.CheckOwner(ctx, owner); err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccounts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) GetByName(ctx context.Context, owner, name string) (core.Account, error) {
	if err := auth.CheckOwner(ctx, owner); err != nil {
		return core.Account{}, err
	}
	return s.store.GetAccountByName(ctx, owner, name)
}

// Update renames, retypes or (de)activates an account. Balances only move through entries.
func (s *AccountService) Update(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error) {
	current, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if err := auth.CheckOwner(ctx, current.Owner); err != nil {
		return core.Account{}, core.ErrNotFound
	}
	if patch.AccountName != nil {
		name := strings.TrimSpace(*patch.AccountName)
		patch.AccountName = &name
	}
	return s.store.UpdateAccount(ctx, id, patch)
}
