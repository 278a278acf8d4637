package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type accountRequest struct {
	Owner       string           `json:"owner"`
	AccountName string           `json:"accountName"`
	AccountType core.AccountType `json:"accountType"`
	Balance     decimal.Decimal  `json:"balance"`
	Currency    string           `json:"currency"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.AccountType != "" {
		t, err := core.ParseAccountType(string(req.AccountType))
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.AccountType = t
	}
	saved, err := s.svc.Accounts.Create(r.Context(), core.Account{
		Owner:       req.Owner,
		AccountName: req.AccountName,
		AccountType: req.AccountType,
		Balance:     req.Balance,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.List(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Accounts.GetByName(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var patch core.AccountPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.AccountType != nil {
		t, err := core.ParseAccountType(string(*patch.AccountType))
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.AccountType = &t
	}
	updated, err := s.svc.Accounts.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type categoryRequest struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Division string `json:"division"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := core.Category{Owner: req.Owner, Name: req.Name}
	if req.Type != "" {
		t, err := core.ParseCategoryType(req.Type)
		if err != nil {
			writeError(w, r, err)
			return
		}
		c.Type = t
	}
	if req.Division != "" {
		d, err := core.ParseDivision(req.Division)
		if err != nil {
			writeError(w, r, err)
			return
		}
		c.Division = d
	}
	saved, err := s.svc.Categories.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleListCategories lists active categories; type matches that type or Both.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		typ      core.CategoryType
		division core.Division
		err      error
	)
	if v := q.Get("type"); v != "" {
		if typ, err = core.ParseCategoryType(v); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if v := q.Get("division"); v != "" {
		if division, err = core.ParseDivision(v); err != nil {
			writeError(w, r, err)
			return
		}
	}
	cats, err := s.svc.Categories.List(r.Context(), chi.URLParam(r, "owner"), typ, division)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleDeactivateCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category deactivated"})
}
