package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/service"
)

type API struct {
	svc    service.Service
	logger *slog.Logger
}

func NewAPI(svc service.Service, logger *slog.Logger) *API {
	return &API{svc: svc, logger: logger}
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeError maps core errors onto HTTP statuses: bad input 422, missing
// rows 404, state conflicts 409, retryable store trouble 503. Anything else
// is a 500 and gets logged.
func (a *API) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrMembershipNotFound),
		errors.Is(err, core.ErrMovementNotFound):
		httpError(w, http.StatusNotFound, err.Error())
		return
	}

	switch core.KindOf(err) {
	case core.KindValidation:
		httpError(w, http.StatusUnprocessableEntity, err.Error())
	case core.KindConflict:
		httpError(w, http.StatusConflict, err.Error())
	case core.KindTransient:
		a.logger.Warn("store unavailable", "err", err)
		httpError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry the request")
	default:
		a.logger.Error("internal error", "err", err)
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}

type accountResponse struct {
	Number             int64            `json:"account_number"`
	Type               string           `json:"account_type"`
	SubType            string           `json:"account_sub_type"`
	Balance            decimal.Decimal  `json:"balance"`
	InterestRateCredit *decimal.Decimal `json:"interest_rate_credit,omitempty"`
	InterestRateDebit  *decimal.Decimal `json:"interest_rate_debit,omitempty"`
	OverdraftLimit     *decimal.Decimal `json:"overdraft_limit,omitempty"`
	IsActive           bool             `json:"is_active"`
	DateOpened         time.Time        `json:"date_opened"`
}

func toAccountResponse(a *core.Account) *accountResponse {
	return &accountResponse{
		Number:             a.Number,
		Type:               a.Type,
		SubType:            a.SubType,
		Balance:            a.Balance,
		InterestRateCredit: a.InterestRateCredit,
		InterestRateDebit:  a.InterestRateDebit,
		OverdraftLimit:     a.OverdraftLimit,
		IsActive:           a.IsActive,
		DateOpened:         a.DateOpened,
	}
}

type entryResponse struct {
	Reference        string          `json:"reference"`
	Amount           decimal.Decimal `json:"amount"`
	RunningBalance   decimal.Decimal `json:"running_balance"`
	DateTime         time.Time       `json:"date_time"`
	Description      string          `json:"description,omitempty"`
	Type             core.EntryType  `json:"type"`
	SenderAccount    int64           `json:"sender_account_number"`
	RecipientAccount int64           `json:"recipient_account_number"`
	Direction        core.Direction  `json:"direction"`
	Outcome          core.Outcome    `json:"outcome"`
}

func toEntryResponse(e *core.LedgerEntry) *entryResponse {
	return &entryResponse{
		Reference:        e.Reference,
		Amount:           e.Amount,
		RunningBalance:   e.RunningBalance,
		DateTime:         e.DateTime,
		Description:      e.Description,
		Type:             e.Type,
		SenderAccount:    e.SenderAccount,
		RecipientAccount: e.RecipientAccount,
		Direction:        e.Direction,
		Outcome:          e.Outcome,
	}
}

type membershipResponse struct {
	AccountNumber int64     `json:"account_number"`
	UserID        int       `json:"user_id"`
	Role          core.Role `json:"role"`
}

func toMembershipResponse(m *core.Membership) *membershipResponse {
	return &membershipResponse{AccountNumber: m.AccountNumber, UserID: m.UserID, Role: m.Role}
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return v, err == nil && v > 0
}

func pathInt(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.PathValue(name))
	return v, err == nil && v > 0
}

type transferRequest struct {
	From        int64           `json:"from_account_number"`
	To          int64           `json:"to_account_number"`
	Amount      decimal.Decimal `json:"amount"`
	Type        core.EntryType  `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
}

type transferResponse struct {
	SourceEntry      *entryResponse `json:"source_entry"`
	DestinationEntry *entryResponse `json:"destination_entry"`
}

func (a *API) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.From <= 0 || req.To <= 0 {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}

	srcEntry, dstEntry, err := a.svc.Transfer(r.Context(), req.From, req.To, req.Amount, req.Type, req.Description)
	if err != nil {
		a.writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, transferResponse{
		SourceEntry:      toEntryResponse(srcEntry),
		DestinationEntry: toEntryResponse(dstEntry),
	})
}

type openAccountRequest struct {
	OwnerID        int              `json:"owner_id"`
	Type           string           `json:"account_type"`
	SubType        string           `json:"account_sub_type"`
	CreditRate     *decimal.Decimal `json:"interest_rate_credit,omitempty"`
	DebitRate      *decimal.Decimal `json:"interest_rate_debit,omitempty"`
	OverdraftLimit *decimal.Decimal `json:"overdraft_limit,omitempty"`
}

func (a *API) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OwnerID <= 0 || req.Type == "" {
		httpError(w, http.StatusBadRequest, "owner_id and account_type are required")
		return
	}

	acc, err := a.svc.OpenAccount(r.Context(), req.OwnerID, req.Type, req.SubType,
		req.CreditRate, req.DebitRate, req.OverdraftLimit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, toAccountResponse(acc))
}

func (a *API) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}

	acc, err := a.svc.GetAccount(r.Context(), number)
	if err != nil {
		a.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toAccountResponse(acc))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (a *API) SetActiveHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := a.svc.SetActive(r.Context(), number, req.Active); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setOverdraftRequest struct {
	Limit *decimal.Decimal `json:"overdraft_limit"`
}

func (a *API) SetOverdraftHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}
	var req setOverdraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := a.svc.SetOverdraftLimit(r.Context(), number, req.Limit); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addHolderRequest struct {
	UserID int `json:"user_id"`
}

func (a *API) AddHolderHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}
	var req addHolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		httpError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	m, err := a.svc.AddHolder(r.Context(), number, req.UserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, toMembershipResponse(m))
}

func (a *API) RemoveHolderHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}
	userID, ok := pathInt(r, "userId")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := a.svc.RemoveHolder(r.Context(), number, userID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ListHoldersHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}

	holders, err := a.svc.ListHolders(r.Context(), number)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := make([]*membershipResponse, 0, len(holders))
	for _, m := range holders {
		resp = append(resp, toMembershipResponse(m))
	}
	jsonResponse(w, http.StatusOK, map[string]any{"holders": resp})
}

func (a *API) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	number, ok := pathInt64(r, "number")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid account number")
		return
	}

	entries, err := a.svc.ListEntries(r.Context(), number)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := make([]*entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	jsonResponse(w, http.StatusOK, map[string]any{"transactions": resp})
}

func (a *API) GetMovementHandler(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")
	if ref == "" {
		httpError(w, http.StatusBadRequest, "invalid reference")
		return
	}

	entries, err := a.svc.EntriesByReference(r.Context(), ref)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := make([]*entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	jsonResponse(w, http.StatusOK, map[string]any{"entries": resp})
}

func (a *API) ListUserAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt(r, "id")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	accounts, err := a.svc.ListAccountsForUser(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := make([]*accountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp = append(resp, toAccountResponse(acc))
	}
	jsonResponse(w, http.StatusOK, map[string]any{"accounts": resp})
}

type createUserRequest struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type userResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
}

func (a *API) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FirstName == "" || req.Surname == "" || req.Email == "" || req.Password == "" {
		httpError(w, http.StatusBadRequest, "first_name, surname, email and password are required")
		return
	}

	u, err := a.svc.CreateUser(r.Context(), req.FirstName, req.Surname, req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, userResponse{ID: u.ID, FirstName: u.FirstName, Surname: u.Surname, Email: u.Email})
}

func (a *API) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		httpError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, userResponse{ID: u.ID, FirstName: u.FirstName, Surname: u.Surname, Email: u.Email})
}
