package api

import "net/http"

func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	// Account routes
	mux.HandleFunc("POST /api/v1/accounts", a.OpenAccountHandler)
	mux.HandleFunc("GET /api/v1/accounts/{number}", a.GetAccountHandler)
	mux.HandleFunc("PUT /api/v1/accounts/{number}/status", a.SetActiveHandler)
	mux.HandleFunc("PUT /api/v1/accounts/{number}/overdraft", a.SetOverdraftHandler)

	// Holder routes
	mux.HandleFunc("GET /api/v1/accounts/{number}/holders", a.ListHoldersHandler)
	mux.HandleFunc("POST /api/v1/accounts/{number}/holders", a.AddHolderHandler)
	mux.HandleFunc("DELETE /api/v1/accounts/{number}/holders/{userId}", a.RemoveHolderHandler)

	// Ledger routes
	mux.HandleFunc("POST /api/v1/transfers", a.TransferHandler)
	mux.HandleFunc("GET /api/v1/transfers/{reference}", a.GetMovementHandler)
	mux.HandleFunc("GET /api/v1/accounts/{number}/transactions", a.ListEntriesHandler)

	// User routes
	mux.HandleFunc("POST /api/v1/users", a.CreateUserHandler)
	mux.HandleFunc("GET /api/v1/users/{id}", a.GetUserHandler)
	mux.HandleFunc("GET /api/v1/users/{id}/accounts", a.ListUserAccountsHandler)

	return mux
}
