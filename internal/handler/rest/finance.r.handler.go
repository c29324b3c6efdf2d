package hrest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/service"
	"finance-service/internal/usecase"
	"finance-service/internal/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FinanceRestHandler struct {
	walletUC *usecase.WalletUsecase
	txUC     *usecase.TransactionUsecase
	reconUC  *usecase.ReconciliationUsecase
	reportUC *usecase.ReportUsecase
	feeCalc  *service.FeeCalculator
	logger   *zap.Logger
}

func NewFinanceRestHandler(
	walletUC *usecase.WalletUsecase,
	txUC *usecase.TransactionUsecase,
	reconUC *usecase.ReconciliationUsecase,
	reportUC *usecase.ReportUsecase,
	feeCalc *service.FeeCalculator,
	logger *zap.Logger,
) *FinanceRestHandler {
	return &FinanceRestHandler{
		walletUC: walletUC,
		txUC:     txUC,
		reconUC:  reconUC,
		reportUC: reportUC,
		feeCalc:  feeCalc,
		logger:   logger,
	}
}

// Handler builds the full HTTP surface with middleware
func (h *FinanceRestHandler) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/v1/finance/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		h.registerRoutes(r)
	})

	return r
}

func (h *FinanceRestHandler) registerRoutes(r chi.Router) {
	// ============================================
	// WALLETS
	// ============================================
	r.Route("/wallets/{agentID}", func(r chi.Router) {
		r.Post("/", h.CreateWallet)
		r.Get("/balance", h.GetBalance)
		r.Put("/settings", h.UpdateSettings)
		r.Get("/stats", h.GetAgentStats)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/earnings", h.ListEarnings)
		r.Get("/withdrawals", h.ListWithdrawals)
		r.Post("/earnings", h.AddEarnings)
		r.Post("/withdrawals", h.RequestWithdrawal)
		r.Post("/auto-withdraw", h.TriggerAutoWithdraw)
		r.Get("/payment-methods", h.ListPaymentMethods)
	})

	// ============================================
	// TRANSACTIONS
	// ============================================
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/pending", h.ListPendingTransactions)
		r.Get("/jobs/{jobID}", h.ListTransactionsByJob)
		r.Get("/platforms/{platform}", h.ListTransactionsByPlatform)
		r.Get("/{id}", h.GetTransaction)
		r.Post("/{id}/release", h.ReleaseTransaction)
		r.Post("/{id}/void", h.VoidTransaction)
		r.Post("/{id}/process", h.ProcessWithdrawal)
	})

	// ============================================
	// PAYMENT METHODS
	// ============================================
	r.Route("/payment-methods", func(r chi.Router) {
		r.Post("/", h.AddPaymentMethod)
		r.Get("/{id}", h.GetPaymentMethod)
		r.Post("/{id}/verify", h.VerifyPaymentMethod)
		r.Post("/{id}/default", h.SetDefaultPaymentMethod)
		r.Delete("/{id}", h.RemovePaymentMethod)
	})

	// ============================================
	// RECONCILIATION
	// ============================================
	r.Route("/reconciliation", func(r chi.Router) {
		r.Get("/status", h.GetReconciliationStatus)
		r.Post("/{platform}", h.ReconcilePlatform)
		r.Post("/{platform}/clearance", h.ReleaseClearedPayments)
	})

	// ============================================
	// REFUNDS
	// ============================================
	r.Post("/refunds", h.HandleRefund)

	// ============================================
	// REPORTS
	// ============================================
	r.Route("/reports", func(r chi.Router) {
		r.Get("/daily", h.GetDailySummary)
		r.Get("/platforms", h.GetPlatformSummaries)
		r.Get("/forecast", h.GetRevenueForecast)
		r.Post("/agents/{agentID}", h.GenerateAgentReport)
		r.Post("/system", h.GenerateSystemReport)
		r.Get("/saved", h.ListSavedReports)
		r.Get("/saved/{id}", h.GetSavedReport)
	})

	// ============================================
	// FEE CONFIGURATION
	// ============================================
	r.Route("/fees", func(r chi.Router) {
		r.Get("/platforms/{platform}", h.GetPlatformFee)
		r.Put("/platforms/{platform}", h.SetPlatformFee)
		r.Get("/withdrawals/{method}", h.GetWithdrawalFee)
		r.Put("/withdrawals/{method}", h.SetWithdrawalFee)
	})
}

// ===============================
// WALLET HANDLERS
// ===============================

func (h *FinanceRestHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	wallet, err := h.walletUC.GetOrCreateWallet(r.Context(), agentID)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    wallet,
	})
}

func (h *FinanceRestHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	balance, err := h.walletUC.GetBalance(r.Context(), agentID)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    balance,
	})
}

func (h *FinanceRestHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var req domain.WalletSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	wallet, err := h.walletUC.UpdateSettings(r.Context(), agentID, &req)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    wallet,
	})
}

func (h *FinanceRestHandler) GetAgentStats(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	stats, err := h.reportUC.GetAgentStats(r.Context(), agentID)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
	})
}

func (h *FinanceRestHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	filter := parseTransactionFilter(r)

	transactions, err := h.txUC.ListTransactions(r.Context(), agentID, filter)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

func (h *FinanceRestHandler) ListEarnings(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	filter := parseTransactionFilter(r)

	transactions, err := h.txUC.ListEarnings(r.Context(), agentID, filter)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

func (h *FinanceRestHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	filter := parseTransactionFilter(r)

	transactions, err := h.txUC.ListWithdrawals(r.Context(), agentID, filter)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

func (h *FinanceRestHandler) AddEarnings(w http.ResponseWriter, r *http.Request) {
	var req domain.EarningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	txn, err := h.walletUC.AddEarnings(r.Context(), &req)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

func (h *FinanceRestHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req domain.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	txn, err := h.walletUC.RequestWithdrawal(r.Context(), &req)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

func (h *FinanceRestHandler) TriggerAutoWithdraw(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	txn, err := h.walletUC.AutoWithdraw(r.Context(), agentID)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	data := map[string]interface{}{"triggered": txn != nil}
	if txn != nil {
		data["transaction"] = txn
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// ===============================
// TRANSACTION HANDLERS
// ===============================

func (h *FinanceRestHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txn, err := h.txUC.GetTransaction(r.Context(), id)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

type releaseJSON struct {
	Notes *string `json:"notes,omitempty"`
}

func (h *FinanceRestHandler) ReleaseTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in releaseJSON
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	txn, err := h.walletUC.ReleasePending(r.Context(), id, in.Notes)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

type voidJSON struct {
	Reason string `json:"reason"`
}

func (h *FinanceRestHandler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in voidJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if in.Reason == "" {
		h.respondError(w, http.StatusBadRequest, "reason is required", nil)
		return
	}

	txn, err := h.txUC.VoidTransaction(r.Context(), id, in.Reason)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

func (h *FinanceRestHandler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txn, err := h.walletUC.ProcessWithdrawal(r.Context(), id)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

func (h *FinanceRestHandler) ListPendingTransactions(w http.ResponseWriter, r *http.Request) {
	var olderThan *time.Duration
	if v := r.URL.Query().Get("older_than_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid older_than_hours parameter", err)
			return
		}
		d := time.Duration(n) * time.Hour
		olderThan = &d
	}

	transactions, err := h.txUC.ListPendingTransactions(r.Context(), olderThan)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

func (h *FinanceRestHandler) ListTransactionsByJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	transactions, err := h.txUC.ListTransactionsByJob(r.Context(), jobID)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

func (h *FinanceRestHandler) ListTransactionsByPlatform(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")

	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid since date, expected YYYY-MM-DD", err)
			return
		}
		since = &t
	}

	transactions, err := h.txUC.ListTransactionsByPlatform(r.Context(), platform, since)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

// ===============================
// PAYMENT METHOD HANDLERS
// ===============================

func (h *FinanceRestHandler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pm, err := h.walletUC.AddPaymentMethod(r.Context(), &req)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    pm,
	})
}

func (h *FinanceRestHandler) GetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pm, err := h.walletUC.GetPaymentMethod(r.Context(), id)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    pm,
	})
}

func (h *FinanceRestHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	methods, err := h.walletUC.ListPaymentMethods(r.Context(), agentID)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"payment_methods": methods,
			"count":           len(methods),
		},
	})
}

func (h *FinanceRestHandler) VerifyPaymentMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pm, err := h.walletUC.VerifyPaymentMethod(r.Context(), id)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    pm,
	})
}

func (h *FinanceRestHandler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pm, err := h.walletUC.SetDefaultPaymentMethod(r.Context(), id)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    pm,
	})
}

func (h *FinanceRestHandler) RemovePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.walletUC.RemovePaymentMethod(r.Context(), id); err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"deleted": true},
	})
}

// ===============================
// RECONCILIATION HANDLERS
// ===============================

type reconcileJSON struct {
	Transactions []domain.ExternalTransaction `json:"transactions"`
}

func (h *FinanceRestHandler) ReconcilePlatform(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")

	var in reconcileJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.reconUC.ReconcilePlatformPayments(r.Context(), platform, in.Transactions)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

type clearanceJSON struct {
	ClearanceDays *int `json:"clearance_days,omitempty"`
}

func (h *FinanceRestHandler) ReleaseClearedPayments(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")

	var in clearanceJSON
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	released, err := h.reconUC.ReleaseClearedPayments(r.Context(), platform, in.ClearanceDays)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"platform": platform,
			"released": released,
		},
	})
}

func (h *FinanceRestHandler) GetReconciliationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.reconUC.GetReconciliationStatus(r.Context())
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    status,
	})
}

func (h *FinanceRestHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	var req domain.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	txn, err := h.reconUC.HandleRefund(r.Context(), &req)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}

// ===============================
// REPORT HANDLERS
// ===============================

func (h *FinanceRestHandler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
		date = parsed
	}

	summary, err := h.reportUC.GetDailySummary(r.Context(), date, queryAgentID(r))
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    summary,
	})
}

func (h *FinanceRestHandler) GetPlatformSummaries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid period, expected YYYY-MM-DD", err)
		return
	}

	summaries, err := h.reportUC.GetPlatformSummaries(r.Context(), queryAgentID(r), from, to)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"platforms": summaries,
			"count":     len(summaries),
		},
	})
}

func (h *FinanceRestHandler) GetRevenueForecast(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid days parameter", err)
			return
		}
		days = n
	}

	forecast, err := h.reportUC.GetRevenueForecast(r.Context(), queryAgentID(r), days)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    forecast,
	})
}

type reportPeriodJSON struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (h *FinanceRestHandler) GenerateAgentReport(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var in reportPeriodJSON
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	report, err := h.reportUC.GenerateAgentReport(r.Context(), agentID, in.PeriodStart, in.PeriodEnd)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}

func (h *FinanceRestHandler) GenerateSystemReport(w http.ResponseWriter, r *http.Request) {
	var in reportPeriodJSON
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	report, err := h.reportUC.GenerateSystemReport(r.Context(), in.PeriodStart, in.PeriodEnd)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}

func (h *FinanceRestHandler) ListSavedReports(w http.ResponseWriter, r *http.Request) {
	filter := &domain.ReportFilter{AgentID: queryAgentID(r)}

	if v := r.URL.Query().Get("report_type"); v != "" {
		rt := domain.ReportType(v)
		filter.ReportType = &rt
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	reports, err := h.reportUC.ListSavedReports(r.Context(), filter)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"reports": reports,
			"count":   len(reports),
		},
	})
}

func (h *FinanceRestHandler) GetSavedReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.reportUC.GetSavedReport(r.Context(), id)
	if err != nil {
		h.handleUsecaseError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}

// ===============================
// FEE CONFIGURATION HANDLERS
// ===============================

func (h *FinanceRestHandler) GetPlatformFee(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"platform":       platform,
			"rate":           h.feeCalc.PlatformFeeRate(r.Context(), platform),
			"clearance_days": h.feeCalc.ClearanceDays(platform),
		},
	})
}

type platformFeeJSON struct {
	Rate decimal.Decimal `json:"rate"`
}

func (h *FinanceRestHandler) SetPlatformFee(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")

	var in platformFeeJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.feeCalc.SetPlatformFeeRate(r.Context(), platform, in.Rate); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to set platform fee rate", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"platform": platform,
			"rate":     in.Rate,
		},
	})
}

func (h *FinanceRestHandler) GetWithdrawalFee(w http.ResponseWriter, r *http.Request) {
	method := domain.WithdrawalMethod(chi.URLParam(r, "method"))
	if !method.IsValid() {
		h.respondError(w, http.StatusBadRequest, "Unknown withdrawal method", nil)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"method": method,
			"rule":   h.feeCalc.WithdrawalFeeRule(r.Context(), method),
		},
	})
}

type withdrawalFeeJSON struct {
	FeeType    string          `json:"fee_type"` // percentage | fixed
	Value      decimal.Decimal `json:"value"`
	TTLSeconds int             `json:"ttl_seconds,omitempty"`
}

func (h *FinanceRestHandler) SetWithdrawalFee(w http.ResponseWriter, r *http.Request) {
	method := domain.WithdrawalMethod(chi.URLParam(r, "method"))
	if !method.IsValid() {
		h.respondError(w, http.StatusBadRequest, "Unknown withdrawal method", nil)
		return
	}

	var in withdrawalFeeJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule := service.FeeRule{Method: in.FeeType, Value: in.Value}
	ttl := time.Duration(in.TTLSeconds) * time.Second
	if err := h.feeCalc.SetWithdrawalFeeRule(r.Context(), method, rule, ttl); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to set withdrawal fee rule", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"method": method,
			"rule":   rule,
		},
	})
}

// ===============================
// REQUEST PARSING
// ===============================

func parseTransactionFilter(r *http.Request) *domain.TransactionFilter {
	filter := &domain.TransactionFilter{}
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		t := domain.TransactionType(v)
		filter.Type = &t
	}
	if v := q.Get("status"); v != "" {
		s := domain.TransactionStatus(v)
		filter.Status = &s
	}
	if v := q.Get("platform"); v != "" {
		filter.Platform = &v
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := parseDate(v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := parseDate(v); err == nil {
			filter.EndDate = &t
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	return filter
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func parsePeriod(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return from, to, err
		}
		to = t
	}
	return from, to, nil
}

func queryAgentID(r *http.Request) *string {
	if v := r.URL.Query().Get("agent_id"); v != "" {
		return &v
	}
	return nil
}

// ===============================
// RESPONSES
// ===============================

func (h *FinanceRestHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends error response
func (h *FinanceRestHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	h.logger.Error(message,
		zap.Error(err),
		zap.Int("status", status))

	response := map[string]interface{}{
		"success": false,
		"error":   message,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	h.respondJSON(w, status, response)
}

// handleUsecaseError maps usecase errors onto HTTP statuses
func (h *FinanceRestHandler) handleUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrWalletNotFound),
		errors.Is(err, xerrors.ErrTransactionNotFound),
		errors.Is(err, xerrors.ErrPaymentMethodNotFound),
		errors.Is(err, xerrors.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Resource not found", err)

	case errors.Is(err, xerrors.ErrInvalidState):
		h.respondError(w, http.StatusConflict, "Transaction state does not allow this operation", err)

	case errors.Is(err, xerrors.ErrInsufficientBalance):
		h.respondError(w, http.StatusUnprocessableEntity, "Insufficient balance", err)

	case errors.Is(err, xerrors.ErrInvalidAmount),
		errors.Is(err, xerrors.ErrInvalidRequest),
		errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrUnknownWithdrawalMethod),
		errors.Is(err, xerrors.ErrNoWithdrawalMethod):
		h.respondError(w, http.StatusBadRequest, "Invalid request", err)

	default:
		h.respondError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}
