package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FundLedger/internal/core"
	"FundLedger/internal/epoch"
	"FundLedger/internal/event"
	"FundLedger/internal/ledger"
	"FundLedger/internal/notify"
	"FundLedger/internal/observability"
	"FundLedger/internal/orders"
	"FundLedger/internal/persistence"
	"FundLedger/internal/projection"
	"FundLedger/internal/query"
	"FundLedger/internal/registry"
	"FundLedger/internal/settle"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Notifier delivers parked claim and cancellation notices. Satisfied by
// notify.Relay, but handlers call it through the orchestrator so relay state
// mutations stay on the processor goroutine.
type Notifier interface {
	NotifyDeposit(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error)
	NotifyRedeem(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error)
	NotifyCancelDeposit(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error)
	NotifyCancelRedeem(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error)
}

// Deps wires the HTTP surface to the rest of the system. Submit and Inspect
// round-trip through the processor goroutine; the query service reads
// Postgres directly.
type Deps struct {
	// Submit hands an operation to the processor and blocks for the result.
	Submit func(ctx context.Context, op event.Operation) (*core.OpResult, error)

	// Inspect runs a read-only closure on the processor goroutine against the
	// live engine state.
	Inspect func(ctx context.Context, fn func(*settle.Engine)) error

	Notifier  Notifier
	Registry  *registry.Registry
	Query     *query.Service
	Snapshots *persistence.SnapshotManager
	DB        *sql.DB
	Health    *observability.HealthChecker
	Log       zerolog.Logger
}

// Server is the HTTP/JSON API: investor requests, operator epoch actions,
// notification relay triggers, and read-side queries.
type Server struct {
	deps       Deps
	httpServer *http.Server
	log        zerolog.Logger
}

func New(addr string, deps Deps) *Server {
	s := &Server{deps: deps, log: deps.Log}

	router := httprouter.New()

	// Investor operations. These mirror the NATS subjects for environments
	// without a broker; submissions here carry no upstream ordering and must
	// name an authorized caller, the trust the broker credentials otherwise
	// establish.
	router.POST("/v1/requests/deposit", s.handleRequest(false))
	router.POST("/v1/requests/redeem", s.handleRequest(true))
	router.POST("/v1/cancels/deposit", s.handleCancel(false))
	router.POST("/v1/cancels/redeem", s.handleCancel(true))
	router.POST("/v1/claims/deposit", s.handleClaim(false))
	router.POST("/v1/claims/redeem", s.handleClaim(true))

	// Operator epoch actions.
	router.POST("/v1/operator/approve-deposits", s.handleApprove(false))
	router.POST("/v1/operator/approve-redeems", s.handleApprove(true))
	router.POST("/v1/operator/issue-shares", s.handleSettle(false))
	router.POST("/v1/operator/revoke-shares", s.handleSettle(true))
	router.POST("/v1/operator/enable-force-cancel", s.handleEnableForceCancel)
	router.POST("/v1/operator/force-cancel", s.handleForceCancel)

	// Notification relay.
	router.POST("/v1/notify/deposit", s.handleNotify("deposit"))
	router.POST("/v1/notify/redeem", s.handleNotify("redeem"))
	router.POST("/v1/notify/cancel-deposit", s.handleNotify("cancel-deposit"))
	router.POST("/v1/notify/cancel-redeem", s.handleNotify("cancel-redeem"))

	// Live engine reads.
	router.GET("/v1/orders/:share_class/:asset/:investor/:direction", s.handleOrder)
	router.GET("/v1/pending/:share_class/:asset/:direction", s.handlePendingTotal)
	router.GET("/v1/epochs/:share_class/:asset", s.handleEpochs)

	// Projection reads.
	router.GET("/v1/balances", s.handleBalance)
	router.GET("/v1/summary/:share_class/:asset", s.handleSummary)
	router.GET("/v1/activity/epochs/:share_class/:asset", s.handleEpochActivity)
	router.GET("/v1/activity/claims/:investor", s.handleClaimActivity)
	router.GET("/v1/journal", s.handleJournal)

	// Admin.
	router.GET("/v1/admin/integrity", s.handleIntegrity)
	router.GET("/v1/admin/log-info", s.handleLogInfo)
	router.POST("/v1/admin/rebuild-projections", s.handleRebuild)

	if deps.Health != nil {
		router.HandlerFunc(http.MethodGet, "/healthz", deps.Health.LivenessHandler)
		router.HandlerFunc(http.MethodGet, "/readyz", deps.Health.ReadinessHandler)
	}

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the composed route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// --- Investor handlers ---

type requestBody struct {
	RequestID  uuid.UUID `json:"request_id"`
	Caller     string    `json:"caller"`
	ShareClass string    `json:"share_class"`
	Asset      string    `json:"asset"`
	Investor   uuid.UUID `json:"investor"`
	Amount     uint64    `json:"amount"`
	Timestamp  int64     `json:"timestamp_us"`
}

func (b *requestBody) fill() {
	if b.RequestID == uuid.Nil {
		b.RequestID = uuid.New()
	}
	if b.Timestamp == 0 {
		b.Timestamp = time.Now().UnixMicro()
	}
}

func (s *Server) handleRequest(redeem bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		body.fill()
		if err := s.authorize(body.Caller, body.ShareClass); err != nil {
			s.writeError(w, statusForError(err), err)
			return
		}

		var op event.Operation
		if redeem {
			op = &event.RequestRedeem{
				RequestID:  body.RequestID,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Investor:   body.Investor,
				Amount:     body.Amount,
				Sequence:   -1,
				Timestamp:  body.Timestamp,
			}
		} else {
			op = &event.RequestDeposit{
				RequestID:  body.RequestID,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Investor:   body.Investor,
				Amount:     body.Amount,
				Sequence:   -1,
				Timestamp:  body.Timestamp,
			}
		}
		s.submit(w, r, op)
	}
}

func (s *Server) handleCancel(redeem bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		body.fill()
		if err := s.authorize(body.Caller, body.ShareClass); err != nil {
			s.writeError(w, statusForError(err), err)
			return
		}

		var op event.Operation
		if redeem {
			op = &event.CancelRedeem{
				RequestID:  body.RequestID,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Investor:   body.Investor,
				Sequence:   -1,
				Timestamp:  body.Timestamp,
			}
		} else {
			op = &event.CancelDeposit{
				RequestID:  body.RequestID,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Investor:   body.Investor,
				Sequence:   -1,
				Timestamp:  body.Timestamp,
			}
		}
		s.submit(w, r, op)
	}
}

func (s *Server) handleClaim(redeem bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		body.fill()
		if err := s.authorize(body.Caller, body.ShareClass); err != nil {
			s.writeError(w, statusForError(err), err)
			return
		}

		var op event.Operation
		if redeem {
			op = &event.ClaimRedeem{
				RequestID:  body.RequestID,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Investor:   body.Investor,
				Sequence:   -1,
				Timestamp:  body.Timestamp,
			}
		} else {
			op = &event.ClaimDeposit{
				RequestID:  body.RequestID,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Investor:   body.Investor,
				Sequence:   -1,
				Timestamp:  body.Timestamp,
			}
		}
		s.submit(w, r, op)
	}
}

// --- Operator handlers ---

type operatorBody struct {
	RequestID  uuid.UUID `json:"request_id"`
	Caller     string    `json:"caller"`
	ShareClass string    `json:"share_class"`
	Asset      string    `json:"asset"`
	Epoch      uint32    `json:"epoch"`
	Amount     uint64    `json:"amount"`
	Price      uint64    `json:"price_pool_per_asset"`
	Nav        uint64    `json:"nav_pool_per_share"`
	Investor   uuid.UUID `json:"investor"`
	Redeem     bool      `json:"redeem"`
	Timestamp  int64     `json:"timestamp_us"`
}

func (b *operatorBody) fill() {
	if b.RequestID == uuid.Nil {
		b.RequestID = uuid.New()
	}
	if b.Timestamp == 0 {
		b.Timestamp = time.Now().UnixMicro()
	}
}

func (s *Server) handleApprove(redeem bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body operatorBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		body.fill()

		var op event.Operation
		if redeem {
			op = &event.ApproveRedeems{
				RequestID:  body.RequestID,
				Caller:     body.Caller,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Epoch:      body.Epoch,
				Amount:     body.Amount,
				Price:      body.Price,
				Timestamp:  body.Timestamp,
			}
		} else {
			op = &event.ApproveDeposits{
				RequestID:  body.RequestID,
				Caller:     body.Caller,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Epoch:      body.Epoch,
				Amount:     body.Amount,
				Price:      body.Price,
				Timestamp:  body.Timestamp,
			}
		}
		s.submit(w, r, op)
	}
}

func (s *Server) handleSettle(redeem bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body operatorBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		body.fill()

		var op event.Operation
		if redeem {
			op = &event.RevokeShares{
				RequestID:  body.RequestID,
				Caller:     body.Caller,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Epoch:      body.Epoch,
				Nav:        body.Nav,
				Timestamp:  body.Timestamp,
			}
		} else {
			op = &event.IssueShares{
				RequestID:  body.RequestID,
				Caller:     body.Caller,
				ShareClass: registry.ShareClassID(body.ShareClass),
				Asset:      registry.AssetID(body.Asset),
				Epoch:      body.Epoch,
				Nav:        body.Nav,
				Timestamp:  body.Timestamp,
			}
		}
		s.submit(w, r, op)
	}
}

func (s *Server) handleEnableForceCancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body operatorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	body.fill()

	s.submit(w, r, &event.EnableForceCancel{
		RequestID:  body.RequestID,
		Caller:     body.Caller,
		ShareClass: registry.ShareClassID(body.ShareClass),
		Asset:      registry.AssetID(body.Asset),
		Investor:   body.Investor,
		Redeem:     body.Redeem,
		Timestamp:  body.Timestamp,
	})
}

func (s *Server) handleForceCancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body operatorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	body.fill()

	s.submit(w, r, &event.ForceCancel{
		RequestID:  body.RequestID,
		Caller:     body.Caller,
		ShareClass: registry.ShareClassID(body.ShareClass),
		Asset:      registry.AssetID(body.Asset),
		Investor:   body.Investor,
		Redeem:     body.Redeem,
		Timestamp:  body.Timestamp,
	})
}

// --- Notification handlers ---

type notifyBody struct {
	Caller     string    `json:"caller"`
	ShareClass string    `json:"share_class"`
	Asset      string    `json:"asset"`
	Investor   uuid.UUID `json:"investor"`
	Budget     uint64    `json:"budget"`
}

func (s *Server) handleNotify(kind string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body notifyBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.authorize(body.Caller, body.ShareClass); err != nil {
			s.writeError(w, statusForError(err), err)
			return
		}

		scID := registry.ShareClassID(body.ShareClass)
		assetID := registry.AssetID(body.Asset)

		var surplus uint64
		var err error
		switch kind {
		case "deposit":
			surplus, err = s.deps.Notifier.NotifyDeposit(scID, assetID, body.Investor, body.Budget)
		case "redeem":
			surplus, err = s.deps.Notifier.NotifyRedeem(scID, assetID, body.Investor, body.Budget)
		case "cancel-deposit":
			surplus, err = s.deps.Notifier.NotifyCancelDeposit(scID, assetID, body.Investor, body.Budget)
		default:
			surplus, err = s.deps.Notifier.NotifyCancelRedeem(scID, assetID, body.Investor, body.Budget)
		}
		if err != nil {
			s.writeError(w, statusForError(err), err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]uint64{"surplus": surplus})
	}
}

// --- Live engine reads ---

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	investor, err := uuid.Parse(ps.ByName("investor"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid investor: %w", err))
		return
	}
	dir, err := orders.ParseDirection(ps.ByName("direction"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var state settle.OrderState
	err = s.deps.Inspect(r.Context(), func(e *settle.Engine) {
		state = e.Order(
			registry.ShareClassID(ps.ByName("share_class")),
			registry.AssetID(ps.ByName("asset")),
			investor, dir,
		)
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePendingTotal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dir, err := orders.ParseDirection(ps.ByName("direction"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var total uint64
	err = s.deps.Inspect(r.Context(), func(e *settle.Engine) {
		total = e.PendingTotal(
			registry.ShareClassID(ps.ByName("share_class")),
			registry.AssetID(ps.ByName("asset")),
			dir,
		)
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"pending_total": total})
}

func (s *Server) handleEpochs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scID := registry.ShareClassID(ps.ByName("share_class"))
	assetID := registry.AssetID(ps.ByName("asset"))

	counters := make(map[string]uint32, 4)
	err := s.deps.Inspect(r.Context(), func(e *settle.Engine) {
		for _, track := range []epoch.Track{
			epoch.TrackDepositApprove, epoch.TrackDepositIssue,
			epoch.TrackRedeemApprove, epoch.TrackRedeemRevoke,
		} {
			counters[track.String()] = e.CurrentEpoch(scID, assetID, track)
		}
	})
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counters)
}

// --- Projection reads ---

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	account := r.URL.Query().Get("account")
	if account == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("account query parameter is required"))
		return
	}

	entry, err := s.deps.Query.GetBalance(r.Context(), account)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	summary, err := s.deps.Query.GetShareClassSummary(r.Context(), ps.ByName("share_class"), ps.ByName("asset"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleEpochActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, before := pagination(r)
	entries, err := s.deps.Query.GetEpochActivity(r.Context(), ps.ByName("share_class"), ps.ByName("asset"), limit, before)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClaimActivity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := uuid.Parse(ps.ByName("investor")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid investor: %w", err))
		return
	}

	limit, before := pagination(r)
	entries, err := s.deps.Query.GetClaimActivity(r.Context(), ps.ByName("investor"), limit, before)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	account := r.URL.Query().Get("account")
	if account == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("account query parameter is required"))
		return
	}

	limit, before := pagination(r)
	entries, err := s.deps.Query.GetJournalHistory(r.Context(), account, limit, before)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// --- Admin ---

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := s.deps.Query.VerifyIntegrity(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleLogInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	seq, err := s.deps.Snapshots.GetLatestSequence(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"last_sequence": seq})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := projection.Rebuild(r.Context(), s.deps.DB); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"rebuilt": true})
}

// --- helpers ---

// authorize guards the mutating investor routes. On the NATS path the broker
// credentials establish that submissions come from the hub; HTTP has no
// broker, so the caller must state a principal and it must be the hub
// controller or a registered manager of the share class.
func (s *Server) authorize(caller, shareClass string) error {
	return s.deps.Registry.Authorize(registry.ShareClassID(shareClass), caller)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, op event.Operation) {
	result, err := s.deps.Submit(r.Context(), op)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateOperation) {
			s.writeJSON(w, http.StatusOK, map[string]bool{"duplicate": true})
			return
		}
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, settle.ErrNoOrderFound),
		errors.Is(err, settle.ErrEpochNotFound),
		errors.Is(err, settle.ErrNoUnclaimedCancellation):
		return http.StatusNotFound
	case errors.Is(err, settle.ErrEpochNotInSequence),
		errors.Is(err, settle.ErrCancellationQueued),
		errors.Is(err, settle.ErrIssuanceRequired),
		errors.Is(err, settle.ErrRevocationRequired),
		errors.Is(err, settle.ErrCancellationInitializationRequired),
		errors.Is(err, ledger.ErrNotEnoughToWithdraw):
		return http.StatusConflict
	case errors.Is(err, settle.ErrZeroAmount),
		errors.Is(err, settle.ErrZeroApprovalAmount),
		errors.Is(err, settle.ErrInsufficientPending),
		errors.Is(err, orders.ErrPendingOverflow):
		return http.StatusBadRequest
	case errors.Is(err, notify.ErrNotEnoughGas):
		return http.StatusPaymentRequired
	default:
		return http.StatusUnprocessableEntity
	}
}

func pagination(r *http.Request) (int, *int64) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := parseInt(v); err == nil && n > 0 && n <= 500 {
			limit = int(n)
		}
	}

	var before *int64
	if v := r.URL.Query().Get("before"); v != "" {
		if n, err := parseInt(v); err == nil {
			before = &n
		}
	}
	return limit, before
}

func parseInt(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
