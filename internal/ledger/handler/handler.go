// Package handler exposes the ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/internal/platform/middleware"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/httputil"
	liststr "mintpress/pkg/platform/strings"
	"mintpress/pkg/requestcontext"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	Collection() models.Collection
	IssueCredential(ctx context.Context, requester domain.Address, locator string) (domain.CredentialID, error)
	GetCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	CredentialBalance(ctx context.Context, account domain.Address) (uint64, error)
	CredentialCount(ctx context.Context) (uint64, error)
	TransferCredential(ctx context.Context, caller, recipient domain.Address, id domain.CredentialID) error
	SelectProfile(ctx context.Context, caller domain.Address, id domain.CredentialID) error
	ProfileOf(ctx context.Context, account domain.Address) (domain.CredentialID, error)
	CreatePost(ctx context.Context, author domain.Address, contentHash string) (domain.PostID, error)
	CreatePostFromContent(ctx context.Context, author domain.Address, body []byte) (domain.PostID, string, error)
	GetPost(ctx context.Context, id domain.PostID) (*models.Post, error)
	GetPosts(ctx context.Context, ids []domain.PostID) ([]*models.Post, error)
	ListPosts(ctx context.Context, offset, limit int) ([]*models.Post, error)
	PostCount(ctx context.Context) (uint64, error)
	TipPost(ctx context.Context, caller domain.Address, id domain.PostID, amount domain.Amount) error
	Balance(ctx context.Context, account domain.Address) (domain.Amount, error)
	Deposit(ctx context.Context, account domain.Address, amount domain.Amount) error
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]events.Event, error)
}

// TokenIssuer mints caller tokens for the admin token endpoint.
type TokenIssuer interface {
	GenerateAccessToken(account domain.Address, expiresIn time.Duration) (string, error)
}

// Handler handles ledger endpoints.
type Handler struct {
	service    Service
	validator  middleware.TokenValidator
	issuer     TokenIssuer
	adminToken string
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// Config carries the auth wiring of the handler.
type Config struct {
	Validator  middleware.TokenValidator
	Issuer     TokenIssuer
	AdminToken string
	TokenTTL   time.Duration
}

// New creates a ledger Handler.
func New(service Service, cfg Config, logger *slog.Logger) *Handler {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handler{
		service:    service,
		validator:  cfg.Validator,
		issuer:     cfg.Issuer,
		adminToken: cfg.AdminToken,
		tokenTTL:   ttl,
		logger:     logger,
	}
}

// Register registers the ledger routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/collection", h.handleCollection)
	r.Get("/credentials/{id}", h.handleGetCredential)
	r.Get("/accounts/{address}", h.handleGetAccount)
	r.Get("/posts", h.handleListPosts)
	r.Get("/posts/{id}", h.handleGetPost)
	r.Get("/events", h.handleListEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/credentials", h.handleIssueCredential)
		r.Post("/credentials/{id}/transfer", h.handleTransferCredential)
		r.Put("/profile", h.handleSelectProfile)
		r.Post("/posts", h.handleCreatePost)
		r.Post("/posts/{id}/tips", h.handleTipPost)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/accounts/{address}/deposit", h.handleDeposit)
		r.Post("/tokens", h.handleIssueToken)
	})
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentials, err := h.service.CredentialCount(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to count credentials", err)
		return
	}
	posts, err := h.service.PostCount(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to count posts", err)
		return
	}
	c := h.service.Collection()
	httputil.WriteJSON(w, http.StatusOK, CollectionResponse{
		Name:            c.Name,
		Symbol:          c.Symbol,
		CredentialCount: credentials,
		PostCount:       posts,
	})
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	var req IssueCredentialRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	id, err := h.service.IssueCredential(ctx, caller, req.Locator)
	if err != nil {
		h.writeError(ctx, w, "failed to issue credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, IssueCredentialResponse{CredentialID: id, Owner: caller})
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.uintParam(ctx, w, r, "id")
	if !ok {
		return
	}
	credential, err := h.service.GetCredential(ctx, domain.CredentialID(id))
	if err != nil {
		h.writeError(ctx, w, "failed to get credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(credential))
}

func (h *Handler) handleTransferCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	id, ok := h.uintParam(ctx, w, r, "id")
	if !ok {
		return
	}
	var req TransferCredentialRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	recipient, err := req.Recipient()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.TransferCredential(ctx, caller, recipient, domain.CredentialID(id)); err != nil {
		h.writeError(ctx, w, "failed to transfer credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	held, err := h.service.CredentialBalance(ctx, account)
	if err != nil {
		h.writeError(ctx, w, "failed to count credentials", err)
		return
	}
	profile, err := h.service.ProfileOf(ctx, account)
	if err != nil {
		h.writeError(ctx, w, "failed to load profile", err)
		return
	}
	balance, err := h.service.Balance(ctx, account)
	if err != nil {
		h.writeError(ctx, w, "failed to read balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AccountResponse{
		Address:           account,
		CredentialBalance: held,
		Profile:           profile,
		WalletBalance:     balance,
	})
}

func (h *Handler) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	var req SelectProfileRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	if err := h.service.SelectProfile(ctx, caller, domain.CredentialID(req.CredentialID)); err != nil {
		h.writeError(ctx, w, "failed to select profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	var req CreatePostRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	var (
		id   domain.PostID
		hash = req.ContentHash
		err  error
	)
	if req.Content != "" {
		id, hash, err = h.service.CreatePostFromContent(ctx, caller, []byte(req.Content))
	} else {
		id, err = h.service.CreatePost(ctx, caller, req.ContentHash)
	}
	if err != nil {
		h.writeError(ctx, w, "failed to create post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreatePostResponse{PostID: id, ContentHash: hash})
}

func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.uintParam(ctx, w, r, "id")
	if !ok {
		return
	}
	post, err := h.service.GetPost(ctx, domain.PostID(id))
	if err != nil {
		h.writeError(ctx, w, "failed to get post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

// handleListPosts serves the feed: ?offset=&limit= pages by id, ?ids=1,2,3
// fetches specific posts.
func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		posts []*models.Post
		err   error
	)
	if raw := q.Get("ids"); raw != "" {
		ids, perr := parsePostIDs(raw)
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		posts, err = h.service.GetPosts(ctx, ids)
	} else {
		offset, oerr := intQuery(q.Get("offset"))
		limit, lerr := intQuery(q.Get("limit"))
		if oerr != nil || lerr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "offset and limit must be non-negative integers"))
			return
		}
		posts, err = h.service.ListPosts(ctx, offset, limit)
	}
	if err != nil {
		h.writeError(ctx, w, "failed to list posts", err)
		return
	}
	total, err := h.service.PostCount(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to count posts", err)
		return
	}

	resp := PostListResponse{Posts: make([]PostResponse, 0, len(posts)), Total: total}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, toPostResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTipPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	id, ok := h.uintParam(ctx, w, r, "id")
	if !ok {
		return
	}
	var req TipRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	if err := h.service.TipPost(ctx, caller, domain.PostID(id), req.Amount); err != nil {
		h.writeError(ctx, w, "failed to tip post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	after, aerr := strconv.ParseUint(defaultString(q.Get("after"), "0"), 10, 64)
	limit, lerr := intQuery(q.Get("limit"))
	if aerr != nil || lerr != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "after and limit must be non-negative integers"))
		return
	}
	list, err := h.service.ListEvents(ctx, after, limit)
	if err != nil {
		h.writeError(ctx, w, "failed to list events", err)
		return
	}
	next := after
	if len(list) > 0 {
		next = list[len(list)-1].Seq
	}
	httputil.WriteJSON(w, http.StatusOK, EventListResponse{Events: list, Next: next})
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req DepositRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	if err := h.service.Deposit(ctx, account, req.Amount); err != nil {
		h.writeError(ctx, w, "failed to deposit", err)
		return
	}
	balance, err := h.service.Balance(ctx, account)
	if err != nil {
		h.writeError(ctx, w, "failed to read balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Address: account, WalletBalance: balance})
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req IssueTokenRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}
	account, ttl, err := req.Parse(h.tokenTTL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.issuer.GenerateAccessToken(account, ttl)
	if err != nil {
		h.writeError(ctx, w, "failed to issue token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// caller returns the authenticated account set by RequireAuth.
func (h *Handler) caller(ctx context.Context, w http.ResponseWriter) (domain.Address, bool) {
	account, ok := requestcontext.Account(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.ZeroAddress, false
	}
	return account, true
}

func (h *Handler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		if _, ok := dErrors.As(err); ok {
			httputil.WriteError(w, err)
			return false
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// uintParam parses a numeric path parameter. Zero is passed through so the
// service can decide whether it is NotFound or InvalidArgument.
func (h *Handler) uintParam(ctx context.Context, w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid path parameter",
			"request_id", requestcontext.RequestID(ctx),
			"param", name,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer"))
		return 0, false
	}
	return v, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func parsePostIDs(raw string) ([]domain.PostID, error) {
	parts := liststr.SplitList(raw, ",")
	ids := make([]domain.PostID, 0, len(parts))
	for _, p := range parts {
		id, err := domain.ParsePostID(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func intQuery(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return v, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
