package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

// Service defines the registry operations the HTTP layer exposes.
type Service interface {
	QuoteRentCost(ctx context.Context, name string, duration time.Duration) (domain.Amount, error)
	Register(ctx context.Context, name string, duration time.Duration, payment *domain.Amount) (*models.Domain, error)
	Renew(ctx context.Context, id domain.DomainID, duration time.Duration, payment *domain.Amount) (*models.Domain, error)
	UpdateBio(ctx context.Context, id domain.DomainID, bio string) (*models.Domain, error)
	UpdateAddress(ctx context.Context, id domain.DomainID, addr domain.OwnerAddress) (*models.Domain, error)
	ListAllDomains(ctx context.Context) ([]models.DomainInfo, error)
	ListDomainsOf(ctx context.Context, owner domain.OwnerAddress) ([]models.DomainInfo, error)
	GetDomainInfo(ctx context.Context, owner domain.OwnerAddress, hash domain.NameHash) (models.DomainInfo, error)
	ResolveName(ctx context.Context, hash domain.NameHash) (models.DomainInfo, error)
	InitializeAccount(ctx context.Context) error
	IsInitialized(ctx context.Context, owner domain.OwnerAddress) (bool, error)
	Health(ctx context.Context) error
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts registry endpoints on the router. The auth middleware
// guards the write endpoints; read endpoints are public.
func (h *Handler) Register(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/domains", h.HandleListDomains)
	r.Get("/owners/{address}/domains", h.HandleListOwnerDomains)
	r.Get("/owners/{address}/domains/{nameHash}", h.HandleGetOwnerDomain)
	r.Get("/owners/{address}/initialized", h.HandleOwnerInitialized)
	r.Get("/quote", h.HandleQuote)
	r.Get("/healthz", h.HandleHealth)

	r.Group(func(g chi.Router) {
		g.Use(auth)
		g.Post("/account/init", h.HandleInitAccount)
		g.Post("/domains", h.HandleRegisterDomain)
		g.Post("/domains/{nameHash}/renew", h.HandleRenewDomain)
		g.Put("/domains/{nameHash}/bio", h.HandleUpdateBio)
		g.Put("/domains/{nameHash}/address", h.HandleUpdateAddress)
	})
}

// HandleListDomains handles GET /domains.
func (h *Handler) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.ListAllDomains(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDomainInfos(infos))
}

// HandleListOwnerDomains handles GET /owners/{address}/domains.
func (h *Handler) HandleListOwnerDomains(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseOwnerAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	infos, err := h.service.ListDomainsOf(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDomainInfos(infos))
}

// HandleGetOwnerDomain handles GET /owners/{address}/domains/{nameHash}.
func (h *Handler) HandleGetOwnerDomain(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseOwnerAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hash, err := domain.ParseNameHash(chi.URLParam(r, "nameHash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	info, err := h.service.GetDomainInfo(r.Context(), owner, hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDomainInfo(info))
}

// HandleOwnerInitialized handles GET /owners/{address}/initialized.
func (h *Handler) HandleOwnerInitialized(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseOwnerAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	initialized, err := h.service.IsInitialized(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, InitializedResponse{Address: owner, Initialized: initialized})
}

// HandleQuote handles GET /quote?name=&duration=. Duration is in seconds.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "name query parameter is required"))
		return
	}
	secs, err := strconv.ParseInt(r.URL.Query().Get("duration"), 10, 64)
	if err != nil || secs <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "duration query parameter must be a positive number of seconds"))
		return
	}

	cost, err := h.service.QuoteRentCost(r.Context(), name, time.Duration(secs)*time.Second)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, QuoteResponse{
		Name:            name,
		DurationSeconds: secs,
		Cost:            cost,
	})
}

// HandleInitAccount handles POST /account/init.
func (h *Handler) HandleInitAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.InitializeAccount(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "account initialized",
		"request_id", requestcontext.RequestID(ctx),
		"owner", requestcontext.Caller(ctx).String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, StatusResponse{Status: "initialized"})
}

// HandleRegisterDomain handles POST /domains.
func (h *Handler) HandleRegisterDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Register(ctx, req.Name, req.Duration(), req.Payment)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain registered",
		"request_id", requestID,
		"domain_id", record.ID,
		"owner", record.Owner.String(),
		"expires_at", record.ExpiresAt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDomain(record))
}

// HandleRenewDomain handles POST /domains/{nameHash}/renew.
func (h *Handler) HandleRenewDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.resolveDomainID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RenewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Renew(ctx, id, req.Duration(), req.Payment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain renewed",
		"request_id", requestID,
		"domain_id", record.ID,
		"expires_at", record.ExpiresAt,
	)
	httputil.WriteJSON(w, http.StatusOK, FromDomain(record))
}

// HandleUpdateBio handles PUT /domains/{nameHash}/bio.
func (h *Handler) HandleUpdateBio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.resolveDomainID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateBioRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.UpdateBio(ctx, id, req.Bio)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDomain(record))
}

// HandleUpdateAddress handles PUT /domains/{nameHash}/address.
func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.resolveDomainID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateAddressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.UpdateAddress(ctx, id, req.ParsedAddress())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDomain(record))
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// resolveDomainID maps the nameHash path parameter to the record currently
// holding that hash. The ownership check happens later in the service; a
// stale mapping loses there, not here.
func (h *Handler) resolveDomainID(w http.ResponseWriter, r *http.Request) (domain.DomainID, bool) {
	hash, err := domain.ParseNameHash(chi.URLParam(r, "nameHash"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	info, err := h.service.ResolveName(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return info.ID, true
}
