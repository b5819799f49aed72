package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"registrar/internal/account"
	"registrar/internal/funds"
	"registrar/internal/identity"
	"registrar/internal/platform/config"
	"registrar/internal/platform/middleware"
	"registrar/internal/registry/namehash"
	"registrar/internal/registry/pricing"
	"registrar/internal/registry/service"
	"registrar/internal/registry/store"
	"registrar/pkg/domain"
)

const year = 365 * 24 * time.Hour

// HandlerSuite exercises the HTTP surface end to end against the in-memory
// stack, including auth middleware and the error envelope.
type HandlerSuite struct {
	suite.Suite

	router   chi.Router
	verifier *identity.Verifier
	ledger   *funds.InMemoryLedger

	alice domain.OwnerAddress
	bob   domain.OwnerAddress
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.alice = domain.MustOwnerAddress("0x0000000000000a11")
	s.bob = domain.MustOwnerAddress("0x0000000000000b0b")

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	records := store.NewInMemory()
	accounts := account.NewInMemoryStore()
	s.ledger = funds.NewInMemoryLedger()
	pricer, err := pricing.NewPricer(pricing.DefaultConfig())
	s.Require().NoError(err)

	svc := service.New(records, account.NewGate(accounts, records), s.ledger, pricer, config.Registry{
		MinRentDuration: year / 4,
		MinNameLength:   3,
		MaxNameLength:   64,
	}, service.WithLogger(logger))

	s.verifier = identity.NewVerifier("test-signing-key", "registrar-test")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	New(svc, logger).Register(r, middleware.RequireAuth(s.verifier, logger))
	s.router = r
}

func (s *HandlerSuite) token(owner domain.OwnerAddress) string {
	token, err := s.verifier.MintToken(owner, time.Hour)
	s.Require().NoError(err)
	return token
}

// do performs a request against the router. A non-zero owner gets a bearer
// token; body may be nil.
func (s *HandlerSuite) do(method, path string, owner domain.OwnerAddress, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if !owner.IsZero() {
		req.Header.Set("Authorization", "Bearer "+s.token(owner))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var env struct {
		Error string `json:"error"`
	}
	s.decode(rec, &env)
	return env.Error
}

func (s *HandlerSuite) register(owner domain.OwnerAddress, name string) DomainResponse {
	s.ledger.Credit(owner, domain.AmountFromDeci(100000))
	rec := s.do(http.MethodPost, "/account/init", owner, nil)
	if rec.Code != http.StatusCreated && rec.Code != http.StatusConflict {
		s.Require().Failf("account init failed", "status %d body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/domains", owner, RegisterRequest{
		Name:            name,
		DurationSeconds: int64(year / time.Second),
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp DomainResponse
	s.decode(rec, &resp)
	return resp
}

func (s *HandlerSuite) TestQuote() {
	s.Run("prices a valid request", func() {
		rec := s.do(http.MethodGet, fmt.Sprintf("/quote?name=learnweb3&duration=%d", int64(year/time.Second)), "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp QuoteResponse
		s.decode(rec, &resp)
		s.Equal("50.0", resp.Cost.String())
	})

	s.Run("missing name rejected", func() {
		rec := s.do(http.MethodGet, "/quote?duration=3600", "", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("bad duration rejected", func() {
		rec := s.do(http.MethodGet, "/quote?name=learnweb3&duration=soon", "", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRegisterDomain() {
	s.Run("creates a record", func() {
		resp := s.register(s.alice, "learnweb3")
		s.Equal("learnweb3", resp.Name)
		s.Equal(s.alice, resp.Owner)
		s.Equal(namehash.Hash("learnweb3"), resp.NameHash)
	})

	s.Run("requires a token", func() {
		rec := s.do(http.MethodPost, "/domains", "", RegisterRequest{Name: "learnweb3", DurationSeconds: 3600})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("duplicate name conflicts", func() {
		// "learnweb3" is already held by alice from the first subtest.
		s.ledger.Credit(s.bob, domain.AmountFromDeci(100000))
		rec := s.do(http.MethodPost, "/account/init", s.bob, nil)
		s.Require().Equal(http.StatusCreated, rec.Code)

		rec = s.do(http.MethodPost, "/domains", s.bob, RegisterRequest{
			Name:            "learnweb3",
			DurationSeconds: int64(year / time.Second),
		})
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal("conflict", s.errorCode(rec))
	})

	s.Run("malformed body rejected", func() {
		req := httptest.NewRequest(http.MethodPost, "/domains", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Authorization", "Bearer "+s.token(s.alice))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRenewDomain() {
	created := s.register(s.alice, "learnweb3")

	s.Run("owner extends the lease", func() {
		rec := s.do(http.MethodPost, "/domains/"+created.NameHash.String()+"/renew", s.alice, RenewRequest{
			DurationSeconds: int64(year / time.Second),
		})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var resp DomainResponse
		s.decode(rec, &resp)
		s.Equal(created.ExpiresAt.Add(year), resp.ExpiresAt)
	})

	s.Run("non-owner forbidden", func() {
		rec := s.do(http.MethodPost, "/domains/"+created.NameHash.String()+"/renew", s.bob, RenewRequest{
			DurationSeconds: int64(year / time.Second),
		})
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("not_owner", s.errorCode(rec))
	})

	s.Run("unknown hash not found", func() {
		rec := s.do(http.MethodPost, "/domains/"+namehash.Hash("nosuchname").String()+"/renew", s.alice, RenewRequest{
			DurationSeconds: int64(year / time.Second),
		})
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestUpdateBio() {
	created := s.register(s.alice, "learnweb3")

	rec := s.do(http.MethodPut, "/domains/"+created.NameHash.String()+"/bio", s.alice, UpdateBioRequest{Bio: "gm"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp DomainResponse
	s.decode(rec, &resp)
	s.Equal("gm", resp.Bio)

	rec = s.do(http.MethodPut, "/domains/"+created.NameHash.String()+"/bio", s.bob, UpdateBioRequest{Bio: "mine now"})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestUpdateAddress() {
	created := s.register(s.alice, "learnweb3")

	rec := s.do(http.MethodPut, "/domains/"+created.NameHash.String()+"/address", s.alice, UpdateAddressRequest{
		Address: "0x00000000000000fe",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp DomainResponse
	s.decode(rec, &resp)
	s.Equal(domain.MustOwnerAddress("0x00000000000000fe"), resp.ResolvedAddress)

	rec = s.do(http.MethodPut, "/domains/"+created.NameHash.String()+"/address", s.alice, UpdateAddressRequest{
		Address: "not-an-address",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestReads() {
	created := s.register(s.alice, "learnweb3")

	s.Run("list all", func() {
		rec := s.do(http.MethodGet, "/domains", "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp []DomainResponse
		s.decode(rec, &resp)
		s.Require().Len(resp, 1)
		s.Equal(created.ID, resp[0].ID)
	})

	s.Run("list by owner", func() {
		rec := s.do(http.MethodGet, "/owners/"+s.alice.String()+"/domains", "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp []DomainResponse
		s.decode(rec, &resp)
		s.Len(resp, 1)
	})

	s.Run("get by owner and hash", func() {
		rec := s.do(http.MethodGet, "/owners/"+s.alice.String()+"/domains/"+created.NameHash.String(), "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp DomainResponse
		s.decode(rec, &resp)
		s.Equal("learnweb3", resp.Name)
	})

	s.Run("uninitialized owner has no collection", func() {
		rec := s.do(http.MethodGet, "/owners/"+s.bob.String()+"/domains", "", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("initialized flag", func() {
		rec := s.do(http.MethodGet, "/owners/"+s.alice.String()+"/initialized", "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp InitializedResponse
		s.decode(rec, &resp)
		s.True(resp.Initialized)
	})

	s.Run("bad address rejected", func() {
		rec := s.do(http.MethodGet, "/owners/zzz/domains", "", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}
