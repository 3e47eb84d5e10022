package service

//go:generate mockgen -source=../../wallet/wallet.go -destination=mocks/mocks.go -package=mocks Wallet,LedgerTxParticipant

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"mintpress/internal/events"
	"mintpress/internal/ledger/metrics"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store/memory"
	"mintpress/internal/wallet"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/requestcontext"
)

var (
	user1 = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	user2 = domain.MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	user3 = domain.MustParseAddress("0x90f79bf6eb2c4f870365e785982e1f101e93b906")
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	log     *events.MemoryLog
	ledger  *memory.Ledger
	wallet  *wallet.Memory
	metrics *metrics.Metrics
	logs    *bytes.Buffer
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	s.log = events.NewMemoryLog()
	s.ledger = memory.New(s.log)
	s.wallet = wallet.NewMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.service = New(s.ledger, s.wallet, s.log,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) issue(owner domain.Address) domain.CredentialID {
	id, err := s.service.IssueCredential(s.ctx, owner, "ipfs://profile.json")
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) createPost(author domain.Address, hash string) domain.PostID {
	id, err := s.service.CreatePost(s.ctx, author, hash)
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Require().Truef(dErrors.HasCode(err, code), "want %s, got %v", code, err)
}

func (s *ServiceSuite) eventTypes() []events.Type {
	list, err := s.service.ListEvents(s.ctx, 0, 0)
	s.Require().NoError(err)
	types := make([]events.Type, len(list))
	for i, e := range list {
		types[i] = e.Type
	}
	return types
}

func (s *ServiceSuite) TestCollection() {
	s.Equal(models.Collection{Name: "Decentratwitter", Symbol: "DAPP"}, s.service.Collection())

	custom := New(s.ledger, s.wallet, s.log, WithCollection(models.Collection{Name: "Other", Symbol: "OTH"}))
	s.Equal("OTH", custom.Collection().Symbol)
}
