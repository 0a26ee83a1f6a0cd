package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"debtcrm/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type debtorStore interface {
	Debtor(ctx context.Context, debtorID string) (*types.Debtor, error)
	Debtors(ctx context.Context) ([]*types.Debtor, error)
	DebtorsByAssignee(ctx context.Context, agentID string) ([]*types.Debtor, error)
	DebtorsByClient(ctx context.Context, clientID string) ([]*types.Debtor, error)
	DebtorsFiltered(ctx context.Context, filter types.ReportFilter) ([]*types.Debtor, error)
	ClientNames(ctx context.Context) ([]string, error)
	CreateDebtor(ctx context.Context, debtor *types.Debtor) error
	CreateDebtors(ctx context.Context, debtors []*types.Debtor) error
	UpdateDebtor(ctx context.Context, debtorID string, fields map[string]any) error
	DeleteDebtor(ctx context.Context, debtorID string) error
}

type paymentStore interface {
	Payment(ctx context.Context, paymentID string) (*types.Payment, error)
	PaymentsByDebtor(ctx context.Context, debtorID string) ([]*types.Payment, error)
	PaymentsByDebtorIDs(ctx context.Context, debtorIDs []string) ([]*types.Payment, error)
	PaymentsInRange(ctx context.Context, from, to time.Time) ([]*types.Payment, error)
	CreatePayment(ctx context.Context, payment *types.Payment) error
	ApprovePayment(ctx context.Context, paymentID, verifierID string, verifiedAt time.Time) error
	ReplaceProof(ctx context.Context, payment *types.Payment) error
}

type followUpStore interface {
	FollowUpsByDebtor(ctx context.Context, debtorID string) ([]*types.FollowUp, error)
	RecordFollowUp(ctx context.Context, followUp *types.FollowUp, nextFollowupDate *time.Time) error
}

type userStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UsersByRole(ctx context.Context, role types.Role) ([]*types.User, error)
}

type reportStore interface {
	Reports(ctx context.Context) ([]*types.Report, error)
	ReportsByClient(ctx context.Context, clientID string) ([]*types.Report, error)
	CreateReport(ctx context.Context, report *types.Report) error
}

type fileStore interface {
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

type authClient interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	debtorsRepo   debtorStore
	paymentsRepo  paymentStore
	followUpsRepo followUpStore
	usersRepo     userStore
	reportsRepo   reportStore
	files         fileStore

	cognito  authClient
	cookie   *securecookie.SecureCookie
	validate *validator.Validate

	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	cognito authClient,
	files fileStore,
	debtorsRepo debtorStore,
	paymentsRepo paymentStore,
	followUpsRepo followUpStore,
	usersRepo userStore,
	reportsRepo reportStore,
	jwksCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger:  logger,
		config:  config,
		cognito: cognito,
		cookie:  securecookie.New(hashKey, blockKey),

		debtorsRepo:   debtorsRepo,
		paymentsRepo:  paymentsRepo,
		followUpsRepo: followUpsRepo,
		usersRepo:     usersRepo,
		reportsRepo:   reportsRepo,
		files:         files,

		validate: validator.New(),

		jwksCache: jwksCache,
		jwksURL:   jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/login", s.handleLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/api/dashboard", s.handleDashboard, http.MethodGet)

		r.HandleFunc("/api/debtors", s.handleListDebtors, http.MethodGet)
		r.HandleFunc("/api/debtors", s.handleCreateDebtor, http.MethodPost)
		r.HandleFunc("/api/debtors/import", s.handleImportDebtors, http.MethodPost)
		r.HandleFunc("/api/debtors/followups", s.handleFollowUpQueue, http.MethodGet)
		r.HandleFunc("/api/debtors/:id", s.handleGetDebtor, http.MethodGet)
		r.HandleFunc("/api/debtors/:id", s.handleUpdateDebtor, http.MethodPatch)
		r.HandleFunc("/api/debtors/:id", s.handleDeleteDebtor, http.MethodDelete)
		r.HandleFunc("/api/debtors/:id/followups", s.handleRecordFollowUp, http.MethodPost)

		r.HandleFunc("/api/clients", s.handleListClients, http.MethodGet)

		r.HandleFunc("/api/payments", s.handleListPayments, http.MethodGet)
		r.HandleFunc("/api/payments", s.handleUploadPayment, http.MethodPost)
		r.HandleFunc("/api/payments/:id", s.handleGetPayment, http.MethodGet)
		r.HandleFunc("/api/payments/:id/approve", s.handleApprovePayment, http.MethodPost)
		r.HandleFunc("/api/payments/:id/pop", s.handleReplaceProof, http.MethodPost)

		r.HandleFunc("/api/reports/debtors", s.handleDebtorReport, http.MethodGet)
		r.HandleFunc("/api/reports/monthly", s.handleGenerateMonthlyReport, http.MethodPost)
		r.HandleFunc("/api/reports", s.handleListReports, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
