package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDebtorStore struct {
	debtors []*types.Debtor
	deleted []string
	created []*types.Debtor
	updated map[string]map[string]any
}

func (s *stubDebtorStore) Debtor(_ context.Context, debtorID string) (*types.Debtor, error) {
	for _, d := range s.debtors {
		if d.ID == debtorID {
			return d, nil
		}
	}
	return nil, types.ErrDebtorNotFound
}

func (s *stubDebtorStore) Debtors(context.Context) ([]*types.Debtor, error) {
	return s.debtors, nil
}

func (s *stubDebtorStore) DebtorsByAssignee(_ context.Context, agentID string) ([]*types.Debtor, error) {
	var out []*types.Debtor
	for _, d := range s.debtors {
		if d.AssignedTo != nil && *d.AssignedTo == agentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDebtorStore) DebtorsByClient(_ context.Context, clientID string) ([]*types.Debtor, error) {
	var out []*types.Debtor
	for _, d := range s.debtors {
		if d.ClientID != nil && *d.ClientID == clientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDebtorStore) DebtorsFiltered(_ context.Context, filter types.ReportFilter) ([]*types.Debtor, error) {
	var out []*types.Debtor
	for _, d := range s.debtors {
		if filter.DealStage != "" && d.DealStage != filter.DealStage {
			continue
		}
		if filter.Client != "" && (d.Client == nil || *d.Client != filter.Client) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *stubDebtorStore) ClientNames(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, d := range s.debtors {
		if d.Client == nil || seen[*d.Client] {
			continue
		}
		seen[*d.Client] = true
		names = append(names, *d.Client)
	}
	return names, nil
}

func (s *stubDebtorStore) CreateDebtor(_ context.Context, debtor *types.Debtor) error {
	if debtor.ID == "" {
		debtor.ID = utils.NanoID()
	}
	s.created = append(s.created, debtor)
	s.debtors = append(s.debtors, debtor)
	return nil
}

func (s *stubDebtorStore) CreateDebtors(ctx context.Context, debtors []*types.Debtor) error {
	for _, d := range debtors {
		if err := s.CreateDebtor(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubDebtorStore) UpdateDebtor(_ context.Context, debtorID string, fields map[string]any) error {
	if s.updated == nil {
		s.updated = make(map[string]map[string]any)
	}
	s.updated[debtorID] = fields
	return nil
}

func (s *stubDebtorStore) DeleteDebtor(_ context.Context, debtorID string) error {
	s.deleted = append(s.deleted, debtorID)
	return nil
}

type stubPaymentStore struct {
	payments []*types.Payment
	approved []string
	replaced []string
}

func (s *stubPaymentStore) Payment(_ context.Context, paymentID string) (*types.Payment, error) {
	for _, p := range s.payments {
		if p.ID == paymentID {
			return p, nil
		}
	}
	return nil, types.ErrPaymentNotFound
}

func (s *stubPaymentStore) PaymentsByDebtor(_ context.Context, debtorID string) ([]*types.Payment, error) {
	var out []*types.Payment
	for _, p := range s.payments {
		if p.DebtorID == debtorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPaymentStore) PaymentsByDebtorIDs(_ context.Context, debtorIDs []string) ([]*types.Payment, error) {
	ids := make(map[string]bool, len(debtorIDs))
	for _, id := range debtorIDs {
		ids[id] = true
	}
	var out []*types.Payment
	for _, p := range s.payments {
		if ids[p.DebtorID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPaymentStore) PaymentsInRange(_ context.Context, from, to time.Time) ([]*types.Payment, error) {
	var out []*types.Payment
	for _, p := range s.payments {
		if !p.UploadedAt.Before(from) && p.UploadedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPaymentStore) CreatePayment(_ context.Context, payment *types.Payment) error {
	if payment.ID == "" {
		payment.ID = utils.NanoID()
	}
	s.payments = append(s.payments, payment)
	return nil
}

func (s *stubPaymentStore) ApprovePayment(_ context.Context, paymentID, _ string, _ time.Time) error {
	s.approved = append(s.approved, paymentID)
	return nil
}

func (s *stubPaymentStore) ReplaceProof(_ context.Context, payment *types.Payment) error {
	s.replaced = append(s.replaced, payment.ID)
	return nil
}

type stubFollowUpStore struct {
	recorded  []*types.FollowUp
	nextDates []*time.Time
}

func (s *stubFollowUpStore) FollowUpsByDebtor(context.Context, string) ([]*types.FollowUp, error) {
	return nil, nil
}

func (s *stubFollowUpStore) RecordFollowUp(_ context.Context, followUp *types.FollowUp, nextFollowupDate *time.Time) error {
	if followUp.ID == "" {
		followUp.ID = utils.NanoID()
	}
	s.recorded = append(s.recorded, followUp)
	s.nextDates = append(s.nextDates, nextFollowupDate)
	return nil
}

type stubUserStore struct {
	users []*types.User
}

func (s *stubUserStore) User(_ context.Context, userID string) (*types.User, error) {
	for _, u := range s.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (s *stubUserStore) UsersByRole(_ context.Context, role types.Role) ([]*types.User, error) {
	var out []*types.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubReportStore struct {
	reports []*types.Report
}

func (s *stubReportStore) Reports(context.Context) ([]*types.Report, error) {
	return s.reports, nil
}

func (s *stubReportStore) ReportsByClient(_ context.Context, clientID string) ([]*types.Report, error) {
	var out []*types.Report
	for _, r := range s.reports {
		if r.ClientID != nil && *r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubReportStore) CreateReport(_ context.Context, report *types.Report) error {
	if report.ID == "" {
		report.ID = utils.NanoID()
	}
	s.reports = append(s.reports, report)
	return nil
}

type stubFileStore struct {
	keys    []string
	deleted []string
}

func (s *stubFileStore) UploadFile(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "https://files.test/" + key, nil
}

func (s *stubFileStore) DeleteFile(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type fixtures struct {
	service   *Service
	debtors   *stubDebtorStore
	payments  *stubPaymentStore
	followUps *stubFollowUpStore
	reports   *stubReportStore
	files     *stubFileStore
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()

	debtors := &stubDebtorStore{
		debtors: []*types.Debtor{
			{
				ID:          "d1",
				DebtorName:  "Amina Yusuf",
				DebtorPhone: "+254700000001",
				Client:      utils.StringPtr("Acme Lending"),
				ClientID:    utils.StringPtr("client-1"),
				AssignedTo:  utils.StringPtr("agent-1"),
				DebtAmount:  dec(t, "10000"),
				DealStage:   "Pending",
			},
			{
				ID:          "d2",
				DebtorName:  "Peter Otieno",
				DebtorPhone: "+254700000002",
				Client:      utils.StringPtr("Beta Credit"),
				ClientID:    utils.StringPtr("client-2"),
				AssignedTo:  utils.StringPtr("agent-2"),
				DebtAmount:  dec(t, "5000"),
				DealStage:   "Promise to Pay",
			},
		},
	}

	payments := &stubPaymentStore{
		payments: []*types.Payment{
			{
				ID:         "p1",
				DebtorID:   "d1",
				Amount:     dec(t, "3000"),
				PopURL:     "https://files.test/pops/d1/p1.pdf",
				UploadedBy: "agent-1",
				UploadedAt: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	followUps := &stubFollowUpStore{}
	reports := &stubReportStore{}
	files := &stubFileStore{}

	users := &stubUserStore{
		users: []*types.User{
			{ID: "admin-1", Email: "admin@debtcrm.test", FullName: "Admin One", Role: types.RoleAdmin},
			{ID: "agent-1", Email: "agent@debtcrm.test", FullName: "Agent One", Role: types.RoleAgent},
			{ID: "client-1", Email: "client@debtcrm.test", FullName: "Client One", Role: types.RoleClient},
		},
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &Service{
		logger:        logger,
		config:        &types.Config{},
		debtorsRepo:   debtors,
		paymentsRepo:  payments,
		followUpsRepo: followUps,
		usersRepo:     users,
		reportsRepo:   reports,
		files:         files,
		validate:      validator.New(),
	}

	return &fixtures{
		service:   svc,
		debtors:   debtors,
		payments:  payments,
		followUps: followUps,
		reports:   reports,
		files:     files,
	}
}

// testRouter mirrors the authenticated route table with the given identity
// injected directly, bypassing cookie and JWT verification.
func testRouter(s *Service, identity types.Identity) http.Handler {
	mux := flow.New()
	mux.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), contextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	mux.HandleFunc("/api/dashboard", s.handleDashboard, http.MethodGet)
	mux.HandleFunc("/api/debtors", s.handleListDebtors, http.MethodGet)
	mux.HandleFunc("/api/debtors", s.handleCreateDebtor, http.MethodPost)
	mux.HandleFunc("/api/debtors/import", s.handleImportDebtors, http.MethodPost)
	mux.HandleFunc("/api/debtors/followups", s.handleFollowUpQueue, http.MethodGet)
	mux.HandleFunc("/api/debtors/:id", s.handleGetDebtor, http.MethodGet)
	mux.HandleFunc("/api/debtors/:id", s.handleUpdateDebtor, http.MethodPatch)
	mux.HandleFunc("/api/debtors/:id", s.handleDeleteDebtor, http.MethodDelete)
	mux.HandleFunc("/api/debtors/:id/followups", s.handleRecordFollowUp, http.MethodPost)
	mux.HandleFunc("/api/clients", s.handleListClients, http.MethodGet)
	mux.HandleFunc("/api/payments", s.handleListPayments, http.MethodGet)
	mux.HandleFunc("/api/payments", s.handleUploadPayment, http.MethodPost)
	mux.HandleFunc("/api/payments/:id", s.handleGetPayment, http.MethodGet)
	mux.HandleFunc("/api/payments/:id/approve", s.handleApprovePayment, http.MethodPost)
	mux.HandleFunc("/api/payments/:id/pop", s.handleReplaceProof, http.MethodPost)
	mux.HandleFunc("/api/reports/debtors", s.handleDebtorReport, http.MethodGet)
	mux.HandleFunc("/api/reports/monthly", s.handleGenerateMonthlyReport, http.MethodPost)
	mux.HandleFunc("/api/reports", s.handleListReports, http.MethodGet)

	return mux
}

func doRequest(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func adminIdentity() types.Identity {
	return types.Identity{UserID: "admin-1", Email: "admin@debtcrm.test", Role: types.RoleAdmin}
}

func agentIdentity() types.Identity {
	return types.Identity{UserID: "agent-1", Email: "agent@debtcrm.test", Role: types.RoleAgent}
}

func clientIdentity() types.Identity {
	return types.Identity{UserID: "client-1", Email: "client@debtcrm.test", Role: types.RoleClient}
}

func TestRequireAuthRejectsMissingCookie(t *testing.T) {
	f := newFixtures(t)

	handler := f.service.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/debtors", nil)
	rec := doRequest(t, handler, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListDebtorsVisibility(t *testing.T) {
	tests := []struct {
		name     string
		identity types.Identity
		wantIDs  []string
	}{
		{"admin sees everything", adminIdentity(), []string{"d1", "d2"}},
		{"agent sees assigned only", agentIdentity(), []string{"d1"}},
		{"client sees own accounts only", clientIdentity(), []string{"d1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtures(t)

			req := httptest.NewRequest(http.MethodGet, "/api/debtors", nil)
			rec := doRequest(t, testRouter(f.service, tt.identity), req)

			require.Equal(t, http.StatusOK, rec.Code)

			var got []struct {
				ID string `json:"id"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			ids := make([]string, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestListDebtorsIncludesBalance(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/api/debtors", nil)
	rec := doRequest(t, testRouter(f.service, adminIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		ID      string `json:"id"`
		Balance struct {
			TotalPaid  string `json:"total_paid"`
			BalanceDue string `json:"balance_due"`
		} `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, "3000", got[0].Balance.TotalPaid)
	assert.Equal(t, "7000", got[0].Balance.BalanceDue)
	assert.Equal(t, "0", got[1].Balance.TotalPaid)
	assert.Equal(t, "5000", got[1].Balance.BalanceDue)
}

func TestGetDebtorHidesInvisibleRecords(t *testing.T) {
	f := newFixtures(t)

	// d2 belongs to agent-2, so agent-1 gets a 404 rather than a 403
	req := httptest.NewRequest(http.MethodGet, "/api/debtors/d2", nil)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDebtorRequiresAdmin(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/debtors/d1", nil)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.debtors.deleted)

	req = httptest.NewRequest(http.MethodDelete, "/api/debtors/d1", nil)
	rec = doRequest(t, testRouter(f.service, adminIdentity()), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d1"}, f.debtors.deleted)
}

func TestUpdateDebtorAgentFollowUpOnly(t *testing.T) {
	f := newFixtures(t)

	// agents may roll the follow-up fields forward on their own debtors
	body := `{"deal_stage":"Promise to Pay","next_followup_date":"2025-07-01"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/debtors/d1", strings.NewReader(body))
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.debtors.updated["d1"], "deal_stage")

	// but not rewrite the principal
	body = `{"debt_amount":"1"}`
	req = httptest.NewRequest(http.MethodPatch, "/api/debtors/d1", strings.NewReader(body))
	rec = doRequest(t, testRouter(f.service, agentIdentity()), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateDebtorHidesInvisibleRecords(t *testing.T) {
	f := newFixtures(t)

	// d2 belongs to another agent and another client; the response must not
	// reveal that it exists
	body := `{"deal_stage":"Promise to Pay"}`
	for _, identity := range []types.Identity{agentIdentity(), clientIdentity()} {
		req := httptest.NewRequest(http.MethodPatch, "/api/debtors/d2", strings.NewReader(body))
		rec := doRequest(t, testRouter(f.service, identity), req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Empty(t, f.debtors.updated)
}

func TestRecordFollowUpHidesInvisibleRecords(t *testing.T) {
	f := newFixtures(t)

	body := `{"status":"Promise to Pay"}`
	req := httptest.NewRequest(http.MethodPost, "/api/debtors/d2/followups", strings.NewReader(body))
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.followUps.recorded)
}

func TestListClients(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Clients []string `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Acme Lending", "Beta Credit"}, got.Clients)

	req = httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	rec = doRequest(t, testRouter(f.service, clientIdentity()), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func multipartUpload(t *testing.T, fields map[string]string, fileField, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestUploadPayment(t *testing.T) {
	f := newFixtures(t)

	body, contentType := multipartUpload(t,
		map[string]string{"debtor_id": "d1", "amount": "2500.50"},
		"pop", "receipt.pdf", "application/pdf", "%PDF-1.4 fake receipt")

	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got types.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "d1", got.DebtorID)
	assert.True(t, got.Amount.Equal(dec(t, "2500.50")))
	assert.False(t, got.Verified)
	assert.Equal(t, "agent-1", got.UploadedBy)
	assert.Equal(t, "pdf", got.PopFileType)

	require.Len(t, f.files.keys, 1)
	assert.True(t, strings.HasPrefix(f.files.keys[0], "pops/d1/"))
}

func TestUploadPaymentForbiddenForClients(t *testing.T) {
	f := newFixtures(t)

	body, contentType := multipartUpload(t,
		map[string]string{"debtor_id": "d1", "amount": "100"},
		"pop", "receipt.pdf", "application/pdf", "x")

	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, testRouter(f.service, clientIdentity()), req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.files.keys)
}

func TestUploadPaymentRejectsBadAmount(t *testing.T) {
	f := newFixtures(t)

	for _, amount := range []string{"", "abc", "-50", "0"} {
		body, contentType := multipartUpload(t,
			map[string]string{"debtor_id": "d1", "amount": amount},
			"pop", "receipt.pdf", "application/pdf", "x")

		req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
		req.Header.Set("Content-Type", contentType)
		rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount %q", amount)
	}
}

func TestApprovePayment(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/p1/approve", nil)
	rec := doRequest(t, testRouter(f.service, adminIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p1"}, f.payments.approved)

	var got types.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Verified)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, "admin-1", *got.VerifiedBy)

	// approving twice is a conflict, not a silent no-op
	req = httptest.NewRequest(http.MethodPost, "/api/payments/p1/approve", nil)
	rec = doRequest(t, testRouter(f.service, adminIdentity()), req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.payments.approved, 1)
}

func TestApprovePaymentRequiresAdmin(t *testing.T) {
	f := newFixtures(t)

	for _, identity := range []types.Identity{agentIdentity(), clientIdentity()} {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/p1/approve", nil)
		rec := doRequest(t, testRouter(f.service, identity), req)
		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", identity.Role)
	}
	assert.Empty(t, f.payments.approved)
}

func TestReplaceProofReopensPayment(t *testing.T) {
	f := newFixtures(t)
	f.payments.payments[0].Verified = true
	f.payments.payments[0].VerifiedBy = utils.StringPtr("admin-1")

	body, contentType := multipartUpload(t, nil,
		"pop", "receipt-v2.png", "image/png", "fake png bytes")

	req := httptest.NewRequest(http.MethodPost, "/api/payments/p1/pop", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p1"}, f.payments.replaced)

	var got types.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Verified)
	assert.Nil(t, got.VerifiedBy)
	assert.Equal(t, "png", got.PopFileType)

	// the pdf the png replaced no longer has a row pointing at it
	assert.Equal(t, []string{"pops/d1/p1.pdf"}, f.files.deleted)
}

func TestRecordFollowUp(t *testing.T) {
	f := newFixtures(t)

	body := `{"status":"Promise to Pay","notes":"promised to settle Friday","next_followup_date":"2025-07-04"}`
	req := httptest.NewRequest(http.MethodPost, "/api/debtors/d1/followups", strings.NewReader(body))
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.followUps.recorded, 1)

	recorded := f.followUps.recorded[0]
	assert.Equal(t, "d1", recorded.DebtorID)
	assert.Equal(t, "agent-1", recorded.AgentID)
	assert.Equal(t, "Promise to Pay", recorded.Status)

	require.NotNil(t, f.followUps.nextDates[0])
	assert.Equal(t, "2025-07-04", f.followUps.nextDates[0].Format("2006-01-02"))
}

func TestRecordFollowUpValidation(t *testing.T) {
	f := newFixtures(t)

	tests := []struct {
		name     string
		identity types.Identity
		body     string
		want     int
	}{
		{"client forbidden", clientIdentity(), `{"status":"Pending"}`, http.StatusForbidden},
		{"missing status", agentIdentity(), `{"notes":"hello"}`, http.StatusBadRequest},
		{"unknown stage", agentIdentity(), `{"status":"Totally Made Up"}`, http.StatusBadRequest},
		{"bad date", agentIdentity(), `{"status":"Pending","next_followup_date":"04-07-2025"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/debtors/d1/followups", strings.NewReader(tt.body))
			rec := doRequest(t, testRouter(f.service, tt.identity), req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Empty(t, f.followUps.recorded)
}

func TestImportDebtors(t *testing.T) {
	f := newFixtures(t)

	csvBody := "name,phone,amount,id_number\n" +
		"\"Otieno, \"\"Bob\"\"\",+254711000001,1200.00,ID-9\n" +
		"Mary Wanjiku,+254711000002,800\n" +
		"broken row without amount,+254711000003\n"

	body, contentType := multipartUpload(t,
		map[string]string{"client": "Acme Lending", "product": "Logbook Loan"},
		"file", "debtors.csv", "text/csv", csvBody)

	req := httptest.NewRequest(http.MethodPost, "/api/debtors/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got importResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Imported)
	assert.Equal(t, 1, got.Skipped)

	require.Len(t, f.debtors.created, 2)
	first := f.debtors.created[0]
	assert.Equal(t, `Otieno, "Bob"`, first.DebtorName)
	require.NotNil(t, first.IDNumber)
	assert.Equal(t, "ID-9", *first.IDNumber)
	require.NotNil(t, first.AssignedTo)
	assert.Equal(t, "agent-1", *first.AssignedTo)
	assert.Equal(t, types.DealStageDefault, first.DealStage)
}

func TestImportDebtorsForbiddenForClients(t *testing.T) {
	f := newFixtures(t)

	body, contentType := multipartUpload(t,
		map[string]string{"client": "Acme Lending", "product": "Loan"},
		"file", "debtors.csv", "text/csv", "name,phone,amount\nA,+2547,100\n")

	req := httptest.NewRequest(http.MethodPost, "/api/debtors/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, testRouter(f.service, clientIdentity()), req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.debtors.created)
}

func TestDebtorReportFormats(t *testing.T) {
	f := newFixtures(t)

	tests := []struct {
		format      string
		wantStatus  int
		contentType string
	}{
		{"", http.StatusOK, "application/json; charset=utf-8"},
		{"json", http.StatusOK, "application/json; charset=utf-8"},
		{"csv", http.StatusOK, "text/csv; charset=utf-8"},
		{"xlsx", http.StatusOK, xlsxContentType},
		{"pdf", http.StatusOK, "application/pdf"},
		{"docx", http.StatusBadRequest, "application/json; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/reports/debtors?format="+tt.format, nil)
			rec := doRequest(t, testRouter(f.service, adminIdentity()), req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
		})
	}
}

func TestDebtorReportScopedToClient(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/debtors", nil)
	rec := doRequest(t, testRouter(f.service, clientIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		DebtorName string `json:"debtor_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Amina Yusuf", got[0].DebtorName)
}

func TestDebtorReportRejectsBadAmounts(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/debtors?min_amount=abc", nil)
	rec := doRequest(t, testRouter(f.service, adminIdentity()), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMonthlyReport(t *testing.T) {
	f := newFixtures(t)

	body := strings.NewReader(`{"month":"2025-06"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/reports/monthly", body)
	rec := doRequest(t, testRouter(f.service, adminIdentity()), req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got types.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "monthly", got.ReportType)
	assert.Equal(t, "admin-1", got.GeneratedBy)
	assert.Contains(t, got.FileURL, "reports/monthly-2025-06-")

	require.Len(t, f.reports.reports, 1)
	require.Len(t, f.files.keys, 1)
	assert.True(t, strings.HasPrefix(f.files.keys[0], "reports/monthly-2025-06-"))
}

func TestGenerateMonthlyReportRequiresAdmin(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/monthly", strings.NewReader(`{}`))
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.reports.reports)
}

func TestListReportsScopedToClient(t *testing.T) {
	f := newFixtures(t)
	f.reports.reports = []*types.Report{
		{ID: "r1", ReportType: "monthly", GeneratedBy: "admin-1"},
		{ID: "r2", ReportType: "client", ClientID: utils.StringPtr("client-1"), GeneratedBy: "admin-1"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec := doRequest(t, testRouter(f.service, clientIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []types.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)
}

func TestDashboard(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := doRequest(t, testRouter(f.service, adminIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Role             string `json:"role"`
		DebtorCount      int    `json:"debtor_count"`
		TotalOutstanding string `json:"total_outstanding"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, 2, got.DebtorCount)
	assert.Equal(t, "12000", got.TotalOutstanding)
}

func TestDashboardAgentScope(t *testing.T) {
	f := newFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		DebtorCount      int    `json:"debtor_count"`
		TotalOutstanding string `json:"total_outstanding"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.DebtorCount)
	assert.Equal(t, "7000", got.TotalOutstanding)
}

func TestCreateDebtorDefaults(t *testing.T) {
	f := newFixtures(t)

	body := `{"debtor_name":"New Debtor","debtor_phone":"+254733000001","client":"Acme Lending","product":"Logbook Loan","debt_amount":"4500"}`
	req := httptest.NewRequest(http.MethodPost, "/api/debtors", strings.NewReader(body))
	rec := doRequest(t, testRouter(f.service, agentIdentity()), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.debtors.created, 1)

	created := f.debtors.created[0]
	assert.Equal(t, types.DealStageDefault, created.DealStage)
	assert.Equal(t, "Head Office", created.BranchGroup)
	require.NotNil(t, created.AssignedTo)
	assert.Equal(t, "agent-1", *created.AssignedTo)
	require.NotNil(t, created.NextFollowupDate)
}

func TestCreateDebtorForbiddenForClients(t *testing.T) {
	f := newFixtures(t)

	body := `{"debtor_name":"X","debtor_phone":"+2547","client":"Acme","product":"Loan","debt_amount":"1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/debtors", strings.NewReader(body))
	rec := doRequest(t, testRouter(f.service, clientIdentity()), req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.debtors.created)
}
