package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"debtcrm/internal/ledger"
	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

type paymentWithDebtor struct {
	*types.Payment
	DebtorName string `json:"debtor_name"`
	Client     string `json:"client"`
}

func (s *Service) handleListPayments(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	debtors, err := s.visibleDebtors(r.Context(), identity)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	ids := make([]string, 0, len(debtors))
	byID := make(map[string]*types.Debtor, len(debtors))
	for _, d := range debtors {
		ids = append(ids, d.ID)
		byID[d.ID] = d
	}

	payments, err := s.paymentsRepo.PaymentsByDebtorIDs(r.Context(), ids)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	out := make([]paymentWithDebtor, 0, len(payments))
	for _, p := range payments {
		debtor := byID[p.DebtorID]
		out = append(out, paymentWithDebtor{
			Payment:    p,
			DebtorName: debtor.DebtorName,
			Client:     utils.PtrString(debtor.Client),
		})
	}

	s.respondJSON(w, http.StatusOK, out)
}

func (s *Service) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	paymentID := r.PathValue("id")

	payment, err := s.paymentsRepo.Payment(r.Context(), paymentID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	debtor, err := s.debtorsRepo.Debtor(r.Context(), payment.DebtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if !ledger.CanViewDebtor(identity, debtor) {
		s.respondError(w, http.StatusNotFound, types.ErrPaymentNotFound.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, paymentWithDebtor{
		Payment:    payment,
		DebtorName: debtor.DebtorName,
		Client:     utils.PtrString(debtor.Client),
	})
}

// handleUploadPayment records a new proof-of-payment: the file lands in the
// file store, the payment row is created unverified and waits for admin
// approval.
func (s *Service) handleUploadPayment(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if identity.Role != types.RoleAgent && identity.Role != types.RoleAdmin {
		s.respondError(w, http.StatusForbidden, "only agents may upload payments")
		return
	}

	if err := r.ParseMultipartForm(30 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	debtorID := r.FormValue("debtor_id")
	if debtorID == "" {
		s.respondError(w, http.StatusBadRequest, "debtor_id is required")
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil || !amount.IsPositive() {
		s.respondError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	debtor, err := s.debtorsRepo.Debtor(r.Context(), debtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if !ledger.CanViewDebtor(identity, debtor) {
		s.respondError(w, http.StatusNotFound, types.ErrDebtorNotFound.Error())
		return
	}

	file, header, err := r.FormFile("pop")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing proof of payment file")
		return
	}
	defer file.Close()

	paymentID := utils.NanoID()
	popURL, fileType, err := s.uploadProof(r, file, header, debtorID, paymentID)
	if err != nil {
		s.logger.WithError(err).Error("failed to upload proof of payment")
		s.respondError(w, http.StatusInternalServerError, "failed to store proof of payment")
		return
	}

	payment := &types.Payment{
		ID:          paymentID,
		DebtorID:    debtorID,
		Amount:      amount,
		PopURL:      popURL,
		PopFileType: fileType,
		Verified:    false,
		UploadedBy:  identity.UserID,
	}

	if err := s.paymentsRepo.CreatePayment(r.Context(), payment); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, payment)
}

// handleApprovePayment is the admin verification step. Approval only flips
// the verified flag; the debtor's principal is never rewritten, balances
// stay derived from the payment rows.
func (s *Service) handleApprovePayment(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if !identity.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins may approve payments")
		return
	}

	paymentID := r.PathValue("id")

	payment, err := s.paymentsRepo.Payment(r.Context(), paymentID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	now := time.Now()
	if err := ledger.Approve(payment, identity.UserID, now); err != nil {
		s.respondStoreError(w, err)
		return
	}

	if err := s.paymentsRepo.ApprovePayment(r.Context(), paymentID, identity.UserID, now); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, payment)
}

// handleReplaceProof swaps the proof file on an existing payment and
// re-opens it for review, clearing a previous approval.
func (s *Service) handleReplaceProof(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if identity.Role != types.RoleAgent && identity.Role != types.RoleAdmin {
		s.respondError(w, http.StatusForbidden, "only agents may re-upload proof")
		return
	}

	paymentID := r.PathValue("id")

	payment, err := s.paymentsRepo.Payment(r.Context(), paymentID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	debtor, err := s.debtorsRepo.Debtor(r.Context(), payment.DebtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if !ledger.CanViewDebtor(identity, debtor) {
		s.respondError(w, http.StatusNotFound, types.ErrPaymentNotFound.Error())
		return
	}

	if err := r.ParseMultipartForm(30 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("pop")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing proof of payment file")
		return
	}
	defer file.Close()

	oldFileType := strings.TrimPrefix(path.Ext(payment.PopURL), ".")

	popURL, fileType, err := s.uploadProof(r, file, header, payment.DebtorID, payment.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to upload replacement proof")
		s.respondError(w, http.StatusInternalServerError, "failed to store proof of payment")
		return
	}

	ledger.ReplaceProof(payment, popURL, fileType, time.Now())

	if err := s.paymentsRepo.ReplaceProof(r.Context(), payment); err != nil {
		s.respondStoreError(w, err)
		return
	}

	// a replacement with a different extension lands under a new key,
	// leaving the old object orphaned
	if oldFileType != "" && oldFileType != fileType {
		oldKey := fmt.Sprintf("pops/%s/%s.%s", payment.DebtorID, payment.ID, oldFileType)
		if err := s.files.DeleteFile(r.Context(), oldKey); err != nil {
			s.logger.WithError(err).WithField("key", oldKey).Warn("failed to delete stale proof file")
		}
	}

	s.respondJSON(w, http.StatusOK, payment)
}

func (s *Service) uploadProof(r *http.Request, file multipart.File, header *multipart.FileHeader, debtorID, paymentID string) (string, string, error) {

	ext := strings.TrimPrefix(path.Ext(header.Filename), ".")
	if ext == "" {
		ext = "bin"
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("pops/%s/%s.%s", debtorID, paymentID, ext)

	popURL, err := s.files.UploadFile(r.Context(), key, file, contentType)
	if err != nil {
		return "", "", err
	}

	return popURL, ext, nil
}
