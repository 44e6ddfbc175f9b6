package pendingtx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giftwave/lib-offline/offline/log"
	"github.com/giftwave/lib-offline/offline/storage"
	"github.com/google/uuid"
)

const (
	// DefaultTTL is how long an unresolved transaction stays visible.
	// Anything older is presumed lost and swept on the next read.
	DefaultTTL = 24 * time.Hour

	// DefaultCurrency backs payments recorded without an explicit currency.
	DefaultCurrency = "USD"

	DefaultPaymentsKey = "pending-payments"
	DefaultUploadsKey  = "pending-uploads"
)

// Service tracks in-flight gift payments and media uploads across app
// restarts. All state lives in two storage slots, each one JSON array, and
// every mutation is a serialized read-modify-write.
type Service struct {
	store  storage.Store
	logger log.Logger
	ttl    time.Duration
	now    func() time.Time

	paymentsKey string
	uploadsKey  string

	mu sync.Mutex
}

// StartupReport is what a reconciliation pass at app start finds left over.
type StartupReport struct {
	Payments int `json:"payments"`
	Uploads  int `json:"uploads"`
}

// Option customizes a Service.
type Option func(*Service)

// WithTTL overrides the pending-record expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source. Tests use this to age records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStorageKeys overrides the storage slots.
func WithStorageKeys(paymentsKey, uploadsKey string) Option {
	return func(s *Service) {
		if paymentsKey != "" {
			s.paymentsKey = paymentsKey
		}

		if uploadsKey != "" {
			s.uploadsKey = uploadsKey
		}
	}
}

// NewService creates a pending-transaction tracker over store.
func NewService(store storage.Store, logger log.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	service := &Service{
		store:       store,
		logger:      log.OrNop(logger),
		ttl:         DefaultTTL,
		now:         time.Now,
		paymentsKey: DefaultPaymentsKey,
		uploadsKey:  DefaultUploadsKey,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}

	return service, nil
}

// AddPayment records a new pending payment in INITIATED state.
func (s *Service) AddPayment(ctx context.Context, params PaymentParams) (PendingPayment, error) {
	payment, err := newPendingPayment(params, s.now().UTC())
	if err != nil {
		return PendingPayment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payments, _, err := s.loadPayments(ctx)
	if err != nil {
		return PendingPayment{}, err
	}

	payments = append(payments, payment)

	if err := s.savePayments(ctx, payments); err != nil {
		return PendingPayment{}, err
	}

	s.logger.Log(ctx, log.LevelInfo, "pending payment recorded",
		log.String("payment_id", payment.ID.String()),
		log.String("payment_type", payment.Type),
		log.String("recipient_id", payment.RecipientID),
		log.String("amount", payment.Amount.String()),
		log.String("currency", payment.Currency))

	return payment, nil
}

// PendingPayments returns all unexpired pending payments. Expired records
// are dropped, and the list is rewritten only when the sweep removed
// something. A storage failure degrades to an empty list so render paths
// never break on a corrupt or unreadable slot.
func (s *Service) PendingPayments(ctx context.Context) ([]PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, dropped, err := s.loadPayments(ctx)
	if err != nil {
		s.logger.Log(ctx, log.LevelError, "failed to load pending payments", log.Err(err))

		return []PendingPayment{}, nil
	}

	if dropped > 0 {
		if err := s.savePayments(ctx, payments); err != nil {
			return nil, err
		}
	}

	return payments, nil
}

// UpdatePaymentStatus advances one payment's lifecycle. A terminal status
// removes the record; an unknown ID is logged and ignored so a late status
// callback for an already-swept payment is harmless.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payments, dropped, err := s.loadPayments(ctx)
	if err != nil {
		return err
	}

	idx := -1

	for i := range payments {
		if payments[i].ID == id {
			idx = i
			break
		}
	}

	if idx < 0 {
		s.logger.Log(ctx, log.LevelWarn, "status update for unknown pending payment",
			log.String("payment_id", id.String()),
			log.String("status", status.String()))

		if dropped > 0 {
			return s.savePayments(ctx, payments)
		}

		return nil
	}

	if status.IsTerminal() {
		payments = append(payments[:idx], payments[idx+1:]...)

		s.logger.Log(ctx, log.LevelInfo, "pending payment resolved",
			log.String("payment_id", id.String()),
			log.String("status", status.String()))
	} else {
		payments[idx].Status = status
		payments[idx].UpdatedAt = s.now().UTC()
	}

	return s.savePayments(ctx, payments)
}

// RemovePayment drops one payment regardless of its state.
func (s *Service) RemovePayment(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, _, err := s.loadPayments(ctx)
	if err != nil {
		return err
	}

	kept := payments[:0]

	for _, payment := range payments {
		if payment.ID != id {
			kept = append(kept, payment)
		}
	}

	return s.savePayments(ctx, kept)
}

// AddUpload records a new pending media upload in INITIATED state.
func (s *Service) AddUpload(ctx context.Context, params UploadParams) (PendingUpload, error) {
	upload, err := newPendingUpload(params, s.now().UTC())
	if err != nil {
		return PendingUpload{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, _, err := s.loadUploads(ctx)
	if err != nil {
		return PendingUpload{}, err
	}

	uploads = append(uploads, upload)

	if err := s.saveUploads(ctx, uploads); err != nil {
		return PendingUpload{}, err
	}

	s.logger.Log(ctx, log.LevelInfo, "pending upload recorded",
		log.String("upload_id", upload.ID.String()),
		log.String("local_uri", upload.LocalURI),
		log.String("file_name", upload.FileName))

	return upload, nil
}

// PendingUploads returns all unexpired pending uploads, sweeping and
// degrading the same way PendingPayments does.
func (s *Service) PendingUploads(ctx context.Context) ([]PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, dropped, err := s.loadUploads(ctx)
	if err != nil {
		s.logger.Log(ctx, log.LevelError, "failed to load pending uploads", log.Err(err))

		return []PendingUpload{}, nil
	}

	if dropped > 0 {
		if err := s.saveUploads(ctx, uploads); err != nil {
			return nil, err
		}
	}

	return uploads, nil
}

// UpdateUploadProgress records progress (clamped to 0..100) and optionally a
// new status. COMPLETED removes the record. FAILED removes it only once the
// retry budget is spent; before that the record stays so a retry can resume
// it.
func (s *Service) UpdateUploadProgress(ctx context.Context, id uuid.UUID, progress int, status ...Status) error {
	var next Status

	if len(status) > 0 {
		next = status[0]
		if !next.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, dropped, err := s.loadUploads(ctx)
	if err != nil {
		return err
	}

	idx := -1

	for i := range uploads {
		if uploads[i].ID == id {
			idx = i
			break
		}
	}

	if idx < 0 {
		s.logger.Log(ctx, log.LevelWarn, "progress update for unknown pending upload",
			log.String("upload_id", id.String()))

		if dropped > 0 {
			return s.saveUploads(ctx, uploads)
		}

		return nil
	}

	upload := &uploads[idx]
	upload.Progress = clampProgress(progress)
	upload.UpdatedAt = s.now().UTC()

	if next != "" {
		upload.Status = next
	}

	remove := next == StatusCompleted ||
		(next == StatusFailed && upload.RetryCount >= MaxUploadRetries)

	if remove {
		s.logger.Log(ctx, log.LevelInfo, "pending upload resolved",
			log.String("upload_id", id.String()),
			log.String("status", next.String()),
			log.Int("retry_count", upload.RetryCount))

		uploads = append(uploads[:idx], uploads[idx+1:]...)
	}

	return s.saveUploads(ctx, uploads)
}

// IncrementUploadRetry bumps one upload's retry count, forces its status to
// FAILED, and returns the new count. An unknown ID returns 0 without error.
func (s *Service) IncrementUploadRetry(ctx context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, _, err := s.loadUploads(ctx)
	if err != nil {
		return 0, err
	}

	for i := range uploads {
		if uploads[i].ID != id {
			continue
		}

		uploads[i].RetryCount++
		uploads[i].Status = StatusFailed
		uploads[i].UpdatedAt = s.now().UTC()

		if err := s.saveUploads(ctx, uploads); err != nil {
			return 0, err
		}

		return uploads[i].RetryCount, nil
	}

	s.logger.Log(ctx, log.LevelWarn, "retry increment for unknown pending upload",
		log.String("upload_id", id.String()))

	return 0, nil
}

// RemoveUpload drops one upload regardless of its state.
func (s *Service) RemoveUpload(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, _, err := s.loadUploads(ctx)
	if err != nil {
		return err
	}

	kept := uploads[:0]

	for _, upload := range uploads {
		if upload.ID != id {
			kept = append(kept, upload)
		}
	}

	return s.saveUploads(ctx, kept)
}

// CheckPendingOnStartup sweeps both lists and reports what survived. Callers
// run it once at app start to resume or surface interrupted transactions.
// Unreadable slots degrade to zero counts so a corrupt record cannot block
// app launch.
func (s *Service) CheckPendingOnStartup(ctx context.Context) (StartupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, droppedPayments, err := s.loadPayments(ctx)
	if err != nil {
		s.logger.Log(ctx, log.LevelError, "failed to load pending payments at startup", log.Err(err))

		payments, droppedPayments = nil, 0
	}

	if droppedPayments > 0 {
		if err := s.savePayments(ctx, payments); err != nil {
			return StartupReport{}, err
		}
	}

	uploads, droppedUploads, err := s.loadUploads(ctx)
	if err != nil {
		s.logger.Log(ctx, log.LevelError, "failed to load pending uploads at startup", log.Err(err))

		uploads, droppedUploads = nil, 0
	}

	if droppedUploads > 0 {
		if err := s.saveUploads(ctx, uploads); err != nil {
			return StartupReport{}, err
		}
	}

	report := StartupReport{Payments: len(payments), Uploads: len(uploads)}

	if report.Payments > 0 || report.Uploads > 0 {
		s.logger.Log(ctx, log.LevelWarn, "unresolved transactions found at startup",
			log.Int("payments", report.Payments),
			log.Int("uploads", report.Uploads))
	}

	return report, nil
}

// ClearAll wipes both transaction lists in one storage call.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.MultiRemove(ctx, s.paymentsKey, s.uploadsKey); err != nil {
		return fmt.Errorf("clear pending transactions: %w", err)
	}

	s.logger.Log(ctx, log.LevelInfo, "pending transactions cleared")

	return nil
}

func (s *Service) loadPayments(ctx context.Context) ([]PendingPayment, int, error) {
	raw, err := s.store.GetItem(ctx, s.paymentsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, nil
		}

		return nil, 0, fmt.Errorf("load pending payments: %w", err)
	}

	var payments []PendingPayment
	if err := json.Unmarshal(raw, &payments); err != nil {
		return nil, 0, fmt.Errorf("decode pending payments: %w", err)
	}

	cutoff := s.now().UTC().Add(-s.ttl)
	kept := payments[:0]
	dropped := 0

	for _, payment := range payments {
		if payment.CreatedAt.Before(cutoff) {
			dropped++

			s.logger.Log(ctx, log.LevelWarn, "expired pending payment swept",
				log.String("payment_id", payment.ID.String()),
				log.Time("created_at", payment.CreatedAt))

			continue
		}

		kept = append(kept, payment)
	}

	return kept, dropped, nil
}

func (s *Service) savePayments(ctx context.Context, payments []PendingPayment) error {
	if payments == nil {
		payments = []PendingPayment{}
	}

	raw, err := json.Marshal(payments)
	if err != nil {
		return fmt.Errorf("encode pending payments: %w", err)
	}

	return s.store.SetItem(ctx, s.paymentsKey, raw)
}

func (s *Service) loadUploads(ctx context.Context) ([]PendingUpload, int, error) {
	raw, err := s.store.GetItem(ctx, s.uploadsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, nil
		}

		return nil, 0, fmt.Errorf("load pending uploads: %w", err)
	}

	var uploads []PendingUpload
	if err := json.Unmarshal(raw, &uploads); err != nil {
		return nil, 0, fmt.Errorf("decode pending uploads: %w", err)
	}

	cutoff := s.now().UTC().Add(-s.ttl)
	kept := uploads[:0]
	dropped := 0

	for _, upload := range uploads {
		if upload.CreatedAt.Before(cutoff) {
			dropped++

			s.logger.Log(ctx, log.LevelWarn, "expired pending upload swept",
				log.String("upload_id", upload.ID.String()),
				log.Time("created_at", upload.CreatedAt))

			continue
		}

		kept = append(kept, upload)
	}

	return kept, dropped, nil
}

func (s *Service) saveUploads(ctx context.Context, uploads []PendingUpload) error {
	if uploads == nil {
		uploads = []PendingUpload{}
	}

	raw, err := json.Marshal(uploads)
	if err != nil {
		return fmt.Errorf("encode pending uploads: %w", err)
	}

	return s.store.SetItem(ctx, s.uploadsKey, raw)
}
