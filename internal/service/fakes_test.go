package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/provider"
	"github.com/awopa/maternal-notify/internal/queue"
	"github.com/awopa/maternal-notify/internal/ratelimit"
	"github.com/awopa/maternal-notify/internal/repository"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeNotifier struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, recipient, message string) error
	sent   []sentMessage
}

type sentMessage struct {
	Recipient string
	Message   string
}

func (f *fakeNotifier) Send(ctx context.Context, recipient, message string) error {
	if f.sendFn != nil {
		if err := f.sendFn(ctx, recipient, message); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Recipient: recipient, Message: message})
	return nil
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeEnqueuer struct {
	enqueueFn     func(ctx context.Context, recipient, message string, kind domain.ReminderKind, referenceID string) (*domain.PendingReminder, error)
	outstandingFn func(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error)
	queued        []domain.PendingReminder
}

func (f *fakeEnqueuer) Outstanding(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error) {
	if f.outstandingFn != nil {
		return f.outstandingFn(ctx, kind, referenceID)
	}
	for _, p := range f.queued {
		if p.Kind == kind && p.ReferenceID != nil && *p.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, recipient, message string, kind domain.ReminderKind, referenceID string) (*domain.PendingReminder, error) {
	if f.enqueueFn != nil {
		return f.enqueueFn(ctx, recipient, message, kind, referenceID)
	}
	p := domain.PendingReminder{Recipient: recipient, Message: message, Kind: kind}
	if referenceID != "" {
		ref := referenceID
		p.ReferenceID = &ref
	}
	f.queued = append(f.queued, p)
	return &p, nil
}

type fakeSMSSender struct {
	sendSMSFn func(ctx context.Context, to, message string) (*provider.Response, error)
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, to, message string) (*provider.Response, error) {
	if f.sendSMSFn != nil {
		return f.sendSMSFn(ctx, to, message)
	}
	return &provider.Response{StatusCode: 200}, nil
}

type fakeMailer struct {
	sendEmailFn func(ctx context.Context, to, subject, body string) error
}

func (f *fakeMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if f.sendEmailFn != nil {
		return f.sendEmailFn(ctx, to, subject, body)
	}
	return nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

var _ ratelimit.RateLimiter = (*fakeRateLimiter)(nil)

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, event queue.ReminderExhaustedEvent) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, event queue.ReminderExhaustedEvent) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, event)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

var _ queue.Publisher = (*fakePublisher)(nil)

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queue string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeAttemptRepo struct {
	mu           sync.Mutex
	attempts     map[string]*domain.NotificationAttempt
	createFn     func(ctx context.Context, a *domain.NotificationAttempt) error
	markSentFn   func(ctx context.Context, id string, sentAt time.Time) error
	markFailedFn func(ctx context.Context, id string, reason string) error
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[string]*domain.NotificationAttempt)}
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.NotificationAttempt) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, a); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *a
	f.attempts[a.ID] = &copied
	return nil
}

func (f *fakeAttemptRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if f.markSentFn != nil {
		return f.markSentFn(ctx, id, sentAt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = domain.AttemptSent
	a.SentAt = &sentAt
	return nil
}

func (f *fakeAttemptRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if f.markFailedFn != nil {
		return f.markFailedFn(ctx, id, reason)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = domain.AttemptFailed
	a.FailureReason = &reason
	return nil
}

func (f *fakeAttemptRepo) all() []domain.NotificationAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.NotificationAttempt, 0, len(f.attempts))
	for _, a := range f.attempts {
		out = append(out, *a)
	}
	return out
}

var _ repository.AttemptRepository = (*fakeAttemptRepo)(nil)

// memPendingRepo keeps pending reminders in memory with the same ordering and ceiling rules as the store.
type memPendingRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.PendingReminder
	listFn  func(ctx context.Context, limit int) ([]domain.PendingReminder, error)
}

func newMemPendingRepo() *memPendingRepo {
	return &memPendingRepo{entries: make(map[string]*domain.PendingReminder)}
}

func (r *memPendingRepo) Create(ctx context.Context, p *domain.PendingReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *p
	r.entries[p.ID] = &copied
	return nil
}

func (r *memPendingRepo) ListRetryable(ctx context.Context, limit int) ([]domain.PendingReminder, error) {
	if r.listFn != nil {
		return r.listFn(ctx, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PendingReminder, 0, len(r.entries))
	for _, p := range r.entries {
		if p.RetryCount < domain.MaxReminderRetries {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPendingRepo) IncrementRetry(ctx context.Context, id string, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.RetryCount++
	p.LastError = &lastError
	return nil
}

func (r *memPendingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *memPendingRepo) List(ctx context.Context, params repository.PendingListParams) ([]domain.PendingReminder, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PendingReminder
	for _, p := range r.entries {
		if params.Kind != nil && p.Kind != *params.Kind {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *memPendingRepo) ExistsOpen(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.entries {
		if p.Kind == kind && p.ReferenceID != nil && *p.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPendingRepo) get(id string) (domain.PendingReminder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok {
		return domain.PendingReminder{}, false
	}
	return *p, true
}

func (r *memPendingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ repository.PendingReminderRepository = (*memPendingRepo)(nil)

type fakeAppointmentRepo struct {
	createFn             func(ctx context.Context, a *domain.Appointment) error
	getByIDFn            func(ctx context.Context, id string) (*domain.Appointment, error)
	listUpcomingFn       func(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
	setReminderFlagFn    func(ctx context.Context, id string, kind domain.ReminderKind) error
	findEarliestFn       func(ctx context.Context, phone string, from time.Time) (*domain.Appointment, error)
	updateConfirmationFn func(ctx context.Context, id string, status domain.AppointmentStatus, confirmed bool, at time.Time) error
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAppointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAppointmentRepo) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	if f.listUpcomingFn != nil {
		return f.listUpcomingFn(ctx, from, to)
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) SetReminderFlag(ctx context.Context, id string, kind domain.ReminderKind) error {
	if f.setReminderFlagFn != nil {
		return f.setReminderFlagFn(ctx, id, kind)
	}
	return nil
}

func (f *fakeAppointmentRepo) FindEarliestUnconfirmedByPhone(ctx context.Context, phone string, from time.Time) (*domain.Appointment, error) {
	if f.findEarliestFn != nil {
		return f.findEarliestFn(ctx, phone, from)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAppointmentRepo) UpdateConfirmation(ctx context.Context, id string, status domain.AppointmentStatus, confirmed bool, at time.Time) error {
	if f.updateConfirmationFn != nil {
		return f.updateConfirmationFn(ctx, id, status, confirmed, at)
	}
	return nil
}

var _ repository.AppointmentRepository = (*fakeAppointmentRepo)(nil)

type fakeMedicationRepo struct {
	createFn             func(ctx context.Context, m *domain.Medication) error
	listDoseFn           func(ctx context.Context, before time.Time) ([]domain.Medication, error)
	listRefillFn         func(ctx context.Context, from, to time.Time) ([]domain.Medication, error)
	markDoseRemindedFn   func(ctx context.Context, id string, at time.Time) error
	markRefillRemindedFn func(ctx context.Context, id string, at time.Time) error
}

func (f *fakeMedicationRepo) Create(ctx context.Context, m *domain.Medication) error {
	if f.createFn != nil {
		return f.createFn(ctx, m)
	}
	return nil
}

func (f *fakeMedicationRepo) ListDoseCandidates(ctx context.Context, before time.Time) ([]domain.Medication, error) {
	if f.listDoseFn != nil {
		return f.listDoseFn(ctx, before)
	}
	return nil, nil
}

func (f *fakeMedicationRepo) ListRefillCandidates(ctx context.Context, from, to time.Time) ([]domain.Medication, error) {
	if f.listRefillFn != nil {
		return f.listRefillFn(ctx, from, to)
	}
	return nil, nil
}

func (f *fakeMedicationRepo) MarkDoseReminded(ctx context.Context, id string, at time.Time) error {
	if f.markDoseRemindedFn != nil {
		return f.markDoseRemindedFn(ctx, id, at)
	}
	return nil
}

func (f *fakeMedicationRepo) MarkRefillReminded(ctx context.Context, id string, at time.Time) error {
	if f.markRefillRemindedFn != nil {
		return f.markRefillRemindedFn(ctx, id, at)
	}
	return nil
}

var _ repository.MedicationRepository = (*fakeMedicationRepo)(nil)

type fakeNutritionRepo struct {
	createFn           func(ctx context.Context, p *domain.NutritionProfile) error
	listWaterDueFn     func(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error)
	listTipDueFn       func(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error)
	listDeficienciesFn func(ctx context.Context) ([]domain.NutritionProfile, error)
	markWaterFn        func(ctx context.Context, id string, at time.Time) error
	markTipFn          func(ctx context.Context, id string, at time.Time) error
}

func (f *fakeNutritionRepo) Create(ctx context.Context, p *domain.NutritionProfile) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return nil
}

func (f *fakeNutritionRepo) GetByID(ctx context.Context, id string) (*domain.NutritionProfile, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeNutritionRepo) ListWaterDue(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error) {
	if f.listWaterDueFn != nil {
		return f.listWaterDueFn(ctx, before)
	}
	return nil, nil
}

func (f *fakeNutritionRepo) ListTipDue(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error) {
	if f.listTipDueFn != nil {
		return f.listTipDueFn(ctx, before)
	}
	return nil, nil
}

func (f *fakeNutritionRepo) ListWithDeficiencies(ctx context.Context) ([]domain.NutritionProfile, error) {
	if f.listDeficienciesFn != nil {
		return f.listDeficienciesFn(ctx)
	}
	return nil, nil
}

func (f *fakeNutritionRepo) MarkWaterReminded(ctx context.Context, id string, at time.Time) error {
	if f.markWaterFn != nil {
		return f.markWaterFn(ctx, id, at)
	}
	return nil
}

func (f *fakeNutritionRepo) MarkTipSent(ctx context.Context, id string, at time.Time) error {
	if f.markTipFn != nil {
		return f.markTipFn(ctx, id, at)
	}
	return nil
}

var _ repository.NutritionRepository = (*fakeNutritionRepo)(nil)

type fakePregnancyRepo struct {
	createFn         func(ctx context.Context, p *domain.Pregnancy) error
	getByPatientIDFn func(ctx context.Context, patientID string) (*domain.Pregnancy, error)
	listUpdateDueFn  func(ctx context.Context, before time.Time) ([]domain.Pregnancy, error)
	updateWeekFn     func(ctx context.Context, p *domain.Pregnancy) error
	markUpdateSentFn func(ctx context.Context, id string, at time.Time) error
}

func (f *fakePregnancyRepo) Create(ctx context.Context, p *domain.Pregnancy) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return nil
}

func (f *fakePregnancyRepo) GetByPatientID(ctx context.Context, patientID string) (*domain.Pregnancy, error) {
	if f.getByPatientIDFn != nil {
		return f.getByPatientIDFn(ctx, patientID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePregnancyRepo) ListUpdateDue(ctx context.Context, before time.Time) ([]domain.Pregnancy, error) {
	if f.listUpdateDueFn != nil {
		return f.listUpdateDueFn(ctx, before)
	}
	return nil, nil
}

func (f *fakePregnancyRepo) UpdateWeek(ctx context.Context, p *domain.Pregnancy) error {
	if f.updateWeekFn != nil {
		return f.updateWeekFn(ctx, p)
	}
	return nil
}

func (f *fakePregnancyRepo) MarkUpdateSent(ctx context.Context, id string, at time.Time) error {
	if f.markUpdateSentFn != nil {
		return f.markUpdateSentFn(ctx, id, at)
	}
	return nil
}

var _ repository.PregnancyRepository = (*fakePregnancyRepo)(nil)

type fakeVisitRepo struct {
	createBatchFn    func(ctx context.Context, visits []*domain.Visit) error
	countInRangeFn   func(ctx context.Context, patientID string, from, to time.Time) (int64, error)
	listByPatientFn  func(ctx context.Context, patientID string) ([]domain.Visit, error)
	listOpenFn       func(ctx context.Context, from time.Time) ([]domain.Visit, error)
	markFinalSentFn  func(ctx context.Context, id string, at time.Time) error
	incrementDailyFn func(ctx context.Context, id string, at time.Time) error
}

func (f *fakeVisitRepo) CreateBatch(ctx context.Context, visits []*domain.Visit) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, visits)
	}
	return nil
}

func (f *fakeVisitRepo) CountInRange(ctx context.Context, patientID string, from, to time.Time) (int64, error) {
	if f.countInRangeFn != nil {
		return f.countInRangeFn(ctx, patientID, from, to)
	}
	return 0, nil
}

func (f *fakeVisitRepo) ListByPatient(ctx context.Context, patientID string) ([]domain.Visit, error) {
	if f.listByPatientFn != nil {
		return f.listByPatientFn(ctx, patientID)
	}
	return nil, nil
}

func (f *fakeVisitRepo) ListOpen(ctx context.Context, from time.Time) ([]domain.Visit, error) {
	if f.listOpenFn != nil {
		return f.listOpenFn(ctx, from)
	}
	return nil, nil
}

func (f *fakeVisitRepo) MarkFinalSent(ctx context.Context, id string, at time.Time) error {
	if f.markFinalSentFn != nil {
		return f.markFinalSentFn(ctx, id, at)
	}
	return nil
}

func (f *fakeVisitRepo) IncrementDaily(ctx context.Context, id string, at time.Time) error {
	if f.incrementDailyFn != nil {
		return f.incrementDailyFn(ctx, id, at)
	}
	return nil
}

var _ repository.VisitRepository = (*fakeVisitRepo)(nil)

// memPinRepo stores pin records in memory.
type memPinRepo struct {
	mu      sync.Mutex
	records map[string]domain.PinRecord
	saves   int
}

func newMemPinRepo() *memPinRepo {
	return &memPinRepo{records: make(map[string]domain.PinRecord)}
}

func (r *memPinRepo) Create(ctx context.Context, rec *domain.PinRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.UserID]; ok {
		return domain.ErrConflict
	}
	r.records[rec.UserID] = *rec
	return nil
}

func (r *memPinRepo) GetByUserID(ctx context.Context, userID string) (*domain.PinRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Modify holds the repo mutex for the whole mutation, like the row lock in the store.
func (r *memPinRepo) Modify(ctx context.Context, userID string, fn repository.PinMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return domain.ErrNotFound
	}
	changed, err := fn(&rec)
	if changed {
		r.records[userID] = rec
		r.saves++
	}
	return err
}

func (r *memPinRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records, userID)
	return nil
}

func (r *memPinRepo) Exists(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[userID]
	return ok, nil
}

var _ repository.PinRepository = (*memPinRepo)(nil)

type fakeLocker struct {
	tryLockFn func(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

func (f *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if f.tryLockFn != nil {
		return f.tryLockFn(ctx, name, ttl)
	}
	return true, nil
}

type staticConnectivity struct {
	state Connectivity
}

func (s staticConnectivity) Snapshot() Connectivity { return s.state }

func strPtr(s string) *string { return &s }

