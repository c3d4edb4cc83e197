package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

// userRepoMock is a map-backed stand-in for port.UserRepository. Methods a
// test does not expect fail loudly.
type userRepoMock struct {
	byID               map[string]domain.User
	byEmail            map[string]domain.User
	byResetHash        map[string]domain.User
	byVerificationHash map[string]domain.User

	created        []domain.User
	createErr      error
	upserted       []domain.User
	lastLoginID    string
	passwordID     string
	passwordHash   string
	resetTokenID   string
	resetTokenHash string
	resetExpiresAt time.Time
	resetCleared   []string
	verifyTokenID  string
	verifyHash     string
	verifyExpires  time.Time
	verifiedIDs    []string
	hwidByID       map[string]string
	licenseByID    map[string]string
}

func newUserRepoMock() *userRepoMock {
	return &userRepoMock{
		byID:               map[string]domain.User{},
		byEmail:            map[string]domain.User{},
		byResetHash:        map[string]domain.User{},
		byVerificationHash: map[string]domain.User{},
		hwidByID:           map[string]string{},
		licenseByID:        map[string]string{},
	}
}

func (m *userRepoMock) add(user domain.User) {
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	if user.ResetTokenHash != nil {
		m.byResetHash[*user.ResetTokenHash] = user
	}
	if user.VerificationTokenHash != nil {
		m.byVerificationHash[*user.VerificationTokenHash] = user
	}
}

func (m *userRepoMock) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byEmail[user.Email]; exists {
		return repository.ErrDuplicate
	}
	m.created = append(m.created, user)
	m.add(user)
	return nil
}

func (m *userRepoMock) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m.byID[id]; ok {
		u := user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := m.byEmail[email]; ok {
		u := user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByResetTokenHash(_ context.Context, hash string) (*domain.User, error) {
	if user, ok := m.byResetHash[hash]; ok {
		u := user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByVerificationTokenHash(_ context.Context, hash string) (*domain.User, error) {
	if user, ok := m.byVerificationHash[hash]; ok {
		u := user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	m.lastLoginID = id
	return nil
}

func (m *userRepoMock) UpdatePassword(_ context.Context, id string, hash string) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	m.passwordID = id
	m.passwordHash = hash
	return nil
}

func (m *userRepoMock) SetResetToken(_ context.Context, id string, hash string, expiresAt time.Time) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	m.resetTokenID = id
	m.resetTokenHash = hash
	m.resetExpiresAt = expiresAt
	user := m.byID[id]
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &expiresAt
	m.add(user)
	return nil
}

func (m *userRepoMock) ClearResetToken(_ context.Context, id string) error {
	m.resetCleared = append(m.resetCleared, id)
	if user, ok := m.byID[id]; ok {
		if user.ResetTokenHash != nil {
			delete(m.byResetHash, *user.ResetTokenHash)
		}
		user.ResetTokenHash = nil
		user.ResetTokenExpiresAt = nil
		m.byID[id] = user
		m.byEmail[user.Email] = user
	}
	return nil
}

func (m *userRepoMock) SetVerificationToken(_ context.Context, id string, hash string, expiresAt time.Time) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	m.verifyTokenID = id
	m.verifyHash = hash
	m.verifyExpires = expiresAt
	return nil
}

func (m *userRepoMock) MarkEmailVerified(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	m.verifiedIDs = append(m.verifiedIDs, id)
	return nil
}

func (m *userRepoMock) SetHWID(_ context.Context, id string, hwid string) error {
	m.hwidByID[id] = hwid
	return nil
}

func (m *userRepoMock) GrantLicense(_ context.Context, id string, licenseKey string) error {
	m.licenseByID[id] = licenseKey
	return nil
}

func (m *userRepoMock) UpsertByEmail(_ context.Context, user domain.User) (*domain.User, error) {
	if existing, ok := m.byEmail[user.Email]; ok {
		u := existing
		m.upserted = append(m.upserted, u)
		return &u, nil
	}
	m.upserted = append(m.upserted, user)
	m.add(user)
	u := user
	return &u, nil
}

func domainUser(id, email, passwordHash string) domain.User {
	return domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Add(-48 * time.Hour),
	}
}

type purchaseRepoMock struct {
	byRef     map[string]domain.Purchase
	byUser    map[string][]domain.Purchase
	created   []domain.Purchase
	createErr error
}

func newPurchaseRepoMock() *purchaseRepoMock {
	return &purchaseRepoMock{
		byRef:  map[string]domain.Purchase{},
		byUser: map[string][]domain.Purchase{},
	}
}

func purchaseRefKey(provider domain.PaymentProvider, ref string) string {
	return string(provider) + ":" + ref
}

func (m *purchaseRepoMock) add(p domain.Purchase) {
	m.byRef[purchaseRefKey(p.Provider, p.ProviderRef)] = p
	m.byUser[p.UserID] = append(m.byUser[p.UserID], p)
}

func (m *purchaseRepoMock) Create(_ context.Context, purchase domain.Purchase) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byRef[purchaseRefKey(purchase.Provider, purchase.ProviderRef)]; exists {
		return repository.ErrDuplicate
	}
	m.created = append(m.created, purchase)
	m.add(purchase)
	return nil
}

func (m *purchaseRepoMock) GetByProviderRef(_ context.Context, provider domain.PaymentProvider, ref string) (*domain.Purchase, error) {
	if p, ok := m.byRef[purchaseRefKey(provider, ref)]; ok {
		copy := p
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *purchaseRepoMock) ListByUser(_ context.Context, userID string) ([]domain.Purchase, error) {
	return append([]domain.Purchase(nil), m.byUser[userID]...), nil
}

type orderRepoMock struct {
	created   []domain.Order
	byOrderID map[string]domain.Order
	byUser    map[string][]domain.Order
	seq       int
}

func newOrderRepoMock() *orderRepoMock {
	return &orderRepoMock{
		byOrderID: map[string]domain.Order{},
		byUser:    map[string][]domain.Order{},
	}
}

func (m *orderRepoMock) add(order domain.Order) {
	m.byOrderID[order.OrderID] = order
	m.byUser[order.UserID] = append(m.byUser[order.UserID], order)
}

func (m *orderRepoMock) Create(_ context.Context, order domain.Order) (*domain.Order, error) {
	m.seq++
	order.OrderID = orderID(order.CreatedAt, m.seq)
	m.created = append(m.created, order)
	m.add(order)
	copy := order
	return &copy, nil
}

func orderID(at time.Time, seq int) string {
	return fmt.Sprintf("KWT-%d-%06d", at.UTC().Year(), seq)
}

func (m *orderRepoMock) GetByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	if o, ok := m.byOrderID[orderID]; ok {
		copy := o
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *orderRepoMock) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	return append([]domain.Order(nil), m.byUser[userID]...), nil
}

func (m *orderRepoMock) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	o, ok := m.byOrderID[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	m.byOrderID[orderID] = o
	return nil
}

type auditRepoMock struct {
	entries []port.AuditEntry
}

func (m *auditRepoMock) Record(_ context.Context, entry port.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *auditRepoMock) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("unexpected call: DeleteOlderThan")
}

func (m *auditRepoMock) events() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

type sentMail struct {
	To      string
	Subject string
}

type mailerMock struct {
	sent    []sentMail
	sendErr error
}

func (m *mailerMock) Send(_ context.Context, to, subject, _, _ string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject})
	return nil
}

type rendererMock struct {
	rendered []string
}

func (m *rendererMock) Render(name string, _ any) (string, error) {
	m.rendered = append(m.rendered, name)
	return "<html>" + name + "</html>", nil
}

type eventPublisherMock struct {
	registered []domain.UserRegisteredEvent
	completed  []domain.OrderCompletedEvent
	issued     []domain.LicenseIssuedEvent
	alerts     []domain.SecurityAlertEvent
}

func (m *eventPublisherMock) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registered = append(m.registered, event)
	return nil
}

func (m *eventPublisherMock) PublishOrderCompleted(_ context.Context, event domain.OrderCompletedEvent) error {
	m.completed = append(m.completed, event)
	return nil
}

func (m *eventPublisherMock) PublishLicenseIssued(_ context.Context, event domain.LicenseIssuedEvent) error {
	m.issued = append(m.issued, event)
	return nil
}

func (m *eventPublisherMock) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	m.alerts = append(m.alerts, event)
	return nil
}

type licenseProviderMock struct {
	registered  map[string]string
	registerErr error
	status      *port.LicenseStatus
	verifyErr   error
	bound       map[string]string
	bindErr     error
}

func newLicenseProviderMock() *licenseProviderMock {
	return &licenseProviderMock{
		registered: map[string]string{},
		bound:      map[string]string{},
	}
}

func (m *licenseProviderMock) RegisterKey(_ context.Context, key string, productID string) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered[key] = productID
	return nil
}

func (m *licenseProviderMock) VerifyKey(_ context.Context, key string) (*port.LicenseStatus, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	if m.status != nil {
		status := *m.status
		status.Key = key
		return &status, nil
	}
	return &port.LicenseStatus{Key: key, Valid: true}, nil
}

func (m *licenseProviderMock) BindHWID(_ context.Context, key string, hwid string) error {
	if m.bindErr != nil {
		return m.bindErr
	}
	m.bound[key] = hwid
	return nil
}

type stripeGatewayMock struct {
	completion *port.CheckoutCompletion
	err        error
}

func (m *stripeGatewayMock) VerifyCheckoutEvent([]byte, string) (*port.CheckoutCompletion, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

type paypalGatewayMock struct {
	capture *port.PayPalCapture
	err     error
}

func (m *paypalGatewayMock) CaptureOrder(context.Context, string) (*port.PayPalCapture, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.capture, nil
}

// rateLimitStoreMock counts attempts in memory without windowing; enough to
// drive the limiter decisions in tests.
type rateLimitStoreMock struct {
	attempts map[string][]time.Time
}

func newRateLimitStoreMock() *rateLimitStoreMock {
	return &rateLimitStoreMock{attempts: map[string][]time.Time{}}
}

func (m *rateLimitStoreMock) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	cutoff := reference.Add(-window)
	kept := m.attempts[identifier][:0]
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *rateLimitStoreMock) CountAttempts(_ context.Context, identifier string, _ time.Duration, _ time.Time) (int, error) {
	return len(m.attempts[identifier]), nil
}

func (m *rateLimitStoreMock) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *rateLimitStoreMock) OldestAttempt(_ context.Context, identifier string, _ time.Duration, _ time.Time) (time.Time, bool, error) {
	if len(m.attempts[identifier]) == 0 {
		return time.Time{}, false, nil
	}
	return m.attempts[identifier][0], true, nil
}
