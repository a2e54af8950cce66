package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/auth"
	"github.com/onlyfriends/server/internal/models"
	"github.com/onlyfriends/server/internal/repositories"
	"github.com/onlyfriends/server/validators"
)

// newTestContext builds an Echo context for a handler call, optionally
// authenticated as accountID.
func newTestContext(method, path, body string, accountID uuid.UUID, phone string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validators.NewValidator()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if accountID != uuid.Nil {
		c.Set("user", &models.JwtCustomClaims{AccountID: accountID, PhoneNumber: phone})
	}
	return c, rec
}

// --- fake user repository ---

type fakeUserRepo struct {
	accounts map[uuid.UUID]*models.Account
	profiles map[uuid.UUID]*models.Profile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		accounts: make(map[uuid.UUID]*models.Account),
		profiles: make(map[uuid.UUID]*models.Profile),
	}
}

func (r *fakeUserRepo) addUser(phone, firstName string, cap int) uuid.UUID {
	id := uuid.New()
	r.accounts[id] = &models.Account{ID: id, PhoneNumber: phone, IsVerified: true, IsActive: true}
	r.profiles[id] = &models.Profile{
		ID:            uuid.New(),
		AccountID:     id,
		FirstName:     firstName,
		LastName:      "Tester",
		ConnectionCap: cap,
	}
	return id
}

func (r *fakeUserRepo) CreateAccountWithProfile(account *models.Account, profile *models.Profile) error {
	for _, existing := range r.accounts {
		if existing.PhoneNumber == account.PhoneNumber {
			return repositories.ErrPhoneTaken
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	profile.ID = uuid.New()
	profile.AccountID = account.ID
	r.accounts[account.ID] = account
	r.profiles[account.ID] = profile
	return nil
}

func (r *fakeUserRepo) GetAccountByID(id uuid.UUID) (*models.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return account, nil
}

func (r *fakeUserRepo) GetAccountByPhone(phone string) (*models.Account, error) {
	for _, account := range r.accounts {
		if account.PhoneNumber == phone {
			return account, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetProfileByAccountID(accountID uuid.UUID) (*models.Profile, error) {
	profile, ok := r.profiles[accountID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return profile, nil
}

func (r *fakeUserRepo) GetProfilesByAccountIDs(accountIDs []uuid.UUID) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0, len(accountIDs))
	for _, id := range accountIDs {
		if p, ok := r.profiles[id]; ok {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

func (r *fakeUserRepo) UpdateProfile(profile *models.Profile) error {
	r.profiles[profile.AccountID] = profile
	return nil
}

func (r *fakeUserRepo) SearchProfiles(query string, excludeAccountID uuid.UUID) ([]models.Profile, error) {
	var results []models.Profile
	for id, p := range r.profiles {
		if id == excludeAccountID {
			continue
		}
		if strings.Contains(strings.ToLower(p.FirstName), strings.ToLower(query)) {
			results = append(results, *p)
		}
	}
	return results, nil
}

func (r *fakeUserRepo) DeactivateAccount(id uuid.UUID) error {
	account, ok := r.accounts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	account.IsActive = false
	return nil
}

// --- fake connection repository ---

// fakeConnectionRepo mirrors the conditional-write semantics of the Postgres
// implementation: cap checks happen inside CreateRequest and Accept.
type fakeConnectionRepo struct {
	connections map[uuid.UUID]*models.Connection
	profiles    *fakeUserRepo
}

func newFakeConnectionRepo(users *fakeUserRepo) *fakeConnectionRepo {
	return &fakeConnectionRepo{
		connections: make(map[uuid.UUID]*models.Connection),
		profiles:    users,
	}
}

func (r *fakeConnectionRepo) acceptedCount(accountID uuid.UUID) int {
	count := 0
	for _, conn := range r.connections {
		if conn.Status == models.ConnectionStatusAccepted &&
			(conn.RequesterID == accountID || conn.RequesteeID == accountID) {
			count++
		}
	}
	return count
}

func (r *fakeConnectionRepo) CreateRequest(requesterID, requesteeID uuid.UUID, requesterCap int) (*models.Connection, error) {
	if existing, err := r.FindBetween(requesterID, requesteeID); err == nil {
		if existing.Status == models.ConnectionStatusAccepted {
			return nil, repositories.ErrAlreadyConnected
		}
		return nil, repositories.ErrRequestPending
	}
	if r.acceptedCount(requesterID) >= requesterCap {
		return nil, repositories.ErrCapReached
	}
	conn := &models.Connection{
		ID:          uuid.New(),
		RequesterID: requesterID,
		RequesteeID: requesteeID,
		Status:      models.ConnectionStatusPending,
		CreatedAt:   time.Now(),
	}
	r.connections[conn.ID] = conn
	return conn, nil
}

func (r *fakeConnectionRepo) GetByID(id uuid.UUID) (*models.Connection, error) {
	conn, ok := r.connections[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return conn, nil
}

func (r *fakeConnectionRepo) FindBetween(a, b uuid.UUID) (*models.Connection, error) {
	for _, conn := range r.connections {
		if (conn.RequesterID == a && conn.RequesteeID == b) ||
			(conn.RequesterID == b && conn.RequesteeID == a) {
			return conn, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeConnectionRepo) Accept(id, requesteeID uuid.UUID, requesteeCap int) (*models.Connection, error) {
	conn, ok := r.connections[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if conn.RequesteeID != requesteeID {
		return nil, repositories.ErrForbidden
	}
	if conn.Status != models.ConnectionStatusPending {
		return nil, repositories.ErrNotPending
	}
	if r.acceptedCount(requesteeID) >= requesteeCap {
		return nil, repositories.ErrCapReached
	}
	now := time.Now()
	conn.Status = models.ConnectionStatusAccepted
	conn.ConfirmedAt = &now
	return conn, nil
}

func (r *fakeConnectionRepo) Delete(id uuid.UUID) error {
	if _, ok := r.connections[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.connections, id)
	return nil
}

func (r *fakeConnectionRepo) GetAcceptedWithFriends(accountID uuid.UUID) ([]models.ConnectionWithFriend, error) {
	var results []models.ConnectionWithFriend
	for _, conn := range r.connections {
		if conn.Status != models.ConnectionStatusAccepted {
			continue
		}
		var friendID uuid.UUID
		switch accountID {
		case conn.RequesterID:
			friendID = conn.RequesteeID
		case conn.RequesteeID:
			friendID = conn.RequesterID
		default:
			continue
		}
		friend, err := r.profiles.GetProfileByAccountID(friendID)
		if err != nil {
			return nil, err
		}
		results = append(results, models.ConnectionWithFriend{Connection: *conn, Friend: *friend})
	}
	return results, nil
}

func (r *fakeConnectionRepo) GetPendingIncoming(accountID uuid.UUID) ([]models.PendingRequest, error) {
	var results []models.PendingRequest
	for _, conn := range r.connections {
		if conn.Status != models.ConnectionStatusPending || conn.RequesteeID != accountID {
			continue
		}
		requester, err := r.profiles.GetProfileByAccountID(conn.RequesterID)
		if err != nil {
			return nil, err
		}
		results = append(results, models.PendingRequest{Connection: *conn, Requester: *requester})
	}
	return results, nil
}

func (r *fakeConnectionRepo) GetPendingOutgoing(accountID uuid.UUID) ([]models.Connection, error) {
	var results []models.Connection
	for _, conn := range r.connections {
		if conn.Status == models.ConnectionStatusPending && conn.RequesterID == accountID {
			results = append(results, *conn)
		}
	}
	return results, nil
}

func (r *fakeConnectionRepo) CountAccepted(accountID uuid.UUID) (int64, error) {
	return int64(r.acceptedCount(accountID)), nil
}

func (r *fakeConnectionRepo) IsConnected(a, b uuid.UUID) (bool, error) {
	conn, err := r.FindBetween(a, b)
	if err != nil {
		return false, nil
	}
	return conn.Status == models.ConnectionStatusAccepted, nil
}

// --- fake notification repository ---

type fakeNotificationRepo struct {
	notifications []*models.Notification
}

func (r *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) GetByRecipientID(recipientID uuid.UUID, page, limit int) ([]models.Notification, int64, error) {
	var results []models.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			results = append(results, *n)
		}
	}
	return results, int64(len(results)), nil
}

func (r *fakeNotificationRepo) GetUnreadCount(recipientID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(notificationID, recipientID uuid.UUID) error {
	for _, n := range r.notifications {
		if n.ID == notificationID && n.RecipientID == recipientID {
			n.IsRead = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *fakeNotificationRepo) MarkAllAsRead(recipientID uuid.UUID) error {
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

// --- fake refresh repository ---

type fakeRefreshRepo struct {
	sessions map[string]*models.RefreshSession
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{sessions: make(map[string]*models.RefreshSession)}
}

func (r *fakeRefreshRepo) Create(accountID uuid.UUID, tokenHash string, expiresAt time.Time) (*models.RefreshSession, error) {
	session := &models.RefreshSession{
		ID:        uuid.New(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	r.sessions[tokenHash] = session
	return session, nil
}

func (r *fakeRefreshRepo) FindActiveByTokenHash(tokenHash string) (*models.RefreshSession, error) {
	session, ok := r.sessions[tokenHash]
	if !ok || session.RevokedAt != nil || session.ExpiresAt.Before(time.Now()) {
		return nil, repositories.ErrNotFound
	}
	return session, nil
}

func (r *fakeRefreshRepo) FindByTokenHashIncludeRevoked(tokenHash string) (*models.RefreshSession, error) {
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return session, nil
}

func (r *fakeRefreshRepo) RevokeAndSetReplacedBy(sessionID, replacedBy uuid.UUID) error {
	for _, session := range r.sessions {
		if session.ID == sessionID {
			now := time.Now()
			session.RevokedAt = &now
			session.ReplacedBy = &replacedBy
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *fakeRefreshRepo) Revoke(sessionID uuid.UUID) error {
	return r.RevokeAndSetReplacedBy(sessionID, uuid.Nil)
}

func (r *fakeRefreshRepo) RevokeAllForAccount(accountID uuid.UUID) error {
	now := time.Now()
	for _, session := range r.sessions {
		if session.AccountID == accountID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeRefreshRepo) activeCount(accountID uuid.UUID) int {
	count := 0
	for _, session := range r.sessions {
		if session.AccountID == accountID && session.RevokedAt == nil {
			count++
		}
	}
	return count
}

// --- fake invite repository ---

type fakeInviteRepo struct {
	codes map[string]*models.InviteCode
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{codes: make(map[string]*models.InviteCode)}
}

func (r *fakeInviteRepo) addCode(code string, creatorID uuid.UUID) {
	r.codes[code] = &models.InviteCode{ID: uuid.New(), Code: code, CreatedByUserID: creatorID}
}

func (r *fakeInviteRepo) GetOrCreateActiveCode(creatorID uuid.UUID) (*models.InviteCode, error) {
	for _, invite := range r.codes {
		if invite.CreatedByUserID == creatorID && invite.UsedByUserID == nil {
			return invite, nil
		}
	}
	code, err := models.GenerateInviteCode()
	if err != nil {
		return nil, err
	}
	invite := &models.InviteCode{ID: uuid.New(), Code: code, CreatedByUserID: creatorID}
	r.codes[code] = invite
	return invite, nil
}

func (r *fakeInviteRepo) GetByCode(code string) (*models.InviteCode, error) {
	invite, ok := r.codes[repositories.NormalizeInviteCode(code)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return invite, nil
}

func (r *fakeInviteRepo) Claim(code string, claimantID uuid.UUID) (*models.InviteCode, error) {
	invite, err := r.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if invite.UsedByUserID != nil {
		return nil, repositories.ErrCodeUsed
	}
	now := time.Now()
	invite.UsedByUserID = &claimantID
	invite.UsedAt = &now
	return invite, nil
}

func (r *fakeInviteRepo) CountCreatedBy(creatorID uuid.UUID) (int64, error) {
	var count int64
	for _, invite := range r.codes {
		if invite.CreatedByUserID == creatorID {
			count++
		}
	}
	return count, nil
}

func (r *fakeInviteRepo) GetInvitedProfiles(creatorID uuid.UUID) ([]models.Profile, error) {
	return nil, nil
}

// --- fake OTP provider ---

// fakeOtpProvider accepts one fixed code per phone and tracks verified claims
type fakeOtpProvider struct {
	codes    map[string]string
	claims   map[string]bool
	requests []string
}

func newFakeOtpProvider() *fakeOtpProvider {
	return &fakeOtpProvider{codes: make(map[string]string), claims: make(map[string]bool)}
}

func (p *fakeOtpProvider) RequestCode(ctx context.Context, phone string) error {
	p.requests = append(p.requests, phone)
	p.codes[phone] = "123456"
	return nil
}

func (p *fakeOtpProvider) VerifyCode(ctx context.Context, phone, code string) error {
	if p.codes[phone] != code {
		return auth.ErrInvalidCode
	}
	delete(p.codes, phone)
	return nil
}

func (p *fakeOtpProvider) MarkVerified(ctx context.Context, phone string) error {
	p.claims[phone] = true
	return nil
}

func (p *fakeOtpProvider) ConsumeVerifiedClaim(ctx context.Context, phone string) (bool, error) {
	verified := p.claims[phone]
	delete(p.claims, phone)
	return verified, nil
}

// --- fake message repository ---

type fakeMessageRepo struct {
	messages []*models.Message
}

func (r *fakeMessageRepo) CreateMessage(m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) GetConversation(a, b uuid.UUID, page, limit int) ([]models.Message, error) {
	var out []models.Message
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkConversationRead(recipientID, senderID uuid.UUID) error {
	for _, m := range r.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID {
			m.IsRead = true
		}
	}
	return nil
}

func (r *fakeMessageRepo) GetConversationPartners(accountID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var partners []uuid.UUID
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		var other uuid.UUID
		switch accountID {
		case m.SenderID:
			other = m.RecipientID
		case m.RecipientID:
			other = m.SenderID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			partners = append(partners, other)
		}
	}
	return partners, nil
}

func (r *fakeMessageRepo) GetLastMessage(a, b uuid.UUID) (*models.Message, error) {
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeMessageRepo) GetUnreadCountFrom(recipientID, senderID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range r.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

var _ repositories.UserRepository = (*fakeUserRepo)(nil)
var _ repositories.ConnectionRepository = (*fakeConnectionRepo)(nil)
var _ repositories.NotificationRepository = (*fakeNotificationRepo)(nil)
var _ repositories.RefreshRepository = (*fakeRefreshRepo)(nil)
var _ repositories.InviteRepository = (*fakeInviteRepo)(nil)
var _ repositories.MessageRepository = (*fakeMessageRepo)(nil)
var _ auth.OtpProvider = (*fakeOtpProvider)(nil)
