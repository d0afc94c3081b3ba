package store

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// MemoryStore is a mutex-guarded implementation of types.Store with the
// same observable semantics as PostgresStore. It exists so the engines and
// the store-level invariants are testable without a database; the clock is
// injectable for ban-expiry and subscription-window tests.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	accounts map[int64]*types.Account
	bans     map[int64]*types.Ban

	queue    map[int64]time.Time
	sessions map[int64]*types.ChatSession
	nextSess int64

	subscriptions []*types.Subscription
	nextSub       int64

	payments []*types.Payment
	nextPay  int64

	messages  []memoryMessage
	adminLogs []memoryAdminLog
}

type memoryMessage struct {
	senderID   int64
	receiverID int64
	text       string
	sentAt     time.Time
}

type memoryAdminLog struct {
	adminID   int64
	action    string
	details   string
	createdAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		accounts: make(map[int64]*types.Account),
		bans:     make(map[int64]*types.Ban),
		queue:    make(map[int64]time.Time),
		sessions: make(map[int64]*types.ChatSession),
	}
}

// SetNow replaces the store clock.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ----- AccountStore -----

func (s *MemoryStore) GetOrCreate(userID int64, username, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	if a, ok := s.accounts[userID]; ok {
		if a.Username != username || a.Name != name {
			a.Username = username
			a.Name = name
		}
		return a.Token, false, nil
	}

	a := &types.Account{
		UserID:    userID,
		Username:  username,
		Name:      name,
		Token:     uuid.NewString(),
		CreatedAt: s.now(),
	}
	s.accounts[userID] = a
	return a.Token, true, nil
}

func (s *MemoryStore) GetAccount(userID int64) (*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ResolveByToken(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token = strings.TrimSpace(token)
	for _, a := range s.accounts {
		if a.Token == token {
			return a.UserID, nil
		}
	}
	return 0, types.ErrNotFound
}

func (s *MemoryStore) UpdateDisplayFields(userID int64, username, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil
	}
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if a.Username != username || a.Name != name {
		a.Username = username
		a.Name = name
	}
	return nil
}

func (s *MemoryStore) SetHidden(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return types.ErrNotFound
	}
	if !a.IsPremium {
		return types.ErrNotPremium
	}
	a.IsHidden = true
	return nil
}

func (s *MemoryStore) AdminIDs() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, a := range s.accounts {
		if a.IsAdmin {
			ids = append(ids, a.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) AllIDs() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) RecentAccounts(limit int) ([]*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	accounts := make([]*types.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.After(accounts[j].CreatedAt) })
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *MemoryStore) CountAccounts() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	premium := 0
	for _, a := range s.accounts {
		if a.IsPremium {
			premium++
		}
	}
	return len(s.accounts), premium, nil
}

// SetAdmin exists for tests and admin bootstrap.
func (s *MemoryStore) SetAdmin(userID int64, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		a.IsAdmin = admin
	}
}

// SetCreatedAt backdates an account; used by referral grace-window tests.
func (s *MemoryStore) SetCreatedAt(userID int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		a.CreatedAt = t
	}
}

// ----- ModerationStore -----

func (s *MemoryStore) CheckBan(userID int64) (bool, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bans[userID]
	if !ok {
		return false, nil, nil
	}
	if !b.MutedUntil.After(s.now()) {
		delete(s.bans, userID)
		return false, nil, nil
	}
	until := b.MutedUntil
	return true, &until, nil
}

func (s *MemoryStore) Ban(userID int64, d time.Duration, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.bans[userID] = &types.Ban{
		UserID:     userID,
		MutedUntil: now.Add(d),
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  now,
	}
	return nil
}

func (s *MemoryStore) Unban(userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.bans[userID]
	delete(s.bans, userID)
	return ok, nil
}

func (s *MemoryStore) BannedUsers() ([]*types.BannedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var banned []*types.BannedUser
	for _, b := range s.bans {
		if !b.MutedUntil.After(now) {
			continue
		}
		bu := &types.BannedUser{
			UserID:     b.UserID,
			MutedUntil: b.MutedUntil,
			Reason:     b.Reason,
			CreatedAt:  b.CreatedAt,
		}
		if a, ok := s.accounts[b.UserID]; ok {
			bu.Name = a.Name
			bu.Username = a.Username
		}
		banned = append(banned, bu)
	}
	sort.Slice(banned, func(i, j int) bool { return banned[i].MutedUntil.After(banned[j].MutedUntil) })
	return banned, nil
}

func (s *MemoryStore) BannedCount() (int, error) {
	banned, err := s.BannedUsers()
	if err != nil {
		return 0, err
	}
	return len(banned), nil
}

// ----- PairingStore -----

func (s *MemoryStore) inSessionLocked(userID int64) bool {
	for _, sess := range s.sessions {
		if sess.User1ID == userID || sess.User2ID == userID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) JoinQueue(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inSessionLocked(userID) {
		return types.ErrAlreadyInChat
	}
	if _, ok := s.queue[userID]; ok {
		return types.ErrAlreadyInQueue
	}
	s.queue[userID] = s.now()
	return nil
}

func (s *MemoryStore) LeaveQueue(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queue, userID)
	return nil
}

func (s *MemoryStore) Match(userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[userID]; !ok {
		return 0, types.ErrNotInQueue
	}
	// A queue row can go stale when its owner was paired elsewhere; the
	// one-session-per-account invariant wins over the queue entry.
	if s.inSessionLocked(userID) {
		delete(s.queue, userID)
		return 0, types.ErrAlreadyInChat
	}

	var waiters []int64
	for id := range s.queue {
		if id != userID {
			waiters = append(waiters, id)
		}
	}
	if len(waiters) == 0 {
		return 0, types.ErrNoPartner
	}
	sort.Slice(waiters, func(i, j int) bool { return waiters[i] < waiters[j] })
	partnerID := waiters[rand.Intn(len(waiters))]
	if s.inSessionLocked(partnerID) {
		delete(s.queue, partnerID)
		return 0, types.ErrAlreadyInChat
	}

	delete(s.queue, userID)
	delete(s.queue, partnerID)
	s.nextSess++
	s.sessions[s.nextSess] = &types.ChatSession{
		ID:        s.nextSess,
		User1ID:   userID,
		User2ID:   partnerID,
		CreatedAt: s.now(),
	}
	return partnerID, nil
}

func (s *MemoryStore) Partner(userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.User1ID == userID {
			return sess.User2ID, nil
		}
		if sess.User2ID == userID {
			return sess.User1ID, nil
		}
	}
	return 0, types.ErrNotFound
}

func (s *MemoryStore) End(userID int64) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.User1ID == userID {
			delete(s.sessions, id)
			return true, sess.User2ID, nil
		}
		if sess.User2ID == userID {
			delete(s.sessions, id)
			return true, sess.User1ID, nil
		}
	}
	return false, 0, nil
}

func (s *MemoryStore) QueueLen() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue), nil
}

func (s *MemoryStore) ActiveSessions() ([]*types.ChatOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var chats []*types.ChatOverview
	for _, sess := range s.sessions {
		c := &types.ChatOverview{
			SessionID: sess.ID,
			User1ID:   sess.User1ID,
			User2ID:   sess.User2ID,
			CreatedAt: sess.CreatedAt,
		}
		if a, ok := s.accounts[sess.User1ID]; ok {
			c.User1Name = a.Name
		}
		if a, ok := s.accounts[sess.User2ID]; ok {
			c.User2Name = a.Name
		}
		chats = append(chats, c)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].SessionID > chats[j].SessionID })
	return chats, nil
}

func (s *MemoryStore) EndSessionByID(sessionID int64) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, 0, types.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return sess.User1ID, sess.User2ID, nil
}

// ----- LedgerStore -----

func (s *MemoryStore) Credit(userID int64, amount float64, alsoTotal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil
	}
	a.Balance += amount
	if alsoTotal {
		a.TotalDeposited += amount
	}
	return nil
}

func (s *MemoryStore) Balance(userID int64) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return 0, 0, types.ErrNotFound
	}
	return a.Balance, a.TotalDeposited, nil
}

func (s *MemoryStore) CreatePayment(userID int64, amount float64, method types.PaymentMethod, transactionID, merchantData *string) (int64, error) {
	if !method.AcceptedForNewPayments() {
		return 0, types.ErrInvalidPaymentMethod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if transactionID != nil {
		for _, p := range s.payments {
			if p.TransactionID != nil && *p.TransactionID == *transactionID {
				return 0, types.ErrDuplicateTransaction
			}
		}
	}

	s.nextPay++
	p := &types.Payment{
		ID:            s.nextPay,
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		Status:        types.PaymentPending,
		TransactionID: transactionID,
		MerchantData:  merchantData,
		CreatedAt:     s.now(),
	}
	s.payments = append(s.payments, p)
	return p.ID, nil
}

func (s *MemoryStore) TransactionIDExists(transactionID string) (bool, error) {
	if transactionID == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdatePaymentStatus(paymentID int64, status types.PaymentStatus, transactionID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.ID == paymentID {
			p.Status = status
			if transactionID != nil {
				p.TransactionID = transactionID
			}
			return nil
		}
	}
	return types.ErrNotFound
}

func (s *MemoryStore) PaymentHistory(userID int64, limit int) ([]*types.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var history []*types.Payment
	for i := len(s.payments) - 1; i >= 0 && len(history) < limit; i-- {
		if s.payments[i].UserID == userID {
			cp := *s.payments[i]
			history = append(history, &cp)
		}
	}
	return history, nil
}

// ----- SubscriptionStore -----

func (s *MemoryStore) currentSubscriptionLocked(userID int64) *types.Subscription {
	var current *types.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID != userID || !sub.IsActive {
			continue
		}
		if current == nil || sub.EndDate.After(current.EndDate) {
			current = sub
		}
	}
	return current
}

func (s *MemoryStore) ActivateOrExtend(userID int64, plan types.Plan) (int64, error) {
	if !plan.Valid() {
		return 0, types.ErrInvalidPlan
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	current := s.currentSubscriptionLocked(userID)
	start, end := types.NextWindow(current, plan, now)

	var subscriptionID int64
	if current != nil {
		current.Plan = plan
		current.StartDate = start
		current.EndDate = end
		subscriptionID = current.ID
	} else {
		s.nextSub++
		s.subscriptions = append(s.subscriptions, &types.Subscription{
			ID:        s.nextSub,
			UserID:    userID,
			Plan:      plan,
			StartDate: start,
			EndDate:   end,
			IsActive:  true,
			CreatedAt: now,
		})
		subscriptionID = s.nextSub
	}

	if a, ok := s.accounts[userID]; ok {
		a.IsPremium = true
	}
	return subscriptionID, nil
}

func (s *MemoryStore) CurrentSubscription(userID int64) (*types.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.currentSubscriptionLocked(userID)
	if current == nil {
		return nil, types.ErrNotFound
	}
	cp := *current
	return &cp, nil
}

// ----- ReferralStore -----

func (s *MemoryStore) EnsureCode(userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return "", types.ErrNotFound
	}
	if a.ReferralCode != nil {
		return *a.ReferralCode, nil
	}

	for attempt := 0; attempt < referralCodeRetries; attempt++ {
		code, err := newReferralCode()
		if err != nil {
			return "", err
		}
		taken := false
		for _, other := range s.accounts {
			if other.ReferralCode != nil && *other.ReferralCode == code {
				taken = true
				break
			}
		}
		if taken {
			continue
		}
		a.ReferralCode = &code
		return code, nil
	}
	return "", fmt.Errorf("referral code generation: no unique candidate after %d attempts", referralCodeRetries)
}

func (s *MemoryStore) AccountByReferralCode(code string) (*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = strings.TrimSpace(code)
	for _, a := range s.accounts {
		if a.ReferralCode != nil && *a.ReferralCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *MemoryStore) SetReferrerIfEmpty(userID, referrerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok || a.ReferredBy != nil {
		return false, nil
	}
	a.ReferredBy = &referrerID
	return true, nil
}

func (s *MemoryStore) ReferralStats(userID int64) (*types.ReferralStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, types.ErrNotFound
	}

	stats := &types.ReferralStats{}
	if a.ReferralCode != nil {
		stats.Code = *a.ReferralCode
	}
	for _, other := range s.accounts {
		if other.ReferredBy != nil && *other.ReferredBy == userID {
			stats.Count++
		}
	}
	stats.Earnings = float64(stats.Count) * types.ReferralBonus
	stats.ReferrerID = a.ReferredBy
	if a.ReferredBy != nil {
		if ref, ok := s.accounts[*a.ReferredBy]; ok {
			stats.ReferrerName = ref.Name
		}
	}
	return stats, nil
}

// ----- ActivityStore -----

func (s *MemoryStore) LogMessage(senderID, receiverID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, memoryMessage{
		senderID:   senderID,
		receiverID: receiverID,
		text:       text,
		sentAt:     s.now(),
	})
	return nil
}

func (s *MemoryStore) ChatMessageCount(user1ID, user2ID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.messages {
		if (m.senderID == user1ID && m.receiverID == user2ID) ||
			(m.senderID == user2ID && m.receiverID == user1ID) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) LogAdminAction(adminID int64, action, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adminLogs = append(s.adminLogs, memoryAdminLog{
		adminID:   adminID,
		action:    action,
		details:   strings.TrimSpace(details),
		createdAt: s.now(),
	})
	return nil
}

var _ types.Store = (*MemoryStore)(nil)
