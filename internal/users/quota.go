package users

import (
	"time"
)

const (
	DefaultDailyLimit = 5
	DefaultWindow     = 24 * time.Hour
)

// Usage is a read-only view of one user's quota.
type Usage struct {
	UserID      int64     `json:"user_id"`
	AllowListed bool      `json:"allow_listed"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"`
	ResetAt     time.Time `json:"reset_at,omitempty"`
}

// QuotaOption customises QuotaManager construction.
type QuotaOption func(*QuotaManager)

// WithLimit sets the number of uploads allowed per window.
func WithLimit(limit int) QuotaOption {
	return func(q *QuotaManager) {
		if limit > 0 {
			q.limit = limit
		}
	}
}

// WithWindow sets the rolling window length.
func WithWindow(window time.Duration) QuotaOption {
	return func(q *QuotaManager) {
		if window > 0 {
			q.window = window
		}
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(clock Clock) QuotaOption {
	return func(q *QuotaManager) {
		if clock != nil {
			q.clock = clock
		}
	}
}

// QuotaManager enforces the per-user upload allowance. Allow-listed users
// bypass it and never get bookkeeping.
type QuotaManager struct {
	store     Store
	clock     Clock
	allowList map[int64]struct{}
	limit     int
	window    time.Duration
}

func NewQuotaManager(store Store, allowList []int64, opts ...QuotaOption) *QuotaManager {
	q := &QuotaManager{
		store:     store,
		clock:     SystemClock,
		allowList: make(map[int64]struct{}, len(allowList)),
		limit:     DefaultDailyLimit,
		window:    DefaultWindow,
	}
	for _, id := range allowList {
		q.allowList[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *QuotaManager) IsAllowListed(userID int64) bool {
	_, ok := q.allowList[userID]
	return ok
}

func (q *QuotaManager) Limit() int { return q.limit }

// Check reports whether the user may start another upload, without
// recording one.
func (q *QuotaManager) Check(userID int64) bool {
	if q.IsAllowListed(userID) {
		return true
	}
	now := q.clock.Now()
	r := q.store.Update(userID, func(r *Record) {
		q.roll(r, now)
	})
	return r.UploadCount < q.limit
}

// CheckAndConsume admits an upload and records it in one atomic step.
func (q *QuotaManager) CheckAndConsume(userID int64) bool {
	if q.IsAllowListed(userID) {
		return true
	}
	now := q.clock.Now()
	allowed := false
	q.store.Update(userID, func(r *Record) {
		q.roll(r, now)
		if r.UploadCount < q.limit {
			r.UploadCount++
			allowed = true
		}
	})
	return allowed
}

// Consume records an upload unconditionally.
func (q *QuotaManager) Consume(userID int64) {
	if q.IsAllowListed(userID) {
		return
	}
	now := q.clock.Now()
	q.store.Update(userID, func(r *Record) {
		q.roll(r, now)
		r.UploadCount++
	})
}

// Refund gives back one upload, never going below zero.
func (q *QuotaManager) Refund(userID int64) {
	if q.IsAllowListed(userID) {
		return
	}
	q.store.Update(userID, func(r *Record) {
		if r.UploadCount > 0 {
			r.UploadCount--
		}
	})
}

// Usage reports the user's quota without mutating it.
func (q *QuotaManager) Usage(userID int64) Usage {
	u := Usage{
		UserID:      userID,
		AllowListed: q.IsAllowListed(userID),
		Limit:       q.limit,
	}
	if u.AllowListed {
		u.Remaining = q.limit
		return u
	}

	r, ok := q.store.Get(userID)
	if ok && !q.expired(r, q.clock.Now()) {
		u.Used = r.UploadCount
		u.ResetAt = r.WindowStart.Add(q.window)
	}
	u.Remaining = max(q.limit-u.Used, 0)
	return u
}

// PruneStale drops non-allow-listed records that have not been seen for
// retention and whose window has expired. Records holding a chosen language
// are kept. Returns the number removed.
func (q *QuotaManager) PruneStale(retention time.Duration) int {
	now := q.clock.Now()
	return q.store.DeleteWhere(func(r Record) bool {
		if q.IsAllowListed(r.UserID) || r.Language != "" {
			return false
		}
		return now.Sub(r.LastSeen) > retention && q.expired(r, now)
	})
}

func (q *QuotaManager) roll(r *Record, now time.Time) {
	if r.WindowStart.IsZero() {
		r.WindowStart = now
	} else if q.expired(*r, now) {
		r.UploadCount = 0
		r.WindowStart = now
	}
	r.LastSeen = now
}

func (q *QuotaManager) expired(r Record, now time.Time) bool {
	return now.Sub(r.WindowStart) > q.window
}
