package users

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultLanguage = "Hebrew"

var ErrEmptyLanguage = errors.New("language name is empty")

// LanguageStore holds each user's preferred output language.
type LanguageStore struct {
	store    Store
	clock    Clock
	fallback string
}

// NewLanguageStore returns a store answering fallback for unset users.
// An empty fallback means DefaultLanguage.
func NewLanguageStore(store Store, fallback string, clock Clock) *LanguageStore {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultLanguage
	}
	if clock == nil {
		clock = SystemClock
	}
	return &LanguageStore{
		store:    store,
		clock:    clock,
		fallback: fallback,
	}
}

func (l *LanguageStore) Default() string { return l.fallback }

func (l *LanguageStore) Get(userID int64) string {
	if r, ok := l.store.Get(userID); ok && r.Language != "" {
		return r.Language
	}
	return l.fallback
}

// Set normalizes raw and stores it. Empty input leaves state untouched.
func (l *LanguageStore) Set(userID int64, raw string) (string, error) {
	name := l.Normalize(raw)
	if name == "" {
		return "", ErrEmptyLanguage
	}
	now := l.clock.Now()
	l.store.Update(userID, func(r *Record) {
		r.Language = name
		r.LastSeen = now
	})
	return name, nil
}

// Normalize trims raw, collapses inner whitespace and title-cases each word.
func (l *LanguageStore) Normalize(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	// Casers keep state, so one per call.
	return cases.Title(language.English).String(strings.Join(fields, " "))
}
