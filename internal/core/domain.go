package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrEmptySource     = errors.New("empty income source")

	// ErrNotFound and ErrConflict are returned by the record store for missing
	// records and uniqueness violations; they are not store faults.
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")

	// ErrStoreUnavailable marks record-store access failures. Storage wraps the
	// driver error with this sentinel so callers can discriminate store outages
	// from ordinary domain failures with errors.Is.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

type (
	Money struct {
		Cents int64
	}

	// Account is the identity record. Immutable after creation; the plaintext
	// password never appears here, only the bcrypt digest.
	Account struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Expense struct {
		ID       int64
		UserID   int64
		Amount   Money
		Category Category
		Date     time.Time
	}

	Income struct {
		ID     int64
		UserID int64
		Amount Money
		Source string
		Date   time.Time
	}

	// Budget declares a spending limit for one (user, category, period) tuple.
	// The record store does not enforce uniqueness of that tuple; duplicates are
	// each reported independently by the ledger.
	Budget struct {
		ID       int64
		UserID   int64
		Category Category
		Limit    Money
		Period   Period
	}
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if i.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if b.Period.IsZero() {
		return ErrZeroDate
	}
	return nil
}
