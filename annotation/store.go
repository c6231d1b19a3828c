// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package annotation keeps the user's rating and remark of each toilet.
// Values live in a key-value store under "toilet_rating_<lat>_<lng>" and
// "toilet_remark_<lat>_<lng>".
package annotation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cartobdx/cartobdx/spatial"
)

const (
	// MaxRating is the highest star rating.
	MaxRating = 5
	// MaxRemarkLength is the maximum remark length in characters.
	MaxRemarkLength = 500

	ratingPrefix = "toilet_rating_"
	remarkPrefix = "toilet_remark_"
)

// Validation errors.
var (
	ErrInvalidRating = fmt.Errorf("rating must be between 0 and %d", MaxRating)
	ErrRemarkTooLong = fmt.Errorf("remark exceeds %d characters", MaxRemarkLength)
	ErrCorruptRating = errors.New("stored rating is not a number")
)

// KVStore is a string key-value store. Get reports whether the key exists.
type KVStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Annotation is the user's rating and remark of a toilet. Zero values mean
// "not set".
type Annotation struct {
	Rating int    `json:"rating"`
	Remark string `json:"remark"`
}

// Store reads and writes annotations.
type Store struct {
	kv KVStore
}

// NewStore creates a Store over kv.
func NewStore(kv KVStore) *Store {
	return &Store{kv: kv}
}

// RatingKey returns the storage key of the rating of the toilet at p.
func RatingKey(p spatial.Point) string {
	return ratingPrefix + p.Key()
}

// RemarkKey returns the storage key of the remark of the toilet at p.
func RemarkKey(p spatial.Point) string {
	return remarkPrefix + p.Key()
}

// Rating returns the stored rating, 0 when absent.
func (s *Store) Rating(p spatial.Point) (int, error) {
	v, ok, err := s.kv.Get(RatingKey(p))
	if err != nil {
		return 0, fmt.Errorf("reading rating: %w", err)
	}

	if !ok {
		return 0, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCorruptRating, v)
	}

	return n, nil
}

// SaveRating stores a rating from 1 to 5. A rating of 0 removes it.
func (s *Store) SaveRating(p spatial.Point, rating int) error {
	if rating < 0 || rating > MaxRating {
		return fmt.Errorf("%w: %d", ErrInvalidRating, rating)
	}

	key := RatingKey(p)
	if rating == 0 {
		if err := s.kv.Remove(key); err != nil {
			return fmt.Errorf("removing rating: %w", err)
		}

		return nil
	}

	if err := s.kv.Set(key, strconv.Itoa(rating)); err != nil {
		return fmt.Errorf("saving rating: %w", err)
	}

	return nil
}

// Remark returns the stored remark, "" when absent.
func (s *Store) Remark(p spatial.Point) (string, error) {
	v, _, err := s.kv.Get(RemarkKey(p))
	if err != nil {
		return "", fmt.Errorf("reading remark: %w", err)
	}

	return v, nil
}

// SaveRemark stores the trimmed remark. A blank remark removes it.
func (s *Store) SaveRemark(p spatial.Point, remark string) error {
	remark = strings.TrimSpace(remark)
	if utf8.RuneCountInString(remark) > MaxRemarkLength {
		return fmt.Errorf("%w: %d", ErrRemarkTooLong, utf8.RuneCountInString(remark))
	}

	key := RemarkKey(p)
	if remark == "" {
		if err := s.kv.Remove(key); err != nil {
			return fmt.Errorf("removing remark: %w", err)
		}

		return nil
	}

	if err := s.kv.Set(key, remark); err != nil {
		return fmt.Errorf("saving remark: %w", err)
	}

	return nil
}

// Annotation returns both the rating and the remark of the toilet at p.
func (s *Store) Annotation(p spatial.Point) (Annotation, error) {
	rating, ratingErr := s.Rating(p)
	remark, remarkErr := s.Remark(p)

	if err := errors.Join(ratingErr, remarkErr); err != nil {
		return Annotation{}, err
	}

	return Annotation{Rating: rating, Remark: remark}, nil
}
