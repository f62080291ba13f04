// Package idempotency stores HTTP responses keyed by Idempotency-Key so a
// retried POST replays the first response instead of repeating its effect.
package idempotency

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "responses"

var ErrNotFound = errors.New("idempotency record not found")

// Response is a recorded reply. Fingerprint identifies the request that
// produced it; a key reused with another fingerprint must not replay.
type Response struct {
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store struct {
	db *bolt.DB
}

// New opens (or creates) the database file and its bucket.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(key string) (*Response, error) {
	var r Response

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Save records r unless the key is already taken. It returns the stored
// response and whether this call wrote it.
func (s *Store) Save(r *Response) (*Response, bool, error) {
	var result Response
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if existing := b.Get([]byte(r.Key)); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		r.CreatedAt = time.Now().UTC()
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}

		result = *r
		created = true
		return b.Put([]byte(r.Key), data)
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

// Purge deletes records older than the cutoff and returns how many went.
func (s *Store) Purge(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r Response
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
