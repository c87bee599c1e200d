// Package progress is the ProgressStore: one JSON UserRecord per learner in
// Redis, addressable by id, email or username. The record is monolithic, so
// every mutation is a read-modify-write; PutUser does a WATCH-based
// compare-and-set on the record's Version to close the lost-update window
// between concurrent writers.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type Store interface {
	// Getters return (nil, nil) when the record is absent.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserRecord, error)
	ListUsers(ctx context.Context) ([]*domain.UserRecord, error)

	CreateUser(ctx context.Context, u *domain.UserRecord) error
	// PutUser CAS-writes the record; Conflict when u.Version is stale. On
	// success u.Version is bumped in place.
	PutUser(ctx context.Context, u *domain.UserRecord) error
	// DeleteUser removes all keys of the record; absent record is a no-op.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

func keyID(id uuid.UUID) string      { return "user:id:" + id.String() }
func keyEmail(email string) string   { return "user:email:" + email }
func keyUsername(name string) string { return "user:username:" + name }

type store struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewStore(rdb *goredis.Client, baseLog *logger.Logger) Store {
	return &store{rdb: rdb, log: baseLog.With("store", "ProgressStore")}
}

func (s *store) getByEmailKey(ctx context.Context, email string) (*domain.UserRecord, error) {
	raw, err := s.rdb.Get(ctx, keyEmail(email)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Unavailable("progress store read failed", err)
	}
	var u domain.UserRecord
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return &u, nil
}

func (s *store) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserRecord, error) {
	email, err := s.rdb.Get(ctx, keyID(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Unavailable("progress store read failed", err)
	}
	return s.getByEmailKey(ctx, email)
}

func (s *store) GetUserByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	return s.getByEmailKey(ctx, email)
}

func (s *store) GetUserByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	email, err := s.rdb.Get(ctx, keyUsername(username)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Unavailable("progress store read failed", err)
	}
	return s.getByEmailKey(ctx, email)
}

func (s *store) ListUsers(ctx context.Context) ([]*domain.UserRecord, error) {
	var users []*domain.UserRecord
	iter := s.rdb.Scan(ctx, 0, "user:email:*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, apierr.Unavailable("progress store read failed", err)
		}
		var u domain.UserRecord
		if err := json.Unmarshal(raw, &u); err != nil {
			s.log.Warn("skipping malformed user record", "key", iter.Val(), "error", err)
			continue
		}
		users = append(users, &u)
	}
	if err := iter.Err(); err != nil {
		return nil, apierr.Unavailable("progress store scan failed", err)
	}
	return users, nil
}

func (s *store) CreateUser(ctx context.Context, u *domain.UserRecord) error {
	u.Version = 1
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}

	// SETNX on the email key is the uniqueness gate; the index keys follow
	// in one MULTI, mirroring record creation in a single reply.
	ok, err := s.rdb.SetNX(ctx, keyEmail(u.Email), raw, 0).Result()
	if err != nil {
		return apierr.Unavailable("progress store write failed", err)
	}
	if !ok {
		return apierr.Conflict("email already registered")
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, keyID(u.ID), u.Email, 0)
		if u.Username != "" {
			pipe.Set(ctx, keyUsername(u.Username), u.Email, 0)
		}
		return nil
	})
	if err != nil {
		return apierr.Unavailable("progress store write failed", err)
	}
	return nil
}

var errStaleVersion = errors.New("stale user record version")

func (s *store) PutUser(ctx context.Context, u *domain.UserRecord) error {
	key := keyEmail(u.Email)

	next := *u
	next.Version = u.Version + 1
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}

	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if err == nil {
			var existing domain.UserRecord
			if jsonErr := json.Unmarshal(cur, &existing); jsonErr == nil && existing.Version != u.Version {
				return errStaleVersion
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, errStaleVersion), errors.Is(err, goredis.TxFailedErr):
		return apierr.Conflict("user record changed concurrently")
	case err != nil:
		return apierr.Unavailable("progress store write failed", err)
	}
	u.Version = next.Version
	return nil
}

func (s *store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, keyEmail(u.Email))
		if u.Username != "" {
			pipe.Del(ctx, keyUsername(u.Username))
		}
		pipe.Del(ctx, keyID(id))
		return nil
	})
	if err != nil {
		return apierr.Unavailable("progress store delete failed", err)
	}
	return nil
}
