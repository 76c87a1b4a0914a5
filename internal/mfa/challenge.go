package mfa

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/modulus-erp/modulus-erp/internal/shared"
)

const challengeKeyPrefix = shared.AuthKeyPrefix + "challenge:"

// DefaultChallengeTTL bounds how long a pending challenge stays redeemable.
const DefaultChallengeTTL = 5 * time.Minute

// ChallengeStore keeps pending challenges in Redis. Consume is atomic via
// GETDEL, so each challenge verifies at most once.
type ChallengeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChallengeStore constructs a ChallengeStore.
func NewChallengeStore(client *redis.Client, ttl time.Duration) *ChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeStore{client: client, ttl: ttl}
}

// Issue creates and stores a new challenge for the factor.
func (s *ChallengeStore) Issue(ctx context.Context, factorID string, userID int64, sessionID string) (*Challenge, error) {
	challenge := &Challenge{
		ID:        uuid.NewString(),
		FactorID:  factorID,
		UserID:    userID,
		SessionID: sessionID,
		IssuedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(challenge)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.key(challenge.ID, sessionID), data, s.ttl).Err(); err != nil {
		return nil, err
	}
	return challenge, nil
}

// Consume removes and returns the challenge, or ErrChallengeExpired when it
// was never issued, already used or timed out.
func (s *ChallengeStore) Consume(ctx context.Context, challengeID, sessionID string) (*Challenge, error) {
	data, err := s.client.GetDel(ctx, s.key(challengeID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeExpired
		}
		return nil, err
	}
	var challenge Challenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// TTL exposes the configured challenge lifetime.
func (s *ChallengeStore) TTL() time.Duration {
	return s.ttl
}

// key ends with the session ID so sign-out purges pending challenges along
// with the rest of the session's auth artifacts.
func (s *ChallengeStore) key(challengeID, sessionID string) string {
	return challengeKeyPrefix + challengeID + ":" + sessionID
}
