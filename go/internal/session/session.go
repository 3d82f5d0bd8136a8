// Package session tracks who is playing: their identity, chosen role and the
// actor they own, cached locally under per-user keys.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/clients"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
)

var (
	// ErrStaleActor means the cached actor no longer exists on the backend.
	ErrStaleActor = errors.New("owned actor no longer exists")
	// ErrUnknownRole is returned when parsing an unrecognized role name.
	ErrUnknownRole = errors.New("unknown role")
)

const (
	actorKeyPrefix = "nightbringer_id_"
	roleKeyPrefix  = "selected_player_class_"
)

// Role is the player class chosen at setup.
type Role string

const (
	RoleNightbringer Role = "nightbringer"
	RoleLightbringer Role = "lightbringer"
)

// CanSpawn reports whether the role may create entities.
func (r Role) CanSpawn() bool {
	return r == RoleNightbringer
}

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleNightbringer:
		return RoleNightbringer, nil
	case RoleLightbringer:
		return RoleLightbringer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Identity is supplied by the login flow.
type Identity struct {
	UserID string
	Email  string
}

// namespace is the per-user suffix for cache keys.
func (i Identity) namespace() string {
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}

// ActorGetter confirms an actor exists.
type ActorGetter interface {
	GetActor(ctx context.Context, actorID string) (*payloads.ActorRecord, error)
}

type Session struct {
	identity Identity
	kv       KV
}

func New(identity Identity, kv KV) *Session {
	return &Session{identity: identity, kv: kv}
}

func (s *Session) Identity() Identity {
	return s.identity
}

func (s *Session) actorKey() string { return actorKeyPrefix + s.identity.namespace() }
func (s *Session) roleKey() string  { return roleKeyPrefix + s.identity.namespace() }

// ActorID returns the cached owned-actor id. Cache read errors are logged and
// treated as a miss.
func (s *Session) ActorID() (string, bool) {
	id, ok, err := s.kv.Get(s.actorKey())
	if err != nil {
		log.Warn().Err(err).Str("email", s.identity.Email).Msg("failed to read cached actor id")
		return "", false
	}
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (s *Session) SetActorID(id string) error {
	if id == "" {
		return s.kv.Delete(s.actorKey())
	}
	return s.kv.Set(s.actorKey(), id)
}

// Role returns the cached role, if any.
func (s *Session) Role() (Role, bool) {
	raw, ok, err := s.kv.Get(s.roleKey())
	if err != nil {
		log.Warn().Err(err).Str("email", s.identity.Email).Msg("failed to read cached role")
		return "", false
	}
	if !ok {
		return "", false
	}
	role, err := ParseRole(raw)
	if err != nil {
		return "", false
	}
	return role, true
}

func (s *Session) SetRole(r Role) error {
	if _, err := ParseRole(string(r)); err != nil {
		return err
	}
	return s.kv.Set(s.roleKey(), string(r))
}

// Clear forgets the cached actor and role, sending the player back to setup.
func (s *Session) Clear() error {
	if err := s.kv.Delete(s.actorKey()); err != nil {
		return err
	}
	if err := s.kv.Delete(s.roleKey()); err != nil {
		return err
	}
	log.Info().Str("email", s.identity.Email).Msg("session actor and role cleared")
	return nil
}

// ValidateActor confirms the cached actor still exists. A 404 clears the
// cached actor and role and returns ErrStaleActor; any other failure is
// returned without touching the cache. Without a cached actor it does nothing.
func (s *Session) ValidateActor(ctx context.Context, api ActorGetter) error {
	id, ok := s.ActorID()
	if !ok {
		return nil
	}

	_, err := api.GetActor(ctx, id)
	if err == nil {
		return nil
	}
	if !clients.IsNotFound(err) {
		return fmt.Errorf("failed to validate actor %s: %w", id, err)
	}

	log.Warn().Str("actor_id", id).Msg("cached actor not found, clearing session")
	if clearErr := s.Clear(); clearErr != nil {
		return fmt.Errorf("failed to clear stale session: %w", clearErr)
	}
	return ErrStaleActor
}
