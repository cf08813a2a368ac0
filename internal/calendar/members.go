package calendar

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bridgecal/internal/log"
	"bridgecal/internal/model"
	"bridgecal/internal/validate"
)

// Members returns the group members in roster order.
func (b *Board) Members() []model.UserProfile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.UserProfile, len(b.members))
	copy(out, b.members)
	return out
}

// Member returns one member.
func (b *Board) Member(id string) (model.UserProfile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.memberIndex(id)
	if i < 0 {
		return model.UserProfile{}, errors.Wrapf(ErrNotFound, "member %q", id)
	}
	return b.members[i], nil
}

// memberIndex returns the roster position of id, or -1. Caller holds b.mu.
func (b *Board) memberIndex(id string) int {
	for i, m := range b.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// requireOwner checks that actorID is a member with the owner role.
// Caller holds b.mu.
func (b *Board) requireOwner(actorID string) error {
	i := b.memberIndex(actorID)
	if i < 0 {
		return errors.Wrapf(ErrForbidden, "unknown member %q", actorID)
	}
	if !b.members[i].IsOwner() {
		return errors.Wrapf(ErrForbidden, "member %q is not the group owner", actorID)
	}
	return nil
}

type invite struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,email"`
}

// Invite adds a member on behalf of the group owner. New members get a
// random illustration avatar and no base locations.
func (b *Board) Invite(actorID, name, email string) (model.UserProfile, error) {
	in := invite{Name: strings.TrimSpace(name), Email: strings.ToLower(strings.TrimSpace(email))}
	if err := validate.Struct(in); err != nil {
		return model.UserProfile{}, errors.Wrapf(ErrInvalid, "invite: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOwner(actorID); err != nil {
		return model.UserProfile{}, err
	}
	for _, m := range b.members {
		if strings.EqualFold(m.Email, in.Email) {
			return model.UserProfile{}, errors.Wrapf(ErrInvalid, "%s is already a member", in.Email)
		}
	}

	keys := model.IllustrationKeys()
	avatar, _ := model.IllustrationAvatar(keys[b.pick(len(keys))])
	p := model.UserProfile{
		ID:            "user-" + strings.SplitN(uuid.NewString(), "-", 2)[0],
		Email:         in.Email,
		FullName:      in.Name,
		Avatar:        avatar,
		Role:          model.RoleMember,
		BaseLocations: []model.BaseLocation{},
	}

	next := make([]model.UserProfile, 0, len(b.members)+1)
	next = append(next, b.members...)
	next = append(next, p)
	b.members = next
	b.version++
	log.Info("calendar: member invited", "id", p.ID, "by", actorID)
	return p, nil
}

// Remove drops a member. Only the owner may remove, and never themselves.
// The member's events stay on the board.
func (b *Board) Remove(actorID, memberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOwner(actorID); err != nil {
		return err
	}
	if actorID == memberID {
		return errors.Wrap(ErrInvalid, "the owner cannot remove themselves")
	}
	i := b.memberIndex(memberID)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "member %q", memberID)
	}

	next := make([]model.UserProfile, 0, len(b.members)-1)
	next = append(next, b.members[:i]...)
	next = append(next, b.members[i+1:]...)
	b.members = next
	b.version++
	log.Info("calendar: member removed", "id", memberID, "by", actorID)
	return nil
}

// SetAvatar switches a member to one of the fixed illustrations.
func (b *Board) SetAvatar(memberID, key string) (model.UserProfile, error) {
	avatar, ok := model.IllustrationAvatar(key)
	if !ok {
		return model.UserProfile{}, errors.Wrapf(ErrInvalid, "unknown illustration %q", key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.memberIndex(memberID)
	if i < 0 {
		return model.UserProfile{}, errors.Wrapf(ErrNotFound, "member %q", memberID)
	}

	next := make([]model.UserProfile, len(b.members))
	copy(next, b.members)
	next[i].Avatar = avatar
	b.members = next
	b.version++
	return next[i], nil
}
