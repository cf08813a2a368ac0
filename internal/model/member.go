package model

import (
	"sort"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

type AvatarType string

const (
	AvatarCustom       AvatarType = "custom"
	AvatarIllustration AvatarType = "illustration"
)

// Illustrations is the fixed avatar illustration set, keyed by name.
var Illustrations = map[string]string{
	"fox":    "https://api.dicebear.com/7.x/big-smile/svg?seed=fox&backgroundColor=ffdfbf",
	"koala":  "https://api.dicebear.com/7.x/big-smile/svg?seed=koala&backgroundColor=b6e3f4",
	"panda":  "https://api.dicebear.com/7.x/big-smile/svg?seed=panda&backgroundColor=d1d4f9",
	"rabbit": "https://api.dicebear.com/7.x/big-smile/svg?seed=rabbit&backgroundColor=ffd5dc",
	"cat":    "https://api.dicebear.com/7.x/big-smile/svg?seed=cat&backgroundColor=c0aede",
	"bear":   "https://api.dicebear.com/7.x/big-smile/svg?seed=bear&backgroundColor=ffdfbf",
}

// IllustrationKeys returns the illustration names in a stable order.
func IllustrationKeys() []string {
	keys := make([]string, 0, len(Illustrations))
	for k := range Illustrations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Avatar is either a custom image URL or a key into Illustrations.
type Avatar struct {
	Type         AvatarType `json:"avatar_type"`
	URL          string     `json:"avatar_url"`
	Illustration string     `json:"avatar_illustration,omitempty"`
}

// IllustrationAvatar builds an avatar from the illustration set.
func IllustrationAvatar(key string) (Avatar, bool) {
	url, ok := Illustrations[key]
	if !ok {
		return Avatar{}, false
	}
	return Avatar{Type: AvatarIllustration, URL: url, Illustration: key}, true
}

type LocationType string

const (
	LocationRecurring LocationType = "recurring"
	LocationTemporary LocationType = "temporary"
)

// BaseLocation is where a member usually is. Recurring locations apply on
// the listed weekdays; temporary ones apply between StartDate and EndDate
// (inclusive, by calendar day).
type BaseLocation struct {
	ID            string         `json:"id"`
	City          string         `json:"city"`
	CountryCode   string         `json:"country_code"`
	Type          LocationType   `json:"type"`
	RecurringDays []time.Weekday `json:"recurring_days,omitempty"`
	StartDate     *time.Time     `json:"start_date,omitempty"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
}

// AppliesOn reports whether the location is in effect on the calendar day
// of d (in d's location).
func (l BaseLocation) AppliesOn(d time.Time) bool {
	switch l.Type {
	case LocationRecurring:
		for _, wd := range l.RecurringDays {
			if wd == d.Weekday() {
				return true
			}
		}
		return false
	case LocationTemporary:
		if l.StartDate == nil || l.EndDate == nil {
			return false
		}
		day := midnight(d)
		from := midnight(l.StartDate.In(d.Location()))
		to := midnight(l.EndDate.In(d.Location()))
		return !day.Before(from) && !day.After(to)
	}
	return false
}

// UserProfile is a group member.
type UserProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Avatar
	Role          Role           `json:"role"`
	BaseLocations []BaseLocation `json:"base_locations"`
}

// IsOwner reports whether the member owns the group.
func (u UserProfile) IsOwner() bool {
	return u.Role == RoleOwner
}

// LocationsOn returns the base locations in effect on d. Temporary
// locations come first since they override the usual routine.
func (u UserProfile) LocationsOn(d time.Time) []BaseLocation {
	var temp, rec []BaseLocation
	for _, l := range u.BaseLocations {
		if !l.AppliesOn(d) {
			continue
		}
		if l.Type == LocationTemporary {
			temp = append(temp, l)
		} else {
			rec = append(rec, l)
		}
	}
	return append(temp, rec...)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
