package config

import "bridgecal/internal/model"

// Roster converts the group and member sections into board seed data.
func (c *Config) Roster() (model.Group, []model.UserProfile) {
	g := model.Group{
		ID:          c.Group.ID,
		Name:        c.Group.Name,
		Description: c.Group.Description,
	}
	members := make([]model.UserProfile, 0, len(c.Members))
	for _, m := range c.Members {
		avatar, _ := model.IllustrationAvatar(m.Illustration)
		role := model.RoleMember
		if m.Role == "owner" {
			role = model.RoleOwner
			g.OwnerID = m.ID
		}
		members = append(members, model.UserProfile{
			ID:            m.ID,
			Email:         m.Email,
			FullName:      m.FullName,
			Avatar:        avatar,
			Role:          role,
			BaseLocations: []model.BaseLocation{},
		})
	}
	return g, members
}
