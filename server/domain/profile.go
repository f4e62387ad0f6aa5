package domain

type Profile struct {
	UserID string
	Name   string
	Image  string
	Role   Role
}

func NewProfile(userID, name, image string, role Role) Profile {
	return Profile{
		UserID: userID,
		Name:   name,
		Image:  image,
		Role:   role,
	}
}

func (p Profile) IsValid() bool {
	return p.UserID != ""
}

func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.UserID
}

// Merge fills empty fields of p from other. The user id is never taken from other.
func (p Profile) Merge(other Profile) Profile {
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Image == "" {
		p.Image = other.Image
	}
	if p.Role == "" {
		p.Role = other.Role
	}
	return p
}
