package domain

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole maps free text to a Role. Anything that is not "teacher" is a student.
func ParseRole(s string) Role {
	if Role(s) == RoleTeacher {
		return RoleTeacher
	}
	return RoleStudent
}

func (r Role) String() string {
	return string(r)
}
