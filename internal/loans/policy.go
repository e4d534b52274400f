package loans

import "github.com/diegocastellanos/booklend-backend/pkg/enums"

// rolePolicy is the static borrowing policy table. Administrators manage
// the library and never borrow through it.
var rolePolicy = map[enums.UserRole]int{
	enums.UserRoleStudent: 3,
	enums.UserRoleTeacher: 5,
	enums.UserRoleStaff:   3,
	enums.UserRoleAdmin:   0,
}

// LimitFor returns how many active loans the role may hold at once.
func LimitFor(role enums.UserRole) int {
	return rolePolicy[role]
}

// CanBorrow reports whether the role may borrow at all.
func CanBorrow(role enums.UserRole) bool {
	return LimitFor(role) > 0
}

// CanRequestLoan reports whether a member with the given role and current
// active loan count may open another loan. Active means pending or approved.
func CanRequestLoan(role enums.UserRole, activeLoanCount int) bool {
	if !CanBorrow(role) {
		return false
	}
	return activeLoanCount < LimitFor(role)
}
