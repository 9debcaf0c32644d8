package employees

import (
	"time"
)

// Employee represents a staff member
type Employee struct {
	ID        int64      `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	RoleID    int64      `json:"role_id"`
	RoleName  string     `json:"role_name,omitempty"`
	HireDate  *time.Time `json:"hire_date,omitempty"`
	Salary    float64    `json:"salary"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
