package model

// UserRole identifies the caller of a role-gated route. Accounts and
// credential handling live in the identity provider; tokens arrive already
// issued and only the role claim matters here.
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)
