package core

// User is a bank customer or employee. Authentication and session handling
// live outside this core; memberships only need the user to exist.
type User struct {
	ID        int
	FirstName string
	Surname   string
	Email     string
}
