package completion

// Quorum reports whether every current member has marked complete. Membership
// can still grow while early joiners finish, so subscribers must re-evaluate
// this on every document change rather than compute it once.
func Quorum(completed, members int) bool {
	return members > 0 && completed >= members
}
