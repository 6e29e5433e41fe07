package errs

// Sentinel errors shared by the REST and relay layers. The leading digits of
// each code are the HTTP status a handler responds with.
var (
	ErrArgs           = NewCodeError(40001, "invalid argument")
	ErrDuplicateValue = NewCodeError(40002, "value already taken")
	ErrTokenInvalid   = NewCodeError(40101, "token invalid or expired")
	ErrBadCredentials = NewCodeError(40102, "invalid username or password")
	ErrNoPermission   = NewCodeError(40301, "permission denied")
	ErrNotMember      = NewCodeError(40302, "not a member of this conversation")
	ErrRecordNotFound = NewCodeError(40401, "record not found")
	ErrInternal       = NewCodeError(50001, "internal error")
)
