package session

import "errors"

var (
	ErrInvalidLanguage = errors.New("language must be vi or en")
	ErrInvalidAppName  = errors.New("app name must be 1 to 80 characters")
)
