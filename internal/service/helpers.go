package service

import (
	"errors"

	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

// asAppError unwraps err into a typed domain error when one is present, so
// repository-raised preconditions keep their status codes.
func asAppError(err error, target **appErrors.Error) bool {
	return errors.As(err, target)
}
