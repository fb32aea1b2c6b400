// Package common defines constants and sentinel errors shared by the client
// store and the document server. Callers match errors with errors.Is.
package common

import "errors"

var (
	// repository errors
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// store errors
	ErrCompanionNotFound = errors.New("companion not found")
	ErrCompanionDeleted  = errors.New("companion deleted")
	ErrAlreadyExists     = errors.New("already exists")
	ErrMessageNotFound   = errors.New("message not found")
	ErrMomentNotFound    = errors.New("moment not found")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrStoreDisposed     = errors.New("store disposed")

	// validation
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidDocument = errors.New("document must be a JSON object")

	// transport
	ErrNoUserID = errors.New("no user id")
)
