package services

import (
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// wrapPersistence tags raw store failures (lock, commit) as persistence
// errors. Errors already classified pass through.
func wrapPersistence(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.Is(err, pkgerrors.ErrPersistence) || pkgerrors.Is(err, pkgerrors.ErrInvalidInput) {
		return err
	}
	return pkgerrors.Persistence(op, collection, err)
}
