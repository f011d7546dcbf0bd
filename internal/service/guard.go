package service

import "quill/internal/models"

// requireCaller rejects anonymous callers. A zero profile id means the
// request carried no identity.
func requireCaller(caller uint) error {
	if caller == 0 {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return nil
}

// requireOwner rejects callers that do not own the resource. message is the
// Forbidden text shown to the caller.
func requireOwner(caller, owner uint, message string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if caller != owner {
		return models.NewForbiddenError(message)
	}
	return nil
}
