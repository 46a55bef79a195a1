package buildinfo

import "errors"

// Fatal construction errors (spec §7's "Facility construction failed" class).
var (
	ErrNoWorkspaceRooms = errors.New("buildinfo: no workspace rooms available for user assignment")
	ErrMissingHierarchy = errors.New("buildinfo: no locations configured")
)
