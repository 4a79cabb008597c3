package applier

import "errors"

var errMissingPriorState = errors.New("modify op has no pre-state object to resolve")
var errLeafCountUnderflow = errors.New("leaf count delta would underflow startup_info.size")
var errShortStartupInfo = errors.New("startup_info record too short")
