package entity

import "errors"

var ErrNotAbsolute = errors.New("u must be an absolute url")

// ErrLimitReached the conditional counter increment found no room left
var ErrLimitReached = errors.New("scan limit reached")
