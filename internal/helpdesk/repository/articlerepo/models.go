package articlerepo

import "errors"

var ErrNotFound = errors.New("article not found")
