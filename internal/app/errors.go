package app

import "errors"

var ErrMissingDependencies = errors.New("host capabilities are not fully configured")
