package client

import (
	jsoniter "github.com/json-iterator/go"
)

// json is a drop-in replacement of the standard encoding/json package,
// jsoniter is noticeably faster on large response bodies.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals
