package domain

import "errors"

// Error kinds reported by the daily run. Stages wrap them with context;
// callers test with errors.Is.
var (
	ErrDownload      = errors.New("fire data download failed")
	ErrSchema        = errors.New("required attribute missing")
	ErrCRSConversion = errors.New("crs conversion failed")
	ErrIO            = errors.New("file i/o failed")
	ErrDataAbsent    = errors.New("report artifact missing")
)
