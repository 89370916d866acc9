package protocol

import "errors"

var (
	ErrTruncated        = errors.New("protocol: truncated data")
	ErrPayloadTooLarge  = errors.New("protocol: payload too large")
	ErrOddPayload       = errors.New("protocol: payload not word aligned")
	ErrUnknownMessageID = errors.New("protocol: unknown message id")
	ErrShortString      = errors.New("protocol: short string field")
	ErrBadDeviceInfo    = errors.New("protocol: bad device info payload")
)
