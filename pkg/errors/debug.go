package errors

import (
	"errors"
	"fmt"
)

// httpFailure is satisfied by transport errors that carry the server response.
type httpFailure interface {
	HTTPStatus() int
	BodyMessage() string
}

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	HTTPStatus  int    `json:"http_status,omitempty"`
	BodyMessage string `json:"body_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var hf httpFailure
	if errors.As(err, &hf) {
		d.HTTPStatus = hf.HTTPStatus()
		d.BodyMessage = hf.BodyMessage()
	}

	return d
}
