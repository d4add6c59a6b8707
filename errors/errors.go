package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	NotFound            = HttpError{http.StatusNotFound, errors.New("not found")}
	Duplicate           = HttpError{http.StatusConflict, errors.New("duplicate")}
	BadRequest          = HttpError{http.StatusBadRequest, errors.New("bad request")}
	Unauthorized        = HttpError{http.StatusUnauthorized, errors.New("unauthorized")}
	Forbidden           = HttpError{http.StatusForbidden, errors.New("forbidden")}
	TooManyRequests     = HttpError{http.StatusTooManyRequests, errors.New("too many requests")}
	InternalServerError = HttpError{http.StatusInternalServerError, errors.New("internal server error")}
)

type HttpError struct {
	Code int
	Err  error
}

func (h HttpError) Unwrap() error {
	return h.Err
}

func (h HttpError) Error() string {
	return h.Err.Error()
}

func Badf(format string, args ...any) error {
	return HttpError{http.StatusBadRequest, fmt.Errorf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return HttpError{http.StatusNotFound, fmt.Errorf(format, args...)}
}

func Forbiddenf(format string, args ...any) error {
	return HttpError{http.StatusForbidden, fmt.Errorf(format, args...)}
}

func Internalf(format string, args ...any) error {
	return HttpError{http.StatusInternalServerError, fmt.Errorf(format, args...)}
}
