package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// NewHTTPErrorHandler renders every error as the uniform envelope the API
// speaks. Outside production the underlying error detail rides along to help
// debugging.
func NewHTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "internal server error"

		httpErr := HttpError{}
		echoErr := &echo.HTTPError{}
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			message = httpErr.Error()
		} else if errors.As(err, &echoErr) {
			code = echoErr.Code
			if m, ok := echoErr.Message.(string); ok {
				message = m
			}
		} else if !production {
			message = err.Error()
		}

		body := map[string]any{
			"status":  "error",
			"message": message,
		}
		if !production && code == http.StatusInternalServerError {
			body["detail"] = err.Error()
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}
