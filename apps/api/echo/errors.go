package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var errFileNotFound = core.NewNotFoundError("Not found")

type (
	errorResponse struct {
		Status  string      `json:"status"`
		Error   errorDetail `json:"error"`
		Message interface{} `json:"message"`
		Stack   string      `json:"stack"`
	}

	errorDetail struct {
		StatusCode int               `json:"statusCode"`
		Fields     map[string]string `json:"fields,omitempty"`
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		res := errorResponse{Status: "error"}
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			res.Error.StatusCode = origErr.Code
			message = origErr.Message
			if origErr == echo.ErrNotFound || origErr == echo.ErrMethodNotAllowed {
				res.Error.StatusCode = http.StatusNotFound
				message = "Not Found - " + ctx.Request().URL.String()
			}
		case *core.AppError:
			res.Error.StatusCode = origErr.StatusCode
			message = origErr.Message
		case validator.ValidationErrors:
			res.Error.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				res.Error.Fields[vErr.Field()] = vErr.Translate(translator)
			}
			res.Error.StatusCode = http.StatusBadRequest
			message = res.Error.Fields
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				res.Error.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					res.Error.Fields[fErr.Field] = fErr.Error
				}
				message = res.Error.Fields
			} else {
				message = origErr.Error()
			}
			res.Error.StatusCode = http.StatusBadRequest
		}

		if res.Error.StatusCode == 0 {
			res.Error.StatusCode = http.StatusInternalServerError
		}
		if res.Error.StatusCode >= http.StatusInternalServerError {
			msg := http.StatusText(http.StatusInternalServerError)
			if message == nil {
				message = msg
			}
			logger.Error(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Request().URL, err), errors.Wrap(err, msg))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			res.Stack = fmt.Sprintf("%+v", err)
			if res.Error.StatusCode >= http.StatusInternalServerError {
				message = err.Error()
			}
		}
		res.Message = message

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(res.Error.StatusCode)
			} else {
				err = ctx.JSON(res.Error.StatusCode, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
