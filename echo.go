package rest

import (
	"errors"
	"net/http"

	"github.com/karagenc/fj4echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xompass/remote-association/http_errors"
	"go.uber.org/zap"
)

// NewEchoApp returns an echo instance that answers errors with
// http_errors.ErrorResponse bodies.
func NewEchoApp(logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := echo.New()
	app.HideBanner = true
	app.Use(middleware.Recover())
	app.Use(middleware.CORS())
	app.Use(middleware.Secure())
	app.Use(middleware.RequestID())

	app.JSONSerializer = fj4echo.New()
	app.HTTPErrorHandler = errorHandler(logger)

	return app
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var response *http_errors.ErrorResponse
		var httpError *echo.HTTPError
		switch {
		case errors.As(err, &response):
		case errors.As(err, &httpError):
			response = http_errors.NewErrorResponse(httpError.Code, http.StatusText(httpError.Code))
		default:
			// Unmapped errors are logged, never echoed.
			response = http_errors.InternalServerError(http.StatusText(http.StatusInternalServerError))
		}

		if response.Code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
		}

		if err := c.JSON(response.Code, response); err != nil {
			logger.Error("cannot write error response", zap.Error(err))
		}
	}
}
