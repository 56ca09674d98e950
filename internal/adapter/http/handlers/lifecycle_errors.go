package handlers

import (
	"errors"
	"log"
	"net/http"

	response "mecanica_marketplace/internal/adapter/http/dto/response"
	"mecanica_marketplace/internal/usecase"
	"mecanica_marketplace/pkg"

	"github.com/gin-gonic/gin"
)

var errInvalidPayload = pkg.NewDomainErrorSimple(string(usecase.KindInvalidInput), "Invalid request payload", http.StatusBadRequest)

// mapLifecycleError converts a use case error into the client-facing AppError.
// The code is the error kind; dependency and internal failures hide their cause.
func mapLifecycleError(err error) *pkg.AppError {
	var appErr *pkg.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	kind := usecase.KindOf(err)
	switch kind {
	case usecase.KindInvalidInput:
		return pkg.NewDomainError(string(kind), err.Error(), err, http.StatusBadRequest)
	case usecase.KindNotFound:
		return pkg.NewDomainError(string(kind), err.Error(), err, http.StatusNotFound)
	case usecase.KindUnauthorized:
		return pkg.NewDomainError(string(kind), err.Error(), err, http.StatusForbidden)
	case usecase.KindInvalidState, usecase.KindAlreadyResolved, usecase.KindConflict:
		return pkg.NewDomainError(string(kind), err.Error(), err, http.StatusConflict)
	case usecase.KindDependencyFailure:
		return pkg.NewDomainError(string(kind), "A downstream dependency failed", err, http.StatusBadGateway)
	default:
		return pkg.NewDomainError(string(usecase.KindInternal), "An internal error occurred", err, http.StatusInternalServerError)
	}
}

func writeCommandError(c *gin.Context, area string, err error) {
	appErr := mapLifecycleError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Printf("[%s][handler] %s failed err=%v", area, c.FullPath(), err)
	}
	c.JSON(appErr.HTTPStatus, response.Failure(appErr))
}

func writeInvalidPayload(c *gin.Context, area string, err error) {
	log.Printf("[%s][handler] invalid payload path=%s err=%v", area, c.FullPath(), err)
	c.JSON(errInvalidPayload.HTTPStatus, response.Failure(errInvalidPayload))
}
