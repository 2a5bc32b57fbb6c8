package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/energyadmin/backend/internal/domain/shared"
	"github.com/energyadmin/backend/internal/infrastructure/logger"
	"github.com/energyadmin/backend/internal/interfaces/http/dto"
	"github.com/energyadmin/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 VALIDATION_ERROR response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, shared.CodeValidation, message)
}

// HandleError converts err to a response. Domain errors keep their code and
// details; anything else is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.Set(middleware.ErrorCodeKey, domainErr.Code)
		c.JSON(dto.GetHTTPStatus(domainErr.Code),
			dto.NewDomainErrorResponse(domainErr.Code, domainErr.Message, requestID, domainErr.Details))
		return
	}

	logger.L(c.Request.Context()).Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.Set(middleware.ErrorCodeKey, dto.ErrCodeInternal)
	c.JSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}

// BindJSON binds the request body and writes the error response itself.
// It returns false when the handler should stop.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters like BindJSON.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	if fields := middleware.ValidationDetails(err); fields != nil {
		c.Set(middleware.ErrorCodeKey, dto.ErrCodeBadRequest)
		c.JSON(http.StatusBadRequest,
			dto.NewValidationErrorResponse("Request validation failed", middleware.GetRequestID(c), fields))
		return
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, dto.ErrCodeRequestTooLarge, "Request body too large")
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		h.Error(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		return
	}

	h.BadRequest(c, err.Error())
}

// ParamUUID parses a UUID path parameter, answering 400 when it is malformed.
func (h *BaseHandler) ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
