package resputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/pkg/archive"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/codelisting"
	"github.com/raids-lab/folio/pkg/logutils"
	"github.com/raids-lab/folio/pkg/sandbox"
)

type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, msg string, data any, code ErrorCode) {
	c.JSON(httpCode, Response[any]{
		Code: code,
		Data: data,
		Msg:  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, "", data, OK)
}

func Created(c *gin.Context, data any) {
	wrapResponse(c, http.StatusCreated, "", data, OK)
}

// Error answers with HTTP 500 and a business error code.
func Error(c *gin.Context, msg string, errorCode ErrorCode) {
	wrapResponse(c, http.StatusInternalServerError, msg, nil, errorCode)
}

func BadRequestError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusBadRequest, msg, nil, InvalidRequest)
}

func HTTPError(c *gin.Context, httpCode int, msg string, errorCode ErrorCode) {
	wrapResponse(c, httpCode, msg, nil, errorCode)
	c.Abort()
}

type errorMapping struct {
	target   error
	httpCode int
	code     ErrorCode
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{assetstore.ErrTimeout, http.StatusGatewayTimeout, PipelineTimeout},
	{sandbox.ErrPathTraversal, http.StatusForbidden, PathTraversal},
	{archive.ErrArchiveTooLarge, http.StatusRequestEntityTooLarge, PayloadTooLarge},
	{assetstore.ErrThumbnailTooLarge, http.StatusRequestEntityTooLarge, PayloadTooLarge},
	{codelisting.ErrFileTooLarge, http.StatusRequestEntityTooLarge, PayloadTooLarge},
	{archive.ErrInvalidArchive, http.StatusBadRequest, InvalidArchive},
	{assetstore.ErrMissingEntryPoint, http.StatusBadRequest, MissingEntryPoint},
	{assetstore.ErrUnsupportedThumbnail, http.StatusBadRequest, UnsupportedThumbnail},
	{query.ErrProjectNotFound, http.StatusNotFound, ProjectNotFound},
	{codelisting.ErrNotFound, http.StatusNotFound, FileNotFound},
}

// Classify maps a pipeline error to its HTTP status and error code.
func Classify(err error) (int, ErrorCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.httpCode, m.code
		}
	}
	return http.StatusInternalServerError, ServiceError
}

// FromError writes the response matching err. Unclassified errors are
// logged and answered with 500.
func FromError(c *gin.Context, err error) {
	httpCode, code := Classify(err)
	if code == ServiceError {
		logutils.Log.WithError(err).Errorf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
	HTTPError(c, httpCode, err.Error(), code)
}
