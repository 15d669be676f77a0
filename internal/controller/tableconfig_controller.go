package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tableconfig-editor/internal/middleware"
	"tableconfig-editor/internal/schema"
	"tableconfig-editor/internal/service"
	"tableconfig-editor/internal/utils"
	"tableconfig-editor/pkg/response"
)

// TableConfigController handles the table-configuration endpoints
type TableConfigController struct {
	service  service.TableConfigService
	validate *validator.Validate
}

// NewTableConfigController creates a new TableConfigController
func NewTableConfigController(svc service.TableConfigService) *TableConfigController {
	return &TableConfigController{
		service:  svc,
		validate: validator.New(),
	}
}

// List handles GET /api/v1/tableconfigs
func (tc *TableConfigController) List(c *gin.Context) {
	req := &service.ListTableConfigsRequest{
		SourceSystem: c.Query("sourceSystem"),
		TableKey:     c.Query("tableKey"),
		TableName:    c.Query("tableName"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			tc.badRequest(c, "limit must be an integer")
			return
		}
		req.Limit = n
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			tc.badRequest(c, "offset must be an integer")
			return
		}
		req.Offset = n
	}

	if err := tc.validate.Struct(req); err != nil {
		tc.badRequest(c, err.Error())
		return
	}

	resp, err := tc.service.ListTableConfigs(c.Request.Context(), req)
	if err != nil {
		tc.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(resp, tc.getCorrelationID(c)))
}

// Get handles GET /api/v1/tableconfigs/:key
func (tc *TableConfigController) Get(c *gin.Context) {
	detail, err := tc.service.GetTableConfig(c.Request.Context(), c.Param("key"))
	if err != nil {
		tc.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(detail, tc.getCorrelationID(c)))
}

// Create handles POST /api/v1/tableconfigs
func (tc *TableConfigController) Create(c *gin.Context) {
	var req service.CreateTableConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		tc.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := tc.validate.Struct(&req); err != nil {
		tc.badRequest(c, err.Error())
		return
	}

	detail, err := tc.service.CreateTableConfig(c.Request.Context(), &req)
	if err != nil {
		tc.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessResponse(detail, tc.getCorrelationID(c)))
}

// Update handles PUT /api/v1/tableconfigs/:key
func (tc *TableConfigController) Update(c *gin.Context) {
	var req service.UpdateTableConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		tc.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := tc.validate.Struct(&req); err != nil {
		tc.badRequest(c, err.Error())
		return
	}

	detail, err := tc.service.UpdateTableConfig(c.Request.Context(), c.Param("key"), &req)
	if err != nil {
		tc.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(detail, tc.getCorrelationID(c)))
}

// SaveSchemaRequest is the payload of PUT /api/v1/tableconfigs/:key/schema
type SaveSchemaRequest struct {
	Fields []schema.EditableRow `json:"fields" binding:"required"`
}

// SaveSchema handles PUT /api/v1/tableconfigs/:key/schema. The grid rows
// replace the stored document wholesale; key lists are rederived from the
// row flags.
func (tc *TableConfigController) SaveSchema(c *gin.Context) {
	var req SaveSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		tc.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	detail, err := tc.service.SaveSchema(c.Request.Context(), c.Param("key"), req.Fields)
	if err != nil {
		tc.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(detail, tc.getCorrelationID(c)))
}

// Delete handles DELETE /api/v1/tableconfigs/:key
func (tc *TableConfigController) Delete(c *gin.Context) {
	key := c.Param("key")
	if _, err := tc.service.GetTableConfig(c.Request.Context(), key); err != nil {
		tc.handleError(c, err)
		return
	}
	if err := tc.service.DeleteTableConfig(c.Request.Context(), key); err != nil {
		tc.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessageResponse("Table configuration deleted", tc.getCorrelationID(c)))
}

// SourceSystems handles GET /api/v1/tableconfigs/sources
func (tc *TableConfigController) SourceSystems(c *gin.Context) {
	systems, err := tc.service.SourceSystems(c.Request.Context())
	if err != nil {
		tc.handleError(c, err)
		return
	}
	if systems == nil {
		systems = []string{}
	}

	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{"sourceSystems": systems}, tc.getCorrelationID(c)))
}

// DataTypes handles GET /api/v1/datatypes
func (tc *TableConfigController) DataTypes(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessResponse(gin.H{"dataTypes": schema.DataTypes()}, tc.getCorrelationID(c)))
}

// handleError maps service errors onto the response envelope
func (tc *TableConfigController) handleError(c *gin.Context, err error) {
	correlationID := tc.getCorrelationID(c)

	var vErr *schema.ValidationError
	switch {
	case errors.As(err, &vErr):
		middleware.RecordSchemaValidationFailure("row_defects")
		c.JSON(http.StatusUnprocessableEntity, response.SchemaValidationResponse(
			"Schema validation failed", vErr.Rows, correlationID))
	case errors.Is(err, service.ErrTableConfigNotFound):
		c.JSON(http.StatusNotFound, response.NotFoundResponse("Table configuration not found", correlationID))
	case errors.Is(err, service.ErrTableConfigExists):
		c.JSON(http.StatusConflict, response.ConflictResponse("Table configuration already exists", correlationID))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse(
			utils.ErrCodePersistenceError, "Failed to access the configuration store", err.Error(), correlationID))
	}
}

func (tc *TableConfigController) badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, response.ErrorResponse(
		utils.ErrCodeInvalidParameters, "Invalid request", details, tc.getCorrelationID(c)))
}

func (tc *TableConfigController) getCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get(middleware.CorrelationIDKey); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}
