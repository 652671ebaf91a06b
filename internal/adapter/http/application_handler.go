package http

import (
	"context"
	"net/http"
	"strconv"

	"change-approval/internal/usecase/approval"

	"github.com/labstack/echo/v4"
)

// ApprovalUsecase is the workflow surface the handlers drive.
type ApprovalUsecase interface {
	Submit(ctx context.Context, in approval.SubmitInput, actor string) approval.Result
	BatchApprove(ctx context.Context, rows []int, actor string) approval.Result
	Reject(ctx context.Context, row int, reason, actor string) approval.Result
	CreateDocument(ctx context.Context, row int, actor string) approval.Result
	ListPending(ctx context.Context) ([]approval.PendingDTO, error)
	ListForUser(ctx context.Context, actor string) ([]approval.ApplicationDTO, error)
}

type ApplicationHandler struct{ uc ApprovalUsecase }

func NewApplicationHandler(uc ApprovalUsecase) *ApplicationHandler {
	return &ApplicationHandler{uc: uc}
}

type submitReq struct {
	Category         string            `json:"category"           validate:"max=200"`
	AssetID          string            `json:"asset_id"           validate:"max=200"`
	AssetName        string            `json:"asset_name"         validate:"required,notblank,max=200"`
	Description      string            `json:"description"        validate:"required,notblank"`
	Reason           string            `json:"reason"`
	ImpactScope      string            `json:"impact_scope"`
	PreTestNote      string            `json:"pre_test_note"`
	BackupNote       string            `json:"backup_note"`
	RiskHandling     string            `json:"risk_handling"`
	RiskHandlingNote string            `json:"risk_handling_note"`
	BeforeState      string            `json:"before_state"`
	AfterState       string            `json:"after_state"`
	Extra            map[string]string `json:"extra"`
}

type batchApproveReq struct {
	Rows []int `json:"rows" validate:"required,min=1,dive,gte=2"`
}

type rejectReq struct {
	Reason string `json:"reason" validate:"required,notblank"`
}

func (h *ApplicationHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	res := h.uc.Submit(c.Request().Context(), approval.SubmitInput(req), actor(c))
	return result(c, res, http.StatusCreated)
}

func (h *ApplicationHandler) List(c echo.Context) error {
	dtos, err := h.uc.ListForUser(c.Request().Context(), actor(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *ApplicationHandler) Pending(c echo.Context) error {
	dtos, err := h.uc.ListPending(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

func (h *ApplicationHandler) BatchApprove(c echo.Context) error {
	var req batchApproveReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	return result(c, h.uc.BatchApprove(c.Request().Context(), req.Rows, actor(c)), http.StatusOK)
}

func (h *ApplicationHandler) Reject(c echo.Context) error {
	row, ok := rowParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid row path param"})
	}
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	return result(c, h.uc.Reject(c.Request().Context(), row, req.Reason, actor(c)), http.StatusOK)
}

func (h *ApplicationHandler) CreateDocument(c echo.Context) error {
	row, ok := rowParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid row path param"})
	}
	return result(c, h.uc.CreateDocument(c.Request().Context(), row, actor(c)), http.StatusOK)
}

func rowParam(c echo.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	return row, err == nil && row > 1
}

// result writes a workflow result: okStatus on success, the kind's status otherwise.
func result(c echo.Context, res approval.Result, okStatus int) error {
	if res.OK {
		return c.JSON(okStatus, res)
	}
	return c.JSON(statusFor(res.Kind), res)
}
