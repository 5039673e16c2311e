package controller

import (
	"aptitude_backend/internal/service"
	"aptitude_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AptitudeController struct {
	Tests    *service.TestService
	Sessions *service.SessionService
}

func NewAptitudeController(tests *service.TestService, sessions *service.SessionService) *AptitudeController {
	return &AptitudeController{Tests: tests, Sessions: sessions}
}

// GetTestDetails godoc
// @Summary 获取试卷说明
// @Tags 能力测试
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Success 200 {object} util.Response{data=service.TestDetails}
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /aptitude/tests/{testId} [get]
func (c *AptitudeController) GetTestDetails(ctx *gin.Context) {
	details, err := c.Tests.GetDetails(ctx.Request.Context(), ctx.Param("testId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, details)
}

// StartTest godoc
// @Summary 开始答题
// @Description 创建答题会话；已有进行中的会话时直接恢复
// @Tags 能力测试
// @Produce json
// @Security ApiKeyAuth
// @Param testId path string true "试卷ID"
// @Success 200 {object} util.Response{data=service.StartResult}
// @Failure 403 {object} util.Response "不允许重考"
// @Router /aptitude/tests/{testId}/start [post]
func (c *AptitudeController) StartTest(ctx *gin.Context) {
	student := util.GetStudentFromContext(ctx)
	if student == nil {
		util.Unauthorized(ctx)
		return
	}

	res, err := c.Sessions.StartTest(ctx.Request.Context(), student.StudentID, ctx.Param("testId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// SaveAnswer godoc
// @Summary 保存单题作答
// @Tags 能力测试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Param body body service.AnswerInput true "作答"
// @Success 200 {object} util.Response
// @Failure 410 {object} util.Response "会话已过期"
// @Router /aptitude/sessions/{sessionId}/answers [put]
func (c *AptitudeController) SaveAnswer(ctx *gin.Context) {
	student := util.GetStudentFromContext(ctx)
	if student == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AnswerInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Sessions.SaveAnswer(ctx.Request.Context(), student.StudentID, ctx.Param("sessionId"), req); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"saved": req.QuestionID})
}

type SubmitRequest struct {
	SessionID string                `json:"sessionId"`
	Answers   []service.AnswerInput `json:"answers" binding:"dive"`
}

// SubmitTest godoc
// @Summary 交卷
// @Description 提交全部作答（含未作答的 -1），由服务端评分
// @Tags 能力测试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Param body body SubmitRequest true "全部作答"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 409 {object} util.Response "已交卷或正在交卷"
// @Router /aptitude/sessions/{sessionId}/submit [post]
func (c *AptitudeController) SubmitTest(ctx *gin.Context) {
	student := util.GetStudentFromContext(ctx)
	if student == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sessionID := ctx.Param("sessionId")
	if req.SessionID != "" && req.SessionID != sessionID {
		util.BadRequest(ctx, "sessionId mismatch")
		return
	}
	answers := req.Answers
	if answers == nil {
		answers = []service.AnswerInput{}
	}

	res, err := c.Sessions.Submit(ctx.Request.Context(), student.StudentID, sessionID, answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetResult godoc
// @Summary 获取成绩
// @Tags 能力测试
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 409 {object} util.Response "尚未交卷"
// @Router /aptitude/sessions/{sessionId}/result [get]
func (c *AptitudeController) GetResult(ctx *gin.Context) {
	student := util.GetStudentFromContext(ctx)
	if student == nil {
		util.Unauthorized(ctx)
		return
	}

	res, err := c.Sessions.GetResult(ctx.Request.Context(), student.StudentID, ctx.Param("sessionId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
