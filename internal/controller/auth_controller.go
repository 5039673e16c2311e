package controller

import (
	"aptitude_backend/internal/service"
	"aptitude_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// swagger:model StudentLoginRequest
type StudentLoginRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	TestID    string `json:"testId"`
	CollegeID string `json:"collegeId"`
}

// swagger:model StudentLoginResponse
type StudentLoginResponse struct {
	StudentID           string `json:"studentId"`
	StudentAccessToken  string `json:"student_access_token"`
	StudentRefreshToken string `json:"student_refresh_token"`
	Message             string `json:"message"`
}

// Login godoc
// @Summary 学生登录
// @Description 校验邮箱密码，返回访问令牌与刷新令牌
// @Tags 能力测试-认证
// @Accept  json
// @Produce  json
// @Param   body body StudentLoginRequest true "登录凭据"
// @Success 200 {object} util.Response{data=StudentLoginResponse} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /aptitude/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req StudentLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.ErrMissingFields.Error())
		return
	}

	res, err := c.AuthService.Login(ctx.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		TestID:    req.TestID,
		CollegeID: req.CollegeID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, StudentLoginResponse{
		StudentID:           res.StudentID,
		StudentAccessToken:  res.AccessToken,
		StudentRefreshToken: res.RefreshToken,
		Message:             "Login successful",
	})
}

// swagger:model StudentRegisterRequest
type StudentRegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Degree     string `json:"degree"`
	University string `json:"university"`
	Gender     string `json:"gender"`
	Password   string `json:"password"`
	TestID     string `json:"testId"`
	CollegeID  string `json:"collegeId"`
}

// swagger:model StudentRegisterResponse
type StudentRegisterResponse struct {
	StudentID string `json:"studentId"`
	Token     string `json:"token"`
}

// Register godoc
// @Summary 学生注册
// @Description 注册学生账号并返回访问令牌
// @Tags 能力测试-认证
// @Accept  json
// @Produce  json
// @Param   body body StudentRegisterRequest true "注册信息"
// @Success 201 {object} util.Response{data=StudentRegisterResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /aptitude/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req StudentRegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.Register(ctx.Request.Context(), service.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Degree:     req.Degree,
		University: req.University,
		Gender:     req.Gender,
		Password:   req.Password,
		TestID:     req.TestID,
		CollegeID:  req.CollegeID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, StudentRegisterResponse{StudentID: res.StudentID, Token: res.Token})
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh godoc
// @Summary 刷新令牌
// @Description 使用刷新令牌换取新的令牌对，旧刷新令牌立即失效
// @Tags 能力测试-认证
// @Accept  json
// @Produce  json
// @Param   body body RefreshRequest true "刷新令牌"
// @Success 200 {object} util.Response{data=StudentLoginResponse} "成功"
// @Failure 401 {object} util.Response "令牌无效"
// @Router /aptitude/auth/refresh [post]
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, StudentLoginResponse{
		StudentID:           res.StudentID,
		StudentAccessToken:  res.AccessToken,
		StudentRefreshToken: res.RefreshToken,
		Message:             "Token refreshed",
	})
}
