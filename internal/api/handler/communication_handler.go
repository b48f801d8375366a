package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/pkg/response"
)

// ListAnnouncements 公告列表
// @Summary 公告列表（按时间升序）
// @Tags 通信
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Announcement}
// @Failure 500 {object} response.Response
// @Router /communications [get]
func (h *Handler) ListAnnouncements(c *gin.Context) {
	list, err := h.commService.ListAnnouncements(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, list)
}

// AddAnnouncement 发布公告（仅管理员）
// @Summary 发布公告
// @Tags 通信
// @Accept json
// @Produce json
// @Param request body model.AddAnnouncement true "公告"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /communications [post]
func (h *Handler) AddAnnouncement(c *gin.Context) {
	var req model.AddAnnouncement
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// 服务层不校验管理员身份，由这里负责
	admin, err := h.commService.IsAdmin(c.Request.Context(), req.Token)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !admin {
		response.Forbidden(c, "admin token required")
		return
	}
	if err := h.commService.AddAnnouncement(c.Request.Context(), req); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListQuestions 提问列表
// @Summary 提问列表（管理员可见全部，选手仅见自己的）
// @Tags 通信
// @Produce json
// @Param token path string true "用户 token"
// @Success 200 {object} response.Response{data=[]model.Question}
// @Failure 500 {object} response.Response
// @Router /communications/{token} [get]
func (h *Handler) ListQuestions(c *gin.Context) {
	list, err := h.commService.ListQuestions(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, list)
}

// AskQuestion 提问
// @Summary 提交问题
// @Tags 通信
// @Accept json
// @Produce json
// @Param token path string true "用户 token"
// @Param request body model.AskQuestion true "问题"
// @Success 200 {object} response.Response{data=model.Question}
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /communications/{token} [post]
func (h *Handler) AskQuestion(c *gin.Context) {
	var req model.AskQuestion
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	q, err := h.commService.AddQuestion(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, q)
}

// AnswerQuestion 回答问题（仅管理员，覆盖已有回答）
// @Summary 回答问题
// @Tags 通信
// @Accept json
// @Produce json
// @Param token path string true "管理员 token"
// @Param id path int true "问题 ID"
// @Param request body model.AnswerQuestion true "回答"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /communications/{token}/{id} [post]
func (h *Handler) AnswerQuestion(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req model.AnswerQuestion
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token := c.Param("token")
	admin, err := h.commService.IsAdmin(c.Request.Context(), token)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !admin {
		response.Forbidden(c, "admin token required")
		return
	}
	ok, err := h.commService.AnswerQuestion(c.Request.Context(), token, id, req.Content)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !ok {
		response.NotFound(c, "question not found")
		return
	}
	response.Success(c, nil)
}
