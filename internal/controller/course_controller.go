package controller

import (
	"errors"
	"strconv"

	"nextrole_backend/internal/repository"
	"nextrole_backend/internal/service"
	"nextrole_backend/internal/util"
	"nextrole_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CourseController struct {
	Agent      *service.CourseAgentService
	Videos     *service.VideoService
	Archive    *service.ArchiveService
	CourseRepo *repository.CourseRepository
}

func NewCourseController(agent *service.CourseAgentService, videos *service.VideoService, archive *service.ArchiveService, courseRepo *repository.CourseRepository) *CourseController {
	return &CourseController{
		Agent:      agent,
		Videos:     videos,
		Archive:    archive,
		CourseRepo: courseRepo,
	}
}

// GetContent godoc
// @Summary 按标题获取课程内容
// @Description 标题命中返回已有课程，未命中则生成并入库后返回
// @Tags 课程
// @Produce  json
// @Param   title query string true "课程标题或主题"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 400 {object} util.Response "缺少标题"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/courses/content [get]
func (c *CourseController) GetContent(ctx *gin.Context) {
	title := ctx.Query("title")
	if title == "" {
		util.BadRequest(ctx, "title is required")
		return
	}

	course, err := c.Agent.GetCourseContent(ctx.Request.Context(), title)
	if err != nil {
		// 生成成功但入库失败：内容照常返回，提示未持久化
		if course != nil {
			util.SuccessWithMessage(ctx, "course generated but not persisted", course)
			return
		}
		if errors.Is(err, util.ErrOutlineGeneration) {
			util.Error(ctx, 502, "course generation failed")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// swagger:model GenerateCourseRequest
type GenerateCourseRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// Generate godoc
// @Summary 生成开放主题课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body GenerateCourseRequest true "课程主题"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/courses/generate [post]
func (c *CourseController) Generate(ctx *gin.Context) {
	var req GenerateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Agent.GenerateCourse(ctx.Request.Context(), req.Topic)
	if err != nil {
		if course != nil {
			util.SuccessWithMessage(ctx, "course generated but not persisted", course)
			return
		}
		util.Error(ctx, 502, "course generation failed")
		return
	}

	util.Success(ctx, course)
}

// swagger:model UpskillingRequest
type UpskillingRequest struct {
	Email         string   `json:"email"`
	MissingSkills []string `json:"missingSkills" binding:"required"`
	CurrentSkills []string `json:"currentSkills"`
}

// GenerateUpskilling godoc
// @Summary 基于技能缺口生成定向课程
// @Description 固定三个模块，类别为 Upskilling，总是新建记录
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body UpskillingRequest true "邮箱与缺失技能"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/courses/upskilling [post]
func (c *CourseController) GenerateUpskilling(ctx *gin.Context) {
	var req UpskillingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Agent.GenerateUpskillingCourse(ctx.Request.Context(), req.Email, req.MissingSkills, req.CurrentSkills)
	if err != nil {
		if course != nil {
			util.SuccessWithMessage(ctx, "course generated but not persisted", course)
			return
		}
		util.Error(ctx, 502, "course generation failed")
		return
	}

	util.Success(ctx, course)
}

// List godoc
// @Summary 分页列出课程
// @Tags 课程
// @Produce  json
// @Param   page query int false "页码，默认 1"
// @Param   limit query int false "每页数量，默认 20"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	courses, total, err := c.CourseRepo.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"courses": courses,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// Get godoc
// @Summary 按 ID 获取课程
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "未找到"
// @Router /api/courses/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	course, err := c.CourseRepo.FindByID(uint(id))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, course)
}

// Completed godoc
// @Summary 列出已完成课程
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /api/courses/completed [get]
func (c *CourseController) Completed(ctx *gin.Context) {
	courses, err := c.CourseRepo.FindByStatus("completed")
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// Delete godoc
// @Summary 删除课程
// @Description 删除前把课程 JSON 快照写入归档存储，归档失败则拒绝删除
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "未找到"
// @Router /api/courses/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	course, err := c.CourseRepo.FindByID(uint(id))
	if err != nil {
		util.NotFound(ctx)
		return
	}

	object, err := c.Archive.ArchiveCourse(ctx.Request.Context(), course)
	if err != nil {
		logger.Log.Error("course archive failed, delete aborted",
			zap.Uint("courseId", course.ID), zap.Error(err))
		util.LogInternalError(ctx, err)
		return
	}

	if err := c.CourseRepo.Delete(course.ID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"archived": object})
}

// UpdateProgress godoc
// @Summary 更新小节完成进度
// @Description 重算模块完成状态与课程总进度，满进度时课程标记为已完成
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Param   body body service.ProgressUpdate true "进度变更"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "未找到"
// @Router /api/courses/{id}/progress [patch]
func (c *CourseController) UpdateProgress(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	var update service.ProgressUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Agent.UpdateProgress(uint(id), update)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, course)
}

// GetVideo godoc
// @Summary 懒加载小节视频
// @Description 已有链接直接返回，否则检索并回写课程记录
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程 ID"
// @Param   module query int true "模块下标"
// @Param   sub query int true "小节下标"
// @Success 200 {object} util.Response{data=service.VideoResult} "成功"
// @Failure 404 {object} util.Response "未找到"
// @Router /api/courses/{id}/video [get]
func (c *CourseController) GetVideo(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}
	moduleIndex, err := strconv.Atoi(ctx.Query("module"))
	if err != nil || moduleIndex < 0 {
		util.BadRequest(ctx, "invalid module index")
		return
	}
	subIndex, err := strconv.Atoi(ctx.Query("sub"))
	if err != nil || subIndex < 0 {
		util.BadRequest(ctx, "invalid sub-module index")
		return
	}

	video, err := c.Videos.ResolveSubModuleVideo(ctx.Request.Context(), uint(id), moduleIndex, subIndex)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, video)
}
