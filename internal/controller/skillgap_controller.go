package controller

import (
	"nextrole_backend/internal/service"
	"nextrole_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SkillGapController struct {
	SkillGap *service.SkillGapService
}

func NewSkillGapController(skillGap *service.SkillGapService) *SkillGapController {
	return &SkillGapController{SkillGap: skillGap}
}

// swagger:model SkillGapRequest
type SkillGapRequest struct {
	CurrentRole      string   `json:"currentRole" binding:"required"`
	TargetRole       string   `json:"targetRole" binding:"required"`
	Skills           []string `json:"skills"`
	TargetRoleSkills []string `json:"targetRoleSkills"`
}

// Analyze godoc
// @Summary 技能差距分析
// @Description 对比现有技能与目标岗位，返回缺口、匹配度与学习建议
// @Tags 技能
// @Accept  json
// @Produce  json
// @Param   body body SkillGapRequest true "岗位与技能信息"
// @Success 200 {object} util.Response{data=service.SkillGapReport} "成功"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/skills/analyze [post]
func (c *SkillGapController) Analyze(ctx *gin.Context) {
	var req SkillGapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	report, err := c.SkillGap.Analyze(ctx.Request.Context(), req.CurrentRole, req.TargetRole, req.Skills, req.TargetRoleSkills)
	if err != nil {
		util.Error(ctx, 502, "skill gap analysis failed")
		return
	}
	util.Success(ctx, report)
}

// Recommendations godoc
// @Summary 岗位课程推荐
// @Description 为当前岗位推荐进阶课程主题
// @Tags 技能
// @Produce  json
// @Param   role query string true "当前岗位"
// @Success 200 {object} util.Response{data=service.RoleRecommendations} "成功"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/skills/recommendations [get]
func (c *SkillGapController) Recommendations(ctx *gin.Context) {
	role := ctx.Query("role")
	if role == "" {
		util.BadRequest(ctx, "role is required")
		return
	}

	recs, err := c.SkillGap.RecommendCourses(ctx.Request.Context(), role)
	if err != nil {
		util.Error(ctx, 502, "recommendation generation failed")
		return
	}
	util.Success(ctx, recs)
}
