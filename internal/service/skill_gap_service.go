package service

import (
	"context"
	"fmt"
	"strings"

	"nextrole_backend/pkg/tracing"
)

// SkillGapReport 技能差距分析结果
type SkillGapReport struct {
	MissingSkills   []string `json:"missingSkills"`
	MatchPercentage float64  `json:"matchPercentage"`
	EstimatedTime   string   `json:"estimatedTime"`
	Recommendations []string `json:"recommendations"`
}

// RecommendedCourse 面向目标岗位的课程推荐条目
type RecommendedCourse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
}

type RoleRecommendations struct {
	Courses []RecommendedCourse `json:"courses"`
}

// SkillGapService 技能差距分析与岗位课程推荐，复用统一的生成客户端
type SkillGapService struct {
	client *GenerationClient
}

func NewSkillGapService(client *GenerationClient) *SkillGapService {
	return &SkillGapService{client: client}
}

// Analyze 对比现有技能与目标岗位要求，给出缺口与学习建议。
// targetRoleSkills 为空时由模型自行推断目标岗位的技能要求。
func (s *SkillGapService) Analyze(ctx context.Context, currentRole, targetRole string, skills, targetRoleSkills []string) (*SkillGapReport, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SkillGap.Analyze")
	defer span.End()

	required := "infer the typical requirements for the target role"
	if len(targetRoleSkills) > 0 {
		required = strings.Join(targetRoleSkills, ", ")
	}

	prompt := fmt.Sprintf(`Analyze the skill gap for a career transition.

Current role: %s
Target role: %s
Current skills: %s
Target role required skills: %s

Compare the current skills against the target role's required skills.
Treat semantically equivalent skills as a match, e.g. "React.js" matches "React".

Return a single JSON object:
{
  "missingSkills": ["skills the person lacks for the target role"],
  "matchPercentage": 0-100,
  "estimatedTime": "realistic time to close the gap, e.g. '3-6 months'",
  "recommendations": ["short actionable learning recommendations"]
}`, currentRole, targetRole, strings.Join(skills, ", "), required)

	var report SkillGapReport
	if err := s.client.GenerateJSON(ctx, "skill_gap", prompt, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// RecommendCourses 为当前岗位推荐 2-3 门进阶课程主题
func (s *SkillGapService) RecommendCourses(ctx context.Context, currentRole string) (*RoleRecommendations, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SkillGap.RecommendCourses")
	defer span.End()

	prompt := fmt.Sprintf(`Recommend 2 to 3 advancement courses for someone currently working as: %s

Return a single JSON object:
{
  "courses": [
    {"title": "...", "description": "one sentence", "topics": ["...", "..."]}
  ]
}`, currentRole)

	var recs RoleRecommendations
	if err := s.client.GenerateJSON(ctx, "recommendations", prompt, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}
