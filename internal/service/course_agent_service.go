package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nextrole_backend/internal/model"
	"nextrole_backend/internal/util"
	"nextrole_backend/pkg/logger"
	"nextrole_backend/pkg/monitoring"
	"nextrole_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseStore 课程存取接口，service 层只依赖该子集，便于测试替换
type CourseStore interface {
	FindByTitle(title string) (*model.Course, error)
	FindByID(id uint) (*model.Course, error)
	Create(course *model.Course) error
	Update(course *model.Course) error
	Upsert(course *model.Course) error
}

// UserFinder 按邮箱查用户，用于技能补齐课程归属
type UserFinder interface {
	FindByEmail(email string) (*model.User, error)
}

// CourseOutline 大纲生成阶段的轻量结构，只有标题层次没有正文
type CourseOutline struct {
	CourseTitle       string           `json:"courseTitle"`
	CourseDescription string           `json:"courseDescription"`
	Category          string           `json:"category"`
	Modules           []ModuleSkeleton `json:"modules"`
}

type ModuleSkeleton struct {
	ModuleTitle string              `json:"moduleTitle"`
	SubModules  []SubModuleSkeleton `json:"subModules"`
}

type SubModuleSkeleton struct {
	SubTitle string `json:"subTitle"`
}

// moduleDetails 模块详情生成阶段的远端输出结构
type moduleDetails struct {
	SubModules []subModuleContent   `json:"subModules"`
	Quiz       []model.QuizQuestion `json:"quiz"`
}

type subModuleContent struct {
	SubTitle     string `json:"subTitle"`
	Explanation  string `json:"explanation"`
	Examples     string `json:"examples"`
	YoutubeQuery string `json:"youtube_query"`
}

// 详情缺失时的占位文案，保证课程结构完整可渲染
const (
	placeholderExplanation = "Content generation failed."
	placeholderExamples    = "No examples provided."
)

// CourseAgentService 课程生成编排：大纲 -> 并发模块详情 -> 组装入库
type CourseAgentService struct {
	client      *GenerationClient
	courses     CourseStore
	users       UserFinder
	concurrency atomic.Int32
}

func NewCourseAgentService(client *GenerationClient, courses CourseStore, users UserFinder, concurrency int) *CourseAgentService {
	s := &CourseAgentService{
		client:  client,
		courses: courses,
		users:   users,
	}
	s.SetConcurrency(concurrency)
	return s
}

// SetConcurrency 运行时调整模块并发上限，非法值回落到 8。配置热加载会调用。
func (s *CourseAgentService) SetConcurrency(n int) {
	if n <= 0 {
		n = 8
	}
	s.concurrency.Store(int32(n))
}

// GenerateCourseOutline 生成课程大纲：5-7 个模块，每模块固定 3 个小节。
// 生成失败返回 nil 与错误，不产生部分结果。
func (s *CourseAgentService) GenerateCourseOutline(ctx context.Context, topic string) (*CourseOutline, error) {
	ctx, span := tracing.Tracer.Start(ctx, "CourseAgent.GenerateOutline")
	defer span.End()

	prompt := fmt.Sprintf(`Design a complete course outline for the topic: "%s".

Requirements:
- Between 5 and 7 modules.
- Each module has exactly 3 sub-modules.
- Module titles are short descriptive names for the module's theme.
- Every sub-module title follows the pattern "Section [N]: ..." where N
  restarts at 1 within each module, e.g. "Section 1: Introduction to Variables".
- Titles must be concrete and specific to the topic, never generic.

Return a single JSON object with this exact structure:
{
  "courseTitle": "...",
  "courseDescription": "...",
  "category": "...",
  "modules": [
    {
      "moduleTitle": "...",
      "subModules": [
        {"subTitle": "Section 1: ..."},
        {"subTitle": "Section 2: ..."},
        {"subTitle": "Section 3: ..."}
      ]
    }
  ]
}`, topic)

	var outline CourseOutline
	if err := s.client.GenerateJSON(ctx, "outline", prompt, &outline); err != nil {
		return nil, err
	}
	if len(outline.Modules) == 0 {
		logger.Log.Warn("outline has no modules", zap.String("topic", topic))
		return nil, util.ErrOutlineGeneration
	}
	return &outline, nil
}

// generateModuleDetails 为单个模块生成小节正文与测验
func (s *CourseAgentService) generateModuleDetails(ctx context.Context, courseTitle string, skeleton ModuleSkeleton) (*moduleDetails, error) {
	subTitles := make([]string, 0, len(skeleton.SubModules))
	for _, sub := range skeleton.SubModules {
		subTitles = append(subTitles, "- "+sub.SubTitle)
	}

	prompt := fmt.Sprintf(`You are writing detailed content for one module of the course "%s".

Module: "%s"
Sub-modules:
%s

For EACH sub-module above, write:
- "subTitle": the sub-module title exactly as given.
- "explanation": a thorough explanation of the topic (several paragraphs).
- "examples": concrete worked examples or code samples.
- "youtube_query": a short search query for finding a tutorial video on this sub-module.

Also write a "quiz": 3 to 5 multiple-choice questions covering this module, each with exactly 4 options and a "correctAnswer" that matches one option verbatim.

Return a single JSON object:
{
  "subModules": [
    {"subTitle": "...", "explanation": "...", "examples": "...", "youtube_query": "..."}
  ],
  "quiz": [
    {"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": "..."}
  ]
}`, courseTitle, skeleton.ModuleTitle, strings.Join(subTitles, "\n"))

	var details moduleDetails
	if err := s.client.GenerateJSON(ctx, "module_details", prompt, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// processModule 生成并组装单个模块。小节顺序以大纲骨架为准，
// 详情按标题匹配回填，匹配不到的小节用占位内容兜底；
// 详情整体生成失败返回 nil，由上层丢弃该模块。
func (s *CourseAgentService) processModule(ctx context.Context, courseTitle, skillFocus string, skeleton ModuleSkeleton) *model.CourseModule {
	details, err := s.generateModuleDetails(ctx, courseTitle, skeleton)
	if err != nil {
		logger.Log.Error("module details generation failed, dropping module",
			zap.String("module", skeleton.ModuleTitle),
			zap.Error(err),
		)
		return nil
	}

	// 标题匹配放宽为去空白 + 忽略大小写，模型回写标题时常有这类抖动
	byTitle := make(map[string]subModuleContent, len(details.SubModules))
	for _, sub := range details.SubModules {
		byTitle[strings.ToLower(strings.TrimSpace(sub.SubTitle))] = sub
	}

	subModules := make([]model.SubModule, 0, len(skeleton.SubModules))
	for _, sk := range skeleton.SubModules {
		sub := model.SubModule{
			SubTitle:     sk.SubTitle,
			Explanation:  placeholderExplanation,
			Examples:     placeholderExamples,
			YoutubeQuery: fmt.Sprintf("%s tutorial %s", sk.SubTitle, skillFocus),
		}
		if content, ok := byTitle[strings.ToLower(strings.TrimSpace(sk.SubTitle))]; ok {
			if content.Explanation != "" {
				sub.Explanation = content.Explanation
			}
			if content.Examples != "" {
				sub.Examples = content.Examples
			}
			if content.YoutubeQuery != "" {
				sub.YoutubeQuery = content.YoutubeQuery
			}
		} else {
			logger.Log.Warn("sub-module content missing from details, using placeholders",
				zap.String("module", skeleton.ModuleTitle),
				zap.String("subModule", sk.SubTitle),
			)
		}
		subModules = append(subModules, sub)
	}

	return &model.CourseModule{
		ModuleTitle: skeleton.ModuleTitle,
		SubModules:  subModules,
		Quiz:        details.Quiz,
	}
}

// assembleModules 并发生成全部模块详情。并发度受信号量约束，
// 结果按大纲顺序落位，失败模块被丢弃不阻塞其余模块。
func (s *CourseAgentService) assembleModules(ctx context.Context, courseTitle, skillFocus string, skeletons []ModuleSkeleton) model.CourseModules {
	results := make([]*model.CourseModule, len(skeletons))
	sem := make(chan struct{}, s.concurrency.Load())
	var wg sync.WaitGroup

	for i, skeleton := range skeletons {
		wg.Add(1)
		go func(i int, skeleton ModuleSkeleton) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.processModule(ctx, courseTitle, skillFocus, skeleton)
		}(i, skeleton)
	}
	wg.Wait()

	modules := make(model.CourseModules, 0, len(skeletons))
	for _, m := range results {
		if m != nil {
			modules = append(modules, *m)
		}
	}
	return modules
}

// GenerateCourse 完整生成一门开放主题课程并入库（按标题 upsert）。
// 入库失败时课程对象与错误同时返回，调用方可把内容透传给前端。
func (s *CourseAgentService) GenerateCourse(ctx context.Context, topic string) (*model.Course, error) {
	ctx, span := tracing.Tracer.Start(ctx, "CourseAgent.GenerateCourse")
	defer span.End()
	start := time.Now()

	outline, err := s.GenerateCourseOutline(ctx, topic)
	if err != nil {
		monitoring.GenerationCounter.WithLabelValues("course", "error").Inc()
		return nil, util.ErrOutlineGeneration
	}

	modules := s.assembleModules(ctx, outline.CourseTitle, topic, outline.Modules)

	category := outline.Category
	if category == "" {
		category = topic
	}

	course := &model.Course{
		Title:       outline.CourseTitle,
		Description: outline.CourseDescription,
		Category:    category,
		Status:      model.CourseActive,
		Modules:     modules,
	}

	logger.Log.Info("course generated",
		zap.String("title", course.Title),
		zap.Int("modulesRequested", len(outline.Modules)),
		zap.Int("modulesGenerated", len(modules)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := s.courses.Upsert(course); err != nil {
		logger.Log.Error("failed to persist course", zap.String("title", course.Title), zap.Error(err))
		return course, fmt.Errorf("persist course: %w", err)
	}
	monitoring.GenerationCounter.WithLabelValues("course", "ok").Inc()
	return course, nil
}

// GenerateUpskillingCourse 基于技能缺口生成定向课程。
// 与开放主题课程不同：固定 3 个模块、类别强制为 Upskilling、
// 总是新建记录，并尽力关联请求用户（查不到不算失败）。
func (s *CourseAgentService) GenerateUpskillingCourse(ctx context.Context, email string, missingSkills, currentSkills []string) (*model.Course, error) {
	ctx, span := tracing.Tracer.Start(ctx, "CourseAgent.GenerateUpskillingCourse")
	defer span.End()

	focus := "Next Level"
	if len(missingSkills) > 0 && missingSkills[0] != "" {
		focus = missingSkills[0]
	}
	title := fmt.Sprintf("Upskilling: Bridging the Gap to %s", focus)

	var userID *uint
	if email != "" && s.users != nil {
		user, err := s.users.FindByEmail(email)
		if err != nil {
			logger.Log.Warn("user lookup failed, course will be unowned",
				zap.String("email", email), zap.Error(err))
		} else {
			userID = &user.ID
		}
	}

	prompt := fmt.Sprintf(`Design a focused upskilling course outline titled "%s".

The learner is missing these skills: %s
The learner already knows: %s

Requirements:
- Exactly 3 modules, one concentrated area of the missing skills per module.
- Each module has exactly 3 sub-modules.
- Module titles name the skill being taught, never a generic label
  disconnected from the content.
- Every sub-module title follows the pattern "Section [N]: ..." where N
  restarts at 1 within each module, e.g. "Section 1: Setup and Config".

Return a single JSON object:
{
  "courseTitle": "%s",
  "courseDescription": "...",
  "modules": [
    {"moduleTitle": "...", "subModules": [{"subTitle": "Section 1: ..."}, {"subTitle": "Section 2: ..."}, {"subTitle": "Section 3: ..."}]}
  ]
}`, title, strings.Join(missingSkills, ", "), strings.Join(currentSkills, ", "), title)

	var outline CourseOutline
	if err := s.client.GenerateJSON(ctx, "upskilling_outline", prompt, &outline); err != nil {
		return nil, util.ErrOutlineGeneration
	}
	if len(outline.Modules) == 0 {
		return nil, util.ErrOutlineGeneration
	}

	modules := s.assembleModules(ctx, title, focus, outline.Modules)

	course := &model.Course{
		Title:       title,
		Description: outline.CourseDescription,
		Category:    "Upskilling",
		Status:      model.CourseActive,
		Modules:     modules,
		UserID:      userID,
	}

	if err := s.courses.Create(course); err != nil {
		logger.Log.Error("failed to persist upskilling course", zap.String("title", title), zap.Error(err))
		return course, fmt.Errorf("persist course: %w", err)
	}
	logger.Log.Info("upskilling course created",
		zap.String("title", title),
		zap.Int("modules", len(modules)),
		zap.Bool("owned", userID != nil),
	)
	return course, nil
}

// GetCourseContent 课程内容门面：标题命中直接返回已存课程，
// 未命中则触发一次完整生成。对同一标题重复调用是幂等的。
func (s *CourseAgentService) GetCourseContent(ctx context.Context, title string) (*model.Course, error) {
	course, err := s.courses.FindByTitle(title)
	if err == nil {
		return course, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	logger.Log.Info("course not found, generating", zap.String("title", title))
	return s.GenerateCourse(ctx, title)
}

// ProgressUpdate 单个小节的完成状态变更
type ProgressUpdate struct {
	ModuleIndex    int      `json:"moduleIndex" binding:"min=0"`
	SubModuleIndex int      `json:"subModuleIndex" binding:"min=0"`
	Completed      bool     `json:"completed"`
	ModuleScore    *float64 `json:"moduleScore,omitempty"`
}

// UpdateProgress 应用小节完成状态并重算模块与课程进度。
// 所有小节完成即标记模块完成；总进度为已完成小节占比，
// 达到 100% 时课程状态翻转为 completed。
func (s *CourseAgentService) UpdateProgress(id uint, update ProgressUpdate) (*model.Course, error) {
	course, err := s.courses.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	if update.ModuleIndex >= len(course.Modules) {
		return nil, fmt.Errorf("module index %d out of range", update.ModuleIndex)
	}
	mod := &course.Modules[update.ModuleIndex]
	if update.SubModuleIndex >= len(mod.SubModules) {
		return nil, fmt.Errorf("sub-module index %d out of range", update.SubModuleIndex)
	}

	mod.SubModules[update.SubModuleIndex].IsCompleted = update.Completed
	if update.ModuleScore != nil {
		mod.ModuleScore = *update.ModuleScore
	}

	total, done := 0, 0
	for mi := range course.Modules {
		m := &course.Modules[mi]
		allDone := len(m.SubModules) > 0
		for _, sub := range m.SubModules {
			total++
			if sub.IsCompleted {
				done++
			} else {
				allDone = false
			}
		}
		m.IsCompleted = allDone
	}
	if total > 0 {
		course.TotalProgress = float64(done) / float64(total) * 100
	}
	if course.TotalProgress >= 100 {
		course.Status = model.CourseCompleted
	} else {
		course.Status = model.CourseActive
	}

	if err := s.courses.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}
