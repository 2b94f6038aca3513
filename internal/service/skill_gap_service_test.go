package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillGapAnalyze(t *testing.T) {
	gen := funcGenerator(func(ctx context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "Frontend Developer")
		assert.Contains(t, prompt, "DevOps Engineer")
		assert.Contains(t, prompt, "JavaScript, CSS")
		assert.Contains(t, prompt, "Target role required skills: Docker, Kubernetes, CI/CD")
		return `{
			"missingSkills": ["Docker", "Kubernetes"],
			"matchPercentage": 40,
			"estimatedTime": "4-6 months",
			"recommendations": ["Start with containers"]
		}`, nil
	})

	svc := NewSkillGapService(NewGenerationClient(gen, 2))
	report, err := svc.Analyze(context.Background(), "Frontend Developer", "DevOps Engineer",
		[]string{"JavaScript", "CSS"}, []string{"Docker", "Kubernetes", "CI/CD"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Docker", "Kubernetes"}, report.MissingSkills)
	assert.Equal(t, 40.0, report.MatchPercentage)
	assert.Equal(t, "4-6 months", report.EstimatedTime)
}

func TestSkillGapAnalyzeWithoutTargetSkillsAsksModelToInfer(t *testing.T) {
	gen := funcGenerator(func(ctx context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "infer the typical requirements")
		return `{"missingSkills": [], "matchPercentage": 90, "estimatedTime": "2 weeks", "recommendations": []}`, nil
	})

	svc := NewSkillGapService(NewGenerationClient(gen, 2))
	report, err := svc.Analyze(context.Background(), "Backend Developer", "Staff Engineer", []string{"Go"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 90.0, report.MatchPercentage)
}

func TestSkillGapRecommendCourses(t *testing.T) {
	gen := funcGenerator(func(ctx context.Context, prompt string) (string, error) {
		require.True(t, strings.Contains(prompt, "Data Analyst"))
		return "```json\n{\"courses\": [{\"title\": \"SQL Mastery\", \"description\": \"d\", \"topics\": [\"joins\"]}]}\n```", nil
	})

	svc := NewSkillGapService(NewGenerationClient(gen, 2))
	recs, err := svc.RecommendCourses(context.Background(), "Data Analyst")
	require.NoError(t, err)

	require.Len(t, recs.Courses, 1)
	assert.Equal(t, "SQL Mastery", recs.Courses[0].Title)
	assert.Equal(t, []string{"joins"}, recs.Courses[0].Topics)
}
