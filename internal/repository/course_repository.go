package repository

import (
	"nextrole_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// FindByTitle 按标题精确查找（不区分大小写）
func (r *CourseRepository) FindByTitle(title string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("LOWER(title) = LOWER(?)", title).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

// Upsert 按标题覆盖写入：存在则原地替换字段，否则新建。
// 先查后写，同名课程的并发生成存在竞态，后写者覆盖（见 DESIGN.md）。
func (r *CourseRepository) Upsert(course *model.Course) error {
	existing, err := r.FindByTitle(course.Title)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.DB.Create(course).Error
		}
		return err
	}

	course.ID = existing.ID
	course.CreatedAt = existing.CreatedAt
	return r.DB.Save(course).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Course{}, id).Error
}

func (r *CourseRepository) List(page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	if err := r.DB.Model(&model.Course{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.DB.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) FindByUser(userID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindByStatus(status model.CourseStatus) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("status = ?", status).Order("updated_at DESC").Find(&courses).Error
	return courses, err
}
