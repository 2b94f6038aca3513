package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type CourseStatus string

const (
	CourseActive    CourseStatus = "active"
	CourseCompleted CourseStatus = "completed"
)

// Course 生成后的课程文档。modules 列整体作为 JSON 文档存储，
// 内存结构即存储结构，没有独立的序列化格式。
// swagger:model Course
type Course struct {
	BaseModel
	Title         string        `gorm:"size:255;not null;index" json:"title"`
	Description   string        `gorm:"type:text" json:"description"`
	Category      string        `gorm:"size:100" json:"category"`
	Status        CourseStatus  `gorm:"type:enum('active','completed');default:'active'" json:"status"`
	TotalProgress float64       `gorm:"default:0" json:"totalProgress"`
	Modules       CourseModules `gorm:"type:json" json:"modules"`
	UserID        *uint         `gorm:"index" json:"userId,omitempty"` // 仅技能补齐课程携带归属用户
}

func (Course) TableName() string {
	return "courses"
}

// CourseModule 课程模块，含 3 个小节与一组测验题
type CourseModule struct {
	ModuleTitle string         `json:"moduleTitle"`
	IsCompleted bool           `json:"isCompleted"`
	ModuleScore float64        `json:"moduleScore"`
	SubModules  []SubModule    `json:"subModules"`
	Quiz        []QuizQuestion `json:"quiz"`
}

// SubModule 小节内容。VideoURL 生成阶段始终为空，按需懒加载后回写。
type SubModule struct {
	SubTitle     string `json:"subTitle"`
	Explanation  string `json:"explanation"`
	Examples     string `json:"examples"`
	YoutubeQuery string `json:"youtubeQuery"`
	VideoURL     string `json:"videoURL"`
	IsCompleted  bool   `json:"isCompleted"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type CourseModules []CourseModule

func (m CourseModules) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *CourseModules) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for CourseModules")
	}
	return json.Unmarshal(data, m)
}

// StringList JSON 数组列（用户技能等）
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}
	return json.Unmarshal(data, l)
}
