package model

// CourseModule is a unit of study that materials and quizzes attach to.
type CourseModule struct {
	BaseModel
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	OwnerID     uint       `gorm:"index;type:bigint unsigned" json:"ownerId"`
	Order       int        `gorm:"default:0" json:"order"`
	Materials   []Material `gorm:"foreignKey:ModuleID" json:"materials,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

// Material is the study text quiz generation draws from. Binary course
// files live outside this service; only title and description text are
// fed to the generation prompt.
type Material struct {
	BaseModel
	ModuleID    uint   `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	UploaderID  uint   `gorm:"index;type:bigint unsigned" json:"uploaderId"`
	Order       int    `gorm:"default:0" json:"order"`
}

func (Material) TableName() string {
	return "materials"
}
