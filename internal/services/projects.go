package services

import (
	"time"

	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type CreateProjectInput struct {
	Name        string
	Description string
	ChannelID   string
	Color       string
}

type ProjectPatch struct {
	Name        *string
	Description *string
	ChannelID   *string
	Color       *string
}

type ProjectService interface {
	Create(db *gorm.DB, ownerID uuid.UUID, input CreateProjectInput) (*models.Project, error)
	Get(db *gorm.DB, id uuid.UUID) (*models.Project, error)
	ByChannel(db *gorm.DB, channelID string) (*models.Project, error)
	Update(db *gorm.DB, actorID, id uuid.UUID, patch ProjectPatch) (*models.Project, error)
	Archive(db *gorm.DB, actorID, id uuid.UUID) error
	List(db *gorm.DB, includeArchived bool) ([]models.Project, error)
	Search(db *gorm.DB, query string) ([]models.Project, error)
	ProjectsForUser(db *gorm.DB, userID uuid.UUID) ([]models.Project, error)
	AddMember(db *gorm.DB, actorID, projectID, userID uuid.UUID) error
	RemoveMember(db *gorm.DB, actorID, projectID, userID uuid.UUID) error
	AddFieldDef(db *gorm.DB, actorID uuid.UUID, def models.CustomFieldDef) (*models.CustomFieldDef, error)
	RemoveFieldDef(db *gorm.DB, actorID, fieldID uuid.UUID) error
	FieldDefs(db *gorm.DB, projectID uuid.UUID) ([]models.CustomFieldDef, error)
}

type ProjectServiceImpl struct{}

func NewProjectService() *ProjectServiceImpl {
	return &ProjectServiceImpl{}
}

func (s *ProjectServiceImpl) Create(db *gorm.DB, ownerID uuid.UUID, input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, validationErr("project name is required")
	}

	var owner models.User
	if err := db.Where("id = ?", ownerID).First(&owner).Error; err != nil {
		return nil, wrapNotFound(err, "user %s", ownerID)
	}

	color := input.Color
	if color == "" {
		color = "#3498db"
	}

	project := models.Project{
		ID:          uuid.Must(uuid.NewV4()),
		Name:        input.Name,
		Description: input.Description,
		ChannelID:   input.ChannelID,
		Color:       color,
		OwnerID:     ownerID,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return tx.Model(&project).Association("Members").Append(&owner)
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectServiceImpl) Get(db *gorm.DB, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := db.
		Preload("Members").
		Preload("Fields").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, wrapNotFound(err, "project %s", id)
	}
	return &project, nil
}

func (s *ProjectServiceImpl) ByChannel(db *gorm.DB, channelID string) (*models.Project, error) {
	var project models.Project
	err := db.
		Preload("Members").
		Where("channel_id = ? AND is_active = ?", channelID, true).
		First(&project).Error
	if err != nil {
		return nil, wrapNotFound(err, "project for channel %s", channelID)
	}
	return &project, nil
}

func (s *ProjectServiceImpl) Update(db *gorm.DB, actorID, id uuid.UUID, patch ProjectPatch) (*models.Project, error) {
	project, err := s.Get(db, id)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, permissionErr("user %s is not a member of project %s", actorID, id)
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, validationErr("project name cannot be empty")
		}
		project.Name = *patch.Name
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}
	if patch.ChannelID != nil {
		project.ChannelID = *patch.ChannelID
	}
	if patch.Color != nil {
		project.Color = *patch.Color
	}
	project.UpdatedAt = time.Now()

	if err := db.Save(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Archive clears the active flag. Archived projects disappear from
// listings but keep their tasks and history.
func (s *ProjectServiceImpl) Archive(db *gorm.DB, actorID, id uuid.UUID) error {
	project, err := s.Get(db, id)
	if err != nil {
		return err
	}
	if project.OwnerID != actorID {
		return permissionErr("only the project owner can archive project %s", id)
	}
	return db.Model(project).Update("is_active", false).Error
}

func (s *ProjectServiceImpl) List(db *gorm.DB, includeArchived bool) ([]models.Project, error) {
	var projects []models.Project
	query := db.Preload("Members")
	if !includeArchived {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("created_at").Find(&projects).Error
	return projects, err
}

func (s *ProjectServiceImpl) Search(db *gorm.DB, query string) ([]models.Project, error) {
	var projects []models.Project
	pattern := "%" + query + "%"
	err := db.
		Preload("Members").
		Where("is_active = ?", true).
		Where("name LIKE ? OR description LIKE ?", pattern, pattern).
		Find(&projects).Error
	return projects, err
}

func (s *ProjectServiceImpl) ProjectsForUser(db *gorm.DB, userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := db.
		Preload("Members").
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ? AND projects.is_active = ?", userID, true).
		Find(&projects).Error
	return projects, err
}

func (s *ProjectServiceImpl) AddMember(db *gorm.DB, actorID, projectID, userID uuid.UUID) error {
	project, err := s.Get(db, projectID)
	if err != nil {
		return err
	}
	if !project.HasMember(actorID) {
		return permissionErr("user %s is not a member of project %s", actorID, projectID)
	}
	if project.HasMember(userID) {
		return nil
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return wrapNotFound(err, "user %s", userID)
	}
	return db.Model(project).Association("Members").Append(&user)
}

func (s *ProjectServiceImpl) RemoveMember(db *gorm.DB, actorID, projectID, userID uuid.UUID) error {
	project, err := s.Get(db, projectID)
	if err != nil {
		return err
	}
	if !project.HasMember(actorID) {
		return permissionErr("user %s is not a member of project %s", actorID, projectID)
	}
	if userID == project.OwnerID {
		return validationErr("the project owner cannot be removed")
	}
	if !project.HasMember(userID) {
		return notFoundErr("user %s in project %s", userID, projectID)
	}
	return db.Model(project).Association("Members").Delete(&models.User{ID: userID})
}

func (s *ProjectServiceImpl) AddFieldDef(db *gorm.DB, actorID uuid.UUID, def models.CustomFieldDef) (*models.CustomFieldDef, error) {
	project, err := s.Get(db, def.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actorID {
		return nil, permissionErr("only the project owner can manage custom fields")
	}
	if def.Name == "" {
		return nil, validationErr("field name is required")
	}
	if !def.Type.Valid() {
		return nil, validationErr("unknown field type %q", def.Type)
	}
	if (def.Type == models.FieldTypeSelect || def.Type == models.FieldTypeMultiSelect) && len(def.Options) == 0 {
		return nil, validationErr("field %q needs at least one option", def.Name)
	}

	for _, existing := range project.Fields {
		if existing.Name == def.Name {
			return nil, conflictErr("field %q already exists on project %s", def.Name, def.ProjectID)
		}
	}

	def.ID = uuid.Must(uuid.NewV4())
	def.CreatedAt = time.Now()
	if err := db.Create(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *ProjectServiceImpl) RemoveFieldDef(db *gorm.DB, actorID, fieldID uuid.UUID) error {
	var def models.CustomFieldDef
	if err := db.Where("id = ?", fieldID).First(&def).Error; err != nil {
		return wrapNotFound(err, "custom field %s", fieldID)
	}

	project, err := s.Get(db, def.ProjectID)
	if err != nil {
		return err
	}
	if project.OwnerID != actorID {
		return permissionErr("only the project owner can manage custom fields")
	}
	return db.Delete(&def).Error
}

func (s *ProjectServiceImpl) FieldDefs(db *gorm.DB, projectID uuid.UUID) ([]models.CustomFieldDef, error) {
	var defs []models.CustomFieldDef
	err := db.Where("project_id = ?", projectID).Order("created_at").Find(&defs).Error
	return defs, err
}
