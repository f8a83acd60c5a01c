package roster

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/internal/repo"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// inOpenEntry keeps pickup events whose queue entry has not been closed.
const inOpenEntry = "queue_entry_id IN (SELECT id FROM carline_queue_entries WHERE processed_at IS NULL)"

// Repository reads and writes the school roster: role profiles, students and
// parent authorizations. It holds no business rules.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) TeacherByUserID(ctx context.Context, userID uuid.UUID) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.DB(ctx).Preload("User").Where("user_id = ?", userID).Take(&teacher).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *Repository) ParentByUserID(ctx context.Context, userID uuid.UUID) (*models.Parent, error) {
	var parent models.Parent
	if err := r.DB(ctx).Preload("User").Where("user_id = ?", userID).Take(&parent).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}

func (r *Repository) DismisserByUserID(ctx context.Context, userID uuid.UUID) (*models.Dismisser, error) {
	var dismisser models.Dismisser
	if err := r.DB(ctx).Preload("User").Where("user_id = ?", userID).Take(&dismisser).Error; err != nil {
		return nil, err
	}
	return &dismisser, nil
}

func (r *Repository) ParentByID(ctx context.Context, id uuid.UUID) (*models.Parent, error) {
	var parent models.Parent
	if err := r.DB(ctx).Preload("User").Take(&parent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}

// StudentByID loads a student with teacher and pickup history, newest event first.
func (r *Repository) StudentByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var student models.Student
	err := r.DB(ctx).
		Preload("Teacher.User").
		Preload("PickupEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("PickupEvents.Parent.User").
		Preload("PickupEvents.QueueEntry").
		Take(&student, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// StudentsForTeacher lists a teacher's class with authorized parents and the
// pending or ready pickups of open queue entries, newest first.
func (r *Repository) StudentsForTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Student, error) {
	var students []models.Student
	err := r.DB(ctx).
		Preload("Parents.User").
		Preload("PickupEvents", func(db *gorm.DB) *gorm.DB {
			return db.Where("status IN ?", enums.ActivePickupStatuses).Where(inOpenEntry).Order("created_at DESC")
		}).
		Preload("PickupEvents.Parent.User").
		Where("teacher_id = ?", teacherID).
		Order("name ASC").
		Find(&students).Error
	return students, err
}

// ParentsWithStudents lists every parent with their authorized students and teachers.
func (r *Repository) ParentsWithStudents(ctx context.Context) ([]models.Parent, error) {
	var parents []models.Parent
	err := r.DB(ctx).
		Preload("User").
		Preload("Students", func(db *gorm.DB) *gorm.DB {
			return db.Order("students.name ASC")
		}).
		Preload("Students.Teacher.User").
		Find(&parents).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(parents, func(i, j int) bool {
		return parents[i].User.Name < parents[j].User.Name
	})
	return parents, nil
}

// StudentsForParent returns the students parentID is authorized to collect.
func (r *Repository) StudentsForParent(ctx context.Context, parentID uuid.UUID) ([]models.Student, error) {
	var students []models.Student
	err := r.DB(ctx).
		Preload("Teacher.User").
		Joins("JOIN student_parents sp ON sp.student_id = students.id").
		Where("sp.parent_id = ?", parentID).
		Order("students.name ASC").
		Find(&students).Error
	return students, err
}

// AuthorizedStudentIDs returns the subset of candidates parentID may collect.
func (r *Repository) AuthorizedStudentIDs(ctx context.Context, parentID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	authorized := make(map[uuid.UUID]struct{}, len(candidates))
	if len(candidates) == 0 {
		return authorized, nil
	}
	var links []models.StudentParent
	err := r.DB(ctx).
		Where("parent_id = ? AND student_id IN ?", parentID, candidates).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		authorized[link.StudentID] = struct{}{}
	}
	return authorized, nil
}

func (r *Repository) CreateStudent(ctx context.Context, student *models.Student) error {
	return r.DB(ctx).Omit("Teacher", "Parents", "PickupEvents").Create(student).Error
}

// FindStudentByName is used by the seeder to stay idempotent.
func (r *Repository) FindStudentByName(ctx context.Context, name string, teacherID uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := r.DB(ctx).Where("name = ? AND teacher_id = ?", name, teacherID).Take(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

// AuthorizeParent links a parent to a student. Existing links are left untouched.
func (r *Repository) AuthorizeParent(ctx context.Context, studentID, parentID uuid.UUID) error {
	var count int64
	conn := r.DB(ctx)
	if err := conn.Model(&models.StudentParent{}).
		Where("student_id = ? AND parent_id = ?", studentID, parentID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return conn.Create(&models.StudentParent{StudentID: studentID, ParentID: parentID}).Error
}

// ActivePickups returns not-yet-dismissed pickup events of open queue entries
// for the students, newest first, with their queue entries.
func (r *Repository) ActivePickups(ctx context.Context, studentIDs []uuid.UUID) ([]models.StudentPickupEvent, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var events []models.StudentPickupEvent
	err := r.DB(ctx).
		Preload("QueueEntry").
		Where("student_id IN ? AND status IN ?", studentIDs, enums.ActivePickupStatuses).
		Where(inOpenEntry).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}
