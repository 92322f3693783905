// Package workspaces implements the workspace lifecycle and the membership
// ledger that gates every workspace-scoped operation.
package workspaces

import (
	"errors"
	"regexp"
	"strings"

	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/collabrium-dev/collabrium/internal/models"
	"gorm.io/gorm"
)

const (
	maxNameLength     = 70
	inviteCodeRetries = 3
)

var nameCharset = regexp.MustCompile(`^[a-zA-Z0-9 '!]+$`)

// ValidateName trims and validates a proposed workspace name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", apperr.New(apperr.Validation, "Workspace name is required")
	}

	if len(name) > maxNameLength {
		return "", apperr.New(apperr.Validation, "Workspace name must be at most 70 characters")
	}

	if !nameCharset.MatchString(name) {
		return "", apperr.New(apperr.Validation, "Workspace name may only contain letters, digits, spaces, apostrophes and exclamation marks")
	}

	return name, nil
}

func nameTaken(dbc *gorm.DB, name string, excludeID uint) (bool, error) {
	var count int64

	query := dbc.Model(&models.Workspace{}).Where("name = ?", name)

	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}

	if err := query.Count(&count).Error; err != nil {
		return false, apperr.Wrap(apperr.Persistence, "Failed to check workspace name", err)
	}

	return count > 0, nil
}

// Create inserts a workspace and its owning admin membership as one atomic
// unit. A reader can never observe a workspace with zero memberships.
func Create(dbc *gorm.DB, userID uint, name string) (*models.Workspace, models.Role, error) {
	if userID == 0 {
		return nil, "", apperr.New(apperr.Authentication, "Authentication required. User ID is missing.")
	}

	name, err := ValidateName(name)

	if err != nil {
		return nil, "", err
	}

	taken, err := nameTaken(dbc, name, 0)

	if err != nil {
		return nil, "", err
	}

	if taken {
		return nil, "", apperr.New(apperr.Conflict, "Workspace with this name already exists")
	}

	// The whole transaction is retried on invite-code collision; retrying
	// inside it would leave an aborted transaction on Postgres.
	var workspace models.Workspace

	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		workspace = models.Workspace{Name: name, InviteCode: NewInviteCode()}

		err = dbc.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&workspace).Error; err != nil {
				return err
			}

			membership := models.Membership{
				UserID:      userID,
				WorkspaceID: workspace.ID,
				Role:        models.RoleAdmin,
			}

			return tx.Create(&membership).Error
		})

		if err == nil {
			return &workspace, models.RoleAdmin, nil
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Either the name lost a race or the invite code collided.
			taken, checkErr := nameTaken(dbc, name, 0)

			if checkErr != nil {
				return nil, "", checkErr
			}

			if taken {
				return nil, "", apperr.New(apperr.Conflict, "Workspace with this name already exists")
			}

			continue
		}

		return nil, "", apperr.Wrap(apperr.Persistence, "Failed to create workspace", err)
	}

	return nil, "", apperr.Wrap(apperr.Persistence, "Could not allocate a unique invite code", err)
}

// Join adds the user to the workspace matching the invite code with role
// "user". The composite unique index on (user_id, workspace_id) is the final
// guard against concurrent duplicate joins; the existence check only gives a
// friendlier error.
func Join(dbc *gorm.DB, userID uint, inviteCode string) (*models.Workspace, models.Role, error) {
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))

	if inviteCode == "" {
		return nil, "", apperr.New(apperr.Validation, "Invite code is required")
	}

	var workspace models.Workspace

	if err := dbc.Where("invite_code = ?", inviteCode).First(&workspace).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.New(apperr.NotFound, "No workspace found for this invite code")
		}
		return nil, "", apperr.Wrap(apperr.Persistence, "Failed to look up invite code", err)
	}

	var existing models.Membership

	err := dbc.Where("user_id = ? AND workspace_id = ?", userID, workspace.ID).First(&existing).Error

	if err == nil {
		return nil, "", apperr.New(apperr.Conflict, "You are already a member of this workspace")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.Wrap(apperr.Persistence, "Failed to check membership", err)
	}

	membership := models.Membership{
		UserID:      userID,
		WorkspaceID: workspace.ID,
		Role:        models.RoleUser,
	}

	if err := dbc.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", apperr.New(apperr.Conflict, "You are already a member of this workspace")
		}
		return nil, "", apperr.Wrap(apperr.Persistence, "Failed to join workspace", err)
	}

	return &workspace, models.RoleUser, nil
}

// CheckAccess resolves the requester's role in the workspace from the
// membership ledger. Membership is checked before anything reveals whether
// the workspace exists, so non-members cannot probe for workspace IDs.
func CheckAccess(dbc *gorm.DB, userID, workspaceID uint, requiredRoles ...models.Role) (models.Role, error) {
	var membership models.Membership

	err := dbc.Where("user_id = ? AND workspace_id = ?", userID, workspaceID).First(&membership).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.New(apperr.Forbidden, "You are not a member of this workspace")
		}
		return "", apperr.Wrap(apperr.Persistence, "Failed to check membership", err)
	}

	if len(requiredRoles) == 0 {
		return membership.Role, nil
	}

	for _, role := range requiredRoles {
		if membership.Role == role {
			return membership.Role, nil
		}
	}

	return "", apperr.New(apperr.Forbidden, "You do not have the required role for this action")
}

// Update renames the workspace. Admin only; the invite code never rotates.
func Update(dbc *gorm.DB, userID, workspaceID uint, name string) (*models.Workspace, error) {
	if _, err := CheckAccess(dbc, userID, workspaceID, models.RoleAdmin); err != nil {
		return nil, err
	}

	name, err := ValidateName(name)

	if err != nil {
		return nil, err
	}

	var workspace models.Workspace

	if err := dbc.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "Workspace with this ID does not exist")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Failed to load workspace", err)
	}

	if name != workspace.Name {
		taken, err := nameTaken(dbc, name, workspaceID)

		if err != nil {
			return nil, err
		}

		if taken {
			return nil, apperr.New(apperr.Conflict, "Workspace with this name already exists")
		}
	}

	if err := dbc.Model(&workspace).Update("name", name).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "Workspace with this name already exists")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Failed to update workspace", err)
	}

	return &workspace, nil
}

// Delete removes the workspace and every descendant row (task lists, tasks,
// comments, time logs, memberships) in one transaction. Admin only.
func Delete(dbc *gorm.DB, userID, workspaceID uint) error {
	if _, err := CheckAccess(dbc, userID, workspaceID, models.RoleAdmin); err != nil {
		return err
	}

	// Destruction is permanent, so the rows are removed unscoped. A soft
	// delete would keep the workspace name and invite code occupied in their
	// unique indexes and block them from ever being reused.
	err := dbc.Transaction(func(tx *gorm.DB) error {
		listIDs := tx.Unscoped().Model(&models.TaskList{}).Select("id").Where("workspace_id = ?", workspaceID)
		taskIDs := tx.Unscoped().Model(&models.Task{}).Select("id").Where("task_list_id IN (?)", listIDs)

		if err := tx.Unscoped().Where("task_id IN (?)", taskIDs).Delete(&models.TimeLog{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("task_list_id IN (?)", listIDs).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("workspace_id = ?", workspaceID).Delete(&models.TaskList{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("workspace_id = ?", workspaceID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}

		return tx.Unscoped().Delete(&models.Workspace{}, workspaceID).Error
	})

	if err != nil {
		return apperr.Wrap(apperr.Persistence, "Failed to delete workspace", err)
	}

	return nil
}

type Summary struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	InviteCode  string      `json:"invite_code"`
	Role        models.Role `json:"role"`
	MemberCount int64       `json:"member_count"`
}

// ListForUser returns every workspace the user belongs to, with the user's
// role and the member count.
func ListForUser(dbc *gorm.DB, userID uint) ([]Summary, error) {
	var summaries []Summary

	err := dbc.Model(&models.Membership{}).
		Select("workspaces.id, workspaces.name, workspaces.invite_code, memberships.role").
		Joins("JOIN workspaces ON workspaces.id = memberships.workspace_id AND workspaces.deleted_at IS NULL").
		Where("memberships.user_id = ?", userID).
		Order("workspaces.id asc").
		Scan(&summaries).Error

	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to list workspaces", err)
	}

	for i := range summaries {
		err := dbc.Model(&models.Membership{}).
			Where("workspace_id = ?", summaries[i].ID).
			Count(&summaries[i].MemberCount).Error

		if err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "Failed to count members", err)
		}
	}

	return summaries, nil
}

type Member struct {
	ID          uint        `json:"id"`
	DisplayName string      `json:"displayname"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
}

// Members returns the workspace's member list. Any member may view it.
func Members(dbc *gorm.DB, userID, workspaceID uint) ([]Member, error) {
	if _, err := CheckAccess(dbc, userID, workspaceID); err != nil {
		return nil, err
	}

	var members []Member

	err := dbc.Model(&models.Membership{}).
		Select("users.id, users.display_name, users.email, memberships.role").
		Joins("JOIN users ON users.id = memberships.user_id AND users.deleted_at IS NULL").
		Where("memberships.workspace_id = ?", workspaceID).
		Order("users.id asc").
		Scan(&members).Error

	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to list members", err)
	}

	return members, nil
}

// Get loads a single workspace after the membership gate.
func Get(dbc *gorm.DB, userID, workspaceID uint) (*models.Workspace, models.Role, error) {
	role, err := CheckAccess(dbc, userID, workspaceID)

	if err != nil {
		return nil, "", err
	}

	var workspace models.Workspace

	if err := dbc.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.New(apperr.NotFound, "Workspace with this ID does not exist")
		}
		return nil, "", apperr.Wrap(apperr.Persistence, "Failed to load workspace", err)
	}

	return &workspace, role, nil
}
