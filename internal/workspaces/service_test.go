package workspaces

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/collabrium-dev/collabrium/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))

	dbc, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = dbc.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.Membership{},
		&models.TaskList{},
		&models.Task{},
		&models.Comment{},
		&models.TimeLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return dbc
}

func createTestUser(t *testing.T, dbc *gorm.DB, email string) uint {
	t.Helper()

	user := models.User{DisplayName: "Test User", Email: email, PasswordHash: "x"}

	if err := dbc.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user.ID
}

func TestCreateWorkspace(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "owner@example.com")

	workspace, role, err := Create(dbc, userID, "  Demo  ")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if role != models.RoleAdmin {
		t.Fatalf("expected role admin, got %q", role)
	}

	if workspace.Name != "Demo" {
		t.Fatalf("expected trimmed name Demo, got %q", workspace.Name)
	}

	if !regexp.MustCompile(`^[0-9A-F]{8}$`).MatchString(workspace.InviteCode) {
		t.Fatalf("invite code %q is not 8 uppercase hex chars", workspace.InviteCode)
	}

	var membership models.Membership

	err = dbc.Where("user_id = ? AND workspace_id = ?", userID, workspace.ID).First(&membership).Error
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}

	if membership.Role != models.RoleAdmin {
		t.Fatalf("expected owner membership role admin, got %q", membership.Role)
	}
}

func TestCreateWorkspaceMissingIdentity(t *testing.T) {
	dbc := newTestDB(t)

	_, _, err := Create(dbc, 0, "Demo")
	if apperr.KindOf(err) != apperr.Authentication {
		t.Fatalf("expected Authentication error, got %v", err)
	}
}

func TestCreateWorkspaceNameValidation(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "owner@example.com")

	if _, _, err := Create(dbc, userID, "A"); err != nil {
		t.Fatalf("one-character name should be accepted: %v", err)
	}

	cases := []string{
		"",
		"   ",
		strings.Repeat("a", 71),
		"Bad@Name",
		"semi;colon",
	}

	for _, name := range cases {
		_, _, err := Create(dbc, userID, name)
		if apperr.KindOf(err) != apperr.Validation {
			t.Fatalf("name %q: expected Validation error, got %v", name, err)
		}
	}
}

func TestCreateWorkspaceDuplicateName(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "owner@example.com")
	otherID := createTestUser(t, dbc, "other@example.com")

	if _, _, err := Create(dbc, userID, "Demo"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, _, err := Create(dbc, otherID, "Demo")
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict error for duplicate name, got %v", err)
	}
}

func TestCreateWorkspaceAtomicity(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "owner@example.com")

	failMemberships := func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.ModelType == reflect.TypeOf(models.Membership{}) {
			tx.AddError(errors.New("injected membership failure"))
		}
	}

	if err := dbc.Callback().Create().Before("gorm:create").Register("test_fail_membership", failMemberships); err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
	defer func() {
		if err := dbc.Callback().Create().Remove("test_fail_membership"); err != nil {
			t.Fatalf("failed to remove callback: %v", err)
		}
	}()

	_, _, err := Create(dbc, userID, "Doomed")
	if apperr.KindOf(err) != apperr.Persistence {
		t.Fatalf("expected Persistence error, got %v", err)
	}

	var count int64

	if err := dbc.Model(&models.Workspace{}).Where("name = ?", "Doomed").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if count != 0 {
		t.Fatalf("workspace row survived a failed owner-membership insert")
	}
}

func TestInviteCodeUniqueness(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "owner@example.com")

	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		workspace, _, err := Create(dbc, userID, fmt.Sprintf("Workspace %d", i))
		if err != nil {
			t.Fatalf("Create %d returned error: %v", i, err)
		}

		if seen[workspace.InviteCode] {
			t.Fatalf("invite code %q assigned twice", workspace.InviteCode)
		}

		seen[workspace.InviteCode] = true
	}
}

func TestJoinWorkspace(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	joinerID := createTestUser(t, dbc, "joiner@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	workspace, role, err := Join(dbc, joinerID, created.InviteCode)
	if err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	if role != models.RoleUser {
		t.Fatalf("expected role user, got %q", role)
	}

	if workspace.ID != created.ID || workspace.Name != "Demo" {
		t.Fatalf("joined the wrong workspace: %+v", workspace)
	}
}

func TestJoinWorkspaceUnknownCode(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "user@example.com")

	_, _, err := Join(dbc, userID, "DEADBEEF")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound error, got %v", err)
	}
}

func TestJoinWorkspaceTwice(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	joinerID := createTestUser(t, dbc, "joiner@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Join(dbc, joinerID, created.InviteCode); err != nil {
		t.Fatalf("first Join returned error: %v", err)
	}

	_, _, err = Join(dbc, joinerID, created.InviteCode)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict error for duplicate join, got %v", err)
	}

	// The creator already holds a membership row; joining by code must
	// conflict the same way.
	_, _, err = Join(dbc, ownerID, created.InviteCode)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict error for owner self-join, got %v", err)
	}
}

func TestJoinWorkspaceRaceLoserGetsConflict(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	joinerID := createTestUser(t, dbc, "joiner@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Simulate both requests passing the existence check: insert the row
	// behind the service's back, then insert again through it. The unique
	// index must surface as Conflict, not Persistence.
	membership := models.Membership{UserID: joinerID, WorkspaceID: created.ID, Role: models.RoleUser}
	if err := dbc.Create(&membership).Error; err != nil {
		t.Fatalf("failed to pre-insert membership: %v", err)
	}

	duplicate := models.Membership{UserID: joinerID, WorkspaceID: created.ID, Role: models.RoleUser}
	err = dbc.Create(&duplicate).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated-key error from composite index, got %v", err)
	}

	_, _, err = Join(dbc, joinerID, created.InviteCode)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict from Join, got %v", err)
	}
}

func TestCheckAccess(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	memberID := createTestUser(t, dbc, "member@example.com")
	strangerID := createTestUser(t, dbc, "stranger@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Join(dbc, memberID, created.InviteCode); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	// Non-member is denied, with no hint whether the workspace exists.
	if _, err := CheckAccess(dbc, strangerID, created.ID); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected Forbidden for non-member, got %v", err)
	}

	if _, err := CheckAccess(dbc, strangerID, 99999); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected Forbidden for missing workspace, got %v", err)
	}

	// Member with insufficient role.
	if _, err := CheckAccess(dbc, memberID, created.ID, models.RoleAdmin); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected Forbidden for insufficient role, got %v", err)
	}

	// Member without role requirement resolves their role.
	role, err := CheckAccess(dbc, memberID, created.ID)
	if err != nil {
		t.Fatalf("CheckAccess returned error: %v", err)
	}
	if role != models.RoleUser {
		t.Fatalf("expected role user, got %q", role)
	}

	role, err = CheckAccess(dbc, ownerID, created.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("CheckAccess returned error for admin: %v", err)
	}
	if role != models.RoleAdmin {
		t.Fatalf("expected role admin, got %q", role)
	}
}

func TestUpdateWorkspace(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	memberID := createTestUser(t, dbc, "member@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Join(dbc, memberID, created.InviteCode); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	if _, err := Update(dbc, memberID, created.ID, "Renamed"); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected Forbidden for non-admin update, got %v", err)
	}

	updated, err := Update(dbc, ownerID, created.ID, "Renamed")
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Name != "Renamed" {
		t.Fatalf("expected name Renamed, got %q", updated.Name)
	}

	if updated.InviteCode != created.InviteCode {
		t.Fatalf("invite code rotated on rename: %q -> %q", created.InviteCode, updated.InviteCode)
	}

	if _, err := Update(dbc, ownerID, created.ID, "Bad@Name"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected Validation error, got %v", err)
	}

	if _, _, err := Create(dbc, ownerID, "Other"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := Update(dbc, ownerID, created.ID, "Other"); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict for duplicate rename, got %v", err)
	}
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	memberID := createTestUser(t, dbc, "member@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Join(dbc, memberID, created.InviteCode); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	list := models.TaskList{Title: "Backlog", WorkspaceID: created.ID}
	if err := dbc.Create(&list).Error; err != nil {
		t.Fatalf("failed to create task list: %v", err)
	}

	task := models.Task{Title: "Ship it", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium, TaskListID: list.ID, CreatedByID: ownerID}
	if err := dbc.Create(&task).Error; err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	comment := models.Comment{TaskID: task.ID, UserID: memberID, Content: "on it"}
	if err := dbc.Create(&comment).Error; err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}

	if err := Delete(dbc, memberID, created.ID); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected Forbidden for non-admin delete, got %v", err)
	}

	if err := Delete(dbc, ownerID, created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	counts := map[string]interface{}{
		"workspaces":  &models.Workspace{},
		"memberships": &models.Membership{},
		"task lists":  &models.TaskList{},
		"tasks":       &models.Task{},
		"comments":    &models.Comment{},
	}

	for name, model := range counts {
		var count int64

		// Unscoped: destruction must leave no soft-deleted residue behind.
		if err := dbc.Unscoped().Model(model).Count(&count).Error; err != nil {
			t.Fatalf("count %s failed: %v", name, err)
		}

		if count != 0 {
			t.Fatalf("expected zero %s after delete, found %d", name, count)
		}
	}
}

func TestDeleteWorkspaceFreesName(t *testing.T) {
	dbc := newTestDB(t)
	userID := createTestUser(t, dbc, "owner@example.com")

	first, _, err := Create(dbc, userID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := Delete(dbc, userID, first.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	second, role, err := Create(dbc, userID, "Demo")
	if err != nil {
		t.Fatalf("Create after delete returned error: %v", err)
	}

	if role != models.RoleAdmin {
		t.Fatalf("expected role admin, got %q", role)
	}

	if second.ID == first.ID {
		t.Fatalf("recreated workspace reused ID %d", first.ID)
	}
}

func TestNameCheckFailureIsPersistence(t *testing.T) {
	dbc := newTestDB(t)

	if err := dbc.Migrator().DropTable(&models.Workspace{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	_, err := nameTaken(dbc, "Demo", 0)
	if err == nil {
		t.Fatal("expected error from nameTaken on missing table")
	}

	if apperr.KindOf(err) != apperr.Persistence {
		t.Fatalf("expected Persistence kind, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	memberID := createTestUser(t, dbc, "member@example.com")

	first, _, err := Create(dbc, ownerID, "First")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Create(dbc, ownerID, "Second"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Join(dbc, memberID, first.InviteCode); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	mine, err := ListForUser(dbc, memberID)
	if err != nil {
		t.Fatalf("ListForUser returned error: %v", err)
	}

	if len(mine) != 1 {
		t.Fatalf("expected 1 workspace for member, got %d", len(mine))
	}

	if mine[0].Name != "First" || mine[0].Role != models.RoleUser || mine[0].MemberCount != 2 {
		t.Fatalf("unexpected summary: %+v", mine[0])
	}

	owned, err := ListForUser(dbc, ownerID)
	if err != nil {
		t.Fatalf("ListForUser returned error: %v", err)
	}

	if len(owned) != 2 {
		t.Fatalf("expected 2 workspaces for owner, got %d", len(owned))
	}
}

func TestMembers(t *testing.T) {
	dbc := newTestDB(t)
	ownerID := createTestUser(t, dbc, "owner@example.com")
	memberID := createTestUser(t, dbc, "member@example.com")
	strangerID := createTestUser(t, dbc, "stranger@example.com")

	created, _, err := Create(dbc, ownerID, "Demo")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, _, err := Join(dbc, memberID, created.InviteCode); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	if _, err := Members(dbc, strangerID, created.ID); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected Forbidden for stranger, got %v", err)
	}

	members, err := Members(dbc, memberID, created.ID)
	if err != nil {
		t.Fatalf("Members returned error: %v", err)
	}

	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	roles := map[uint]models.Role{}
	for _, member := range members {
		roles[member.ID] = member.Role
	}

	if roles[ownerID] != models.RoleAdmin || roles[memberID] != models.RoleUser {
		t.Fatalf("unexpected member roles: %v", roles)
	}
}
