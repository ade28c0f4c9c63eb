package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"taskwell/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, repo *UserRepository, id, email string, provider model.AuthProvider) *model.User {
	t.Helper()
	user := &model.User{ID: id, Email: email, AuthProvider: provider}
	if provider == model.ProviderPassword {
		hash := "hash-" + id
		user.PasswordHash = &hash
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	createUser(t, repo, "u1", "a@x.com", model.ProviderPassword)

	err := repo.Create(context.Background(), &model.User{ID: "u2", Email: "a@x.com", AuthProvider: model.ProviderGoogle})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserFindMissing(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	if _, err := repo.FindByEmail(context.Background(), "nobody@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound by email, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound by id, got %v", err)
	}
}

func TestUpgradeToPasswordOnlyForGoogleAccounts(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	createUser(t, repo, "g1", "g@x.com", model.ProviderGoogle)
	createUser(t, repo, "p1", "p@x.com", model.ProviderPassword)

	if err := repo.UpgradeToPassword(ctx, "p1", "new"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected password account to be skipped, got %v", err)
	}
	if err := repo.UpgradeToPassword(ctx, "g1", "new-hash"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	upgraded, err := repo.FindByID(ctx, "g1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	cred, err := upgraded.Credential()
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if pc, ok := cred.(model.PasswordCredential); !ok || pc.Hash != "new-hash" {
		t.Fatalf("expected password credential with new hash, got %#v", cred)
	}

	if err := repo.UpdatePasswordHash(ctx, "g1", "newer"); err != nil {
		t.Fatalf("update password after upgrade: %v", err)
	}
}

func TestUpdateProfilePersistsPreferences(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	createUser(t, repo, "u1", "a@x.com", model.ProviderPassword)

	name := "Ann Lee"
	err := repo.UpdateProfile(ctx, "u1", ProfileUpdate{
		Name:           &name,
		Preferences:    map[string]any{"theme": "dark", "pomodoro": float64(25)},
		SetPreferences: true,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}

	user, err := repo.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.Name != name {
		t.Fatalf("expected name %q, got %q", name, user.Name)
	}
	if user.Preferences["theme"] != "dark" || user.Preferences["pomodoro"] != float64(25) {
		t.Fatalf("unexpected preferences %v", user.Preferences)
	}

	if err := repo.UpdateProfile(ctx, "missing", ProfileUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTelegramChatBelongsToOneUser(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	createUser(t, repo, "u1", "a@x.com", model.ProviderPassword)
	createUser(t, repo, "u2", "b@x.com", model.ProviderPassword)
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	expires := now.Add(10 * time.Minute)

	if err := repo.SetTelegramLinkCode(ctx, "u1", "CODEAAAA", expires); err != nil {
		t.Fatalf("set code u1: %v", err)
	}
	if err := repo.SetTelegramLinkCode(ctx, "u2", "CODEBBBB", expires); err != nil {
		t.Fatalf("set code u2: %v", err)
	}
	if err := repo.SetTelegramLinkCode(ctx, "u2", "CODEAAAA", expires); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected a held code to be refused, got %v", err)
	}

	if _, err := repo.LinkTelegramChat(ctx, "CODEAAAA", 4242, now); err != nil {
		t.Fatalf("link u1: %v", err)
	}
	if _, err := repo.LinkTelegramChat(ctx, "CODEBBBB", 4242, now); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected a second account to be refused the chat, got %v", err)
	}
	second, err := repo.FindByID(ctx, "u2")
	if err != nil {
		t.Fatalf("find u2: %v", err)
	}
	if second.TelegramChatID != nil {
		t.Fatalf("expected u2 to stay unlinked, got %d", *second.TelegramChatID)
	}

	// The unique index holds even when the lookup is bypassed.
	chat := int64(4242)
	err = repo.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", "u2").Update("telegram_chat_id", chat).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected the unique index to reject a shared chat, got %v", err)
	}

	owner, err := repo.FindByTelegramChatID(ctx, 4242)
	if err != nil || owner.ID != "u1" {
		t.Fatalf("expected u1 to own the chat, got %v (%v)", owner, err)
	}
	linked, err := repo.ListWithTelegram(ctx)
	if err != nil {
		t.Fatalf("list telegram: %v", err)
	}
	if len(linked) != 1 || linked[0].ID != "u1" {
		t.Fatalf("expected one linked user, got %v", linked)
	}

	if err := repo.UpdateProfile(ctx, "u1", ProfileUpdate{ClearTelegramChat: true}); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if _, err := repo.FindByTelegramChatID(ctx, 4242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected chat to be free after unlinking, got %v", err)
	}
	if err := repo.SetTelegramLinkCode(ctx, "u2", "CODECCCC", expires); err != nil {
		t.Fatalf("new code u2: %v", err)
	}
	if _, err := repo.LinkTelegramChat(ctx, "CODECCCC", 4242, now); err != nil {
		t.Fatalf("expected u2 to link the freed chat: %v", err)
	}
}

func TestTaskStatementsAreScopedByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	task := &model.Task{UserID: "alice", Title: "Buy milk", Category: "Home", Priority: "Low", Status: model.StatusPending}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Update(ctx, "bob", task.ID, map[string]interface{}{"task": "hijacked"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
	if err := repo.MarkCompleted(ctx, "bob", task.ID, time.Now(), 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign complete, got %v", err)
	}
	if err := repo.Delete(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}

	stored, err := repo.FindByID(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Title != "Buy milk" || stored.Status != model.StatusPending {
		t.Fatalf("expected task untouched, got %+v", stored)
	}

	bobTasks, err := repo.ListByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bobTasks) != 0 {
		t.Fatalf("expected bob to see no tasks, got %d", len(bobTasks))
	}
}

func TestMarkCompletedScoresRecurringOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	task := &model.Task{UserID: "alice", Title: "Stretch", Category: "Health", Priority: "Medium", Status: model.StatusPending, Recurring: true, ConsistencyScore: 95}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := repo.MarkCompleted(ctx, "alice", task.ID, at, 10); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	stored, err := repo.FindByID(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %q", stored.Status)
	}
	if stored.ConsistencyScore != 100 {
		t.Fatalf("expected score capped at 100, got %d", stored.ConsistencyScore)
	}
	if stored.LastCompleted == nil || !stored.LastCompleted.Equal(at) {
		t.Fatalf("expected last_completed %v, got %v", at, stored.LastCompleted)
	}
}

func TestCompletionCountsAndGrouping(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	total, completed, err := repo.CompletionCounts(ctx, "alice")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 0 || completed != 0 {
		t.Fatalf("expected zero counts, got %d/%d", completed, total)
	}

	seed := []model.Task{
		{UserID: "alice", Title: "a", Category: "Work", Priority: "High", Status: model.StatusCompleted},
		{UserID: "alice", Title: "b", Category: "Work", Priority: "Low", Status: model.StatusPending},
		{UserID: "alice", Title: "c", Category: "Home", Priority: "High", Status: model.StatusPending},
		{UserID: "bob", Title: "d", Category: "Work", Priority: "High", Status: model.StatusCompleted},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	total, completed, err = repo.CompletionCounts(ctx, "alice")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 3 || completed != 1 {
		t.Fatalf("expected 1/3, got %d/%d", completed, total)
	}

	byCategory, err := repo.CountBy(ctx, "alice", GroupByCategory)
	if err != nil {
		t.Fatalf("count by category: %v", err)
	}
	if len(byCategory) != 2 || byCategory["Work"] != 2 || byCategory["Home"] != 1 {
		t.Fatalf("unexpected category counts %v", byCategory)
	}

	if _, err := repo.CountBy(ctx, "alice", GroupColumn("user_id")); err == nil {
		t.Fatal("expected unsupported column error")
	}
}

func TestIsPostgresDSN(t *testing.T) {
	tests := map[string]bool{
		"postgres://user:pw@localhost/db":   true,
		"postgresql://user@db.example.com/x": true,
		"taskwell.db":                        false,
		"file:data/app.db?cache=shared":      false,
		":memory:":                           false,
	}
	for dsn, want := range tests {
		if got := isPostgresDSN(dsn); got != want {
			t.Fatalf("isPostgresDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}
