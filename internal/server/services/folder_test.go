package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusshare/campusshare/internal/common"
)

type folderFixture struct {
	*contentFixture
	service *FolderService
}

func newFolderFixture(t *testing.T) *folderFixture {
	t.Helper()
	cf := newContentFixture(t)
	return &folderFixture{
		contentFixture: cf,
		service:        NewFolderService(nil, cf.repos, cf.service, nopLogger{}),
	}
}

func TestFolderCreate_UnknownParent(t *testing.T) {
	f := newFolderFixture(t)
	f.addAccount(t, "acc-1", 1000)

	ghost := "no-such-folder"
	_, err := f.service.Create(context.Background(), "acc-1", "child", &ghost)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestFolderCreate_ForeignParent(t *testing.T) {
	f := newFolderFixture(t)
	f.addAccount(t, "acc-1", 1000)
	f.addAccount(t, "acc-2", 1000)

	parent, err := f.service.Create(context.Background(), "acc-1", "mine", nil)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	_, err = f.service.Create(context.Background(), "acc-2", "theirs", &parent.ID)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound for foreign parent, got %v", err)
	}
}

func TestFolderMove_RejectsCycle(t *testing.T) {
	f := newFolderFixture(t)
	f.addAccount(t, "acc-1", 1000)

	ctx := context.Background()
	a, err := f.service.Create(ctx, "acc-1", "a", nil)
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := f.service.Create(ctx, "acc-1", "b", &a.ID)
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	c, err := f.service.Create(ctx, "acc-1", "c", &b.ID)
	if err != nil {
		t.Fatalf("Create c: %v", err)
	}

	// a -> b -> c; reparenting a under c would close the loop.
	if err := f.service.Move(ctx, "acc-1", a.ID, &c.ID); !errors.Is(err, common.ErrorFolderCycle) {
		t.Fatalf("want ErrorFolderCycle, got %v", err)
	}

	// A folder under itself is the degenerate cycle.
	if err := f.service.Move(ctx, "acc-1", a.ID, &a.ID); !errors.Is(err, common.ErrorFolderCycle) {
		t.Fatalf("want ErrorFolderCycle for self-parent, got %v", err)
	}

	// A legal move still works.
	if err := f.service.Move(ctx, "acc-1", c.ID, &a.ID); err != nil {
		t.Fatalf("Move error: %v", err)
	}
	moved, err := f.repos.Folders(nil).GetByID(ctx, c.ID, "acc-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != a.ID {
		t.Fatalf("unexpected parent: %+v", moved.ParentID)
	}
}

func TestFolderMove_ToRoot(t *testing.T) {
	f := newFolderFixture(t)
	f.addAccount(t, "acc-1", 1000)

	ctx := context.Background()
	a, _ := f.service.Create(ctx, "acc-1", "a", nil)
	b, err := f.service.Create(ctx, "acc-1", "b", &a.ID)
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if err := f.service.Move(ctx, "acc-1", b.ID, nil); err != nil {
		t.Fatalf("Move to root: %v", err)
	}
	moved, err := f.repos.Folders(nil).GetByID(ctx, b.ID, "acc-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if moved.ParentID != nil {
		t.Fatalf("ParentID = %v, want nil", *moved.ParentID)
	}
}

func TestFolderRemove_CascadesSubtree(t *testing.T) {
	f := newFolderFixture(t)
	f.addAccount(t, "acc-1", 1000)

	ctx := context.Background()
	root, _ := f.service.Create(ctx, "acc-1", "root", nil)
	sub, _ := f.service.Create(ctx, "acc-1", "sub", &root.ID)

	if _, err := f.contentFixture.service.CreateFile(ctx, "acc-1", "a", &root.ID, 30, strings.NewReader(strings.Repeat("x", 30))); err != nil {
		t.Fatalf("CreateFile a: %v", err)
	}
	if _, err := f.contentFixture.service.CreateFile(ctx, "acc-1", "b", &sub.ID, 20, strings.NewReader(strings.Repeat("y", 20))); err != nil {
		t.Fatalf("CreateFile b: %v", err)
	}
	if _, err := f.contentFixture.service.CreateClip(ctx, "acc-1", "c", &sub.ID, "note"); err != nil {
		t.Fatalf("CreateClip c: %v", err)
	}
	// Content outside the subtree must survive.
	outside, err := f.contentFixture.service.CreateFile(ctx, "acc-1", "keep", nil, 10, strings.NewReader(strings.Repeat("z", 10)))
	if err != nil {
		t.Fatalf("CreateFile keep: %v", err)
	}

	freed, err := f.service.Remove(ctx, "acc-1", root.ID)
	if err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if freed != 50 {
		t.Fatalf("freed = %d, want 50", freed)
	}

	if used := f.usedBytes(t, "acc-1"); used != 10 {
		t.Fatalf("used = %d, want 10", used)
	}
	if _, err := f.repos.Folders(nil).GetByID(ctx, root.ID, "acc-1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("root folder still present: %v", err)
	}
	if _, err := f.repos.Folders(nil).GetByID(ctx, sub.ID, "acc-1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("sub folder still present: %v", err)
	}
	if _, err := f.contentFixture.service.Get(ctx, outside.ID, "acc-1"); err != nil {
		t.Fatalf("outside entry gone: %v", err)
	}
	if n := f.blobCount(t); n != 1 {
		t.Fatalf("blob count = %d, want 1", n)
	}
}

func TestFolderRemove_ForeignFolder(t *testing.T) {
	f := newFolderFixture(t)
	f.addAccount(t, "acc-1", 1000)
	f.addAccount(t, "acc-2", 1000)

	folder, _ := f.service.Create(context.Background(), "acc-1", "mine", nil)
	if _, err := f.service.Remove(context.Background(), "acc-2", folder.ID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
