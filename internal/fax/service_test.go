package fax_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/fax"
)

type mockFaxRepository struct {
	faxes        map[int64]*fax.Fax
	permissions  map[int64]map[int64]bool
	comments     map[int64][]*fax.Comment
	users        map[int64]bool
	departments  map[int64]bool
	nextID       int64
	createError  error
	replaceError error
	// staleStatus confirms the row between the service's read and its
	// write, standing in for a concurrent confirm.
	staleStatus bool
}

func newMockFaxRepository() *mockFaxRepository {
	return &mockFaxRepository{
		faxes:       make(map[int64]*fax.Fax),
		permissions: make(map[int64]map[int64]bool),
		comments:    make(map[int64][]*fax.Comment),
		users:       make(map[int64]bool),
		departments: make(map[int64]bool),
		nextID:      1,
	}
}

func (m *mockFaxRepository) Create(f *fax.Fax) (int64, error) {
	if m.createError != nil {
		return 0, m.createError
	}
	id := m.nextID
	m.nextID++
	stored := *f
	stored.ID = id
	m.faxes[id] = &stored
	return id, nil
}

func (m *mockFaxRepository) GetByID(id int64) (*fax.Fax, error) {
	f, ok := m.faxes[id]
	if !ok {
		return nil, internal.ErrFaxNotFound
	}
	clone := *f
	return &clone, nil
}

func (m *mockFaxRepository) List(requesterID int64) ([]*fax.Fax, error) {
	var out []*fax.Fax
	for _, f := range m.faxes {
		clone := *f
		memberIDs, _ := m.GroupMemberIDs(f)
		users := make(map[int64]bool)
		for _, mid := range memberIDs {
			for uid := range m.permissions[mid] {
				users[uid] = true
			}
		}
		clone.PermissionsCount = int64(len(users))
		clone.CommentsCount = int64(len(m.comments[f.ID]))
		clone.IsPermitted = users[requesterID]
		out = append(out, &clone)
	}
	return out, nil
}

func (m *mockFaxRepository) UpdateStatus(id int64, status string) (bool, error) {
	f, ok := m.faxes[id]
	if !ok {
		return false, nil
	}
	if m.staleStatus {
		f.Status = fax.StatusConfirmed
	}
	if f.Status != fax.StatusPending {
		return false, nil
	}
	f.Status = status
	return true, nil
}

func (m *mockFaxRepository) GroupMemberIDs(f *fax.Fax) ([]int64, error) {
	if f.GroupID == nil {
		return []int64{f.ID}, nil
	}
	var ids []int64
	for id, other := range m.faxes {
		if other.GroupID != nil && *other.GroupID == *f.GroupID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = []int64{f.ID}
	}
	return ids, nil
}

func (m *mockFaxRepository) UpdateGroupDepartment(faxIDs []int64, departmentID *int64) error {
	for _, id := range faxIDs {
		if f, ok := m.faxes[id]; ok {
			f.AssignedDepartmentID = departmentID
		}
	}
	return nil
}

func (m *mockFaxRepository) GroupPermissions(faxIDs []int64) ([]*fax.Permission, error) {
	seen := make(map[int64]bool)
	var out []*fax.Permission
	for _, id := range faxIDs {
		for uid := range m.permissions[id] {
			if !seen[uid] {
				seen[uid] = true
				out = append(out, &fax.Permission{UserID: uid})
			}
		}
	}
	return out, nil
}

func (m *mockFaxRepository) ReplaceGroupPermissions(faxIDs []int64, userIDs []int64) error {
	if m.replaceError != nil {
		return m.replaceError
	}
	for _, id := range faxIDs {
		delete(m.permissions, id)
		if len(userIDs) == 0 {
			continue
		}
		set := make(map[int64]bool, len(userIDs))
		for _, uid := range userIDs {
			set[uid] = true
		}
		m.permissions[id] = set
	}
	return nil
}

func (m *mockFaxRepository) HasGroupPermission(faxIDs []int64, userID int64) (bool, bool, error) {
	restricted := false
	permitted := false
	for _, id := range faxIDs {
		if len(m.permissions[id]) > 0 {
			restricted = true
		}
		if m.permissions[id][userID] {
			permitted = true
		}
	}
	return restricted, permitted, nil
}

func (m *mockFaxRepository) ListComments(faxID int64) ([]*fax.Comment, error) {
	return m.comments[faxID], nil
}

func (m *mockFaxRepository) CreateComment(c *fax.Comment) (int64, error) {
	id := m.nextID
	m.nextID++
	stored := *c
	stored.ID = id
	stored.CreatedAt = time.Now()
	m.comments[c.FaxID] = append(m.comments[c.FaxID], &stored)
	return id, nil
}

func (m *mockFaxRepository) UsersExist(userIDs []int64) (bool, error) {
	for _, id := range userIDs {
		if !m.users[id] {
			return false, nil
		}
	}
	return true, nil
}

func (m *mockFaxRepository) DepartmentExists(id int64) (bool, error) {
	return m.departments[id], nil
}

type mockFileStore struct {
	saved   map[string][]byte
	removed []string
	nextID  int
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{saved: make(map[string][]byte)}
}

func (m *mockFileStore) Save(src io.Reader, originalName string) (string, error) {
	m.nextID++
	name := originalName
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	m.saved[name] = data
	return name, nil
}

func (m *mockFileStore) Open(name string) (*os.File, error) {
	return nil, errors.New("not supported in mock")
}

func (m *mockFileStore) Remove(name string) error {
	m.removed = append(m.removed, name)
	delete(m.saved, name)
	return nil
}

func testStorageConfig() internal.StorageConfig {
	return internal.StorageConfig{
		UploadDir:    "uploads",
		MaxFileSize:  10 << 20,
		AllowedTypes: []string{"application/pdf", "image/png"},
	}
}

func appErrorCode(err error) internal.ErrorCode {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

var _ = Describe("Fax service", func() {
	var (
		repo    *mockFaxRepository
		store   *mockFileStore
		service *fax.Service

		intake   *internal.Requester
		manager  *internal.Requester
		admin    *internal.Requester
		standard *internal.Requester
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	uploadFax := func(requester *internal.Requester, groupID string) *fax.Fax {
		dto := fax.UploadDTO{FaxNumber: "555-0100", SenderName: "Acme", GroupID: groupID}
		f, err := service.Upload(requester, dto, bytes.NewReader([]byte("%PDF-1.4")), "doc.pdf", "application/pdf")
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	BeforeEach(func() {
		repo = newMockFaxRepository()
		store = newMockFileStore()
		service = fax.NewService(repo, store, testStorageConfig(), testLogger)

		intake = &internal.Requester{ID: 1, Role: internal.RoleFaxIntake, DepartmentID: deptID(7)}
		manager = &internal.Requester{ID: 2, Role: internal.RoleManager}
		admin = &internal.Requester{ID: 3, Role: internal.RoleAdmin}
		standard = &internal.Requester{ID: 4, Role: internal.RoleStandard, DepartmentID: deptID(7)}

		for id := int64(1); id <= 10; id++ {
			repo.users[id] = true
		}
		repo.departments[7] = true
		repo.departments[9] = true
	})

	Describe("Upload", func() {
		It("rejects standard users", func() {
			dto := fax.UploadDTO{FaxNumber: "555-0100", SenderName: "Acme"}
			_, err := service.Upload(standard, dto, bytes.NewReader(nil), "doc.pdf", "application/pdf")
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeUploadRoleRequired))
		})

		It("rejects disallowed file types", func() {
			dto := fax.UploadDTO{FaxNumber: "555-0100", SenderName: "Acme"}
			_, err := service.Upload(intake, dto, bytes.NewReader(nil), "doc.exe", "application/octet-stream")
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("requires fax number and sender name", func() {
			_, err := service.Upload(intake, fax.UploadDTO{}, bytes.NewReader(nil), "doc.pdf", "application/pdf")
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("defaults the department to the uploader's and starts pending", func() {
			f := uploadFax(intake, "")
			Expect(f.Status).To(Equal(fax.StatusPending))
			Expect(f.AssignedDepartmentID).To(Equal(intake.DepartmentID))
			Expect(f.GroupID).To(BeNil())
		})

		It("tags every file of a submission with the shared group id", func() {
			first := uploadFax(intake, "batch-abc")
			second := uploadFax(intake, "batch-abc")
			third := uploadFax(intake, "batch-abc")

			for _, f := range []*fax.Fax{first, second, third} {
				Expect(f.GroupID).NotTo(BeNil())
				Expect(*f.GroupID).To(Equal("batch-abc"))
			}
			Expect(repo.faxes).To(HaveLen(3))
		})

		It("removes the stored file when the insert fails", func() {
			repo.createError = errors.New("insert failed")
			dto := fax.UploadDTO{FaxNumber: "555-0100", SenderName: "Acme"}
			_, err := service.Upload(intake, dto, bytes.NewReader([]byte("x")), "doc.pdf", "application/pdf")
			Expect(err).To(HaveOccurred())
			Expect(store.removed).To(ContainElement("doc.pdf"))
		})
	})

	Describe("ListFaxes", func() {
		BeforeEach(func() {
			uploadFax(intake, "") // dept 7, id 1
		})

		It("shows privileged roles everything", func() {
			faxes, err := service.ListFaxes(admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(faxes).To(HaveLen(1))
			Expect(faxes[0].IsPermitted).To(BeTrue())
		})

		It("filters standard users by department when no explicit permissions exist", func() {
			faxes, err := service.ListFaxes(standard)
			Expect(err).NotTo(HaveOccurred())
			Expect(faxes).To(HaveLen(1))

			outsider := &internal.Requester{ID: 9, Role: internal.RoleStandard, DepartmentID: deptID(9)}
			faxes, err = service.ListFaxes(outsider)
			Expect(err).NotTo(HaveOccurred())
			Expect(faxes).To(BeEmpty())
		})

		It("supersedes department visibility once explicit permissions exist", func() {
			outsider := &internal.Requester{ID: 9, Role: internal.RoleStandard, DepartmentID: deptID(9)}
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{outsider.ID}})).To(Succeed())

			// The listed outsider gains access.
			faxes, err := service.ListFaxes(outsider)
			Expect(err).NotTo(HaveOccurred())
			Expect(faxes).To(HaveLen(1))

			// The unlisted department member loses it.
			faxes, err = service.ListFaxes(standard)
			Expect(err).NotTo(HaveOccurred())
			Expect(faxes).To(BeEmpty())
		})

		It("restores department visibility when permissions are cleared", func() {
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{9}})).To(Succeed())
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{}})).To(Succeed())

			faxes, err := service.ListFaxes(standard)
			Expect(err).NotTo(HaveOccurred())
			Expect(faxes).To(HaveLen(1))
		})
	})

	Describe("UpdateStatus", func() {
		BeforeEach(func() {
			uploadFax(intake, "")
		})

		It("confirms a pending fax for any user with read access", func() {
			Expect(service.UpdateStatus(standard, 1, fax.UpdateStatusDTO{Status: fax.StatusConfirmed})).To(Succeed())
			Expect(repo.faxes[1].Status).To(Equal(fax.StatusConfirmed))
		})

		It("rejects a second confirmation without side effects", func() {
			Expect(service.UpdateStatus(admin, 1, fax.UpdateStatusDTO{Status: fax.StatusConfirmed})).To(Succeed())
			err := service.UpdateStatus(admin, 1, fax.UpdateStatusDTO{Status: fax.StatusConfirmed})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeIllegalTransition))
		})

		It("treats a concurrent confirmation as an illegal transition", func() {
			repo.staleStatus = true
			err := service.UpdateStatus(admin, 1, fax.UpdateStatusDTO{Status: fax.StatusConfirmed})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeIllegalTransition))
			Expect(repo.faxes[1].Status).To(Equal(fax.StatusConfirmed))
		})

		It("rejects unknown status values", func() {
			err := service.UpdateStatus(admin, 1, fax.UpdateStatusDTO{Status: "archived"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeIllegalTransition))
			Expect(repo.faxes[1].Status).To(Equal(fax.StatusPending))
		})

		It("denies users without read access", func() {
			outsider := &internal.Requester{ID: 9, Role: internal.RoleStandard, DepartmentID: deptID(9)}
			err := service.UpdateStatus(outsider, 1, fax.UpdateStatusDTO{Status: fax.StatusConfirmed})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAccessDenied))
		})

		It("returns not-found for unknown faxes", func() {
			err := service.UpdateStatus(admin, 99, fax.UpdateStatusDTO{Status: fax.StatusConfirmed})
			Expect(errors.Is(err, internal.ErrFaxNotFound)).To(BeTrue())
		})
	})

	Describe("SetPermissions", func() {
		BeforeEach(func() {
			uploadFax(intake, "batch-1") // ids 1..3 share the group
			uploadFax(intake, "batch-1")
			uploadFax(intake, "batch-1")
		})

		It("is manager-only, excluding admins", func() {
			err := service.SetPermissions(admin, 1, fax.SetPermissionsDTO{UserIDs: []int64{4}})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeManagerOnly))
		})

		It("fans the replacement out to every group member", func() {
			Expect(service.SetPermissions(manager, 2, fax.SetPermissionsDTO{UserIDs: []int64{4, 5}})).To(Succeed())

			for _, id := range []int64{1, 2, 3} {
				Expect(repo.permissions[id]).To(HaveLen(2), "member %d", id)
			}
		})

		It("silently drops malformed user ids", func() {
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{0, -3, 4}})).To(Succeed())

			for _, id := range []int64{1, 2, 3} {
				Expect(repo.permissions[id]).To(HaveLen(1), "member %d", id)
				Expect(repo.permissions[id][4]).To(BeTrue())
			}
		})

		It("reverts to department visibility when only malformed ids are sent", func() {
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{4}})).To(Succeed())
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{0, -1}})).To(Succeed())

			for _, id := range []int64{1, 2, 3} {
				Expect(repo.permissions[id]).To(BeEmpty(), "member %d", id)
			}
		})

		It("rejects unknown users", func() {
			err := service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{999}})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("aggregates distinct users across the group on read", func() {
			Expect(service.SetPermissions(manager, 1, fax.SetPermissionsDTO{UserIDs: []int64{4, 5}})).To(Succeed())

			permissions, err := service.GetPermissions(manager, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(permissions).To(HaveLen(2))
		})
	})

	Describe("AssignDepartment", func() {
		BeforeEach(func() {
			uploadFax(intake, "batch-1")
			uploadFax(intake, "batch-1")
		})

		It("allows managers and fans out to the whole group", func() {
			Expect(service.AssignDepartment(manager, 1, fax.AssignDepartmentDTO{DepartmentID: deptID(9)})).To(Succeed())

			for _, id := range []int64{1, 2} {
				Expect(repo.faxes[id].AssignedDepartmentID).NotTo(BeNil())
				Expect(*repo.faxes[id].AssignedDepartmentID).To(Equal(int64(9)))
			}
		})

		It("denies admins", func() {
			err := service.AssignDepartment(admin, 1, fax.AssignDepartmentDTO{DepartmentID: deptID(9)})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeManagerOnly))
		})

		It("rejects unknown departments", func() {
			err := service.AssignDepartment(manager, 1, fax.AssignDepartmentDTO{DepartmentID: deptID(999)})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("Comments", func() {
		BeforeEach(func() {
			uploadFax(intake, "")
		})

		It("lets a department member comment and read back", func() {
			comment, err := service.AddComment(standard, 1, fax.CommentDTO{Comment: "please review"})
			Expect(err).NotTo(HaveOccurred())
			Expect(comment.ID).NotTo(BeZero())

			comments, err := service.ListComments(standard, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(1))
			Expect(comments[0].Body).To(Equal("please review"))
		})

		It("gates comments by the same visibility rule", func() {
			outsider := &internal.Requester{ID: 9, Role: internal.RoleStandard, DepartmentID: deptID(9)}
			_, err := service.AddComment(outsider, 1, fax.CommentDTO{Comment: "hi"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAccessDenied))

			_, err = service.ListComments(outsider, 1)
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAccessDenied))
		})

		It("rejects blank comments", func() {
			_, err := service.AddComment(standard, 1, fax.CommentDTO{Comment: "   "})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))
		})
	})
})
