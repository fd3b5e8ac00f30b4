package user_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/user"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

type mockUserRepository struct {
	users       map[int64]*user.User
	references  map[int64]int64
	departments map[int64]bool
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:       make(map[int64]*user.User),
		references:  make(map[int64]int64),
		departments: make(map[int64]bool),
	}
}

func (m *mockUserRepository) List() ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepository) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) UpdateRole(id int64, role internal.Role) error {
	u, ok := m.users[id]
	if !ok {
		return internal.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (m *mockUserRepository) UpdateDepartment(id int64, departmentID *int64) error {
	u, ok := m.users[id]
	if !ok {
		return internal.ErrUserNotFound
	}
	u.DepartmentID = departmentID
	return nil
}

func (m *mockUserRepository) Delete(id int64) error {
	if _, ok := m.users[id]; !ok {
		return internal.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) CountReferences(id int64) (int64, error) {
	return m.references[id], nil
}

func (m *mockUserRepository) DepartmentExists(id int64) (bool, error) {
	return m.departments[id], nil
}

func appErrorCode(err error) internal.ErrorCode {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func deptID(id int64) *int64 {
	return &id
}

var _ = Describe("User service", func() {
	var (
		repo    *mockUserRepository
		service *user.Service

		admin    *internal.Requester
		manager  *internal.Requester
		standard *internal.Requester
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	BeforeEach(func() {
		repo = newMockUserRepository()
		service = user.NewService(repo, testLogger)

		admin = &internal.Requester{ID: 1, Role: internal.RoleAdmin}
		manager = &internal.Requester{ID: 2, Role: internal.RoleManager}
		standard = &internal.Requester{ID: 3, Role: internal.RoleStandard}

		repo.users[1] = &user.User{ID: 1, Username: "root", Role: internal.RoleAdmin}
		repo.users[3] = &user.User{ID: 3, Username: "alice", Role: internal.RoleStandard}
		repo.departments[7] = true
	})

	Describe("UpdateRole", func() {
		It("is admin only", func() {
			err := service.UpdateRole(manager, 3, user.UpdateRoleDTO{Role: "manager"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAdminOnly))
		})

		It("accepts role aliases from older clients", func() {
			Expect(service.UpdateRole(admin, 3, user.UpdateRoleDTO{Role: "fax-intake"})).To(Succeed())
			Expect(repo.users[3].Role).To(Equal(internal.RoleFaxIntake))
		})

		It("rejects unknown roles", func() {
			err := service.UpdateRole(admin, 3, user.UpdateRoleDTO{Role: "superuser"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeInvalidRole))
		})

		It("never lets an admin change their own role", func() {
			err := service.UpdateRole(admin, admin.ID, user.UpdateRoleDTO{Role: "user"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeOwnRoleImmutable))
			Expect(repo.users[1].Role).To(Equal(internal.RoleAdmin))
		})

		It("returns not-found for unknown users", func() {
			err := service.UpdateRole(admin, 99, user.UpdateRoleDTO{Role: "manager"})
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})
	})

	Describe("AssignDepartment", func() {
		It("allows both managers and admins", func() {
			Expect(service.AssignDepartment(manager, 3, user.AssignDepartmentDTO{DepartmentID: deptID(7)})).To(Succeed())
			Expect(service.AssignDepartment(admin, 3, user.AssignDepartmentDTO{DepartmentID: nil})).To(Succeed())
			Expect(repo.users[3].DepartmentID).To(BeNil())
		})

		It("denies standard users", func() {
			err := service.AssignDepartment(standard, 3, user.AssignDepartmentDTO{DepartmentID: deptID(7)})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAccessDenied))
		})

		It("rejects unknown departments", func() {
			err := service.AssignDepartment(admin, 3, user.AssignDepartmentDTO{DepartmentID: deptID(99)})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeInvalidDepartment))
		})
	})

	Describe("DeleteUser", func() {
		It("is admin only", func() {
			err := service.DeleteUser(manager, 3)
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAdminOnly))
		})

		It("refuses self-deletion", func() {
			err := service.DeleteUser(admin, admin.ID)
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("blocks deletion while faxes or workflows reference the user", func() {
			repo.references[3] = 2
			err := service.DeleteUser(admin, 3)
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeUserReferenced))
			Expect(repo.users).To(HaveKey(int64(3)))
		})

		It("deletes an unreferenced user", func() {
			Expect(service.DeleteUser(admin, 3)).To(Succeed())
			Expect(repo.users).NotTo(HaveKey(int64(3)))
		})
	})
})
