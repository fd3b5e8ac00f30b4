package department_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/department"
)

func TestDepartment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Department Suite")
}

type mockDepartmentRepository struct {
	departments map[int64]*department.Department
	members     map[int64]int64
	nextID      int64
}

func newMockDepartmentRepository() *mockDepartmentRepository {
	return &mockDepartmentRepository{
		departments: make(map[int64]*department.Department),
		members:     make(map[int64]int64),
		nextID:      1,
	}
}

func (m *mockDepartmentRepository) List() ([]*department.Department, error) {
	var out []*department.Department
	for _, d := range m.departments {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDepartmentRepository) Create(name string) (int64, error) {
	for _, d := range m.departments {
		if d.Name == name {
			return 0, internal.NewConflictError("department name already exists", internal.ErrCodeDuplicateEntry)
		}
	}
	id := m.nextID
	m.nextID++
	m.departments[id] = &department.Department{ID: id, Name: name}
	return id, nil
}

func (m *mockDepartmentRepository) Rename(id int64, name string) error {
	d, ok := m.departments[id]
	if !ok {
		return internal.ErrDepartmentNotFound
	}
	d.Name = name
	return nil
}

func (m *mockDepartmentRepository) Delete(id int64) error {
	if _, ok := m.departments[id]; !ok {
		return internal.ErrDepartmentNotFound
	}
	delete(m.departments, id)
	return nil
}

func (m *mockDepartmentRepository) CountMembers(id int64) (int64, error) {
	return m.members[id], nil
}

func appErrorCode(err error) internal.ErrorCode {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

var _ = Describe("Department service", func() {
	var (
		repo    *mockDepartmentRepository
		service *department.Service

		admin   *internal.Requester
		manager *internal.Requester
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	BeforeEach(func() {
		repo = newMockDepartmentRepository()
		service = department.NewService(repo, testLogger)

		admin = &internal.Requester{ID: 1, Role: internal.RoleAdmin}
		manager = &internal.Requester{ID: 2, Role: internal.RoleManager}
	})

	Describe("CreateDepartment", func() {
		It("is admin only", func() {
			_, err := service.CreateDepartment(manager, department.DepartmentDTO{Name: "Claims"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeAdminOnly))
		})

		It("trims and requires the name", func() {
			_, err := service.CreateDepartment(admin, department.DepartmentDTO{Name: "   "})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeValidationFailed))

			id, err := service.CreateDepartment(admin, department.DepartmentDTO{Name: "  Claims  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.departments[id].Name).To(Equal("Claims"))
		})

		It("rejects duplicate names", func() {
			_, err := service.CreateDepartment(admin, department.DepartmentDTO{Name: "Claims"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateDepartment(admin, department.DepartmentDTO{Name: "Claims"})
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeDuplicateEntry))
		})
	})

	Describe("RenameDepartment", func() {
		It("renames an existing department", func() {
			id, err := service.CreateDepartment(admin, department.DepartmentDTO{Name: "Claims"})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.RenameDepartment(admin, id, department.DepartmentDTO{Name: "Billing"})).To(Succeed())
			Expect(repo.departments[id].Name).To(Equal("Billing"))
		})

		It("returns not-found for unknown ids", func() {
			err := service.RenameDepartment(admin, 99, department.DepartmentDTO{Name: "Billing"})
			Expect(errors.Is(err, internal.ErrDepartmentNotFound)).To(BeTrue())
		})
	})

	Describe("DeleteDepartment", func() {
		It("blocks deletion while users are assigned", func() {
			id, err := service.CreateDepartment(admin, department.DepartmentDTO{Name: "Claims"})
			Expect(err).NotTo(HaveOccurred())
			repo.members[id] = 3

			err = service.DeleteDepartment(admin, id)
			Expect(appErrorCode(err)).To(Equal(internal.ErrCodeDepartmentInUse))
			Expect(repo.departments).To(HaveKey(id))
		})

		It("deletes an empty department", func() {
			id, err := service.CreateDepartment(admin, department.DepartmentDTO{Name: "Claims"})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteDepartment(admin, id)).To(Succeed())
			Expect(repo.departments).NotTo(HaveKey(id))
		})
	})
})
