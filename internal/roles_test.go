package internal_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/faxsign/faxsign/internal"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

var _ = Describe("Roles", func() {
	Describe("ParseRole", func() {
		It("accepts the canonical names", func() {
			for _, name := range []string{"admin", "manager", "user", "faxes"} {
				role, err := internal.ParseRole(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(role.String()).To(Equal(name))
			}
		})

		It("maps legacy aliases onto canonical roles", func() {
			role, err := internal.ParseRole("fax-intake")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(internal.RoleFaxIntake))

			role, err = internal.ParseRole("standard")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(internal.RoleStandard))
		})

		It("rejects unknown names", func() {
			_, err := internal.ParseRole("superuser")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("capabilities", func() {
		It("lets privileged roles and fax intake see all faxes", func() {
			Expect(internal.RoleAdmin.CanSeeAllFaxes()).To(BeTrue())
			Expect(internal.RoleManager.CanSeeAllFaxes()).To(BeTrue())
			Expect(internal.RoleFaxIntake.CanSeeAllFaxes()).To(BeTrue())
			Expect(internal.RoleStandard.CanSeeAllFaxes()).To(BeFalse())
		})

		It("restricts fax department assignment to managers, excluding admins", func() {
			Expect(internal.RoleManager.CanAssignFaxDepartment()).To(BeTrue())
			Expect(internal.RoleAdmin.CanAssignFaxDepartment()).To(BeFalse())
			Expect(internal.RoleFaxIntake.CanAssignFaxDepartment()).To(BeFalse())
			Expect(internal.RoleStandard.CanAssignFaxDepartment()).To(BeFalse())
		})

		It("restricts fax permission management to managers", func() {
			Expect(internal.RoleManager.CanManageFaxPermissions()).To(BeTrue())
			Expect(internal.RoleAdmin.CanManageFaxPermissions()).To(BeFalse())
		})

		It("lets admins and managers assign user departments", func() {
			Expect(internal.RoleAdmin.CanAssignUserDepartment()).To(BeTrue())
			Expect(internal.RoleManager.CanAssignUserDepartment()).To(BeTrue())
			Expect(internal.RoleStandard.CanAssignUserDepartment()).To(BeFalse())
		})

		It("restricts user and department administration to admins", func() {
			Expect(internal.RoleAdmin.CanAdministerUsers()).To(BeTrue())
			Expect(internal.RoleManager.CanAdministerUsers()).To(BeFalse())
			Expect(internal.RoleAdmin.CanManageDepartments()).To(BeTrue())
			Expect(internal.RoleManager.CanManageDepartments()).To(BeFalse())
		})

		It("gates uploads to admin, manager and fax intake", func() {
			Expect(internal.RoleAdmin.CanUploadFaxes()).To(BeTrue())
			Expect(internal.RoleManager.CanUploadFaxes()).To(BeTrue())
			Expect(internal.RoleFaxIntake.CanUploadFaxes()).To(BeTrue())
			Expect(internal.RoleStandard.CanUploadFaxes()).To(BeFalse())
		})
	})
})
