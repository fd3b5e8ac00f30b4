package department

type DepartmentDTO struct {
	Name string `json:"name" validate:"required,max=128"`
}
