package fax

type UploadDTO struct {
	FaxNumber  string `json:"fax_number" validate:"required,max=64"`
	SenderName string `json:"sender_name" validate:"required,max=255"`
	GroupID    string `json:"group_id" validate:"omitempty,max=64"`
}

type UpdateStatusDTO struct {
	Status string `json:"status" validate:"required"`
}

type SetPermissionsDTO struct {
	UserIDs []int64 `json:"user_ids" validate:"required"`
}

type AssignDepartmentDTO struct {
	DepartmentID *int64 `json:"department_id"`
}

type CommentDTO struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}
