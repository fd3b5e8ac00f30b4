package workflow

type SignerDTO struct {
	UserID int64  `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required,max=255"`
}

type CreateWorkflowDTO struct {
	FaxID   int64       `json:"fax_id" validate:"required"`
	Name    string      `json:"name" validate:"required,max=255"`
	Signers []SignerDTO `json:"signers" validate:"required,min=1,dive"`
}

type SignDTO struct {
	Signature string `json:"signature_data" validate:"required"`
}
