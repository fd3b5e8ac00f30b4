package department

// Department is a named group; users and faxes reference at most one.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Repository defines the data access methods for departments.
type Repository interface {
	List() ([]*Department, error)
	Create(name string) (int64, error)
	Rename(id int64, name string) error
	Delete(id int64) error
	CountMembers(id int64) (int64, error)
}
