package repository

import "testgen/internal/domain/entity"

// TestFileValidator runs static checks on generated spec files.
type TestFileValidator interface {
	Validate(files []*entity.TestFile) []*entity.ValidationError
	Name() string
}
