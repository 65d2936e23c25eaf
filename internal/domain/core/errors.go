package core

import "errors"

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDepartmentInUse    = errors.New("department still has employees")
	ErrDuplicateCode      = errors.New("employee code already in use")
	ErrInvalidEmployee    = errors.New("invalid employee")
	ErrInvalidDepartment  = errors.New("invalid department")
)
