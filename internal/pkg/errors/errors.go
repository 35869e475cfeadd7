package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	// Репозитории переводят в нее gorm.ErrRecordNotFound и redis.Nil,
	// чтобы вызывающий код не зависел от конкретного хранилища.
	ErrNotFound = errors.New("record not found")
)
