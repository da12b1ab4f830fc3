package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые маппятся в доменные ошибки.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation проверяет нарушение уникального ограничения.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}

// isForeignKeyViolation проверяет нарушение внешнего ключа (protected delete).
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation
}
