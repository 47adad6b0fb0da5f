// Package repository contains data access logic separated from HTTP
// handlers. Every content query is scoped by owner: a row that exists but
// belongs to someone else is reported exactly like a missing row.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the id (and owner, for
// content tables).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create on a unique-key violation.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateToken is returned when the same token hash is stored twice.
var ErrDuplicateToken = errors.New("token already stored")

// mysqlDuplicateEntry is the server error number for unique-key violations.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
