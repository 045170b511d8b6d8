package database

import (
	"github.com/huandu/go-sqlbuilder"
)

// The builders below render $n placeholders.

// NewInsertBuilder returns a PostgreSQL insert builder
func NewInsertBuilder() *sqlbuilder.InsertBuilder {
	return sqlbuilder.PostgreSQL.NewInsertBuilder()
}

// NewSelectBuilder returns a PostgreSQL select builder
func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

// NewUpdateBuilder returns a PostgreSQL update builder
func NewUpdateBuilder() *sqlbuilder.UpdateBuilder {
	return sqlbuilder.PostgreSQL.NewUpdateBuilder()
}

// NewDeleteBuilder returns a PostgreSQL delete builder
func NewDeleteBuilder() *sqlbuilder.DeleteBuilder {
	return sqlbuilder.PostgreSQL.NewDeleteBuilder()
}
