package db

// MySQLDialect reads metadata from information_schema. A MySQL database is
// reported as a schema.
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return MySQL }

func (MySQLDialect) SchemaSQL() string {
	return `
		SELECT schema_name AS name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
		ORDER BY schema_name
	`
}

const mysqlTables = `
		SELECT
			table_name AS label,
			table_name AS name,
			table_comment AS comment
		FROM information_schema.tables
		WHERE table_schema = ?
	`

func (MySQLDialect) TableListSQL() string {
	return mysqlTables + `ORDER BY table_name`
}

func (MySQLDialect) TableSQL() string {
	return mysqlTables + `AND table_name = ?`
}

func (MySQLDialect) FieldSQL() string {
	return "\n" +
		"SELECT\n" +
		"	column_name AS label,\n" +
		"	column_name AS name,\n" +
		"	column_type AS type,\n" +
		"	extra AS extra,\n" +
		"	CASE is_nullable WHEN 'NO' THEN 1 ELSE 0 END AS `notnull`,\n" +
		"	column_default AS `default`,\n" +
		"	column_comment AS comment\n" +
		"FROM information_schema.columns\n" +
		"WHERE table_schema = ? AND table_name = ?\n" +
		"ORDER BY ordinal_position\n"
}

// IndexSQL skips functional key parts, which have no column name.
func (MySQLDialect) IndexSQL() string {
	return `
		SELECT
			index_name AS name,
			column_name AS field_name,
			CASE non_unique WHEN 0 THEN 1 ELSE 0 END AS unique_key,
			CASE index_name WHEN 'PRIMARY' THEN 1 ELSE 0 END AS primary_key
		FROM information_schema.statistics
		WHERE table_schema = ?
			AND table_name = ?
			AND column_name IS NOT NULL
		ORDER BY index_name = 'PRIMARY' DESC, index_name, seq_in_index
	`
}

func (MySQLDialect) ForeignKeySQL() string {
	return `
		SELECT
			constraint_name AS name,
			column_name AS field_name,
			referenced_table_name AS ref_table_name,
			referenced_column_name AS ref_field_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position
	`
}
