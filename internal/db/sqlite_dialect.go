package db

// SQLiteDialect reads metadata through the pragma table-valued functions.
// Attached databases are reported as schemas; "main" is always present.
//
// ?1 is the schema name and ?2 the table name.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return SQLite }

func (SQLiteDialect) SchemaSQL() string {
	return `
		SELECT name
		FROM pragma_database_list
		WHERE name <> 'temp'
		ORDER BY name
	`
}

const sqliteTables = `
		SELECT
			name AS label,
			name AS name,
			'' AS comment
		FROM pragma_table_list
		WHERE schema = ?1
			AND type IN ('table', 'view')
			AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
	`

func (SQLiteDialect) TableListSQL() string {
	return sqliteTables + `ORDER BY name`
}

func (SQLiteDialect) TableSQL() string {
	return sqliteTables + `AND name = ?2`
}

func (SQLiteDialect) FieldSQL() string {
	return `
		SELECT
			name AS label,
			name AS name,
			type AS type,
			CASE WHEN pk > 0 THEN 'primary key' ELSE '' END AS extra,
			"notnull" AS "notnull",
			dflt_value AS "default",
			'' AS comment
		FROM pragma_table_info(?2, ?1)
		ORDER BY cid
	`
}

// IndexSQL reports a rowid primary key, which has no index of its own, as
// "pk_<table>".
func (SQLiteDialect) IndexSQL() string {
	return `
		SELECT name, field_name, unique_key, primary_key
		FROM (
			SELECT
				il.name AS name,
				ii.name AS field_name,
				il."unique" AS unique_key,
				il.origin = 'pk' AS primary_key,
				ii.seqno AS seq
			FROM pragma_index_list(?2, ?1) AS il
			JOIN pragma_index_info(il.name, ?1) AS ii
			WHERE ii.name IS NOT NULL
			UNION ALL
			SELECT 'pk_' || ?2, ti.name, 1, 1, ti.pk
			FROM pragma_table_info(?2, ?1) AS ti
			WHERE ti.pk > 0
				AND NOT EXISTS (
					SELECT 1 FROM pragma_index_list(?2, ?1) WHERE origin = 'pk'
				)
		)
		ORDER BY primary_key DESC, name, seq
	`
}

// ForeignKeySQL names each constraint "fk_<table>_<id>"; SQLite keeps no
// constraint names. A reference to the implicit primary key is resolved.
func (SQLiteDialect) ForeignKeySQL() string {
	return `
		SELECT
			'fk_' || ?2 || '_' || fk.id AS name,
			fk."from" AS field_name,
			fk."table" AS ref_table_name,
			COALESCE(fk."to", (
				SELECT p.name
				FROM pragma_table_info(fk."table", ?1) AS p
				WHERE p.pk = fk.seq + 1
			)) AS ref_field_name
		FROM pragma_foreign_key_list(?2, ?1) AS fk
		ORDER BY fk.id, fk.seq
	`
}
