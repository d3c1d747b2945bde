package db

// PostgresDialect reads metadata from the PostgreSQL system catalogs
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return PostgreSQL }

func (PostgresDialect) SchemaSQL() string {
	return `
		SELECT n.nspname AS name
		FROM pg_catalog.pg_namespace n
		WHERE n.nspname NOT LIKE 'pg\_%'
			AND n.nspname <> 'information_schema'
		ORDER BY n.nspname
	`
}

const postgresTables = `
		SELECT
			c.relname AS label,
			c.relname AS name,
			obj_description(c.oid, 'pg_class') AS comment
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
			AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
	`

func (PostgresDialect) TableListSQL() string {
	return postgresTables + `ORDER BY c.relname`
}

func (PostgresDialect) TableSQL() string {
	return postgresTables + `AND c.relname = $2`
}

// FieldSQL reports identity and generated columns, and serial defaults, in extra.
func (PostgresDialect) FieldSQL() string {
	return `
		SELECT
			a.attname AS label,
			a.attname AS name,
			format_type(a.atttypid, a.atttypmod) AS type,
			CASE
				WHEN a.attidentity = 'a' THEN 'generated always as identity'
				WHEN a.attidentity = 'd' THEN 'generated by default as identity'
				WHEN a.attgenerated = 's' THEN 'generated always as stored'
				WHEN pg_get_expr(d.adbin, d.adrelid) LIKE 'nextval(%' THEN 'serial'
				ELSE ''
			END AS extra,
			a.attnotnull AS "notnull",
			CASE WHEN a.attgenerated = '' THEN pg_get_expr(d.adbin, d.adrelid) END AS "default",
			col_description(c.oid, a.attnum) AS comment
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE n.nspname = $1
			AND c.relname = $2
			AND a.attnum > 0
			AND NOT a.attisdropped
		ORDER BY a.attnum
	`
}

// IndexSQL lists key columns only; expression and INCLUDE columns are left out.
func (PostgresDialect) IndexSQL() string {
	return `
		SELECT
			i.relname AS name,
			a.attname AS field_name,
			x.indisunique AS unique_key,
			x.indisprimary AS primary_key
		FROM pg_catalog.pg_index x
		JOIN pg_catalog.pg_class c ON c.oid = x.indrelid
		JOIN pg_catalog.pg_class i ON i.oid = x.indexrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		CROSS JOIN LATERAL unnest(x.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1
			AND c.relname = $2
			AND k.ord <= x.indnkeyatts
		ORDER BY x.indisprimary DESC, i.relname, k.ord
	`
}

func (PostgresDialect) ForeignKeySQL() string {
	return `
		SELECT
			c.conname AS name,
			a.attname AS field_name,
			rt.relname AS ref_table_name,
			ra.attname AS ref_field_name
		FROM pg_catalog.pg_constraint c
		JOIN pg_catalog.pg_class t ON t.oid = c.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_class rt ON rt.oid = c.confrelid
		CROSS JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(attnum, ref_attnum, ord)
		JOIN pg_catalog.pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		JOIN pg_catalog.pg_attribute ra ON ra.attrelid = c.confrelid AND ra.attnum = k.ref_attnum
		WHERE c.contype = 'f'
			AND n.nspname = $1
			AND t.relname = $2
		ORDER BY c.conname, k.ord
	`
}
