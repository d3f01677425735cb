// Package core provides the business logic for dynamic schema management.
//
// Storage is reached through the [Store] interface and admin registration
// through [Registry]; the database package provides Postgres and in-memory
// stores and the admin package provides the registry.
//
// # Flow
//
// An upload goes through four steps:
//
//  1. The document is parsed by the schema package into table descriptions.
//  2. [Synthesize] turns each description into a [Model]: plain data naming
//     the table, its title and its recognized fields.
//  3. The [Migrator] creates missing tables and adds missing columns. It never
//     drops or renames anything, so re-applying a schema is a no-op.
//  4. Each model replaces the previous registration for its table name.
//
// [Service.ApplySchema] runs step 3 for all tables inside one transaction and
// only registers models once it committed.
//
// # Table Names
//
// Table names are derived from the identifier with a fixed prefix:
//
//	TableName("main_", "people") == "main_people"
//
// # Reading
//
// [Service.TableContent] returns every row of a registered table as a
// [TableContent] with field labels in Head and per-field values in Body.
package core
